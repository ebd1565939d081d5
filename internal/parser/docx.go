package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/tokscope/tokscope/internal/markup"
)

// DOCXParser handles .docx files. Heading-styled paragraphs open nested
// section nodes; body paragraphs become leaf children.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*markup.Node, error) {
	// go-docx needs a ReaderAt plus size, so spill the stream first.
	path, size, err := spillToTemp(r, "tokscope-docx-*.docx")
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reopen temp file: %w", err)
	}
	doc, err := docx.Parse(f, size)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	type stackEntry struct {
		node  *markup.Node
		level int
	}
	root := newDocumentRoot(docTitle(filename))
	stack := []stackEntry{{node: root, level: 0}}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}

		level := docxHeadingLevel(para)
		text := docxParagraphText(para)

		if level > 0 && text != "" {
			section := &markup.Node{
				Tag:  "section",
				Text: text,
				Attributes: map[string]string{
					"level": strconv.Itoa(level),
				},
			}
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, section)
			stack = append(stack, stackEntry{node: section, level: level})
		} else if text != "" {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, &markup.Node{
				Tag:  "p",
				Text: text,
			})
		}
	}

	markup.Finalize(root)
	return root, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	for lvl := 1; lvl <= 6; lvl++ {
		if strings.EqualFold(style, fmt.Sprintf("Heading%d", lvl)) ||
			strings.EqualFold(style, fmt.Sprintf("heading %d", lvl)) {
			return lvl
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
