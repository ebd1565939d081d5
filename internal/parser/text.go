package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/tokscope/tokscope/internal/markup"
)

// TextParser handles plain text files. Blank-line-separated paragraphs
// become leaf nodes under a synthetic document root.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*markup.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	root := newDocumentRoot(docTitle(filename))

	// Each paragraph becomes a child node.
	for _, para := range paragraphs {
		root.Children = append(root.Children, &markup.Node{
			Tag:  "p",
			Text: para,
		})
	}

	markup.Finalize(root)
	return root, nil
}
