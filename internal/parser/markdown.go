package parser

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/tokscope/tokscope/internal/markup"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Heading levels
// become nested section nodes; other blocks become leaf children of the
// section they fall under.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*markup.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	// Walk the AST and build a tree based on heading levels.
	// We use a stack to track the current nesting.
	type stackEntry struct {
		node  *markup.Node
		level int
	}

	// Root is level 0 — all h1+ nest under it.
	root := newDocumentRoot(docTitle(filename))
	stack := []stackEntry{{node: root, level: 0}}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			level := node.Level
			section := &markup.Node{
				Tag:  "section",
				Text: blockText(node, src),
				Attributes: map[string]string{
					"level": strconv.Itoa(level),
				},
			}

			// Pop stack until we find a parent with lower level.
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}

			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, section)
			stack = append(stack, stackEntry{node: section, level: level})

		default:
			t := blockText(n, src)
			if t == "" {
				continue
			}
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, &markup.Node{
				Tag:  blockTag(n),
				Text: t,
			})
		}
	}

	markup.Finalize(root)
	return root, nil
}

// blockTag maps a goldmark block kind onto a tag name.
func blockTag(n ast.Node) string {
	switch n.Kind() {
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		return "code"
	case ast.KindList:
		return "list"
	case ast.KindBlockquote:
		return "quote"
	default:
		return "p"
	}
}

// blockText gets the text content of a goldmark AST node. Raw blocks (code
// fences) carry their text in source lines; everything else carries it in
// inline children, and reading both would double the text.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.IsRaw() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		s := blockText(c, src)
		if s == "" {
			continue
		}
		// Nested blocks (list items, quoted paragraphs) separate with a
		// newline; inline spans run together.
		if c.Type() == ast.TypeBlock && buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(s)
	}
	return strings.TrimSpace(buf.String())
}
