package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/tokscope/tokscope/internal/markup"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Unlike the XML engine it leans on
// x/net/html, whose tolerant tokenizer already neutralizes the constructs
// the sanitizer strips from XML.
type HTMLParser struct {
	Opts Options
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*markup.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// html.Parse always supplies the html/head/body skeleton, so the
	// document has exactly one element root.
	elem := findElement(doc)
	if elem == nil {
		root := newDocumentRoot(docTitle(filename))
		markup.Finalize(root)
		return root, nil
	}

	root := fromHTML(elem, p.Opts)
	markup.Finalize(root)
	return root, nil
}

// fromHTML converts an element subtree into node shape. Text nodes merge
// into the owning element's own text; comments and doctypes are dropped.
func fromHTML(n *html.Node, opts Options) *markup.Node {
	out := &markup.Node{Tag: n.Data}
	if opts.PreserveAttributes && len(n.Attr) > 0 {
		out.Attributes = make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			out.Attributes[a.Key] = a.Val
		}
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text.WriteString(c.Data)
		case html.ElementNode:
			out.Children = append(out.Children, fromHTML(c, opts))
		}
	}
	out.Text = blankToEmpty(text.String())
	return out
}

// findElement returns the first element node under n, depth-first.
func findElement(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if e := findElement(c); e != nil {
			return e
		}
	}
	return nil
}
