package parser

import (
	"strings"
	"testing"

	"github.com/tokscope/tokscope/internal/markup"
)

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := &MarkdownParser{}
	root, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := root.Attributes["title"]; got != "doc" {
		t.Errorf("expected title %q, got %q", "doc", got)
	}

	// Top-level: one h1 ("Title")
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 top-level child (h1), got %d", len(root.Children))
	}

	h1 := root.Children[0]
	if h1.Text != "Title" {
		t.Errorf("expected h1 section text %q, got %q", "Title", h1.Text)
	}

	// "Intro text." is a paragraph child of the h1 section.
	if len(h1.Children) != 3 {
		t.Fatalf("expected intro + 2 h2 children, got %d", len(h1.Children))
	}
	if h1.Children[0].Tag != "p" || h1.Children[0].Text != "Intro text." {
		t.Errorf("intro block = %q %q", h1.Children[0].Tag, h1.Children[0].Text)
	}

	secA := h1.Children[1]
	if secA.Text != "Section A" {
		t.Errorf("expected %q, got %q", "Section A", secA.Text)
	}
	// Section A holds its paragraph and one h3 child.
	if len(secA.Children) != 2 {
		t.Fatalf("expected paragraph + h3 under Section A, got %d", len(secA.Children))
	}
	if secA.Children[0].Text != "Section A content." {
		t.Errorf("section A paragraph = %q", secA.Children[0].Text)
	}
	sub := secA.Children[1]
	if sub.Text != "Subsection A1" || sub.Attributes["level"] != "3" {
		t.Errorf("expected Subsection A1 at level 3, got %q level %q", sub.Text, sub.Attributes["level"])
	}

	secB := h1.Children[2]
	if secB.Text != "Section B" {
		t.Errorf("expected %q, got %q", "Section B", secB.Text)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	root, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No headings: each block becomes a paragraph node under the root.
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 paragraph nodes, got %d", len(root.Children))
	}
	if root.Children[0].Text != "Just some plain text." {
		t.Errorf("first paragraph = %q", root.Children[0].Text)
	}
	if root.Children[1].Text != "Another paragraph here." {
		t.Errorf("second paragraph = %q", root.Children[1].Text)
	}
}

func TestMarkdownParser_MixedContentWithCodeBlocks(t *testing.T) {
	input := "# API Reference\n\nSome intro.\n\n## Endpoints\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	root, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should have one h1 child
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 top-level child, got %d", len(root.Children))
	}

	h1 := root.Children[0]
	if h1.Text != "API Reference" {
		t.Errorf("expected h1 %q, got %q", "API Reference", h1.Text)
	}

	var endpoints *markup.Node
	for _, c := range h1.Children {
		if c.Tag == "section" && c.Text == "Endpoints" {
			endpoints = c
		}
	}
	if endpoints == nil {
		t.Fatal("expected an Endpoints section")
	}

	// The endpoints section holds its paragraphs and the code block as
	// separate children.
	var code *markup.Node
	var after bool
	for _, c := range endpoints.Children {
		if c.Tag == "code" {
			code = c
		}
		if c.Text == "More text after code." {
			after = true
		}
	}
	if code == nil {
		t.Fatal("expected a code node under Endpoints")
	}
	if !strings.Contains(code.Text, "GET /api/users") {
		t.Errorf("expected code block content, got %q", code.Text)
	}
	if !after {
		t.Error("expected post-code paragraph under Endpoints")
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	root, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Children) != 0 {
		t.Errorf("expected 0 children for empty input, got %d", len(root.Children))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		root, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if got := root.Attributes["title"]; got != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, got)
		}
	}
}
