// Package parser turns raw document bytes into markup.Node trees. XML input
// runs through a sanitizing pass and one of two strategies picked by input
// size; other formats (HTML, Markdown, DOCX, PDF, CSV, plain text) are
// handled by per-format front-ends that produce the same tree shape.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tokscope/tokscope/internal/markup"
)

// Parser converts raw document bytes into a markup tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*markup.Node, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".xml":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xml":
		return &XMLParser{Opts: DefaultOptions()}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{Opts: DefaultOptions()}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// ForFormat returns the parser for an explicit format name, for callers
// that receive raw text without a filename. An empty format means XML.
func ForFormat(format string) (Parser, error) {
	switch strings.ToLower(format) {
	case "", "xml":
		return &XMLParser{Opts: DefaultOptions()}, nil
	case "txt", "text":
		return &TextParser{}, nil
	case "md", "markdown":
		return &MarkdownParser{}, nil
	case "csv":
		return &CSVParser{}, nil
	case "html":
		return &HTMLParser{Opts: DefaultOptions()}, nil
	case "pdf":
		return &PDFParser{}, nil
	case "docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// docTitle derives a display title from a filename.
func docTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// newDocumentRoot builds the synthetic root node that non-XML front-ends
// hang their content from.
func newDocumentRoot(title string) *markup.Node {
	n := &markup.Node{Tag: markup.DocumentTag}
	if title != "" {
		n.Attributes = map[string]string{"title": title}
	}
	return n
}

// spillToTemp copies r to a temp file for format libraries that need an
// io.ReaderAt plus size instead of a stream. The caller removes the file.
func spillToTemp(r io.Reader, pattern string) (path string, size int64, err error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	size, err = io.Copy(tmp, r)
	cerr := tmp.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	return tmp.Name(), size, nil
}
