package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/tokscope/tokscope/internal/markup"
)

// PDFParser emits one node per page, which is usually the interesting
// weight grain for PDFs. It tries the pure-Go reader first and can fall
// back to a pdftotext binary for files the reader chokes on.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*markup.Node, error) {
	path, _, err := spillToTemp(r, "tokscope-pdf-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	pages, err := pdfPages(path)
	if err != nil && p.FallbackPdftotext {
		pages, err = pdftotextPages(path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	root := newDocumentRoot(docTitle(filename))
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		root.Children = append(root.Children, &markup.Node{
			Tag:  "page",
			Text: page,
			Attributes: map[string]string{
				"page": strconv.Itoa(i + 1),
			},
		})
	}

	markup.Finalize(root)
	return root, nil
}

// pdfPages extracts text page by page. A page that fails to decode yields
// an empty slot so the page numbering of the rest stays truthful.
func pdfPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, reader.NumPage())
	for i := range pages {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i] = text
	}
	return pages, nil
}

// pdftotextPages shells out to pdftotext, which writes a form feed between
// pages on stdout.
func pdftotextPages(path string) ([]string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(string(out), "\f"), nil
}
