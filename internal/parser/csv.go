package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tokscope/tokscope/internal/markup"
)

// CSVParser handles CSV files. Each record becomes a row node whose text
// pairs header names with cell values, so per-row weight shows up directly
// in the tree.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*markup.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	root := newDocumentRoot(docTitle(filename))
	if len(records) == 0 {
		markup.Finalize(root)
		return root, nil
	}

	// First row is headers.
	headers := records[0]
	root.Children = append(root.Children, &markup.Node{
		Tag:  "header",
		Text: strings.Join(headers, ", "),
	})

	for i, row := range records[1:] {
		var text strings.Builder
		for j, cell := range row {
			if j > 0 {
				text.WriteString(", ")
			}
			if j < len(headers) {
				text.WriteString(headers[j] + ": " + cell)
			} else {
				text.WriteString(cell)
			}
		}
		root.Children = append(root.Children, &markup.Node{
			Tag:  "row",
			Text: text.String(),
			Attributes: map[string]string{
				"line": strconv.Itoa(i + 2), // 1-indexed, skip header
			},
		})
	}

	markup.Finalize(root)
	return root, nil
}
