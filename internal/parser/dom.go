package parser

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/tokscope/tokscope/internal/markup"
)

// rawElem is the generic decode target for the whole-document strategy.
// encoding/xml fills it recursively: ",any" collects every child element
// and ",chardata" merges all character data (including CDATA) directly
// inside the element. Comments are skipped by the decoder.
type rawElem struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []rawElem  `xml:",any"`
}

// parseDOM decodes the entire document in one pass, then derives identity
// fields in a single finalize walk. Used below the stream threshold, where
// holding the generic tree in memory is cheap.
func parseDOM(ctx context.Context, text string, opts Options, emit func(Event)) {
	total := int64(len(text))
	emit(Event{Type: EventProgress, Progress: Progress{Done: 0, Total: total, Stage: "parse"}})

	dec := newDecoder(strings.NewReader(text))
	var tops []*markup.Node
	for {
		if err := ctx.Err(); err != nil {
			emit(Event{Type: EventError, Err: &ParseError{Message: "parse canceled: " + err.Error()}})
			return
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			emit(Event{Type: EventError, Err: toParseError(err)})
			return
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			// Character data, comments, and directives at top level carry
			// no structure.
			continue
		}
		var raw rawElem
		if err := dec.DecodeElement(&raw, &start); err != nil {
			emit(Event{Type: EventError, Err: toParseError(err)})
			return
		}
		tops = append(tops, fromRaw(&raw, opts))
	}

	emit(Event{Type: EventProgress, Progress: Progress{Done: total, Total: total, Stage: "build"}})
	root := assembleRoot(tops)
	markup.Finalize(root)
	emit(Event{Type: EventDone, Root: root})
}

// fromRaw converts the generic decode tree into node shape. Identity
// fields are filled later by markup.Finalize.
func fromRaw(raw *rawElem, opts Options) *markup.Node {
	n := &markup.Node{
		Tag:        raw.XMLName.Local,
		Attributes: attrMap(raw.XMLName, raw.Attrs, opts),
		Text:       blankToEmpty(raw.Text),
	}
	for i := range raw.Children {
		n.Children = append(n.Children, fromRaw(&raw.Children[i], opts))
	}
	return n
}
