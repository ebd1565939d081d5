package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tokscope/tokscope/internal/markup"
)

// chunkReader caps each read at chunkSize so the incremental strategy
// consumes input in bounded chunks no matter how the decoder buffers.
type chunkReader struct {
	r *strings.Reader
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > chunkSize {
		p = p[:chunkSize]
	}
	return c.r.Read(p)
}

// frame tracks one open element during the incremental parse.
type frame struct {
	node   *markup.Node
	text   strings.Builder
	counts map[string]int // sibling index per child tag
}

// parseStream is the incremental strategy for large inputs: a token loop
// over an explicit element stack. Nodes are finalized the moment their
// close tag arrives, so completed subtrees can be emitted while the rest
// of the document is still being read, and memory stays proportional to
// the tree rather than to decoder state.
func parseStream(ctx context.Context, text string, opts Options, emit func(Event)) {
	total := int64(len(text))
	emit(Event{Type: EventProgress, Progress: Progress{Done: 0, Total: total, Stage: "parse"}})

	dec := newDecoder(&chunkReader{r: strings.NewReader(text)})

	// The virtual bottom frame collects top-level elements; its empty path
	// makes top-level segments start the path.
	virtual := &frame{node: &markup.Node{Tag: markup.DocumentTag}}
	stack := []*frame{virtual}
	lastTick := time.Now()

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			emit(Event{Type: EventError, Err: toParseError(err)})
			return
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := stack[len(stack)-1]
			if parent.counts == nil {
				parent.counts = make(map[string]int)
			}
			tag := t.Name.Local
			parent.counts[tag]++
			node := &markup.Node{
				Tag:        tag,
				Attributes: attrMap(t.Name, t.Attr, opts),
				Path:       markup.Join(parent.node.Path, markup.Segment(tag, parent.counts[tag])),
			}
			stack = append(stack, &frame{node: node})

		case xml.EndElement:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			closeFrame(top)
			parent := stack[len(stack)-1]
			parent.node.Children = append(parent.node.Children, top.node)
			// Top-level elements and their direct children are useful
			// increments; deeper completions are too chatty.
			if len(stack) <= 2 && time.Since(lastTick) >= progressWindow {
				emit(Event{Type: EventPartial, Subtree: top.node})
			}

		case xml.CharData:
			if len(stack) > 1 {
				stack[len(stack)-1].text.Write(t)
			}
			// Top-level character data is ignored, as in the
			// whole-document strategy.
		}
		// Comments and directives carry no content; the sanitizer already
		// removed processing instructions and DOCTYPEs.

		if time.Since(lastTick) >= progressWindow {
			if err := ctx.Err(); err != nil {
				emit(Event{Type: EventError, Err: &ParseError{Message: "parse canceled: " + err.Error()}})
				return
			}
			emit(Event{Type: EventProgress, Progress: Progress{Done: dec.InputOffset(), Total: total, Stage: "parse"}})
			lastTick = time.Now()
			runtime.Gosched()
		}
	}

	if len(stack) != 1 {
		// Strict mode normally reports unclosed elements itself; this is
		// the backstop.
		emit(Event{Type: EventError, Err: &ParseError{
			Message: fmt.Sprintf("unexpected end of input with %d unclosed element(s)", len(stack)-1),
		}})
		return
	}

	root := assembleRoot(virtual.node.Children)
	if root.Tag == markup.DocumentTag {
		closeSynthetic(root)
	}
	emit(Event{Type: EventProgress, Progress: Progress{Done: total, Total: total, Stage: "build"}})
	emit(Event{Type: EventDone, Root: root})
}

// closeFrame derives the identity fields of a node whose close tag just
// arrived. Mirrors what markup.Finalize computes in the whole-document
// strategy; the two must stay in lockstep.
func closeFrame(f *frame) {
	f.node.Text = blankToEmpty(f.text.String())
	f.node.CharCount = utf8.RuneCountInString(f.node.Text)
	f.node.ContentHash = markup.ContentHash(f.node.Attributes, f.node.Text)
	f.node.Kind = markup.Classify(f.node.Tag, f.node.Text, len(f.node.Children))
}

// closeSynthetic finalizes the synthetic document root in the zero-or-many
// top-level elements case.
func closeSynthetic(root *markup.Node) {
	root.Path = markup.DocumentTag
	root.CharCount = 0
	root.ContentHash = markup.ContentHash(root.Attributes, "")
	root.Kind = markup.Classify(root.Tag, "", len(root.Children))
}
