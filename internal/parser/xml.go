package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tokscope/tokscope/internal/markup"
	"github.com/tokscope/tokscope/internal/sanitize"
)

const (
	// DefaultStreamThreshold is the sanitized input size at which parsing
	// switches from the whole-document strategy to the incremental one.
	DefaultStreamThreshold = 2 << 20 // 2 MiB

	// chunkSize bounds how much input the incremental strategy pulls per
	// read.
	chunkSize = 64 * 1024

	// progressWindow rate-limits progress and partial emissions.
	progressWindow = 16 * time.Millisecond
)

// Options controls XML parsing behavior. The zero value is valid but keeps
// no attributes; DefaultOptions is what callers normally start from.
type Options struct {
	// PreserveAttributes keeps element attributes on nodes and folds them
	// into content hashes. When false, attributes are discarded entirely.
	PreserveAttributes bool

	// HonorNamespaces records the resolved namespace of namespaced
	// elements as an "xmlns" attribute. When false, namespaces are
	// ignored and only local names are used.
	HonorNamespaces bool

	// StreamThreshold overrides DefaultStreamThreshold; zero means use
	// the default.
	StreamThreshold int
}

// DefaultOptions returns the standard parse configuration.
func DefaultOptions() Options {
	return Options{
		PreserveAttributes: true,
		StreamThreshold:    DefaultStreamThreshold,
	}
}

func (o Options) withDefaults() Options {
	if o.StreamThreshold <= 0 {
		o.StreamThreshold = DefaultStreamThreshold
	}
	return o
}

// ParseError describes where and why parsing failed. Col is zero when the
// underlying decoder only reports line numbers.
type ParseError struct {
	Message string
	Line    int
	Col     int
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Col > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Col, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EventType discriminates parse stream events.
type EventType string

const (
	EventProgress EventType = "progress"
	EventPartial  EventType = "partial"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Progress reports how far a parse has advanced through its input.
type Progress struct {
	Done  int64  `json:"done"`
	Total int64  `json:"total"`
	Stage string `json:"stage"`
}

// Event is one entry in the ordered parse stream. Exactly one of the
// payload fields is set, according to Type. Every parse ends with exactly
// one EventDone or EventError.
type Event struct {
	Type     EventType
	Progress Progress     // EventProgress
	Subtree  *markup.Node // EventPartial: a completed subtree
	Root     *markup.Node // EventDone: the finished tree
	Err      *ParseError  // EventError
}

// Run sanitizes raw markup, picks a strategy by sanitized size, and parses,
// invoking emit for each event in order. Run is synchronous: it returns
// after the terminal event has been emitted. Cancellation is advisory and
// checked between chunks, so a cancelled parse still terminates cleanly
// with an error event.
func Run(ctx context.Context, raw string, opts Options, emit func(Event)) {
	opts = opts.withDefaults()

	emit(Event{Type: EventProgress, Progress: Progress{Done: 0, Total: int64(len(raw)), Stage: "sanitize"}})
	clean := sanitize.Clean(raw)
	if err := ctx.Err(); err != nil {
		emit(Event{Type: EventError, Err: &ParseError{Message: "parse canceled: " + err.Error()}})
		return
	}

	if len(clean) >= opts.StreamThreshold {
		parseStream(ctx, clean, opts, emit)
		return
	}
	parseDOM(ctx, clean, opts, emit)
}

// ParseString runs a full parse and waits for the terminal event.
func ParseString(ctx context.Context, raw string, opts Options) (*markup.Node, error) {
	var root *markup.Node
	var perr *ParseError
	Run(ctx, raw, opts, func(ev Event) {
		switch ev.Type {
		case EventDone:
			root = ev.Root
		case EventError:
			perr = ev.Err
		}
	})
	if perr != nil {
		return nil, perr
	}
	return root, nil
}

// XMLParser adapts the XML engine to the Parser interface.
type XMLParser struct {
	Opts Options
}

func (p *XMLParser) Parse(r io.Reader, filename string) (*markup.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return ParseString(context.Background(), string(src), p.Opts)
}

// newDecoder applies the shared decoder setup for both strategies. Strict
// mode stays on so structural damage surfaces as errors; HTML entities are
// resolved so sanitized documents that used common named entities still
// parse. Entities defined by a stripped DOCTYPE stay unresolvable and are
// rejected, which is the point.
func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity
	return dec
}

// attrMap converts decoder attributes according to Options. Namespace
// declarations (xmlns, xmlns:*) are machinery, not content, and are never
// kept; with HonorNamespaces the element's resolved namespace is recorded
// under "xmlns" instead.
func attrMap(name xml.Name, attrs []xml.Attr, opts Options) map[string]string {
	if !opts.PreserveAttributes {
		return nil
	}
	var m map[string]string
	put := func(k, v string) {
		if m == nil {
			m = make(map[string]string)
		}
		m[k] = v
	}
	for _, a := range attrs {
		if a.Name.Local == "xmlns" || a.Name.Space == "xmlns" {
			continue
		}
		put(a.Name.Local, a.Value)
	}
	if opts.HonorNamespaces && name.Space != "" {
		put("xmlns", name.Space)
	}
	return m
}

// blankToEmpty drops whitespace-only text so formatting indentation does
// not masquerade as content; non-blank text is kept verbatim to preserve
// hash identity.
func blankToEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

// assembleRoot applies the root convention: a single top-level element is
// the root itself; zero or several get wrapped in a synthetic document
// node.
func assembleRoot(tops []*markup.Node) *markup.Node {
	if len(tops) == 1 {
		return tops[0]
	}
	return &markup.Node{Tag: markup.DocumentTag, Children: tops}
}

// toParseError maps decoder errors onto ParseError, pulling position info
// out when the decoder provides it.
func toParseError(err error) *ParseError {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &ParseError{Message: se.Msg, Line: se.Line}
	}
	return &ParseError{Message: err.Error()}
}
