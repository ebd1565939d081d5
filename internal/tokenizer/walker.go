package tokenizer

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/tokscope/tokscope/internal/markup"
)

// flushWindow caps how often batched updates go out. A final flush always
// happens at traversal completion regardless of the window.
const flushWindow = 16 * time.Millisecond

// Update is one observed count, keyed by both identity (path) and content
// (hash) so consumers can fold totals either way.
type Update struct {
	Path   string `json:"id"`
	Hash   string `json:"hash"`
	Tokens int    `json:"tokens"`
	Source Source `json:"source"`
}

// EventType discriminates walker events.
type EventType string

const (
	EventProgress EventType = "progress"
	EventPartial  EventType = "partial"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Progress reports nodes processed out of the tree's node count.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Done closes the stream with the total observed under one model. The
// total is a point-in-time sum; counts that improve later (approximate
// nodes re-counted with text) are not folded back into it.
type Done struct {
	ModelID     string `json:"model_id"`
	TotalTokens int    `json:"total_tokens"`
}

// Event is one message from a Walk. Type selects which field is set; Err
// is only set for EventError.
type Event struct {
	Type     EventType
	Progress Progress
	Updates  []Update
	Done     Done
	Err      error
}

// Walk counts every node of the tree under modelID, breadth first,
// invoking emit with batched updates and rate-limited progress. Exactly
// one terminal event (done or error) is emitted, always last. The tree
// belongs to the caller and is never mutated.
func Walk(ctx context.Context, root *markup.Node, modelID string, reg *Registry, emit func(Event)) {
	adapter, err := reg.Resolve(modelID)
	if err != nil {
		emit(Event{Type: EventError, Err: err})
		return
	}
	if err := adapter.EnsureReady(modelID); err != nil {
		emit(Event{Type: EventError, Err: fmt.Errorf("prepare tokenizer for %s: %w", modelID, err)})
		return
	}
	if err := ctx.Err(); err != nil {
		emit(Event{Type: EventError, Err: fmt.Errorf("tokenize canceled: %w", err)})
		return
	}
	if root == nil {
		emit(Event{Type: EventDone, Done: Done{ModelID: modelID}})
		return
	}

	total := markup.CountNodes(root)
	emit(Event{Type: EventProgress, Progress: Progress{Processed: 0, Total: total}})

	var (
		queue       = []*markup.Node{root}
		batch       []Update
		processed   int
		totalTokens int
		lastFlush   = time.Now()
	)
	flush := func() {
		if len(batch) > 0 {
			emit(Event{Type: EventPartial, Updates: batch})
			batch = nil
		}
		emit(Event{Type: EventProgress, Progress: Progress{Processed: processed, Total: total}})
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		// Children enqueue before the node's own count so the frontier
		// stays wide and shallow levels surface early.
		queue = append(queue, n.Children...)

		c := GetOrCount(adapter, Query{
			Hash:        n.ContentHash,
			ModelID:     modelID,
			Text:        n.Text,
			HasText:     nodeHasText(n),
			CharCount:   n.CharCount,
			AllowApprox: true,
		})
		totalTokens += c.Tokens
		batch = append(batch, Update{Path: n.Path, Hash: n.ContentHash, Tokens: c.Tokens, Source: c.Source})
		processed++

		if time.Since(lastFlush) >= flushWindow {
			flush()
			if err := ctx.Err(); err != nil {
				emit(Event{Type: EventError, Err: fmt.Errorf("tokenize canceled: %w", err)})
				return
			}
			lastFlush = time.Now()
			// The window was blown; give the scheduler a chance before
			// continuing.
			runtime.Gosched()
		}
	}

	flush()
	emit(Event{Type: EventDone, Done: Done{ModelID: modelID, TotalTokens: totalTokens}})
}

// nodeHasText decides whether a node's text is genuinely available. Empty
// text alongside a positive character count means the content was dropped
// upstream, for example a snapshot rehydrated without text; such nodes
// fall back to approximation rather than being counted as empty.
func nodeHasText(n *markup.Node) bool {
	return n.Text != "" || n.CharCount == 0
}
