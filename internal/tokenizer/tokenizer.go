// Package tokenizer provides model-aware token counting over markup trees:
// per-family adapters, a process-lifetime count cache keyed by content hash
// and model, and a breadth-first walker that streams batched updates.
package tokenizer

// Source tells a caller how a count was obtained. Approximate counts are
// never promoted to exact: a heuristic family reports SourceApprox even on
// a cache hit.
type Source string

const (
	SourceExact   Source = "exact"
	SourceApprox  Source = "approx"
	SourceUnknown Source = "unknown"
)

// Count is a token measurement with its provenance.
type Count struct {
	Tokens int
	Source Source
}

// Query names one element to count: content identity plus whatever
// material the caller can supply.
type Query struct {
	Hash    string
	ModelID string

	// Text is the element's own text. HasText distinguishes "empty text"
	// from "text unavailable".
	Text    string
	HasText bool

	// CharCount feeds the approximation path when text is unavailable.
	CharCount int

	// AllowApprox permits a heuristic estimate on a cache miss without
	// text.
	AllowApprox bool
}

// Adapter counts tokens for one model family. Exactly one adapter instance
// exists per family per registry, so every consumer of a family shares its
// cache.
type Adapter interface {
	// Family names the adapter, e.g. "openai".
	Family() string

	// Precise reports whether CountText implements the family's real
	// algorithm. False means every count, cached or not, is a documented
	// approximation.
	Precise() bool

	// EnsureReady loads whatever counting under modelID needs (encoder
	// data). A load failure is remembered, not retried per call.
	EnsureReady(modelID string) error

	// CountText returns the token count of text under modelID.
	CountText(modelID, text string) (int, error)

	// ApproxFromChars estimates a count from a character count alone.
	ApproxFromChars(charCount int) int

	// CacheGet and CachePut expose the family's count cache.
	CacheGet(hash, modelID string) (int, bool)
	CachePut(hash, modelID string, tokens int)
}

// GetOrCount resolves one count: cache first, exact text second,
// approximation last, unknown when nothing is available. Approximations
// are never cached, so a later arrival of precise text can still win.
func GetOrCount(a Adapter, q Query) Count {
	src := SourceExact
	if !a.Precise() {
		src = SourceApprox
	}
	if tokens, ok := a.CacheGet(q.Hash, q.ModelID); ok {
		return Count{Tokens: tokens, Source: src}
	}
	if q.HasText {
		tokens, err := a.CountText(q.ModelID, q.Text)
		if err == nil {
			a.CachePut(q.Hash, q.ModelID, tokens)
			return Count{Tokens: tokens, Source: src}
		}
		// Counting failed; fall through to the approximation path rather
		// than losing the node.
	}
	if q.AllowApprox && q.CharCount > 0 {
		return Count{Tokens: a.ApproxFromChars(q.CharCount), Source: SourceApprox}
	}
	return Count{Source: SourceUnknown}
}

// ApproxTokens is the default character heuristic: one token per four
// characters, rounded up, so any positive count yields at least one token.
func ApproxTokens(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return (charCount + 3) / 4
}
