package tokenizer

import "unicode/utf8"

// HeuristicAdapter serves model families without a published tokenizer,
// such as Anthropic and Google. Counts derive from the character heuristic
// on both the text and the no-text paths; Precise reports false so callers
// can label every result honestly. Text-derived counts are still cached,
// which keeps repeat traversals cheap.
type HeuristicAdapter struct {
	family string
	cache  *Cache
}

func NewHeuristicAdapter(family string) *HeuristicAdapter {
	return &HeuristicAdapter{family: family, cache: NewCache()}
}

func (a *HeuristicAdapter) Family() string { return a.family }

func (a *HeuristicAdapter) Precise() bool { return false }

func (a *HeuristicAdapter) EnsureReady(string) error { return nil }

func (a *HeuristicAdapter) CountText(_ string, text string) (int, error) {
	return ApproxTokens(utf8.RuneCountInString(text)), nil
}

func (a *HeuristicAdapter) ApproxFromChars(charCount int) int {
	return ApproxTokens(charCount)
}

func (a *HeuristicAdapter) CacheGet(hash, modelID string) (int, bool) {
	return a.cache.Get(hash, modelID)
}

func (a *HeuristicAdapter) CachePut(hash, modelID string, tokens int) {
	a.cache.Put(hash, modelID, tokens)
}
