package tokenizer

import "testing"

// probeAdapter counts calls into CountText so tests can assert when the
// encoder actually runs. Counts are the text length in bytes.
type probeAdapter struct {
	family     string
	precise    bool
	cache      *Cache
	countCalls int
}

func newProbeAdapter() *probeAdapter {
	return &probeAdapter{family: "probe", precise: true, cache: NewCache()}
}

func (p *probeAdapter) Family() string { return p.family }

func (p *probeAdapter) Precise() bool { return p.precise }

func (p *probeAdapter) EnsureReady(string) error { return nil }

func (p *probeAdapter) CountText(_ string, text string) (int, error) {
	p.countCalls++
	return len(text), nil
}

func (p *probeAdapter) ApproxFromChars(charCount int) int { return ApproxTokens(charCount) }

func (p *probeAdapter) CacheGet(hash, modelID string) (int, bool) { return p.cache.Get(hash, modelID) }

func (p *probeAdapter) CachePut(hash, modelID string, tokens int) { p.cache.Put(hash, modelID, tokens) }

func TestGetOrCount_ExactPathCachesResult(t *testing.T) {
	a := newProbeAdapter()
	q := Query{Hash: "h1", ModelID: "m", Text: "hello", HasText: true}

	first := GetOrCount(a, q)
	if first.Tokens != 5 || first.Source != SourceExact {
		t.Fatalf("first = %+v, want 5 exact", first)
	}
	second := GetOrCount(a, q)
	if second.Tokens != 5 || second.Source != SourceExact {
		t.Fatalf("second = %+v, want 5 exact", second)
	}
	if a.countCalls != 1 {
		t.Fatalf("countCalls = %d, want 1 (second lookup should hit the cache)", a.countCalls)
	}
}

func TestGetOrCount_ApproxIsNeverCached(t *testing.T) {
	a := newProbeAdapter()

	approx := GetOrCount(a, Query{Hash: "h1", ModelID: "m", CharCount: 8, AllowApprox: true})
	if approx.Tokens != 2 || approx.Source != SourceApprox {
		t.Fatalf("approx = %+v, want 2 approx", approx)
	}
	if a.countCalls != 0 {
		t.Fatalf("countCalls = %d, want 0 for approximation", a.countCalls)
	}
	if n := a.cache.Len(); n != 0 {
		t.Fatalf("cache has %d entries after approximation, want 0", n)
	}

	// Precise text arriving later must still win.
	exact := GetOrCount(a, Query{Hash: "h1", ModelID: "m", Text: "hi", HasText: true})
	if exact.Tokens != 2 || exact.Source != SourceExact {
		t.Fatalf("exact = %+v, want 2 exact", exact)
	}
	if got, ok := a.cache.Get("h1", "m"); !ok || got != 2 {
		t.Fatalf("cache after exact = (%d, %v), want (2, true)", got, ok)
	}
}

func TestGetOrCount_UnknownWhenNothingAvailable(t *testing.T) {
	a := newProbeAdapter()

	cases := []struct {
		name string
		q    Query
	}{
		{"no text, approx disallowed", Query{Hash: "h", ModelID: "m", CharCount: 10}},
		{"no text, zero chars", Query{Hash: "h", ModelID: "m", AllowApprox: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := GetOrCount(a, tc.q)
			if c.Source != SourceUnknown || c.Tokens != 0 {
				t.Fatalf("GetOrCount = %+v, want unknown/0", c)
			}
		})
	}
}

func TestGetOrCount_EmptyTextIsExactZero(t *testing.T) {
	a := newProbeAdapter()
	c := GetOrCount(a, Query{Hash: "h", ModelID: "m", Text: "", HasText: true})
	if c.Tokens != 0 || c.Source != SourceExact {
		t.Fatalf("GetOrCount = %+v, want 0 exact", c)
	}
	if _, ok := a.cache.Get("h", "m"); !ok {
		t.Fatal("zero count was not cached")
	}
}

func TestGetOrCount_ImpreciseFamilyNeverReportsExact(t *testing.T) {
	a := newProbeAdapter()
	a.precise = false

	q := Query{Hash: "h", ModelID: "m", Text: "abcdefgh", HasText: true}
	first := GetOrCount(a, q)
	if first.Source != SourceApprox {
		t.Fatalf("first source = %s, want approx", first.Source)
	}
	// The cached value keeps its approximate label on re-read.
	second := GetOrCount(a, q)
	if second.Source != SourceApprox {
		t.Fatalf("cached source = %s, want approx", second.Source)
	}
	if second.Tokens != first.Tokens {
		t.Fatalf("cached tokens = %d, want %d", second.Tokens, first.Tokens)
	}
}

func TestApproxTokens(t *testing.T) {
	cases := []struct {
		chars, want int
	}{
		{0, 0},
		{-3, 0},
		{1, 1},
		{3, 1},
		{4, 1},
		{5, 2},
		{8, 2},
		{9, 3},
		{160, 40},
	}
	for _, tc := range cases {
		if got := ApproxTokens(tc.chars); got != tc.want {
			t.Errorf("ApproxTokens(%d) = %d, want %d", tc.chars, got, tc.want)
		}
	}
}

func TestCache_FirstWriteWins(t *testing.T) {
	c := NewCache()
	c.Put("h", "m", 5)
	c.Put("h", "m", 9)
	if got, ok := c.Get("h", "m"); !ok || got != 5 {
		t.Fatalf("Get = (%d, %v), want (5, true)", got, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCache_KeyedByHashAndModel(t *testing.T) {
	c := NewCache()
	c.Put("h", "gpt-4o", 3)
	c.Put("h", "claude-3-opus", 7)
	c.Put("other", "gpt-4o", 11)

	if got, _ := c.Get("h", "gpt-4o"); got != 3 {
		t.Errorf("Get(h, gpt-4o) = %d, want 3", got)
	}
	if got, _ := c.Get("h", "claude-3-opus"); got != 7 {
		t.Errorf("Get(h, claude-3-opus) = %d, want 7", got)
	}
	if _, ok := c.Get("other", "claude-3-opus"); ok {
		t.Error("Get(other, claude-3-opus) unexpectedly hit")
	}
}

func TestHeuristicAdapter_CountsByRunes(t *testing.T) {
	a := NewHeuristicAdapter("anthropic")
	if a.Precise() {
		t.Fatal("heuristic adapter reports precise")
	}
	if err := a.EnsureReady("claude-3-opus"); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	got, err := a.CountText("claude-3-opus", "héllo wor")
	if err != nil {
		t.Fatalf("CountText: %v", err)
	}
	// 9 runes, 12 bytes; the heuristic must count runes.
	if got != 3 {
		t.Fatalf("CountText = %d, want 3", got)
	}
}

func TestEncodingForModel(t *testing.T) {
	cases := []struct {
		model, want string
	}{
		{"gpt-4o", "o200k_base"},
		{"gpt-4o-mini", "o200k_base"},
		{"gpt-4.1-mini", "o200k_base"},
		{"gpt-4", "cl100k_base"},
		{"gpt-4-turbo", "cl100k_base"},
		{"gpt-3.5-turbo", "cl100k_base"},
		{"o1-preview", "o200k_base"},
		{"o3-mini", "o200k_base"},
		{"text-embedding-3-small", "cl100k_base"},
		{"something-new", defaultOpenAIEncoding},
	}
	for _, tc := range cases {
		if got := encodingForModel(tc.model); got != tc.want {
			t.Errorf("encodingForModel(%q) = %q, want %q", tc.model, got, tc.want)
		}
	}
}
