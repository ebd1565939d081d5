package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// openAIEncodings maps OpenAI model-ID prefixes to tiktoken encodings.
// Ordered most-specific first so "gpt-4o" resolves before "gpt-4". Models
// that match nothing get the newest encoding.
var openAIEncodings = []struct {
	prefix   string
	encoding string
}{
	{"gpt-4.1", "o200k_base"},
	{"gpt-4o", "o200k_base"},
	{"gpt-4", "cl100k_base"},
	{"gpt-3.5-turbo", "cl100k_base"},
	{"chatgpt-4o", "o200k_base"},
	{"o1", "o200k_base"},
	{"o3", "o200k_base"},
	{"o4", "o200k_base"},
	{"text-embedding-3", "cl100k_base"},
	{"text-embedding-ada", "cl100k_base"},
}

const defaultOpenAIEncoding = "o200k_base"

// OpenAIAdapter counts with the real BPE vocabularies via tiktoken-go.
// Encoders are heavyweight, so each encoding loads once, lazily, and a
// load failure is remembered rather than retried on every call.
type OpenAIAdapter struct {
	cache *Cache

	mu       sync.Mutex
	encoders map[string]*encoderState
}

type encoderState struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func NewOpenAIAdapter() *OpenAIAdapter {
	return &OpenAIAdapter{
		cache:    NewCache(),
		encoders: make(map[string]*encoderState),
	}
}

func (a *OpenAIAdapter) Family() string { return "openai" }

func (a *OpenAIAdapter) Precise() bool { return true }

func encodingForModel(modelID string) string {
	for _, e := range openAIEncodings {
		if strings.HasPrefix(modelID, e.prefix) {
			return e.encoding
		}
	}
	return defaultOpenAIEncoding
}

func (a *OpenAIAdapter) encoder(modelID string) (*tiktoken.Tiktoken, error) {
	name := encodingForModel(modelID)
	a.mu.Lock()
	st, ok := a.encoders[name]
	if !ok {
		st = &encoderState{}
		a.encoders[name] = st
	}
	a.mu.Unlock()
	st.once.Do(func() {
		st.enc, st.err = tiktoken.GetEncoding(name)
	})
	if st.err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", name, st.err)
	}
	return st.enc, nil
}

func (a *OpenAIAdapter) EnsureReady(modelID string) error {
	_, err := a.encoder(modelID)
	return err
}

func (a *OpenAIAdapter) CountText(modelID, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	enc, err := a.encoder(modelID)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (a *OpenAIAdapter) ApproxFromChars(charCount int) int {
	return ApproxTokens(charCount)
}

func (a *OpenAIAdapter) CacheGet(hash, modelID string) (int, bool) {
	return a.cache.Get(hash, modelID)
}

func (a *OpenAIAdapter) CachePut(hash, modelID string, tokens int) {
	a.cache.Put(hash, modelID, tokens)
}
