package tokenizer

import (
	"fmt"
	"strings"
)

// ModelInfo describes one known model for listings.
type ModelInfo struct {
	ID      string `json:"id"`
	Family  string `json:"family"`
	Precise bool   `json:"precise"`
}

type familyRule struct {
	prefix string
	family string
}

// knownModels seeds listings. Resolution itself is prefix-based, so dated
// variants like "gpt-4o-2024-08-06" resolve without being listed here.
var knownModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
	"o1",
	"o3-mini",
	"claude-3-5-sonnet",
	"claude-3-5-haiku",
	"claude-3-opus",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
	"gemini-2.0-flash",
}

// Registry owns one adapter per family and resolves model identifiers to
// them by prefix. Unknown models fail fast; nothing is silently
// substituted. Construct one per process and inject it where counting
// happens.
type Registry struct {
	adapters map[string]Adapter
	rules    []familyRule
}

func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	r.Register(NewOpenAIAdapter(), "gpt-", "chatgpt-", "o1", "o3", "o4", "text-embedding-")
	r.Register(NewHeuristicAdapter("anthropic"), "claude-")
	r.Register(NewHeuristicAdapter("google"), "gemini-", "gemma-")
	return r
}

// Register installs an adapter and routes model IDs with any of the given
// prefixes to it. Later registrations take precedence, so a custom family
// can shadow a built-in prefix.
func (r *Registry) Register(a Adapter, prefixes ...string) {
	r.adapters[a.Family()] = a
	rules := make([]familyRule, 0, len(prefixes)+len(r.rules))
	for _, p := range prefixes {
		rules = append(rules, familyRule{prefix: p, family: a.Family()})
	}
	r.rules = append(rules, r.rules...)
}

// Resolve returns the adapter responsible for modelID.
func (r *Registry) Resolve(modelID string) (Adapter, error) {
	for _, rule := range r.rules {
		if strings.HasPrefix(modelID, rule.prefix) {
			if a, ok := r.adapters[rule.family]; ok {
				return a, nil
			}
		}
	}
	return nil, fmt.Errorf("no tokenizer for model %q", modelID)
}

// View returns the read-only count cache for modelID's family.
func (r *Registry) View(modelID string) (View, error) {
	a, err := r.Resolve(modelID)
	if err != nil {
		return nil, err
	}
	return adapterView{a: a}, nil
}

type adapterView struct{ a Adapter }

func (v adapterView) Get(hash, modelID string) (int, bool) {
	return v.a.CacheGet(hash, modelID)
}

// Models lists the known model identifiers this registry can serve.
func (r *Registry) Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(knownModels))
	for _, id := range knownModels {
		a, err := r.Resolve(id)
		if err != nil {
			continue
		}
		out = append(out, ModelInfo{ID: id, Family: a.Family(), Precise: a.Precise()})
	}
	return out
}
