// Package transform folds a markup tree into a bounded display tree for
// visualization. It is a pure function of its inputs: node values come
// from a read-only count cache (token basis) or the nodes themselves
// (character basis), small siblings collapse into one synthetic entry,
// and the output never exceeds the configured node budget.
package transform

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tokscope/tokscope/internal/markup"
	"github.com/tokscope/tokscope/internal/tokenizer"
)

// Basis selects what a node's value measures.
type Basis string

const (
	BasisTokens Basis = "tokens"
	BasisChars  Basis = "chars"
)

const (
	DefaultAggregationThreshold = 0.0075
	DefaultMaxVisibleNodes      = 2000
	DefaultPreviewLength        = 160
)

// Options controls aggregation and level of detail.
type Options struct {
	// AggregationThreshold is the fraction of the grand total below which
	// a child's subtree collapses into the aggregate entry.
	AggregationThreshold float64
	// MaxVisibleNodes bounds the emitted tree, aggregates included.
	MaxVisibleNodes int
	// MaxDepth limits how many levels below the root expand; 0 means
	// unbounded.
	MaxDepth int
	// PreviewLength caps the text preview attribute, in characters.
	PreviewLength int
}

func DefaultOptions() Options {
	return Options{
		AggregationThreshold: DefaultAggregationThreshold,
		MaxVisibleNodes:      DefaultMaxVisibleNodes,
		PreviewLength:        DefaultPreviewLength,
	}
}

// DisplayNode is one entry of the visualization tree. An unexpanded node
// absorbs its whole subtree, so Value equals TotalValue exactly when the
// node has no children here.
type DisplayNode struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Path       string            `json:"path"`
	Value      int               `json:"value"`
	TotalValue int               `json:"total_value"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Children   []*DisplayNode    `json:"children,omitempty"`
}

// Totals carries the grand totals in both bases regardless of which basis
// shaped the tree.
type Totals struct {
	TotalTokens int `json:"total_tokens"`
	TotalChars  int `json:"total_chars"`
}

type Result struct {
	Tree   *DisplayNode `json:"tree"`
	Totals Totals       `json:"totals"`
}

// Transform builds the display tree for root under the given basis. Token
// values read the supplied cache view; any node missing from the cache
// falls back to its character count, so totals are a monotonically
// improving estimate as counts arrive. counts may be nil for the
// character basis.
func Transform(root *markup.Node, basis Basis, modelID string, counts tokenizer.View, opts Options) (*Result, error) {
	if root == nil {
		return nil, errors.New("transform: nil root")
	}
	switch basis {
	case BasisTokens, BasisChars:
	default:
		return nil, fmt.Errorf("transform: unknown basis %q", basis)
	}
	if opts.AggregationThreshold < 0 {
		return nil, fmt.Errorf("transform: negative aggregation threshold %v", opts.AggregationThreshold)
	}
	if opts.MaxVisibleNodes < 1 {
		return nil, fmt.Errorf("transform: node budget must be positive, got %d", opts.MaxVisibleNodes)
	}
	if opts.MaxDepth < 0 {
		return nil, fmt.Errorf("transform: negative max depth %d", opts.MaxDepth)
	}
	if opts.PreviewLength < 0 {
		return nil, fmt.Errorf("transform: negative preview length %d", opts.PreviewLength)
	}
	if opts.PreviewLength == 0 {
		opts.PreviewLength = DefaultPreviewLength
	}

	totals := make(map[*markup.Node]subtreeTotal)
	rootTotal := computeTotals(root, modelID, counts, totals)

	b := &builder{
		opts:    opts,
		basis:   basis,
		modelID: modelID,
		counts:  counts,
		totals:  totals,
	}
	b.cutoff = opts.AggregationThreshold * float64(b.subtreeValue(root))
	b.remaining = opts.MaxVisibleNodes - 1 // the root occupies one slot

	return &Result{
		Tree:   b.build(root, 0),
		Totals: Totals{TotalTokens: rootTotal.tokens, TotalChars: rootTotal.chars},
	}, nil
}

// subtreeTotal accumulates a subtree in both bases in one pass.
type subtreeTotal struct {
	chars  int
	tokens int
}

func computeTotals(n *markup.Node, modelID string, counts tokenizer.View, out map[*markup.Node]subtreeTotal) subtreeTotal {
	t := subtreeTotal{chars: n.CharCount, tokens: ownTokens(n, modelID, counts)}
	for _, c := range n.Children {
		ct := computeTotals(c, modelID, counts, out)
		t.chars += ct.chars
		t.tokens += ct.tokens
	}
	out[n] = t
	return t
}

// ownTokens is a node's own token contribution: the cached count when one
// exists, its character count otherwise.
func ownTokens(n *markup.Node, modelID string, counts tokenizer.View) int {
	if counts != nil {
		if v, ok := counts.Get(n.ContentHash, modelID); ok {
			return v
		}
	}
	return n.CharCount
}

type builder struct {
	opts      Options
	basis     Basis
	modelID   string
	counts    tokenizer.View
	totals    map[*markup.Node]subtreeTotal
	cutoff    float64
	remaining int
}

func (b *builder) subtreeValue(n *markup.Node) int {
	t := b.totals[n]
	if b.basis == BasisChars {
		return t.chars
	}
	return t.tokens
}

func (b *builder) ownValue(n *markup.Node) int {
	if b.basis == BasisChars {
		return n.CharCount
	}
	return ownTokens(n, b.modelID, b.counts)
}

func (b *builder) depthLimited(depth int) bool {
	return b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth
}

func (b *builder) build(n *markup.Node, depth int) *DisplayNode {
	d := &DisplayNode{
		ID:         n.Path,
		Name:       displayName(n),
		Path:       n.Path,
		Attributes: displayAttrs(n, b.opts.PreviewLength),
	}
	total := b.subtreeValue(n)
	if len(n.Children) == 0 || b.depthLimited(depth) || b.remaining <= 0 {
		d.Value = total
		d.TotalValue = total
		return d
	}
	d.Value = b.ownValue(n)
	d.TotalValue = total

	keep, agg := b.partition(n.Children)

	// Reserve visible slots before recursing so expansion of one child
	// cannot starve its siblings out of the tree.
	slots := b.remaining
	needAgg := len(agg) > 0
	allowed := slots
	if needAgg {
		allowed--
	}
	if len(keep) > allowed {
		if !needAgg {
			// Truncation itself forces an aggregate entry.
			needAgg = true
			allowed = slots - 1
		}
		if allowed < 0 {
			allowed = 0
		}
		agg = append(append([]*markup.Node{}, keep[allowed:]...), agg...)
		keep = keep[:allowed]
	}
	b.remaining -= len(keep)
	if needAgg {
		b.remaining--
	}

	for _, c := range keep {
		d.Children = append(d.Children, b.build(c, depth+1))
	}
	if needAgg {
		d.Children = append(d.Children, b.aggregateNode(n, agg))
	}
	return d
}

// partition sorts children by subtree value, descending and stable, then
// splits them at the aggregation cutoff. Values at the cutoff stay kept.
func (b *builder) partition(children []*markup.Node) (keep, agg []*markup.Node) {
	sorted := make([]*markup.Node, len(children))
	copy(sorted, children)
	sort.SliceStable(sorted, func(i, j int) bool {
		return b.subtreeValue(sorted[i]) > b.subtreeValue(sorted[j])
	})
	for _, c := range sorted {
		if float64(b.subtreeValue(c)) >= b.cutoff {
			keep = append(keep, c)
		} else {
			agg = append(agg, c)
		}
	}
	return keep, agg
}

// aggregateNode makes the synthetic entry absorbing the given siblings.
// Its value and total are the plain sum of their subtree totals, which
// keeps the parent's total exactly equal to its own value plus its
// children's totals.
func (b *builder) aggregateNode(parent *markup.Node, agg []*markup.Node) *DisplayNode {
	sum := 0
	for _, c := range agg {
		sum += b.subtreeValue(c)
	}
	id := parent.Path + "/#aggregate"
	return &DisplayNode{
		ID:         id,
		Name:       fmt.Sprintf("Other (%d items)", len(agg)),
		Path:       id,
		Value:      sum,
		TotalValue: sum,
		Attributes: map[string]string{
			"kind":  "aggregate",
			"count": strconv.Itoa(len(agg)),
		},
	}
}

func displayName(n *markup.Node) string {
	if n.Tag == markup.DocumentTag {
		return "document"
	}
	return n.Tag
}

func displayAttrs(n *markup.Node, previewLen int) map[string]string {
	attrs := make(map[string]string, len(n.Attributes)+2)
	for k, v := range n.Attributes {
		attrs[k] = v
	}
	attrs["kind"] = string(n.Kind)
	if n.Text != "" {
		attrs["preview"] = preview(n.Text, previewLen)
	}
	return attrs
}

func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
