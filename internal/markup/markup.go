// Package markup defines the immutable element tree produced by parsing and
// the identity rules (paths, content hashes, kind classification) shared by
// every parsing strategy and document front-end.
package markup

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DocumentTag names the synthetic root used when the input has zero or more
// than one top-level element. The leading '#' cannot appear in a real tag
// name, so the synthetic root never collides with document content.
const DocumentTag = "#document"

// Kind is a coarse advisory classification of a node's role. It never feeds
// back into parsing or counting; it exists so downstream rendering can style
// nodes without re-deriving structure.
type Kind string

const (
	KindText      Kind = "text"      // leaf with text content
	KindCode      Kind = "code"      // script/style/code-ish tag
	KindMetadata  Kind = "metadata"  // head/meta-ish tag
	KindContainer Kind = "container" // has children
	KindOther     Kind = "other"     // none of the above
)

// Node is one element of a parsed document. Nodes are immutable after the
// parse completes: token counts and display state live elsewhere, keyed by
// Path (identity) or ContentHash (content equality).
type Node struct {
	Path        string            // sibling-indexed route, e.g. "a[1]/b[2]"
	Tag         string            // element name, namespace prefix stripped
	Attributes  map[string]string // nil unless attributes are preserved
	Kind        Kind              // advisory classification
	Text        string            // own text content, descendants excluded
	CharCount   int               // rune length of Text
	ContentHash string            // canonical digest of attributes + own text
	Children    []*Node           // document order
}

// codeTags and metadataTags drive classification. Matching is on the
// prefix-stripped tag name, lowercased.
var codeTags = map[string]bool{
	"script": true,
	"style":  true,
	"code":   true,
	"pre":    true,
}

var metadataTags = map[string]bool{
	"head":     true,
	"meta":     true,
	"link":     true,
	"metadata": true,
}

// Classify derives a node kind from its tag, own text, and child count.
// The checks run in a fixed order; the first match wins.
func Classify(tag, text string, childCount int) Kind {
	if childCount == 0 && text != "" {
		return KindText
	}
	lower := strings.ToLower(tag)
	if codeTags[lower] {
		return KindCode
	}
	if metadataTags[lower] {
		return KindMetadata
	}
	if childCount > 0 {
		return KindContainer
	}
	return KindOther
}

// Segment formats one sibling-indexed path step. Indexing is 1-based and
// counted per tag name, so the second <b> under a parent is "b[2]" even
// when other tags sit between the two.
func Segment(tag string, index int) string {
	return fmt.Sprintf("%s[%d]", tag, index)
}

// Join appends a segment to a parent path. Top-level elements have no
// parent prefix.
func Join(parent, segment string) string {
	if parent == "" || parent == DocumentTag {
		return segment
	}
	return parent + "/" + segment
}

// Finalize walks a freshly built tree and fills in the derived identity
// fields: Path, CharCount, ContentHash, and Kind. Builders assemble shape
// (Tag, Attributes, Text, Children) and leave identity to this one pass so
// every front-end produces byte-identical hashes for identical content.
//
// A root tagged DocumentTag keeps DocumentTag as its path and its children
// are treated as top-level, matching the single-root case where the lone
// element's own segment starts the path.
func Finalize(root *Node) {
	if root == nil {
		return
	}
	if root.Tag == DocumentTag {
		root.Path = DocumentTag
		finalizeChildren(root, "")
		root.CharCount = utf8.RuneCountInString(root.Text)
		root.ContentHash = ContentHash(root.Attributes, root.Text)
		root.Kind = Classify(root.Tag, root.Text, len(root.Children))
		return
	}
	finalizeNode(root, Join("", Segment(root.Tag, 1)))
}

func finalizeChildren(parent *Node, parentPath string) {
	counts := make(map[string]int, len(parent.Children))
	for _, c := range parent.Children {
		counts[c.Tag]++
		finalizeNode(c, Join(parentPath, Segment(c.Tag, counts[c.Tag])))
	}
}

func finalizeNode(n *Node, path string) {
	n.Path = path
	finalizeChildren(n, path)
	n.CharCount = utf8.RuneCountInString(n.Text)
	n.ContentHash = ContentHash(n.Attributes, n.Text)
	n.Kind = Classify(n.Tag, n.Text, len(n.Children))
}

// Walk visits n and its descendants depth-first in document order, stopping
// early if fn returns false.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// CountNodes returns the number of nodes in the tree rooted at n.
func CountNodes(n *Node) int {
	total := 0
	Walk(n, func(*Node) bool {
		total++
		return true
	})
	return total
}
