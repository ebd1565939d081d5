package markup

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		tag        string
		text       string
		childCount int
		want       Kind
	}{
		{"leaf with text", "p", "hello", 0, KindText},
		{"script tag", "script", "", 0, KindCode},
		{"script with children", "script", "", 2, KindCode},
		{"style tag uppercase", "STYLE", "", 0, KindCode},
		{"pre tag", "pre", "", 1, KindCode},
		{"meta tag", "meta", "", 0, KindMetadata},
		{"head tag", "head", "", 3, KindMetadata},
		{"container", "div", "", 2, KindContainer},
		{"empty leaf", "br", "", 0, KindOther},
		// Text wins over tag: a code tag that is a leaf with text is
		// still classified as text because the checks run in order.
		{"code leaf with text", "code", "x := 1", 0, KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.tag, tt.text, tt.childCount)
			if got != tt.want {
				t.Errorf("Classify(%q, %q, %d) = %q, want %q", tt.tag, tt.text, tt.childCount, got, tt.want)
			}
		})
	}
}

func TestSegmentAndJoin(t *testing.T) {
	if got := Segment("item", 3); got != "item[3]" {
		t.Errorf("Segment = %q, want %q", got, "item[3]")
	}
	if got := Join("", "a[1]"); got != "a[1]" {
		t.Errorf("Join with empty parent = %q, want %q", got, "a[1]")
	}
	if got := Join(DocumentTag, "a[1]"); got != "a[1]" {
		t.Errorf("Join under document root = %q, want %q", got, "a[1]")
	}
	if got := Join("a[1]", "b[2]"); got != "a[1]/b[2]" {
		t.Errorf("Join = %q, want %q", got, "a[1]/b[2]")
	}
}

func TestFinalize_PathsAndCounts(t *testing.T) {
	root := &Node{
		Tag: "a",
		Children: []*Node{
			{Tag: "b", Text: "hi"},
			{Tag: "c", Text: "bye"},
			{Tag: "b", Text: "again"},
		},
	}
	Finalize(root)

	if root.Path != "a[1]" {
		t.Errorf("root path = %q, want %q", root.Path, "a[1]")
	}
	wantPaths := []string{"a[1]/b[1]", "a[1]/c[1]", "a[1]/b[2]"}
	for i, c := range root.Children {
		if c.Path != wantPaths[i] {
			t.Errorf("child %d path = %q, want %q", i, c.Path, wantPaths[i])
		}
	}
	if root.Kind != KindContainer {
		t.Errorf("root kind = %q, want %q", root.Kind, KindContainer)
	}
	if root.CharCount != 0 {
		t.Errorf("root charCount = %d, want 0", root.CharCount)
	}
	if got := root.Children[0].CharCount; got != 2 {
		t.Errorf("b[1] charCount = %d, want 2", got)
	}
	if got := root.Children[2].CharCount; got != 5 {
		t.Errorf("b[2] charCount = %d, want 5", got)
	}
}

func TestFinalize_CharCountIsRunes(t *testing.T) {
	root := &Node{Tag: "p", Text: "héllo"}
	Finalize(root)
	if root.CharCount != 5 {
		t.Errorf("charCount = %d, want 5 runes", root.CharCount)
	}
}

func TestFinalize_SyntheticDocumentRoot(t *testing.T) {
	root := &Node{
		Tag: DocumentTag,
		Children: []*Node{
			{Tag: "x", Text: "hello"},
			{Tag: "y", Text: "hello"},
		},
	}
	Finalize(root)

	if root.Path != DocumentTag {
		t.Errorf("root path = %q, want %q", root.Path, DocumentTag)
	}
	// Top-level elements under the synthetic root get unprefixed paths,
	// matching the single-root case.
	if got := root.Children[0].Path; got != "x[1]" {
		t.Errorf("first child path = %q, want %q", got, "x[1]")
	}
	if got := root.Children[1].Path; got != "y[1]" {
		t.Errorf("second child path = %q, want %q", got, "y[1]")
	}
	// Same content under different tags: distinct paths, shared hash.
	if root.Children[0].Path == root.Children[1].Path {
		t.Error("expected distinct paths for sibling elements")
	}
	if root.Children[0].ContentHash != root.Children[1].ContentHash {
		t.Error("expected identical hashes for identical content")
	}
}

func TestFinalize_DuplicateSubtreesShareHashes(t *testing.T) {
	mk := func() *Node {
		return &Node{Tag: "item", Children: []*Node{{Tag: "name", Text: "widget"}}}
	}
	root := &Node{Tag: "list", Children: []*Node{mk(), mk()}}
	Finalize(root)

	a, b := root.Children[0], root.Children[1]
	if a.Path == b.Path {
		t.Error("duplicate subtrees must keep distinct paths")
	}
	if a.ContentHash != b.ContentHash {
		t.Error("duplicate elements must share a content hash")
	}
	if a.Children[0].ContentHash != b.Children[0].ContentHash {
		t.Error("duplicate leaf elements must share a content hash")
	}
}

func TestWalkOrderAndCount(t *testing.T) {
	root := &Node{
		Tag: "a",
		Children: []*Node{
			{Tag: "b", Children: []*Node{{Tag: "d"}}},
			{Tag: "c"},
		},
	}
	Finalize(root)

	var tags []string
	Walk(root, func(n *Node) bool {
		tags = append(tags, n.Tag)
		return true
	})
	want := []string{"a", "b", "d", "c"}
	if len(tags) != len(want) {
		t.Fatalf("visited %d nodes, want %d", len(tags), len(want))
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("visit %d = %q, want %q", i, tags[i], want[i])
		}
	}
	if got := CountNodes(root); got != 4 {
		t.Errorf("CountNodes = %d, want 4", got)
	}
}

func TestWalkEarlyStop(t *testing.T) {
	root := &Node{Tag: "a", Children: []*Node{{Tag: "b"}, {Tag: "c"}}}
	visited := 0
	Walk(root, func(n *Node) bool {
		visited++
		return n.Tag != "b"
	})
	if visited != 2 {
		t.Errorf("visited %d nodes before stop, want 2", visited)
	}
}
