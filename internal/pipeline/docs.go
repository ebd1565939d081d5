package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/tokscope/tokscope/internal/markup"
)

// docIDLen is how much of the content hash becomes the document ID.
const docIDLen = 16

// DocID derives a document's identifier from its raw bytes, so resubmitting
// the same content lands on the same document.
func DocID(data []byte) string {
	return ContentHashHex(data)[:docIDLen]
}

// Document is a parsed tree retained for tokenize and transform requests.
type Document struct {
	ID         string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	NodeCount  int       `json:"node_count"`
	TotalChars int       `json:"total_chars"`
	CreatedAt  time.Time `json:"created_at"`

	root *markup.Node
}

// Root returns the parsed tree. The tree is immutable after parsing, so
// concurrent readers need no locking.
func (d *Document) Root() *markup.Node { return d.root }

// NewDocument wraps a finalized tree with its derived metadata.
func NewDocument(id, filename, format string, root *markup.Node) *Document {
	chars := 0
	markup.Walk(root, func(n *markup.Node) bool {
		chars += n.CharCount
		return true
	})
	return &Document{
		ID:         id,
		Filename:   filename,
		Format:     format,
		NodeCount:  markup.CountNodes(root),
		TotalChars: chars,
		CreatedAt:  time.Now(),
		root:       root,
	}
}

type docEntry struct {
	doc      *Document
	lastUsed time.Time
}

// DocStore holds parsed documents in memory, evicting entries not touched
// within the TTL.
type DocStore struct {
	mu   sync.Mutex
	docs map[string]*docEntry
	ttl  time.Duration
}

func NewDocStore(ttl time.Duration) *DocStore {
	return &DocStore{
		docs: make(map[string]*docEntry),
		ttl:  ttl,
	}
}

func (s *DocStore) Put(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = &docEntry{doc: doc, lastUsed: time.Now()}
}

// Get returns a document and refreshes its eviction clock.
func (s *DocStore) Get(id string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.docs[id]
	if e == nil {
		return nil
	}
	e.lastUsed = time.Now()
	return e.doc
}

// List returns all documents, newest first.
func (s *DocStore) List() []*Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Document, 0, len(s.docs))
	for _, e := range s.docs {
		out = append(out, e.doc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *DocStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Cleanup removes documents idle past the TTL.
func (s *DocStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, e := range s.docs {
		if now.Sub(e.lastUsed) > s.ttl {
			delete(s.docs, id)
		}
	}
}
