package markup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Field separators keep the canonical form unambiguous: without them the
// attribute pairs ("a","bc") and ("ab","c") would serialize identically.
const (
	sepKey   = 0x1f // between attribute key and value
	sepPair  = 0x1e // between attribute pairs
	sepAttrs = 0x1d // between the attribute block and the text
)

// ContentHash returns the hex SHA-256 of a node's canonical content: its
// attributes in sorted key order followed by its own text. Child content is
// deliberately excluded so identical elements hash identically wherever
// they appear, which is what makes token counts reusable across duplicates
// and across parses.
func ContentHash(attrs map[string]string, text string) string {
	h := sha256.New()
	if len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte{sepKey})
			h.Write([]byte(attrs[k]))
			h.Write([]byte{sepPair})
		}
	}
	h.Write([]byte{sepAttrs})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
