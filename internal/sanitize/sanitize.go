// Package sanitize strips the markup constructs that make untrusted XML
// dangerous to parse: document type declarations (entity expansion, external
// DTD fetches) and processing instructions (stylesheet references). It runs
// before any parser sees the input.
package sanitize

import "strings"

// Clean returns input with DOCTYPE declarations and processing instructions
// removed. A leading XML declaration (<?xml ... ?>) is preserved. Comments
// and CDATA sections pass through untouched, including anything inside them
// that merely looks like a removal target. Removal is best effort: an
// unterminated DOCTYPE or PI is left as-is for the parser to reject. Clean
// never fails and never modifies content it does not remove.
func Clean(input string) string {
	// Fast path: nothing that could need stripping.
	if !strings.Contains(input, "<!") && !strings.Contains(input, "<?") {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	i, n := 0, len(input)
	for i < n {
		c := input[i]
		if c != '<' {
			b.WriteByte(c)
			i++
			continue
		}
		rest := input[i:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest[4:], "-->")
			if end < 0 {
				b.WriteString(rest)
				i = n
				break
			}
			stop := 4 + end + 3
			b.WriteString(rest[:stop])
			i += stop
		case strings.HasPrefix(rest, "<![CDATA["):
			end := strings.Index(rest[9:], "]]>")
			if end < 0 {
				b.WriteString(rest)
				i = n
				break
			}
			stop := 9 + end + 3
			b.WriteString(rest[:stop])
			i += stop
		case isDoctypeStart(rest):
			stop := doctypeEnd(rest)
			if stop < 0 {
				// Unterminated: leave it for the parser to complain about.
				b.WriteByte('<')
				i++
				break
			}
			i += stop
		case strings.HasPrefix(rest, "<?"):
			end := strings.Index(rest[2:], "?>")
			if end < 0 {
				b.WriteByte('<')
				i++
				break
			}
			stop := 2 + end + 2
			if isXMLDecl(rest[:stop]) && leadingOnly(input[:i]) {
				b.WriteString(rest[:stop])
			}
			i += stop
		default:
			b.WriteByte('<')
			i++
		}
	}
	return b.String()
}

// isDoctypeStart reports whether s opens a DOCTYPE declaration. HTML allows
// any case, so matching is case-insensitive.
func isDoctypeStart(s string) bool {
	return len(s) >= 9 && s[0] == '<' && s[1] == '!' && strings.EqualFold(s[2:9], "DOCTYPE")
}

// doctypeEnd returns the length of the DOCTYPE declaration starting at s[0],
// or -1 if it never terminates. The closing '>' only counts outside the
// internal subset brackets and outside quoted strings, so declarations like
// <!DOCTYPE r [<!ENTITY e "v">]> are consumed whole.
func doctypeEnd(s string) int {
	depth := 0
	var quote byte
	for j := 2; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '>':
			if depth == 0 {
				return j + 1
			}
		}
	}
	return -1
}

// isXMLDecl reports whether pi is an XML declaration rather than an
// arbitrary processing instruction with an "xml"-prefixed target.
func isXMLDecl(pi string) bool {
	if !strings.HasPrefix(pi, "<?xml") {
		return false
	}
	if len(pi) == len("<?xml?>") {
		return true
	}
	switch pi[5] {
	case ' ', '\t', '\r', '\n', '?':
		return true
	}
	return false
}

// leadingOnly reports whether everything before the current position is
// whitespace, i.e. the declaration actually leads the document.
func leadingOnly(prefix string) bool {
	return strings.TrimSpace(prefix) == ""
}
