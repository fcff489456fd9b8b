package parser

import (
	"regexp"
	"sort"
	"strings"
)

// PDF link annotations carry their target as a literal string after the
// /URI key, e.g. << /Type /Annot /Subtype /Link /A << /URI (https://…) >>.
// Scanning the raw object stream keeps link extraction independent of the
// PDF parser: a document pdfcpu chokes on can still yield its links.
var uriPattern = regexp.MustCompile(`/URI\s*\(((?:\\.|[^\\()])*)\)`)

// ExtractLinks returns the deduplicated set of hyperlink targets embedded
// in the document, in sorted order. Links are enrichment only; a malformed
// stream yields an empty set, never an error.
func ExtractLinks(raw []byte) []string {
	seen := make(map[string]struct{})
	var links []string
	for _, m := range uriPattern.FindAllSubmatch(raw, -1) {
		u := strings.TrimSpace(unescapePDFString(string(m[1])))
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		links = append(links, u)
	}
	sort.Strings(links)
	return links
}

// unescapePDFString resolves the escapes a PDF literal string may contain.
// URLs only ever need the delimiter and backslash forms, but the control
// escapes are cheap to handle.
func unescapePDFString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
