package normalizer

import "strings"

// ParseKeywords splits a comma-separated keyword string, trimming blanks and dropping
// case-insensitive duplicates. The first spelling of a keyword is kept.
func ParseKeywords(s string) []string {
	parts := strings.Split(s, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// MatchesKeywords reports whether any keyword appears case-insensitively in the title or description.
// A list with no usable keywords matches everything.
func MatchesKeywords(keywords []string, title, description string) bool {
	haystack := strings.ToLower(title + " " + description)
	filtered := false
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		filtered = true
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return !filtered
}
