package filter

import "strings"

// ContainsAny returns true if any term appears (case-insensitive) anywhere in
// text. Empty terms are ignored.
func ContainsAny(text string, terms []string) bool {
	if len(terms) == 0 || text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
