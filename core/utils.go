package core

import "strings"

// SearchTerm normalises a free-text search: lowered, trimmed, inner runs of whitespace
// collapsed to a single space. The empty string means no search.
func SearchTerm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
