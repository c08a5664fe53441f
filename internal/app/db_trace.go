package app

import (
	"regexp"
	"strconv"
	"strings"
)

const maxTracedQueryLength = 512

var (
	queryWhitespaceRegex = regexp.MustCompile(`\s+`)
	// Matches the second and later tuples of a multi-row VALUES clause.
	valuesTailRegex = regexp.MustCompile(`(VALUES \([^()]*\))((?:, ?\([^()]*\))+)`)
)

func formatDBQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	normalized = valuesTailRegex.ReplaceAllStringFunc(normalized, collapseValuesTail)
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}

	return normalized[:maxTracedQueryLength] + "..."
}

// collapseValuesTail keeps the first tuple of a batch insert and counts the rest.
func collapseValuesTail(match string) string {
	parts := valuesTailRegex.FindStringSubmatch(match)
	if len(parts) != 3 {
		return match
	}
	more := strings.Count(parts[2], "(")
	return parts[1] + " /* +" + strconv.Itoa(more) + " rows */"
}
