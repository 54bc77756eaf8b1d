package dataset

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxQueryRows caps how many rows a generated query may return.
const MaxQueryRows = 200

// ErrUnsafeQuery is returned for any statement that is not a single
// read-only SELECT.
var ErrUnsafeQuery = errors.New("unsafe query")

// forbiddenKeywords are statements and pragmas a generated query must never
// contain, matched as whole words.
var forbiddenKeywords = []string{
	"insert", "update", "delete", "replace", "drop", "alter", "create",
	"attach", "detach", "pragma", "vacuum", "reindex", "trigger", "grant",
}

var (
	wordPattern  = regexp.MustCompile(`[a-z_]+`)
	limitPattern = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
)

// ValidateQuery rejects anything other than a single SELECT (or WITH ... SELECT)
// statement free of mutating keywords.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", ErrUnsafeQuery)
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("%w: multiple statements", ErrUnsafeQuery)
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return fmt.Errorf("%w: only SELECT statements are allowed", ErrUnsafeQuery)
	}

	// Whole-word matching so column names like created_at do not trip the
	// "create" check.
	words := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(lower, -1) {
		words[w] = true
	}
	for _, kw := range forbiddenKeywords {
		if words[kw] {
			return fmt.Errorf("%w: forbidden keyword %q", ErrUnsafeQuery, strings.ToUpper(kw))
		}
	}
	return nil
}

// EnforceLimit ensures the query returns at most maxRows, appending a LIMIT
// clause when absent and tightening one that is too large.
func EnforceLimit(query string, maxRows int) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(query), ";")

	match := limitPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return fmt.Sprintf("%s LIMIT %d", trimmed, maxRows)
	}

	var n int
	if _, err := fmt.Sscanf(match[1], "%d", &n); err == nil && n <= maxRows {
		return trimmed
	}
	return limitPattern.ReplaceAllString(trimmed, fmt.Sprintf("LIMIT %d", maxRows))
}
