package tools

import (
	"fmt"
	"regexp"
	"strings"
)

// Mutating keywords rejected anywhere in a normalized query, including
// inside string literals and identifiers. Over-inclusive on purpose:
// false positives are acceptable, false negatives are not.
var deniedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "REPLACE", "MERGE", "CALL", "EXEC", "EXECUTE",
}

var (
	lineCommentRe  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// checkReadOnlyQuery gates a SQL string before it reaches the remote
// query engine: comments are stripped first, then a normalized copy must
// start with SELECT or WITH and contain no denied keyword. The original
// string is what gets forwarded on success.
func checkReadOnlyQuery(query string) error {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	normalized = lineCommentRe.ReplaceAllString(normalized, "")
	normalized = blockCommentRe.ReplaceAllString(normalized, "")
	normalized = strings.TrimSpace(normalized)

	if !strings.HasPrefix(normalized, "SELECT") && !strings.HasPrefix(normalized, "WITH") {
		return fmt.Errorf("only SELECT queries (including CTEs with WITH) are permitted")
	}

	for _, keyword := range deniedKeywords {
		if strings.Contains(normalized, keyword) {
			return fmt.Errorf("query contains forbidden keyword: %s", keyword)
		}
	}
	return nil
}
