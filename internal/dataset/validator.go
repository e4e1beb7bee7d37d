package dataset

import (
	"fmt"
	"regexp"
	"strings"
)

// Generated SQL comes from an untrusted model, so everything that is not a
// single read-only query is rejected before it reaches the database.

var mutationKeywords = []string{
	"insert", "update", "delete", "drop", "truncate", "alter", "create",
	"replace", "merge", "grant", "revoke", "attach", "detach", "copy",
	"export", "import", "install", "load", "pragma", "set", "call",
	"vacuum", "checkpoint", "begin", "commit", "rollback",
}

var keywordPatterns = compileKeywordPatterns()

func compileKeywordPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(mutationKeywords))
	for _, kw := range mutationKeywords {
		patterns[kw] = regexp.MustCompile(`(^|[^a-z_])` + kw + `($|[^a-z_])`)
	}

	return patterns
}

// Validate checks that the statement is a single read-only query. It returns
// a descriptive error for anything else; callers surface the error as an
// execution failure, never as a crash.
func Validate(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return fmt.Errorf("SQL query cannot be empty")
	}

	// One trailing semicolon is tolerated; anything after it is a second
	// statement.
	trimmed = strings.TrimSuffix(trimmed, ";")
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("multiple SQL statements are not allowed")
	}

	lower := strings.ToLower(trimmed)

	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return fmt.Errorf("only SELECT statements are allowed")
	}

	for _, kw := range mutationKeywords {
		if keywordPatterns[kw].MatchString(lower) {
			return fmt.Errorf("SQL contains a forbidden operation: %s", kw)
		}
	}

	return nil
}
