package connector

import (
	"strings"
)

// danglingOperators are tokens a dialect query must not end with. Comparison
// operators are matched as suffixes, boolean operators as a final word.
var (
	trailingBooleans    = []string{"AND", "OR", "NOT"}
	trailingComparisons = []string{"!=", "<=", ">=", "=", "<", ">", "~"}
)

// validateDialectQuery performs the local, synchronous syntax checks shared by
// query-language connectors. It runs before any transport work so malformed
// queries never reach the network.
func validateDialectQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return NewError(KindInput, "query must not be empty")
	}

	upper := strings.ToUpper(trimmed)
	for _, op := range trailingBooleans {
		if upper == op || strings.HasSuffix(upper, " "+op) {
			return NewError(KindInput, "query ends with dangling operator %q", op)
		}
	}
	for _, op := range trailingComparisons {
		if strings.HasSuffix(trimmed, op) {
			return NewError(KindInput, "query ends with dangling comparison %q", op)
		}
	}

	if strings.Count(trimmed, "'")%2 != 0 {
		return NewError(KindInput, "query has an unbalanced single quote")
	}
	if strings.Count(trimmed, `"`)%2 != 0 {
		return NewError(KindInput, "query has an unbalanced double quote")
	}

	return nil
}
