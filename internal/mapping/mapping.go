// Package mapping applies declarative field-rename transforms to query
// results, normalizing heterogeneous upstream record shapes before they reach
// a widget.
package mapping

import (
	"github.com/OPSDECK/opsdeck/internal/models"
)

// Apply renames fields in each record according to the mapping rules. Fields
// with no mapping entry pass through under their original name; nothing is
// silently dropped. An empty rule set is the identity and returns the input
// slice unchanged. Values are never inspected or coerced.
func Apply(records []map[string]any, rules []models.FieldMapping) []map[string]any {
	if len(rules) == 0 || len(records) == 0 {
		return records
	}

	rename := make(map[string]string, len(rules))
	for _, r := range rules {
		if r.SourceField != "" && r.TargetField != "" {
			rename[r.SourceField] = r.TargetField
		}
	}
	if len(rename) == 0 {
		return records
	}

	out := make([]map[string]any, len(records))
	for i, rec := range records {
		mapped := make(map[string]any, len(rec))
		for field, value := range rec {
			if target, ok := rename[field]; ok {
				mapped[target] = value
			} else {
				mapped[field] = value
			}
		}
		out[i] = mapped
	}
	return out
}
