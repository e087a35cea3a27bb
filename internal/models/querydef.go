package models

// QueryDef is a named, human-curated example query bound to one system family.
// Catalogue entries are read-only reference data exposed to operators for
// discovery; they are never executed automatically.
type QueryDef struct {
	ID          string `json:"id"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}
