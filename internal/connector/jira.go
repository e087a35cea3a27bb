package connector

import (
	"net/http"
	"strings"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// jiraSearchPath is the REST endpoint JQL expressions are translated to.
const jiraSearchPath = "/rest/api/2/search"

// NewJira builds the ticketing connector. Queries are either REST paths used
// directly, or JQL expressions which are syntax-checked locally and translated
// into a search request.
func NewJira() Connector {
	return &restConnector{
		name:         "jira",
		apiKeyHeader: "Authorization",
		probePath:    "/rest/api/2/serverInfo",
		catalogue: []models.QueryDef{
			{ID: "open-issues", Method: http.MethodGet, Path: `status != Done ORDER BY created DESC`, Description: "Issues not yet done, newest first"},
			{ID: "assigned-to-me", Method: http.MethodGet, Path: `assignee = currentUser() AND resolution = Unresolved`, Description: "Unresolved issues assigned to the caller"},
			{ID: "created-this-week", Method: http.MethodGet, Path: `created >= -7d ORDER BY created DESC`, Description: "Issues created in the last seven days"},
			{ID: "high-priority", Method: http.MethodGet, Path: `priority in (Highest, High) AND status != Done`, Description: "Open issues with elevated priority"},
			{ID: "projects", Method: http.MethodGet, Path: "/rest/api/2/project", Description: "All visible projects"},
			{ID: "server-info", Method: http.MethodGet, Path: "/rest/api/2/serverInfo", Description: "Server version and deployment info"},
		},
		validate: func(query string) error {
			if isPathQuery(query) {
				return nil
			}
			return validateDialectQuery(query)
		},
		buildRequest: func(req Request) (Request, error) {
			if isPathQuery(req.Query) {
				return req, nil
			}
			params := map[string]string{"jql": strings.TrimSpace(req.Query)}
			for k, v := range req.Params {
				params[k] = v
			}
			return Request{
				Query:   jiraSearchPath,
				Method:  http.MethodGet,
				Params:  params,
				Headers: req.Headers,
			}, nil
		},
		extractRecords: recordsUnder("issues"),
	}
}

// isPathQuery reports whether the query is a REST path or absolute URL rather
// than a dialect expression.
func isPathQuery(query string) bool {
	q := strings.TrimSpace(query)
	return strings.HasPrefix(q, "/") ||
		strings.HasPrefix(q, "http://") ||
		strings.HasPrefix(q, "https://")
}
