package connector

import (
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// NewWazuh builds the SIEM connector. The Wazuh API authenticates with a
// bearer JWT and wraps result lists in a data/affected_items envelope.
func NewWazuh() Connector {
	return &restConnector{
		name:         "wazuh",
		apiKeyHeader: "Authorization",
		probePath:    "/",
		catalogue: []models.QueryDef{
			{ID: "agents", Method: http.MethodGet, Path: "/agents", Description: "All registered agents with status"},
			{ID: "agents-disconnected", Method: http.MethodGet, Path: "/agents?status=disconnected", Description: "Agents currently disconnected"},
			{ID: "agents-summary", Method: http.MethodGet, Path: "/agents/summary/status", Description: "Agent counts by connection status"},
			{ID: "manager-status", Method: http.MethodGet, Path: "/manager/status", Description: "Manager daemon status"},
			{ID: "rules-top", Method: http.MethodGet, Path: "/rules?limit=25&sort=-level", Description: "Highest-severity rules"},
			{ID: "vulnerabilities-summary", Method: http.MethodGet, Path: "/vulnerability/summary", Description: "Vulnerability counts by severity"},
		},
		extractRecords: func(data any) []map[string]any {
			obj, ok := data.(map[string]any)
			if !ok {
				return nil
			}
			inner, ok := obj["data"].(map[string]any)
			if !ok {
				return nil
			}
			return topLevelRecords(inner["affected_items"])
		},
	}
}
