package connector

import (
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// NewKibana builds the visualization-platform connector. Every Kibana API
// call requires the kbn-xsrf header.
func NewKibana() Connector {
	return &restConnector{
		name:          "kibana",
		apiKeyHeader:  "Authorization",
		staticHeaders: map[string]string{"kbn-xsrf": "true"},
		probePath:     "/api/status",
		catalogue: []models.QueryDef{
			{ID: "status", Method: http.MethodGet, Path: "/api/status", Description: "Kibana status and plugin health"},
			{ID: "saved-dashboards", Method: http.MethodGet, Path: "/api/saved_objects/_find?type=dashboard&per_page=50", Description: "Saved dashboard objects"},
			{ID: "saved-visualizations", Method: http.MethodGet, Path: "/api/saved_objects/_find?type=visualization&per_page=50", Description: "Saved visualization objects"},
			{ID: "index-patterns", Method: http.MethodGet, Path: "/api/saved_objects/_find?type=index-pattern&per_page=50", Description: "Configured index patterns"},
		},
		extractRecords: recordsUnder("saved_objects"),
	}
}
