package connector

import (
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// NewElastic builds the search/analytics connector. Paths are passed through;
// search bodies ride on the request unchanged. Search envelopes are unwrapped
// to hits.hits so field mapping sees individual documents.
func NewElastic() Connector {
	return &restConnector{
		name:         "elastic",
		apiKeyHeader: "Authorization",
		probePath:    "/",
		catalogue: []models.QueryDef{
			{ID: "cluster-health", Method: http.MethodGet, Path: "/_cluster/health", Description: "Cluster status, node and shard counts"},
			{ID: "indices", Method: http.MethodGet, Path: "/_cat/indices?format=json", Description: "All indices with doc counts and sizes"},
			{ID: "nodes", Method: http.MethodGet, Path: "/_cat/nodes?format=json", Description: "Node roles, heap and load"},
			{ID: "search-all", Method: http.MethodPost, Path: "/_search", Description: "Match-all search across every index"},
			{ID: "recent-errors", Method: http.MethodPost, Path: "/logs-*/_search", Description: "Recent documents at error level"},
		},
		extractRecords: func(data any) []map[string]any {
			obj, ok := data.(map[string]any)
			if !ok {
				return nil
			}
			hits, ok := obj["hits"].(map[string]any)
			if !ok {
				return nil
			}
			return topLevelRecords(hits["hits"])
		},
	}
}
