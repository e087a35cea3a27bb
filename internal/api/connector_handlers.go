package api

import (
	"fmt"
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/models"
)

// ConnectorHandlers exposes the registered system families and their query
// catalogues for operator discovery.
type ConnectorHandlers struct {
	registry *connector.Registry
}

// NewConnectorHandlers creates connector discovery handlers.
func NewConnectorHandlers(registry *connector.Registry) *ConnectorHandlers {
	return &ConnectorHandlers{registry: registry}
}

type connectorInfo struct {
	System  string            `json:"system"`
	Queries []models.QueryDef `json:"queries"`
}

// List handles GET /api/connectors.
func (h *ConnectorHandlers) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	names := h.registry.Names()
	infos := make([]connectorInfo, 0, len(names))
	for _, name := range names {
		conn, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		infos = append(infos, connectorInfo{System: name, Queries: conn.Catalogue()})
	}

	writeJSON(w, http.StatusOK, map[string]any{"connectors": infos})
}

// Queries handles GET /api/connectors/{name}/queries.
func (h *ConnectorHandlers) Queries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name, action := splitItemPath(r.URL.Path, "/api/connectors/")
	if name == "" {
		writeError(w, http.StatusBadRequest, "connector name is required")
		return
	}
	if action != "queries" {
		writeError(w, http.StatusNotFound, "unknown connector action: "+action)
		return
	}

	conn, ok := h.registry.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown system family %q", name))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"system":  name,
		"queries": conn.Catalogue(),
	})
}
