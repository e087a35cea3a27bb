package api

import (
	"log/slog"
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/gateway"
	"github.com/OPSDECK/opsdeck/internal/metrics"
	"github.com/OPSDECK/opsdeck/internal/models"
)

// QueryHandler serves interactive query execution for the dashboard UI.
type QueryHandler struct {
	gateway *gateway.Gateway
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewQueryHandler creates the query execution handler. metrics may be nil.
func NewQueryHandler(gw *gateway.Gateway, collector *metrics.Collector, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{gateway: gw, metrics: collector, logger: logger}
}

type queryRequest struct {
	System     string                `json:"system"`
	InstanceID string                `json:"instance_id"`
	Query      string                `json:"query"`
	Method     string                `json:"method,omitempty"`
	Params     map[string]string     `json:"params,omitempty"`
	Headers    map[string]string     `json:"headers,omitempty"`
	Mapping    []models.FieldMapping `json:"mapping,omitempty"`
}

type queryMetadata struct {
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	SystemName      string `json:"system_name"`
}

type queryResponse struct {
	Success  bool          `json:"success"`
	Data     any           `json:"data"`
	Metadata queryMetadata `json:"metadata"`
}

// Execute runs one query on behalf of an interactive caller.
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.gateway.Run(r.Context(), gateway.Request{
		SystemName: req.System,
		InstanceID: req.InstanceID,
		Query:      req.Query,
		Method:     req.Method,
		Params:     req.Params,
		Headers:    req.Headers,
		Mapping:    req.Mapping,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.ObserveQuery(req.System, string(connector.KindOf(err)), 0)
		}
		writeQueryError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveQuery(result.SystemName, "success", result.Duration)
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Success: true,
		Data:    result.Data,
		Metadata: queryMetadata{
			ExecutionTimeMs: result.Duration.Milliseconds(),
			SystemName:      result.SystemName,
		},
	})
}
