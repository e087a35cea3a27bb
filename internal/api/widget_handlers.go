package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/OPSDECK/opsdeck/internal/dashboard"
	"github.com/OPSDECK/opsdeck/internal/models"
	"github.com/OPSDECK/opsdeck/internal/store"
)

// WidgetHandlers manages widget configuration and snapshot endpoints. Every
// mutation reconciles the refresh pipeline so schedules track the persisted
// definitions.
type WidgetHandlers struct {
	widgets  store.WidgetRepository
	pipeline *dashboard.Pipeline
	logger   *slog.Logger
}

// NewWidgetHandlers creates widget handlers.
func NewWidgetHandlers(widgets store.WidgetRepository, pipeline *dashboard.Pipeline, logger *slog.Logger) *WidgetHandlers {
	return &WidgetHandlers{widgets: widgets, pipeline: pipeline, logger: logger}
}

// Collection handles /api/widgets.
func (h *WidgetHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.save(w, r, "")
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Item handles /api/widgets/{id}, /api/widgets/{id}/data and
// /api/widgets/{id}/refresh.
func (h *WidgetHandlers) Item(w http.ResponseWriter, r *http.Request) {
	id, action := splitItemPath(r.URL.Path, "/api/widgets/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "widget id is required")
		return
	}

	switch action {
	case "data":
		h.data(w, r, id)
		return
	case "refresh":
		h.refresh(w, r, id)
		return
	case "":
	default:
		writeError(w, http.StatusNotFound, "unknown widget action: "+action)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.save(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *WidgetHandlers) list(w http.ResponseWriter, r *http.Request) {
	widgets, err := h.widgets.ListWidgets(r.Context())
	if err != nil {
		h.logger.Error("failed to list widgets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list widgets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"widgets": widgets})
}

func (h *WidgetHandlers) get(w http.ResponseWriter, r *http.Request, id string) {
	widget, err := h.widgets.GetWidget(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get widget", "widget", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get widget")
		return
	}
	if widget == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("widget %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, widget)
}

func (h *WidgetHandlers) save(w http.ResponseWriter, r *http.Request, id string) {
	var widget models.Widget
	if !decodeBody(w, r, &widget) {
		return
	}
	if id != "" {
		widget.ID = id
	}
	if widget.ID == "" {
		widget.ID = uuid.New().String()
	}

	if err := widget.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.widgets.SaveWidget(r.Context(), widget); err != nil {
		h.logger.Error("failed to save widget", "widget", widget.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save widget")
		return
	}

	// Schedule cancels any prior timer, so deactivation through an update
	// stops future ticks here too.
	h.pipeline.Schedule(widget)

	h.logger.Info("widget saved",
		"widget", widget.ID,
		"name", widget.Name,
		"system", widget.SystemName,
		"active", widget.IsActive,
	)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "widget_id": widget.ID})
}

func (h *WidgetHandlers) delete(w http.ResponseWriter, r *http.Request, id string) {
	widget, err := h.widgets.GetWidget(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get widget", "widget", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get widget")
		return
	}
	if widget == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("widget %q not found", id))
		return
	}

	if err := h.widgets.DeleteWidget(r.Context(), id); err != nil {
		h.logger.Error("failed to delete widget", "widget", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete widget")
		return
	}

	h.pipeline.Remove(id)

	h.logger.Info("widget deleted", "widget", id)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// data serves the widget's last-known snapshot without touching the upstream
// system.
func (h *WidgetHandlers) data(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, ok := h.pipeline.Store().Get(id)
	if !ok {
		widget, err := h.widgets.GetWidget(r.Context(), id)
		if err != nil {
			h.logger.Error("failed to get widget", "widget", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get widget")
			return
		}
		if widget == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("widget %q not found", id))
			return
		}
		// Known widget with no completed cycle yet.
		writeJSON(w, http.StatusOK, dashboard.Snapshot{
			WidgetID: id,
			Status:   dashboard.StatusLoading,
		})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// refresh triggers one on-demand cycle and returns the resulting snapshot.
func (h *WidgetHandlers) refresh(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := h.pipeline.RefreshNow(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, snap)
}
