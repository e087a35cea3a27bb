package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/models"
	"github.com/OPSDECK/opsdeck/internal/store"
)

// InstanceHandlers manages system instance configuration endpoints.
type InstanceHandlers struct {
	instances store.InstanceRepository
	widgets   store.WidgetRepository
	registry  *connector.Registry
	logger    *slog.Logger
}

// NewInstanceHandlers creates instance configuration handlers.
func NewInstanceHandlers(instances store.InstanceRepository, widgets store.WidgetRepository, registry *connector.Registry, logger *slog.Logger) *InstanceHandlers {
	return &InstanceHandlers{
		instances: instances,
		widgets:   widgets,
		registry:  registry,
		logger:    logger,
	}
}

// Collection handles /api/instances.
func (h *InstanceHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.save(w, r, "")
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Item handles /api/instances/{id} and /api/instances/{id}/probe.
func (h *InstanceHandlers) Item(w http.ResponseWriter, r *http.Request) {
	id, action := splitItemPath(r.URL.Path, "/api/instances/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "instance id is required")
		return
	}

	if action == "probe" {
		h.probe(w, r, id)
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "unknown instance action: "+action)
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

func (h *InstanceHandlers) list(w http.ResponseWriter, r *http.Request) {
	instances, err := h.instances.ListInstances(r.Context())
	if err != nil {
		h.logger.Error("failed to list instances", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list instances")
		return
	}

	// Credentials never leave the service.
	redacted := make([]models.SystemInstance, len(instances))
	for i, inst := range instances {
		redacted[i] = redactInstance(inst)
	}

	writeJSON(w, http.StatusOK, map[string]any{"instances": redacted})
}

func (h *InstanceHandlers) get(w http.ResponseWriter, r *http.Request, id string) {
	inst, err := h.instances.GetInstance(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get instance", "instance", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get instance")
		return
	}
	if inst == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("instance %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, redactInstance(*inst))
}

func (h *InstanceHandlers) save(w http.ResponseWriter, r *http.Request, id string) {
	var inst models.SystemInstance
	if !decodeBody(w, r, &inst) {
		return
	}
	if id != "" {
		inst.InstanceID = id
	}

	if err := inst.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := h.registry.Get(inst.SystemName); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown system family %q", inst.SystemName))
		return
	}

	if err := h.instances.SaveInstance(r.Context(), inst); err != nil {
		h.logger.Error("failed to save instance", "instance", inst.InstanceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save instance")
		return
	}

	h.logger.Info("instance saved", "instance", inst.InstanceID, "system", inst.SystemName, "active", inst.IsActive)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "instance_id": inst.InstanceID})
}

func (h *InstanceHandlers) delete(w http.ResponseWriter, r *http.Request, id string) {
	// An instance referenced by widgets must not disappear underneath them.
	count, err := h.widgets.CountByInstance(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to check widget references", "instance", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check widget references")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("instance %q is referenced by %d widget(s); delete or repoint them first", id, count))
		return
	}

	if err := h.instances.DeleteInstance(r.Context(), id); err != nil {
		h.logger.Error("failed to delete instance", "instance", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete instance")
		return
	}

	h.logger.Info("instance deleted", "instance", id)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// probe runs the connector's capability probe against the instance.
func (h *InstanceHandlers) probe(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	inst, err := h.instances.GetInstance(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get instance", "instance", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get instance")
		return
	}
	if inst == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("instance %q not found", id))
		return
	}

	conn, ok := h.registry.Get(inst.SystemName)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown system family %q", inst.SystemName))
		return
	}

	resp, err := conn.Probe(r.Context(), *inst)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    resp.Data,
		"metadata": queryMetadata{
			ExecutionTimeMs: resp.Duration.Milliseconds(),
			SystemName:      inst.SystemName,
		},
	})
}

// redactInstance blanks secret material before an instance leaves the API.
func redactInstance(inst models.SystemInstance) models.SystemInstance {
	if inst.AuthConfig.Password != "" {
		inst.AuthConfig.Password = "********"
	}
	if inst.AuthConfig.Token != "" {
		inst.AuthConfig.Token = "********"
	}
	if inst.AuthConfig.Key != "" {
		inst.AuthConfig.Key = "********"
	}
	if inst.AuthConfig.ClientSecret != "" {
		inst.AuthConfig.ClientSecret = "********"
	}
	return inst
}

// splitItemPath extracts the item id and optional trailing action from an
// item URL like /api/instances/{id}/probe.
func splitItemPath(path, prefix string) (id, action string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}
