package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/models"
	"github.com/OPSDECK/opsdeck/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRegistry() *connector.Registry {
	r := connector.NewRegistry()
	r.Register(connector.NewJira())
	r.Register(connector.NewWazuh())
	return r
}

func newInstanceHandlers() (*InstanceHandlers, *store.MemoryInstanceRepository, *store.MemoryWidgetRepository) {
	instances := store.NewMemoryInstanceRepository()
	widgets := store.NewMemoryWidgetRepository()
	h := NewInstanceHandlers(instances, widgets, testRegistry(), testLogger())
	return h, instances, widgets
}

func TestInstanceSaveAndGet(t *testing.T) {
	h, _, _ := newInstanceHandlers()

	body := `{
		"instance_id": "jira-prod",
		"system_name": "jira",
		"display_name": "Production Jira",
		"base_url": "https://jira.example.com",
		"is_active": true,
		"auth_type": "bearer",
		"auth_config": {"token": "secret-token"}
	}`

	rec := httptest.NewRecorder()
	h.Collection(rec, httptest.NewRequest(http.MethodPost, "/api/instances", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodGet, "/api/instances/jira-prod", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	var got models.SystemInstance
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding instance: %v", err)
	}
	if got.InstanceID != "jira-prod" {
		t.Errorf("InstanceID = %q", got.InstanceID)
	}
	if got.AuthConfig.Token == "secret-token" {
		t.Error("credential returned unredacted")
	}
}

func TestInstanceSaveRejectsInvalid(t *testing.T) {
	h, _, _ := newInstanceHandlers()

	tests := []struct {
		name string
		body string
	}{
		{"missing base_url", `{"instance_id":"x","system_name":"jira"}`},
		{"unknown family", `{"instance_id":"x","system_name":"nagios","base_url":"https://x"}`},
		{"mixed auth", `{"instance_id":"x","system_name":"jira","base_url":"https://x","auth_type":"bearer","auth_config":{"token":"t","username":"u","password":"p"}}`},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.Collection(rec, httptest.NewRequest(http.MethodPost, "/api/instances", strings.NewReader(tt.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, rec.Code)
		}
	}
}

func TestInstanceGetNotFound(t *testing.T) {
	h, _, _ := newInstanceHandlers()

	rec := httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodGet, "/api/instances/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestInstanceDeleteRefusedWhileReferenced(t *testing.T) {
	h, instances, widgets := newInstanceHandlers()
	ctx := context.Background()

	instances.SaveInstance(ctx, models.SystemInstance{
		InstanceID: "jira-prod", SystemName: "jira", BaseURL: "https://x", IsActive: true,
	})
	widgets.SaveWidget(ctx, models.Widget{
		ID: "w1", Name: "w1", Type: models.WidgetTable,
		SystemName: "jira", InstanceID: "jira-prod",
		QueryConfig: models.QueryConfig{Query: "q"},
	})

	rec := httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodDelete, "/api/instances/jira-prod", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	if inst, _ := instances.GetInstance(ctx, "jira-prod"); inst == nil {
		t.Error("referenced instance was deleted")
	}

	// After the widget is gone, deletion proceeds.
	widgets.DeleteWidget(ctx, "w1")
	rec = httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodDelete, "/api/instances/jira-prod", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if inst, _ := instances.GetInstance(ctx, "jira-prod"); inst != nil {
		t.Error("instance survived delete")
	}
}

func TestInstanceListRedactsCredentials(t *testing.T) {
	h, instances, _ := newInstanceHandlers()

	instances.SaveInstance(context.Background(), models.SystemInstance{
		InstanceID: "jira-prod", SystemName: "jira", BaseURL: "https://x",
		AuthType:   models.AuthBasic,
		AuthConfig: models.AuthConfig{Username: "ops", Password: "hunter2"},
	})

	rec := httptest.NewRecorder()
	h.Collection(rec, httptest.NewRequest(http.MethodGet, "/api/instances", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Error("password leaked in list response")
	}
}

func TestInstanceMethodNotAllowed(t *testing.T) {
	h, _, _ := newInstanceHandlers()

	rec := httptest.NewRecorder()
	h.Collection(rec, httptest.NewRequest(http.MethodDelete, "/api/instances", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
