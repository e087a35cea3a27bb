package gateway

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeConnector counts executions and returns a canned payload.
type fakeConnector struct {
	name     string
	calls    int
	response *connector.Response
	err      error
}

func (f *fakeConnector) Name() string                     { return f.name }
func (f *fakeConnector) Catalogue() []models.QueryDef     { return nil }
func (f *fakeConnector) ValidateQuery(query string) error { return nil }

func (f *fakeConnector) Execute(ctx context.Context, inst models.SystemInstance, req connector.Request) (*connector.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeConnector) Probe(ctx context.Context, inst models.SystemInstance) (*connector.Response, error) {
	return f.Execute(ctx, inst, connector.Request{})
}

// fakeResolver serves instances from a map.
type fakeResolver struct {
	instances map[string]models.SystemInstance
}

func (r *fakeResolver) GetInstance(ctx context.Context, id string) (*models.SystemInstance, error) {
	inst, ok := r.instances[id]
	if !ok {
		return nil, nil
	}
	return &inst, nil
}

func newTestGateway(fake *fakeConnector, instances ...models.SystemInstance) *Gateway {
	registry := connector.NewRegistry()
	registry.Register(fake)

	resolver := &fakeResolver{instances: make(map[string]models.SystemInstance)}
	for _, inst := range instances {
		resolver.instances[inst.InstanceID] = inst
	}

	return New(registry, resolver, testLogger())
}

func activeInstance(id, system string) models.SystemInstance {
	return models.SystemInstance{
		InstanceID: id,
		SystemName: system,
		BaseURL:    "https://example.local",
		IsActive:   true,
		AuthType:   models.AuthNone,
	}
}

func TestRunSuccess(t *testing.T) {
	fake := &fakeConnector{
		name: "jira",
		response: &connector.Response{
			StatusCode: 200,
			Data:       map[string]any{"total": float64(3)},
			Duration:   10 * time.Millisecond,
		},
	}
	gw := newTestGateway(fake, activeInstance("jira-1", "jira"))

	result, err := gw.Run(context.Background(), Request{
		SystemName: "jira",
		InstanceID: "jira-1",
		Query:      "status = 'Open'",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("connector called %d times, want 1", fake.calls)
	}
	if result.SystemName != "jira" || result.InstanceID != "jira-1" {
		t.Errorf("result identity = %s/%s", result.SystemName, result.InstanceID)
	}
}

func TestRunRejectsMissingFields(t *testing.T) {
	fake := &fakeConnector{name: "jira", response: &connector.Response{}}
	gw := newTestGateway(fake, activeInstance("jira-1", "jira"))

	tests := []struct {
		name string
		req  Request
	}{
		{"no system", Request{InstanceID: "jira-1", Query: "q"}},
		{"no instance", Request{SystemName: "jira", Query: "q"}},
		{"no query", Request{SystemName: "jira", InstanceID: "jira-1"}},
		{"whitespace query", Request{SystemName: "jira", InstanceID: "jira-1", Query: "   "}},
	}

	for _, tt := range tests {
		_, err := gw.Run(context.Background(), tt.req)
		if !connector.IsKind(err, connector.KindInput) {
			t.Errorf("%s: kind = %s, want %s", tt.name, connector.KindOf(err), connector.KindInput)
		}
	}
	if fake.calls != 0 {
		t.Errorf("connector called %d times for invalid input, want 0", fake.calls)
	}
}

func TestRunUnknownSystem(t *testing.T) {
	gw := newTestGateway(&fakeConnector{name: "jira"}, activeInstance("jira-1", "jira"))

	_, err := gw.Run(context.Background(), Request{
		SystemName: "unknown",
		InstanceID: "jira-1",
		Query:      "q",
	})
	if !connector.IsKind(err, connector.KindInput) {
		t.Errorf("kind = %s, want %s", connector.KindOf(err), connector.KindInput)
	}
}

func TestRunInstanceNotFound(t *testing.T) {
	fake := &fakeConnector{name: "jira"}
	gw := newTestGateway(fake, activeInstance("jira-1", "jira"))

	_, err := gw.Run(context.Background(), Request{
		SystemName: "jira",
		InstanceID: "missing",
		Query:      "q",
	})
	if !connector.IsKind(err, connector.KindInstanceNotFound) {
		t.Errorf("kind = %s, want %s", connector.KindOf(err), connector.KindInstanceNotFound)
	}
}

func TestRunInstanceWrongSystem(t *testing.T) {
	// An instance belonging to another family must not be reachable through
	// a different system name.
	fake := &fakeConnector{name: "jira"}
	gw := newTestGateway(fake, activeInstance("wazuh-1", "wazuh"))

	_, err := gw.Run(context.Background(), Request{
		SystemName: "jira",
		InstanceID: "wazuh-1",
		Query:      "q",
	})
	if !connector.IsKind(err, connector.KindInstanceNotFound) {
		t.Errorf("kind = %s, want %s", connector.KindOf(err), connector.KindInstanceNotFound)
	}
	if fake.calls != 0 {
		t.Errorf("connector called %d times, want 0", fake.calls)
	}
}

func TestRunInactiveInstanceNeverExecutes(t *testing.T) {
	inst := activeInstance("jira-1", "jira")
	inst.IsActive = false

	fake := &fakeConnector{name: "jira", response: &connector.Response{}}
	gw := newTestGateway(fake, inst)

	_, err := gw.Run(context.Background(), Request{
		SystemName: "jira",
		InstanceID: "jira-1",
		Query:      "q",
	})
	if !connector.IsKind(err, connector.KindInstanceInactive) {
		t.Errorf("kind = %s, want %s", connector.KindOf(err), connector.KindInstanceInactive)
	}
	if fake.calls != 0 {
		t.Errorf("connector called %d times for inactive instance, want 0", fake.calls)
	}
}

func TestRunRateLimited(t *testing.T) {
	inst := activeInstance("jira-1", "jira")
	inst.RateLimit = models.RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1}

	fake := &fakeConnector{name: "jira", response: &connector.Response{}}
	gw := newTestGateway(fake, inst)

	req := Request{SystemName: "jira", InstanceID: "jira-1", Query: "q"}

	if _, err := gw.Run(context.Background(), req); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	_, err := gw.Run(context.Background(), req)
	if !connector.IsKind(err, connector.KindRateLimited) {
		t.Errorf("kind = %s, want %s", connector.KindOf(err), connector.KindRateLimited)
	}
	if fake.calls != 1 {
		t.Errorf("connector called %d times, want 1", fake.calls)
	}
}

func TestRunPreservesErrorKind(t *testing.T) {
	fake := &fakeConnector{
		name: "jira",
		err:  connector.NewError(connector.KindAuthentication, "rejected"),
	}
	gw := newTestGateway(fake, activeInstance("jira-1", "jira"))

	_, err := gw.Run(context.Background(), Request{
		SystemName: "jira",
		InstanceID: "jira-1",
		Query:      "q",
	})
	if !connector.IsKind(err, connector.KindAuthentication) {
		t.Errorf("kind = %s, want %s", connector.KindOf(err), connector.KindAuthentication)
	}
}

func TestRunAppliesMapping(t *testing.T) {
	fake := &fakeConnector{
		name: "jira",
		response: &connector.Response{
			StatusCode: 200,
			Data:       []any{map[string]any{"key": "OPS-1", "extra": "kept"}},
			Records:    []map[string]any{{"key": "OPS-1", "extra": "kept"}},
		},
	}
	gw := newTestGateway(fake, activeInstance("jira-1", "jira"))

	result, err := gw.Run(context.Background(), Request{
		SystemName: "jira",
		InstanceID: "jira-1",
		Query:      "q",
		Mapping:    []models.FieldMapping{{SourceField: "key", TargetField: "id"}},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	records, ok := result.Data.([]map[string]any)
	if !ok || len(records) != 1 {
		t.Fatalf("Data = %v, want mapped records", result.Data)
	}
	if records[0]["id"] != "OPS-1" {
		t.Errorf("mapped record = %v, want id=OPS-1", records[0])
	}
	if records[0]["extra"] != "kept" {
		t.Errorf("unmapped field dropped: %v", records[0])
	}
}

func TestRunSkipsMappingForNonRecordData(t *testing.T) {
	payload := map[string]any{"total": float64(1)}
	fake := &fakeConnector{
		name:     "jira",
		response: &connector.Response{StatusCode: 200, Data: payload, Records: nil},
	}
	gw := newTestGateway(fake, activeInstance("jira-1", "jira"))

	result, err := gw.Run(context.Background(), Request{
		SystemName: "jira",
		InstanceID: "jira-1",
		Query:      "q",
		Mapping:    []models.FieldMapping{{SourceField: "total", TargetField: "count"}},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	data, ok := result.Data.(map[string]any)
	if !ok || data["total"] != float64(1) {
		t.Errorf("non-record payload must pass through unchanged, got %v", result.Data)
	}
}
