package dashboard

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/gateway"
	"github.com/OPSDECK/opsdeck/internal/models"
	"github.com/OPSDECK/opsdeck/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// countingConnector returns a canned result and counts executions.
type countingConnector struct {
	calls atomic.Int64
	err   error
}

func (c *countingConnector) Name() string                     { return "fake" }
func (c *countingConnector) Catalogue() []models.QueryDef     { return nil }
func (c *countingConnector) ValidateQuery(query string) error { return nil }

func (c *countingConnector) Execute(ctx context.Context, inst models.SystemInstance, req connector.Request) (*connector.Response, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &connector.Response{StatusCode: 200, Data: map[string]any{"n": float64(1)}}, nil
}

func (c *countingConnector) Probe(ctx context.Context, inst models.SystemInstance) (*connector.Response, error) {
	return c.Execute(ctx, inst, connector.Request{})
}

func testWidget(id string, active bool, intervalSeconds int) models.Widget {
	return models.Widget{
		ID:         id,
		Name:       "widget " + id,
		Type:       models.WidgetTable,
		SystemName: "fake",
		InstanceID: "fake-1",
		IsActive:   active,
		QueryConfig: models.QueryConfig{
			Query:                  "/items",
			RefreshIntervalSeconds: intervalSeconds,
		},
	}
}

func newTestPipeline(t *testing.T, conn *countingConnector, widgets ...models.Widget) (*Pipeline, context.CancelFunc) {
	t.Helper()

	registry := connector.NewRegistry()
	registry.Register(conn)

	instances := store.NewMemoryInstanceRepository()
	instances.SaveInstance(context.Background(), models.SystemInstance{
		InstanceID: "fake-1",
		SystemName: "fake",
		BaseURL:    "https://example.local",
		IsActive:   true,
		AuthType:   models.AuthNone,
	})

	widgetRepo := store.NewMemoryWidgetRepository()
	for _, w := range widgets {
		widgetRepo.SaveWidget(context.Background(), w)
	}

	gw := gateway.New(registry, instances, testLogger())
	p := New(gw, widgetRepo, NewStore(), testLogger(), nil, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start returned error: %v", err)
	}
	return p, cancel
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStartSchedulesActiveWidgets(t *testing.T) {
	conn := &countingConnector{}
	p, cancel := newTestPipeline(t, conn,
		testWidget("w1", true, 60),
		testWidget("w2", false, 60),
		testWidget("w3", true, 0),
	)
	defer cancel()
	defer p.Stop()

	if !p.Scheduled("w1") {
		t.Error("active widget with interval must be scheduled")
	}
	if p.Scheduled("w2") {
		t.Error("inactive widget must not be scheduled")
	}
	if p.Scheduled("w3") {
		t.Error("zero-interval widget must not be scheduled")
	}

	// The schedule fires an immediate first refresh.
	waitFor(t, func() bool {
		snap, ok := p.Store().Get("w1")
		return ok && snap.Status == StatusSuccess
	}, "w1 never produced a success snapshot")

	if _, ok := p.Store().Get("w2"); ok {
		t.Error("inactive widget must not get a snapshot")
	}
}

func TestRefreshNowWritesSnapshot(t *testing.T) {
	conn := &countingConnector{}
	p, cancel := newTestPipeline(t, conn, testWidget("w1", true, 0))
	defer cancel()
	defer p.Stop()

	snap, err := p.RefreshNow(context.Background(), "w1")
	if err != nil {
		t.Fatalf("RefreshNow returned error: %v", err)
	}
	if snap.Status != StatusSuccess {
		t.Errorf("Status = %s, want %s", snap.Status, StatusSuccess)
	}
	if conn.calls.Load() != 1 {
		t.Errorf("connector called %d times, want 1", conn.calls.Load())
	}

	// The manual refresh shares the widget's single snapshot slot.
	stored, ok := p.Store().Get("w1")
	if !ok || stored.Status != StatusSuccess {
		t.Errorf("stored snapshot = %v", stored)
	}
}

func TestRefreshNowUnknownWidget(t *testing.T) {
	p, cancel := newTestPipeline(t, &countingConnector{})
	defer cancel()
	defer p.Stop()

	if _, err := p.RefreshNow(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown widget")
	}
}

func TestRefreshErrorSnapshotCarriesKind(t *testing.T) {
	conn := &countingConnector{err: connector.NewError(connector.KindAuthentication, "rejected")}
	p, cancel := newTestPipeline(t, conn, testWidget("w1", true, 0))
	defer cancel()
	defer p.Stop()

	snap, err := p.RefreshNow(context.Background(), "w1")
	if err != nil {
		t.Fatalf("RefreshNow returned error: %v", err)
	}
	if snap.Status != StatusError {
		t.Errorf("Status = %s, want %s", snap.Status, StatusError)
	}
	if snap.ErrorKind != string(connector.KindAuthentication) {
		t.Errorf("ErrorKind = %q, want %s", snap.ErrorKind, connector.KindAuthentication)
	}
	if snap.Data != nil {
		t.Errorf("error snapshot must not carry data, got %v", snap.Data)
	}
}

func TestScheduleRestartReplacesTimer(t *testing.T) {
	conn := &countingConnector{}
	p, cancel := newTestPipeline(t, conn, testWidget("w1", true, 60))
	defer cancel()
	defer p.Stop()

	// Rescheduling an updated widget keeps exactly one timer.
	p.Schedule(testWidget("w1", true, 120))
	if !p.Scheduled("w1") {
		t.Error("widget must stay scheduled after update")
	}

	// Deactivating through Schedule removes the timer.
	p.Schedule(testWidget("w1", false, 120))
	if p.Scheduled("w1") {
		t.Error("deactivated widget must not stay scheduled")
	}
}

func TestStopWidgetCancelsSchedule(t *testing.T) {
	conn := &countingConnector{}
	p, cancel := newTestPipeline(t, conn, testWidget("w1", true, 60))
	defer cancel()
	defer p.Stop()

	p.StopWidget("w1")
	if p.Scheduled("w1") {
		t.Error("widget still scheduled after StopWidget")
	}
}

func TestDeactivationStopsWrites(t *testing.T) {
	conn := &countingConnector{}
	p, cancel := newTestPipeline(t, conn, testWidget("w1", true, 1))
	defer cancel()
	defer p.Stop()

	waitFor(t, func() bool { return conn.calls.Load() >= 1 }, "w1 never refreshed")

	p.Schedule(testWidget("w1", false, 1))
	if p.Scheduled("w1") {
		t.Fatal("deactivated widget still scheduled")
	}

	// Let any in-flight cycle drain before freezing the baseline.
	time.Sleep(100 * time.Millisecond)
	calls := conn.calls.Load()
	before, ok := p.Store().Get("w1")
	if !ok {
		t.Fatal("no snapshot before deactivation window")
	}

	// Wait past several of the former tick intervals.
	time.Sleep(2500 * time.Millisecond)

	if got := conn.calls.Load(); got != calls {
		t.Errorf("connector called %d more times after deactivation", got-calls)
	}
	after, _ := p.Store().Get("w1")
	if !after.LastUpdated.Equal(before.LastUpdated) {
		t.Errorf("LastUpdated advanced after deactivation: %v -> %v", before.LastUpdated, after.LastUpdated)
	}
}

func TestRemoveDiscardsSnapshot(t *testing.T) {
	conn := &countingConnector{}
	p, cancel := newTestPipeline(t, conn, testWidget("w1", true, 60))
	defer cancel()
	defer p.Stop()

	waitFor(t, func() bool {
		_, ok := p.Store().Get("w1")
		return ok
	}, "w1 never produced a snapshot")

	p.Remove("w1")

	if p.Scheduled("w1") {
		t.Error("widget still scheduled after Remove")
	}
	if _, ok := p.Store().Get("w1"); ok {
		t.Error("snapshot survived Remove")
	}
}

func TestRefreshAfterRemoveDoesNotResurrectSnapshot(t *testing.T) {
	conn := &countingConnector{}
	p, cancel := newTestPipeline(t, conn, testWidget("w1", true, 0))
	defer cancel()
	defer p.Stop()

	if _, err := p.RefreshNow(context.Background(), "w1"); err != nil {
		t.Fatalf("RefreshNow returned error: %v", err)
	}
	p.Remove("w1")

	// A refresh that raced the delete still sees the widget definition, but
	// its cycle must not bring the snapshot back.
	snap, err := p.RefreshNow(context.Background(), "w1")
	if err != nil {
		t.Fatalf("RefreshNow returned error: %v", err)
	}
	if snap.WidgetID != "" {
		t.Errorf("refresh after Remove produced snapshot %+v", snap)
	}
	if _, ok := p.Store().Get("w1"); ok {
		t.Error("deleted widget snapshot reappeared")
	}
	if got := len(p.Store().All()); got != 0 {
		t.Errorf("All() returned %d snapshots after delete, want 0", got)
	}
}

func TestStopCancelsEverything(t *testing.T) {
	conn := &countingConnector{}
	p, cancel := newTestPipeline(t, conn,
		testWidget("w1", true, 60),
		testWidget("w2", true, 60),
	)
	defer cancel()

	p.Stop()
	if p.Scheduled("w1") || p.Scheduled("w2") {
		t.Error("widgets still scheduled after Stop")
	}
}
