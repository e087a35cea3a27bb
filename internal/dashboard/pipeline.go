// Package dashboard owns widget refresh scheduling and the last-known-state
// snapshot cache behind the dashboard UI.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/gateway"
	"github.com/OPSDECK/opsdeck/internal/models"
)

// WidgetSource provides persisted widget definitions.
type WidgetSource interface {
	ListActiveWidgets(ctx context.Context) ([]models.Widget, error)
	GetWidget(ctx context.Context, id string) (*models.Widget, error)
}

// RefreshMetrics records refresh outcomes. Implementations must be safe for
// concurrent use.
type RefreshMetrics interface {
	ObserveRefresh(system, status string)
}

// Config tunes the pipeline.
type Config struct {
	// MaxInFlight bounds concurrent outbound refresh calls across all
	// widgets so many widgets sharing a tick boundary cannot open unbounded
	// parallel connections.
	MaxInFlight int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxInFlight: 8}
}

// Pipeline schedules one independent recurring refresh per active widget and
// keeps the per-widget snapshot store current.
type Pipeline struct {
	gateway *gateway.Gateway
	widgets WidgetSource
	store   *Store
	logger  *slog.Logger
	metrics RefreshMetrics
	sem     chan struct{}

	mu      sync.Mutex
	baseCtx context.Context
	cancels map[string]context.CancelFunc
}

// New constructs a pipeline. metrics may be nil.
func New(gw *gateway.Gateway, widgets WidgetSource, store *Store, logger *slog.Logger, metrics RefreshMetrics, cfg Config) *Pipeline {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultConfig().MaxInFlight
	}
	return &Pipeline{
		gateway: gw,
		widgets: widgets,
		store:   store,
		logger:  logger,
		metrics: metrics,
		sem:     make(chan struct{}, cfg.MaxInFlight),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Store exposes the snapshot store for read-side consumers.
func (p *Pipeline) Store() *Store {
	return p.store
}

// Start schedules every active widget with a positive refresh interval. The
// given context bounds all schedules; canceling it stops the pipeline.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	p.baseCtx = ctx
	p.mu.Unlock()

	widgets, err := p.widgets.ListActiveWidgets(ctx)
	if err != nil {
		return fmt.Errorf("loading active widgets: %w", err)
	}

	for _, w := range widgets {
		p.Schedule(w)
	}

	p.logger.Info("widget pipeline started", "widgets", len(widgets))
	return nil
}

// Schedule starts (or restarts) the recurring refresh for one widget. Widgets
// that are inactive or have no positive interval get no timer; any previous
// schedule for the id is canceled first. Saving a widget also lifts any
// tombstone a prior deletion of the same id left in the store.
func (p *Pipeline) Schedule(w models.Widget) {
	p.store.Restore(w.ID)

	p.mu.Lock()
	if cancel, ok := p.cancels[w.ID]; ok {
		cancel()
		delete(p.cancels, w.ID)
	}

	interval := w.QueryConfig.RefreshInterval()
	if !w.IsActive || interval <= 0 || p.baseCtx == nil {
		p.mu.Unlock()
		return
	}

	wctx, cancel := context.WithCancel(p.baseCtx)
	p.cancels[w.ID] = cancel
	p.mu.Unlock()

	go p.runLoop(wctx, w, interval)
}

// StopWidget cancels a widget's schedule before returning. Future ticks never
// fire; an in-flight call completes but its result is discarded.
func (p *Pipeline) StopWidget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.cancels[id]; ok {
		cancel()
		delete(p.cancels, id)
	}
}

// Remove stops a widget's schedule and discards its snapshot. Called when the
// widget is deleted.
func (p *Pipeline) Remove(id string) {
	p.StopWidget(id)
	p.store.Delete(id)
}

// Stop cancels every schedule.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, cancel := range p.cancels {
		cancel()
		delete(p.cancels, id)
	}
}

// Scheduled reports whether a widget currently has a refresh timer.
func (p *Pipeline) Scheduled(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.cancels[id]
	return ok
}

// RefreshNow runs one on-demand refresh cycle for the widget. Outcome and
// state slot are identical to a scheduled tick.
func (p *Pipeline) RefreshNow(ctx context.Context, id string) (Snapshot, error) {
	w, err := p.widgets.GetWidget(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading widget %s: %w", id, err)
	}
	if w == nil {
		return Snapshot{}, fmt.Errorf("widget %s not found", id)
	}

	p.refresh(ctx, *w)

	snap, _ := p.store.Get(id)
	return snap, nil
}

// runLoop fires an immediate refresh, then one per interval until canceled.
// Cycles are deliberately not serialized: a slow cycle must not delay the
// next tick, and the store's sequence guard keeps stragglers from winning.
func (p *Pipeline) runLoop(ctx context.Context, w models.Widget, interval time.Duration) {
	p.logger.Debug("scheduling widget refresh", "widget", w.ID, "interval", interval)

	p.refresh(ctx, w)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("widget schedule stopped", "widget", w.ID)
			return
		case <-ticker.C:
			go p.refresh(ctx, w)
		}
	}
}

// refresh runs one cycle: mark loading, execute through the gateway, store
// the classified outcome. A cycle whose context was canceled while in flight
// discards its result instead of writing.
func (p *Pipeline) refresh(ctx context.Context, w models.Widget) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-p.sem }()

	seq := p.store.Begin(w.ID)

	result, err := p.gateway.Run(ctx, gateway.Request{
		SystemName: w.SystemName,
		InstanceID: w.InstanceID,
		Query:      w.QueryConfig.Query,
		Method:     w.QueryConfig.Method,
		Params:     w.QueryConfig.Params,
		Headers:    w.QueryConfig.Headers,
		Mapping:    w.QueryConfig.Mapping,
	})

	if ctx.Err() != nil {
		p.logger.Debug("discarding refresh result after cancellation", "widget", w.ID)
		return
	}

	if err != nil {
		kind := connector.KindOf(err)
		p.store.Complete(w.ID, seq, Snapshot{
			Status:      StatusError,
			Error:       err.Error(),
			ErrorKind:   string(kind),
			LastUpdated: time.Now(),
		})
		p.observe(w.SystemName, string(StatusError))
		p.logger.Warn("widget refresh failed",
			"widget", w.ID,
			"system", w.SystemName,
			"kind", kind,
			"error", err,
		)
		return
	}

	p.store.Complete(w.ID, seq, Snapshot{
		Status:      StatusSuccess,
		Data:        result.Data,
		LastUpdated: time.Now(),
	})
	p.observe(w.SystemName, string(StatusSuccess))
	p.logger.Debug("widget refreshed",
		"widget", w.ID,
		"system", w.SystemName,
		"duration", result.Duration,
	)
}

func (p *Pipeline) observe(system, status string) {
	if p.metrics != nil {
		p.metrics.ObserveRefresh(system, status)
	}
}
