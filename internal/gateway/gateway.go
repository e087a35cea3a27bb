// Package gateway resolves and executes queries against configured external
// system instances, enforcing activity and rate policy and classifying every
// failure before it reaches a caller.
package gateway

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/mapping"
	"github.com/OPSDECK/opsdeck/internal/models"
)

// InstanceResolver looks up persisted instance records. A nil instance with a
// nil error means "not found".
type InstanceResolver interface {
	GetInstance(ctx context.Context, instanceID string) (*models.SystemInstance, error)
}

// Request names a system family, an instance and the query to run.
type Request struct {
	SystemName string
	InstanceID string
	Query      string
	Method     string
	Params     map[string]string
	Headers    map[string]string
	Body       []byte
	Mapping    []models.FieldMapping
}

// Result is the normalized outcome of a successful query.
type Result struct {
	SystemName string
	InstanceID string
	StatusCode int
	Data       any
	Duration   time.Duration
}

// Gateway executes queries through the connector registry. It performs no
// automatic retries; read queries are safe for the caller to retry.
type Gateway struct {
	registry  *connector.Registry
	instances InstanceResolver
	limiters  *limiterPool
	logger    *slog.Logger
}

// New constructs a gateway over the given registry and instance store.
func New(registry *connector.Registry, instances InstanceResolver, logger *slog.Logger) *Gateway {
	return &Gateway{
		registry:  registry,
		instances: instances,
		limiters:  newLimiterPool(),
		logger:    logger,
	}
}

// Run drives one query through validate, resolve, policy check, execute and
// field mapping. Every stage short-circuits with a typed error; no stage ever
// widens a specific error kind to a generic one.
func (g *Gateway) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	conn, ok := g.registry.Get(req.SystemName)
	if !ok {
		return nil, connector.NewError(connector.KindInput, "unknown system family %q", req.SystemName)
	}

	inst, err := g.instances.GetInstance(ctx, req.InstanceID)
	if err != nil {
		return nil, connector.WrapError(connector.KindTransport, err, "resolving instance %s", req.InstanceID)
	}
	if inst == nil || inst.SystemName != req.SystemName {
		return nil, connector.NewError(connector.KindInstanceNotFound, "instance %q not found for system %q", req.InstanceID, req.SystemName)
	}

	if !inst.IsActive {
		return nil, connector.NewError(connector.KindInstanceInactive,
			"instance %q is disabled (is_active=false); enable it in the instance configuration", inst.InstanceID)
	}

	if !g.limiters.allow(*inst) {
		return nil, connector.NewError(connector.KindRateLimited,
			"instance %q exceeded its rate limit of %d requests/minute", inst.InstanceID, inst.RateLimit.RequestsPerMinute)
	}

	start := time.Now()
	resp, err := conn.Execute(ctx, *inst, connector.Request{
		Query:   req.Query,
		Method:  req.Method,
		Params:  req.Params,
		Headers: req.Headers,
		Body:    req.Body,
	})
	if err != nil {
		g.logger.Warn("query failed",
			"system", req.SystemName,
			"instance", req.InstanceID,
			"kind", connector.KindOf(err),
			"error", err,
		)
		return nil, err
	}

	data := resp.Data
	if len(req.Mapping) > 0 && resp.Records != nil {
		data = mapping.Apply(resp.Records, req.Mapping)
	}

	duration := time.Since(start)
	g.logger.Debug("query succeeded",
		"system", req.SystemName,
		"instance", req.InstanceID,
		"status", resp.StatusCode,
		"duration", duration,
	)

	return &Result{
		SystemName: req.SystemName,
		InstanceID: req.InstanceID,
		StatusCode: resp.StatusCode,
		Data:       data,
		Duration:   duration,
	}, nil
}

// validate rejects missing identifiers before any resolution work. Absence is
// a caller error, never silently defaulted.
func validate(req Request) error {
	if strings.TrimSpace(req.SystemName) == "" {
		return connector.NewError(connector.KindInput, "system name is required")
	}
	if strings.TrimSpace(req.InstanceID) == "" {
		return connector.NewError(connector.KindInput, "instance id is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return connector.NewError(connector.KindInput, "query is required")
	}
	return nil
}
