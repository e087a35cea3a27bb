// Package api wires the HTTP surface: query execution, instance and widget
// configuration, connector discovery, operator auth, and snapshot reads.
package api

import (
	"log/slog"
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/auth"
	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/dashboard"
	"github.com/OPSDECK/opsdeck/internal/gateway"
	"github.com/OPSDECK/opsdeck/internal/metrics"
	"github.com/OPSDECK/opsdeck/internal/store"
)

// Dependencies carries everything the API surface needs.
type Dependencies struct {
	Gateway    *gateway.Gateway
	Registry   *connector.Registry
	Instances  store.InstanceRepository
	Widgets    store.WidgetRepository
	Pipeline   *dashboard.Pipeline
	Metrics    *metrics.Collector
	AuthConfig auth.Config
	Logger     *slog.Logger
	Version    string
}

// SetupRoutes registers every API route on the mux. Configuration mutations
// and ad-hoc query execution require an operator token; read-side dashboard
// endpoints (snapshots, connector discovery) are open so display surfaces can
// poll without credentials.
func SetupRoutes(mux *http.ServeMux, deps Dependencies) {
	queryHandler := NewQueryHandler(deps.Gateway, deps.Metrics, deps.Logger)
	instanceHandlers := NewInstanceHandlers(deps.Instances, deps.Widgets, deps.Registry, deps.Logger)
	widgetHandlers := NewWidgetHandlers(deps.Widgets, deps.Pipeline, deps.Logger)
	connectorHandlers := NewConnectorHandlers(deps.Registry)
	authHandlers := NewAuthHandlers(deps.AuthConfig, deps.Logger)

	protect := auth.Middleware(deps.AuthConfig)
	protected := func(h http.HandlerFunc) http.Handler {
		return protect(h)
	}

	mux.HandleFunc("/api/auth/login", authHandlers.Login)
	mux.HandleFunc("/api/auth/validate", authHandlers.Validate)

	mux.Handle("/api/query", protected(queryHandler.Execute))

	mux.Handle("/api/instances", protected(instanceHandlers.Collection))
	mux.Handle("/api/instances/", protected(instanceHandlers.Item))

	mux.HandleFunc("/api/connectors", connectorHandlers.List)
	mux.HandleFunc("/api/connectors/", connectorHandlers.Queries)

	// Widget item routes split read and write: snapshot reads stay open,
	// everything else goes through the operator token check.
	mux.Handle("/api/widgets", protected(widgetHandlers.Collection))
	mux.HandleFunc("/api/widgets/", func(w http.ResponseWriter, r *http.Request) {
		_, action := splitItemPath(r.URL.Path, "/api/widgets/")
		if action == "data" && r.Method == http.MethodGet {
			widgetHandlers.Item(w, r)
			return
		}
		protected(widgetHandlers.Item).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":       "opsdeck",
			"version":    deps.Version,
			"connectors": deps.Registry.Names(),
		})
	})
}
