package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/OPSDECK/opsdeck/internal/api"
	"github.com/OPSDECK/opsdeck/internal/auth"
	"github.com/OPSDECK/opsdeck/internal/config"
	"github.com/OPSDECK/opsdeck/internal/connector"
	"github.com/OPSDECK/opsdeck/internal/dashboard"
	"github.com/OPSDECK/opsdeck/internal/database"
	"github.com/OPSDECK/opsdeck/internal/gateway"
	"github.com/OPSDECK/opsdeck/internal/logging"
	"github.com/OPSDECK/opsdeck/internal/metrics"
	"github.com/OPSDECK/opsdeck/internal/server"
	"github.com/OPSDECK/opsdeck/internal/store"
	_ "github.com/lib/pq"
	"log/slog"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting opsdeck", "version", version)

	// Repositories: Postgres when DATABASE_URL is set, in-memory otherwise so
	// the service runs standalone from a definitions file.
	var (
		instanceRepo store.InstanceRepository
		widgetRepo   store.WidgetRepository
	)
	if cfg.Database.URL != "" {
		logger.Info("connecting to database")
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected")

		if err := database.RunMigrations(db, cfg.Database.MigrationsDir, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		instanceRepo = database.NewPostgresInstanceRepository(db)
		widgetRepo = database.NewPostgresWidgetRepository(db)
	} else {
		logger.Info("no DATABASE_URL set, using in-memory repositories")
		instanceRepo = store.NewMemoryInstanceRepository()
		widgetRepo = store.NewMemoryWidgetRepository()
	}

	// Register connector families.
	registry := connector.NewRegistry()
	registry.Register(connector.NewJira())
	registry.Register(connector.NewWazuh())
	registry.Register(connector.NewFortigate())
	registry.Register(connector.NewElastic())
	registry.Register(connector.NewKibana())
	registry.Register(connector.NewProxmox())
	logger.Info("connectors registered", "families", registry.Names())

	ctx := context.Background()

	if err := seedDefinitions(ctx, cfg, instanceRepo, widgetRepo, logger); err != nil {
		logger.Error("failed to seed definitions", "error", err)
		os.Exit(1)
	}

	gw := gateway.New(registry, instanceRepo, logger)

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// Widget refresh pipeline.
	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	defer pipelineCancel()

	pipeline := dashboard.New(gw, widgetRepo, dashboard.NewStore(), logger, collector, dashboard.DefaultConfig())
	if err := pipeline.Start(pipelineCtx); err != nil {
		logger.Error("failed to start widget pipeline", "error", err)
		os.Exit(1)
	}

	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != "change-this-secret")

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", collector.Handler())

	api.SetupRoutes(mux, api.Dependencies{
		Gateway:    gw,
		Registry:   registry,
		Instances:  instanceRepo,
		Widgets:    widgetRepo,
		Pipeline:   pipeline,
		Metrics:    collector,
		AuthConfig: authConfig,
		Logger:     logger,
		Version:    version,
	})

	logger.Info("setting up static file server for web UI")
	handler := server.SPAMiddleware(collector.InstrumentHandler(mux), "./web/dist", "./web/dist/index.html")

	srv := server.New(cfg.Server, logger, handler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("opsdeck started successfully")
	logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	pipeline.Stop()
	pipelineCancel()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

// seedDefinitions loads instance and widget definitions from the optional
// seed file, then fills in environment-derived default instances for any
// family the file (or prior runs) did not configure. File entries win.
func seedDefinitions(ctx context.Context, cfg config.Config, instances store.InstanceRepository, widgets store.WidgetRepository, logger *slog.Logger) error {
	if cfg.DefinitionsFile != "" {
		defs, err := config.LoadDefinitions(cfg.DefinitionsFile)
		if err != nil {
			return err
		}

		for _, inst := range defs.Instances {
			if err := instances.SaveInstance(ctx, inst); err != nil {
				return fmt.Errorf("seeding instance %s: %w", inst.InstanceID, err)
			}
		}
		for _, w := range defs.Widgets {
			if err := widgets.SaveWidget(ctx, w); err != nil {
				return fmt.Errorf("seeding widget %s: %w", w.ID, err)
			}
		}
		logger.Info("seeded definitions from file",
			"file", cfg.DefinitionsFile,
			"instances", len(defs.Instances),
			"widgets", len(defs.Widgets),
		)
	}

	for _, inst := range connector.EnvDefaults() {
		existing, err := instances.GetInstance(ctx, inst.InstanceID)
		if err != nil {
			return fmt.Errorf("checking default instance %s: %w", inst.InstanceID, err)
		}
		if existing != nil {
			continue
		}
		if err := instances.SaveInstance(ctx, inst); err != nil {
			return fmt.Errorf("seeding default instance %s: %w", inst.InstanceID, err)
		}
		logger.Info("registered environment default instance",
			"instance", inst.InstanceID,
			"system", inst.SystemName,
			"active", inst.IsActive,
		)
	}

	return nil
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
