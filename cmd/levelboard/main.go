package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	lbhttp "github.com/playforge/levelboard/internal/adapter/http"
	lbmcp "github.com/playforge/levelboard/internal/adapter/mcp"
	lbnats "github.com/playforge/levelboard/internal/adapter/nats"
	"github.com/playforge/levelboard/internal/adapter/natskv"
	"github.com/playforge/levelboard/internal/adapter/otel"
	"github.com/playforge/levelboard/internal/adapter/postgres"
	"github.com/playforge/levelboard/internal/adapter/ristretto"
	"github.com/playforge/levelboard/internal/adapter/tiered"
	"github.com/playforge/levelboard/internal/adapter/ws"
	"github.com/playforge/levelboard/internal/config"
	"github.com/playforge/levelboard/internal/logger"
	"github.com/playforge/levelboard/internal/middleware"
	"github.com/playforge/levelboard/internal/runner"
	"github.com/playforge/levelboard/internal/service"
)

const version = "0.1.0"

func main() {
	// Bootstrap logger until config is loaded.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogs := logger.New(cfg.Logging)
	defer closeLogs.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownTelemetry, err := otel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	// Run migrations
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := lbnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	idemKV, err := queue.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}
	l2KV, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("cache bucket: %w", err)
	}

	// Stats cache: ristretto in-process, NATS KV shared across replicas.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()
	statsCache := tiered.New(l1, natskv.New(l2KV), cfg.Cache.StatsTTL)

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	workscopeSvc := service.NewWorkscopeService(store, statsCache, hub, cfg.Workscope, cfg.Cache.StatsTTL)
	batchSvc := service.NewBatchService(store, queue)
	levelSvc := service.NewLevelService(store, queue, hub, workscopeSvc)
	runPool := runner.NewPool(int(cfg.Triage.MaxConcurrentRuns))
	if err := otel.RegisterInFlightGauge(runPool); err != nil {
		slog.Warn("failed to register in-flight gauge", "error", err)
	}
	triageSvc := service.NewTriageService(store, queue, hub, workscopeSvc, runPool, cfg.Triage)

	workscopeSvc.SetMetrics(metrics)
	levelSvc.SetMetrics(metrics)
	triageSvc.SetMetrics(metrics)

	// --- HTTP ---
	handlers := &lbhttp.Handlers{
		Batches:   batchSvc,
		Levels:    levelSvc,
		Workscope: workscopeSvc,
		Triage:    triageSvc,
	}

	rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopRLCleanup := rl.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopRLCleanup()

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(lbhttp.SecurityHeaders)
	r.Use(lbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(lbhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(rl.Handler)
	r.Use(middleware.Auth(cfg.Auth.TokenHash))
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}

	// Health endpoints
	r.Get("/health", healthHandler(pool, queue))
	r.Get("/health/ready", readyHandler(pool, queue))

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWS)

	// API routes
	lbhttp.MountRoutes(r, handlers, middleware.Idempotency(idemKV))

	// --- MCP ---
	var mcpSrv *lbmcp.Server
	if cfg.MCP.Enabled {
		mcpSrv = lbmcp.NewServer(
			lbmcp.ServerConfig{
				Addr:    cfg.MCP.Addr,
				Name:    "levelboard",
				Version: version,
				APIKey:  cfg.MCP.APIKey,
			},
			lbmcp.ServerDeps{
				BatchReader:     batchSvc,
				LevelReader:     levelSvc,
				WorkscopeReader: workscopeSvc,
				TriagePreviewer: triageSvc,
			},
		)
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
	}

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if mcpSrv != nil {
		if err := mcpSrv.Stop(shutdownCtx); err != nil {
			slog.Error("mcp shutdown failed", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return shutdownTelemetry(shutdownCtx)
}

// healthHandler reports liveness plus backing-service connectivity. Failures
// degrade the payload but never fail the endpoint; /health/ready is the
// gating probe.
func healthHandler(pool *pgxpool.Pool, queue *lbnats.Queue) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Version  string `json:"version"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		st := healthStatus{Status: "ok", Version: version, Postgres: "ok", NATS: "ok"}

		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			st.Postgres = "unreachable"
			st.Status = "degraded"
		}
		if !queue.IsConnected() {
			st.NATS = "disconnected"
			st.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(st)
	}
}

// readyHandler returns 204 only when both Postgres and NATS answer.
func readyHandler(pool *pgxpool.Pool, queue *lbnats.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			http.Error(w, "postgres not ready", http.StatusServiceUnavailable)
			return
		}
		if !queue.IsConnected() {
			http.Error(w, "nats not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
