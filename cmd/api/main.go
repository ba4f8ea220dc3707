package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales_pipeline_backend/internal/events"
	apphttp "sales_pipeline_backend/internal/http"
	"sales_pipeline_backend/internal/http/router"
	"sales_pipeline_backend/internal/pipeline"
	"sales_pipeline_backend/internal/pipeline/engine"
	"sales_pipeline_backend/internal/pipeline/repository"
	"sales_pipeline_backend/internal/scheduler"
	"sales_pipeline_backend/migrations"
	"sales_pipeline_backend/platform/config"
	"sales_pipeline_backend/platform/db"
	platformevents "sales_pipeline_backend/platform/events"
	"sales_pipeline_backend/platform/lock"
	"sales_pipeline_backend/platform/logger"
	"sales_pipeline_backend/platform/telemetry"
	"sales_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := db.WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := db.WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	if closeNATS := initEventStream(cfg, eventBus, log); closeNATS != nil {
		defer closeNATS()
	}

	if closeScheduler := initAssignmentQueue(cfg, eventBus, log); closeScheduler != nil {
		defer closeScheduler()
	}

	locker, closeLocker := initAssignmentLocker(cfg, log)
	if closeLocker != nil {
		defer closeLocker()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	repo := repository.New(pool)
	eng, err := engine.Load(cfg, repo, repo)
	if err != nil {
		log.Error("failed to load pipeline definition", "error", err, "path", cfg.GetPipelineConfigPath())
		panic("failed to load pipeline definition: " + err.Error())
	}
	log.Info("pipeline definition loaded", "stages", len(eng.Graph.Stages()), "edges", len(eng.Graph.Edges()))

	pipelineModule := pipeline.NewModule(repo, eng, eventBus, locker, validator.New(), log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{pipelineModule},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initEventStream(cfg config.EventStreamConfig, bus events.Bus, log *logger.Logger) func() {
	if !cfg.IsNATSEnabled() {
		log.Info("NATS_URL not configured; domain events stay in-process")
		return nil
	}

	conn, err := platformevents.ConnectNATS(cfg.GetNATSURL(), "sales-pipeline-api")
	if err != nil {
		log.Error("failed to connect to NATS; domain events stay in-process", "error", err)
		return nil
	}

	platformevents.NewNATSForwarder(conn, cfg.GetNATSSubjectPrefix()).Attach(bus)
	log.Info("forwarding domain events to NATS", "url", cfg.GetNATSURL(), "prefix", cfg.GetNATSSubjectPrefix())
	return func() { _ = conn.Drain() }
}

func initAssignmentQueue(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; asynchronous assignment disabled")
		return nil
	}

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil
	}
	client.RegisterHandlers(bus)

	return func() {
		_ = client.Close()
	}
}

func initAssignmentLocker(cfg config.AssignmentConfig, log *logger.Logger) (lock.Locker, func()) {
	if !cfg.IsAssignmentSerialized() {
		return lock.Noop{}, nil
	}

	client, err := lock.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize assignment lock; assignment is not serialized", "error", err)
		return lock.Noop{}, nil
	}

	log.Info("automatic assignment serialized through redis", "ttl", cfg.GetAssignmentLockTTL())
	return lock.NewRedis(client, cfg.GetAssignmentLockTTL(), cfg.GetAssignmentLockTTL()), func() {
		_ = client.Close()
	}
}
