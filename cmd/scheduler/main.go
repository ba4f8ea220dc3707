package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales_pipeline_backend/internal/events"
	"sales_pipeline_backend/internal/pipeline/engine"
	"sales_pipeline_backend/internal/pipeline/repository"
	"sales_pipeline_backend/internal/pipeline/service"
	"sales_pipeline_backend/internal/scheduler"
	"sales_pipeline_backend/platform/config"
	"sales_pipeline_backend/platform/db"
	platformevents "sales_pipeline_backend/platform/events"
	"sales_pipeline_backend/platform/lock"
	"sales_pipeline_backend/platform/logger"
	"sales_pipeline_backend/platform/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName(), "overdueCron", cfg.GetOverdueSweepCron())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

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

	eventBus := events.NewInMemoryBus(log)
	if cfg.IsNATSEnabled() {
		conn, err := platformevents.ConnectNATS(cfg.GetNATSURL(), "sales-pipeline-scheduler")
		if err != nil {
			log.Error("failed to connect to NATS; domain events stay in-process", "error", err)
		} else {
			platformevents.NewNATSForwarder(conn, cfg.GetNATSSubjectPrefix()).Attach(eventBus)
			defer func() { _ = conn.Drain() }()
		}
	}

	repo := repository.New(pool)
	eng, err := engine.Load(cfg, repo, repo)
	if err != nil {
		log.Error("failed to load pipeline definition", "error", err)
		panic("failed to load pipeline definition: " + err.Error())
	}

	svc := service.New(repo, eng, eventBus, log)
	if cfg.IsAssignmentSerialized() {
		client, err := lock.NewRedisClient(cfg)
		if err != nil {
			log.Error("failed to initialize assignment lock", "error", err)
			panic("failed to initialize assignment lock: " + err.Error())
		}
		defer func() { _ = client.Close() }()
		svc.SetAssignmentLocker(lock.NewRedis(client, cfg.GetAssignmentLockTTL(), cfg.GetAssignmentLockTTL()))
	}

	worker, err := scheduler.NewWorker(cfg, svc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}
