package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/ga4-pipeline/internal/adapter/metrics"
	pgstore "github.com/user/ga4-pipeline/internal/adapter/repository/postgres"
	"github.com/user/ga4-pipeline/internal/adapter/runlock"
	"github.com/user/ga4-pipeline/internal/domain"
	"github.com/user/ga4-pipeline/internal/ga4"
	"github.com/user/ga4-pipeline/internal/pkg/config"
	"github.com/user/ga4-pipeline/internal/pkg/logger"
	"github.com/user/ga4-pipeline/internal/usecase"
)

func main() {
	mode := flag.String("mode", "scheduled", "run mode: once or scheduled")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting ga4 pipeline", "mode", *mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stopChan
		log.Info("shutdown signal received, stopping pipeline...")
		cancel()
	}()

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Optional run lock via Redis
	var lock domain.RunLock
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		lock = runlock.New(redisClient, cfg.LockTTL, log)
		log.Info("connected to redis, run lock enabled")
	}

	pipelineMetrics := metrics.NewPipelineMetrics()
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("metrics listener started", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error("metrics listener failed", "error", err)
			}
		}()
	}

	client, err := ga4.NewClient(ctx, ga4.Options{
		PropertyID:      cfg.PropertyID,
		CredentialsPath: cfg.CredentialsPath,
		RequestsPerSec:  cfg.APIRequestsPerSec,
	}, log, pipelineMetrics)
	if err != nil {
		log.Error("failed to create ga4 client", "error", err)
		os.Exit(1)
	}

	store := pgstore.NewRecordStore(db, log)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	pipeline := usecase.NewPipeline(client, store, lock, cfg.Retention(), log, pipelineMetrics)

	switch *mode {
	case "once":
		if err := runOnce(ctx, pipeline, log); err != nil {
			os.Exit(1)
		}
	case "scheduled":
		runScheduled(ctx, pipeline, cfg.RunInterval, log)
	default:
		log.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}

	log.Info("ga4 pipeline shut down gracefully")
}

func runOnce(ctx context.Context, pipeline *usecase.Pipeline, log *slog.Logger) error {
	report, err := pipeline.Run(ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrRunSkipped) {
			log.Info("run skipped, lock held by another instance")
			return nil
		}
		log.Error("pipeline run failed", "error", err)
		return err
	}
	log.Info("pipeline run complete", "run_id", report.RunID, "duration", report.Duration)
	return nil
}

func runScheduled(ctx context.Context, pipeline *usecase.Pipeline, interval time.Duration, log *slog.Logger) {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	_, err := scheduler.Every(interval).Do(func() {
		if err := runOnce(ctx, pipeline, log); err != nil {
			log.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		log.Error("failed to schedule pipeline", "error", err)
		return
	}

	log.Info("scheduler started", "interval", interval)
	scheduler.StartAsync()

	<-ctx.Done()
	scheduler.Stop()
	log.Info("scheduler stopped")
}
