package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/repository/postgres"
	"github.com/meditriage/triage-api/pkg/logger"
	redisBroker "github.com/meditriage/triage-api/pkg/messaging/redis"
	"github.com/meditriage/triage-api/pkg/metrics"
	"github.com/meditriage/triage-api/pkg/worker"
)

// WorkerConfig is read from the environment; the worker typically runs as
// a sidecar container and gets no config file.
type WorkerConfig struct {
	HealthPort   int           `envconfig:"HEALTH_PORT" default:"8081"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	RetryLimit   int           `envconfig:"RETRY_LIMIT" default:"3"`
	RetryDelay   time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var wcfg WorkerConfig
	if err := envconfig.Process("outbox", &wcfg); err != nil {
		log.Fatal().Err(err).Msg("failed to read worker environment")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{URL: cfg.Redis.URL}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     wcfg.BatchSize,
			PollInterval:  wcfg.PollInterval,
			RetryAttempts: wcfg.RetryLimit,
			RetryDelay:    wcfg.RetryDelay,
		},
		appLogger,
		metrics.NewMetrics("triage_worker"),
	)

	setupHealthCheck(wcfg.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down worker")
		cancel()
	}()

	processor.Start(ctx)
}

func setupHealthCheck(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}
