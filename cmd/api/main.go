package main

import (
	"context"
	"fmt"
	mrand "math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/email"
	"github.com/meditriage/triage-api/internal/handler"
	adminHandler "github.com/meditriage/triage-api/internal/handler/admin"
	authHandler "github.com/meditriage/triage-api/internal/handler/auth"
	dashboardHandler "github.com/meditriage/triage-api/internal/handler/dashboard"
	departmentHandler "github.com/meditriage/triage-api/internal/handler/department"
	patientHandler "github.com/meditriage/triage-api/internal/handler/patient"
	simulationHandler "github.com/meditriage/triage-api/internal/handler/simulation"
	"github.com/meditriage/triage-api/internal/middleware"
	"github.com/meditriage/triage-api/internal/registry"
	"github.com/meditriage/triage-api/internal/repository"
	"github.com/meditriage/triage-api/internal/repository/memory"
	"github.com/meditriage/triage-api/internal/repository/postgres"
	"github.com/meditriage/triage-api/internal/router"
	authService "github.com/meditriage/triage-api/internal/service/auth"
	"github.com/meditriage/triage-api/internal/service/capacity"
	"github.com/meditriage/triage-api/internal/service/classifier"
	"github.com/meditriage/triage-api/internal/service/dispatch"
	"github.com/meditriage/triage-api/internal/service/queue"
	"github.com/meditriage/triage-api/internal/service/scorer"
	"github.com/meditriage/triage-api/internal/service/simulation"
	"github.com/meditriage/triage-api/internal/service/triage"
	"github.com/meditriage/triage-api/internal/service/vitals"
	"github.com/meditriage/triage-api/pkg/auth"
	"github.com/meditriage/triage-api/pkg/logger"
	redisBroker "github.com/meditriage/triage-api/pkg/messaging/redis"
	"github.com/meditriage/triage-api/pkg/metrics"
	"github.com/meditriage/triage-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("triage")

	// Storage. The engine is registry-backed; Postgres is the durable copy.
	// Without a reachable database the service still runs in demo mode on
	// the in-memory repositories.
	var (
		patientRepo repository.PatientRepository
		outboxRepo  repository.OutboxRepository
	)
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, running with in-memory storage")
		patientRepo = memory.NewPatientRepository()
		outboxRepo = memory.NewOutboxRepository()
	} else {
		defer db.Close()
		patientRepo = postgres.NewPatientRepository(db)
		outboxRepo = postgres.NewOutboxRepository(db)
	}

	// Core triage engine.
	reg := registry.New()
	vitalsValidator := vitals.NewValidator(cfg.Triage.Vitals)
	cls := classifier.NewCachedClassifier(classifier.NewRuleClassifier(), 10*time.Minute)
	sc := scorer.NewScorer(cfg.Triage.Scoring)
	tracker := capacity.NewTracker(reg, cfg.Triage.Departments, cfg.Triage.Routing.OverloadThresholdPercent)
	dispatcher := dispatch.NewRouter(cfg.Triage.Routing, tracker)
	q := queue.New(reg, cfg.Triage.Departments, cfg.Triage.Queue.BaseWaitMinutes)

	var notifier email.Notifier = email.NoopNotifier{}
	if cfg.SMTP.Host != "" {
		notifier = email.NewSMTPNotifier(cfg.SMTP)
	}

	triageSvc := triage.NewService(
		vitalsValidator, cls, sc, dispatcher, tracker, q, reg,
		patientRepo, outboxRepo, notifier, m,
	)

	// Rehydrate active patients so a restart keeps the queue.
	if err := rehydrate(context.Background(), reg, patientRepo); err != nil {
		log.Warn().Err(err).Msg("failed to rehydrate patient registry")
	}

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authService.NewService(cfg.Operators, jwtSvc, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	generator := simulation.NewGenerator(mrand.NewSource(time.Now().UnixNano()))

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	h := handler.NewHandler()
	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		patientHandler.NewHandler(triageSvc),
		departmentHandler.NewHandler(triageSvc),
		dashboardHandler.NewHandler(triageSvc),
		simulationHandler.NewHandler(triageSvc, generator),
		adminHandler.NewHandler(triageSvc),
		h,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.Server.RateLimit),
			RateBurst:     cfg.Server.RateBurst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "triage_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Publish lifecycle events when Redis is reachable; the API works
	// without it, events just stay pending in the outbox.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if broker, err := redisBroker.NewRedisBroker(redisBroker.Config{URL: cfg.Redis.URL}, &log.Logger); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, outbox events will stay pending")
	} else {
		defer broker.Close()
		processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{}, appLogger, m)
		go processor.Start(workerCtx)
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting triage API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}

func rehydrate(ctx context.Context, reg *registry.Registry, repo repository.PatientRepository) error {
	records, err := repo.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := reg.Insert(rec); err != nil {
			return err
		}
	}
	if len(records) > 0 {
		log.Info().Int("count", len(records)).Msg("rehydrated active patients")
	}
	return nil
}
