package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"vatgate/internal/batch"
	batchmetrics "vatgate/internal/batch/metrics"
	credithandler "vatgate/internal/credit/handler"
	"vatgate/internal/credit/lock"
	creditmetrics "vatgate/internal/credit/metrics"
	"vatgate/internal/credit/service"
	"vatgate/internal/credit/store"
	jwttoken "vatgate/internal/jwt_token"
	"vatgate/internal/platform/config"
	"vatgate/internal/platform/httpserver"
	"vatgate/internal/platform/logger"
	"vatgate/internal/platform/metrics"
	"vatgate/internal/platform/postgres"
	redisclient "vatgate/internal/platform/redis"
	httptransport "vatgate/internal/transport/http"
	"vatgate/internal/vies"
	viesmetrics "vatgate/internal/vies/metrics"
	"vatgate/internal/vies/soap"
	"vatgate/pkg/platform/audit/kafka"
	"vatgate/pkg/platform/audit/publisher"
	"vatgate/pkg/platform/audit/store/logstore"
	auditpostgres "vatgate/pkg/platform/audit/store/postgres"
	"vatgate/pkg/platform/audit/worker"
	"vatgate/pkg/platform/circuit"
)

const shutdownTimeout = 30 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vatgate:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)
	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set; using the development key")
	}
	if cfg.Auth.AdminToken == "" {
		log.Warn("ADMIN_API_TOKEN not set; admin endpoints are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checks := map[string]httptransport.HealthCheck{}
	g, gctx := errgroup.WithContext(ctx)

	viesClient, err := vies.New(vies.Config{
		Endpoint:    cfg.VIES.Endpoint,
		Timeout:     cfg.VIES.Timeout,
		MaxAttempts: cfg.VIES.MaxAttempts,
		BaseBackoff: cfg.VIES.BaseBackoff,
		Operation:   soap.Operation(cfg.VIES.Operation),
		Requester:   soap.DefaultRequester,
	},
		vies.WithLogger(log),
		vies.WithMetrics(viesmetrics.New(m.Registry)),
	)
	if err != nil {
		return fmt.Errorf("vies client: %w", err)
	}

	engineOpts := []batch.Option{
		batch.WithWorkers(cfg.Server.Workers),
		batch.WithLogger(log),
		batch.WithMetrics(batchmetrics.New(m.Registry)),
	}
	if cfg.VIES.ReemitDuplicates {
		engineOpts = append(engineOpts, batch.WithDuplicatePolicy(batch.ReemitDuplicates))
	}
	engine, err := batch.New(viesClient, engineOpts...)
	if err != nil {
		return fmt.Errorf("batch engine: %w", err)
	}

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(creditmetrics.New(m.Registry)),
		service.WithConfig(service.Config{
			CostPerCheck:  cfg.Credit.CostPerCheck,
			InitialCredit: cfg.Credit.InitialCredit,
			LockTTL:       cfg.Credit.LockTTL,
			LockWait:      cfg.Credit.LockWait,
		}),
	}

	// Credit store and audit trail: Postgres when configured, with the
	// debit and its audit row committed together through the outbox.
	var creditStore service.Store = store.NewInMemory()
	var outbox *auditpostgres.Store
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		outbox = auditpostgres.New(db)
		if err := outbox.Migrate(ctx); err != nil {
			return err
		}
		creditStore = pg
		svcOpts = append(svcOpts, service.WithTransactor(outbox))
		checks["postgres"] = db.PingContext
		log.Info("using postgres credit store")
	}

	var auditPublisher service.AuditPublisher
	switch {
	case outbox != nil:
		auditPublisher = publisher.NewPublisher(outbox, publisher.WithLogger(log))
	case len(cfg.Kafka.Brokers) == 0:
		auditPublisher = publisher.NewPublisher(logstore.New(log), publisher.WithLogger(log))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		checks["kafka"] = producer.Ping

		if outbox != nil {
			relay := worker.NewWorker(outbox, producer,
				worker.WithInterval(cfg.Kafka.RelayInterval),
				worker.WithBatchSize(cfg.Kafka.RelayBatchSize),
				worker.WithLogger(log),
			)
			g.Go(func() error {
				if err := relay.Run(gctx); !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		} else {
			async := publisher.NewPublisher(producer, publisher.WithAsyncBuffer(1024), publisher.WithLogger(log))
			defer async.Close()
			auditPublisher = async
		}
	}
	svcOpts = append(svcOpts, service.WithAuditPublisher(auditPublisher))

	var locker lock.Locker = lock.NewMemory()
	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		locker = lock.NewFallback(lock.NewRedis(rc.Client), lock.NewMemory(), circuit.New("redis-lock"),
			lock.WithLogger(log),
		)
		checks["redis"] = rc.Health
		log.Info("using redis account lock")
	}

	svc, err := service.New(creditStore, locker, engine, svcOpts...)
	if err != nil {
		return fmt.Errorf("credit service: %w", err)
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	router := httptransport.NewRouter(httptransport.Deps{
		Credit:     credithandler.New(svc, log),
		Validator:  jwttoken.NewMiddlewareValidator(jwtService),
		AdminToken: cfg.Auth.AdminToken,
		Metrics:    m,
		Logger:     log,
		Checks:     checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.WriteTimeout)

	g.Go(func() error {
		log.Info("starting vatgate", "addr", cfg.Server.Addr, "operation", cfg.VIES.Operation, "workers", cfg.Server.Workers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
