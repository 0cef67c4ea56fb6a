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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medinauts/internal/delivery/email"
	"medinauts/internal/delivery/pdf"
	"medinauts/internal/intake/clients"
	"medinauts/internal/intake/decoder"
	intakeHandler "medinauts/internal/intake/handler"
	intakeMetrics "medinauts/internal/intake/metrics"
	"medinauts/internal/intake/service"
	"medinauts/internal/intake/store"
	"medinauts/internal/platform/config"
	"medinauts/internal/platform/health"
	"medinauts/internal/platform/logger"
	redisClient "medinauts/internal/platform/redis"
	"medinauts/internal/platform/tracing"
	"medinauts/pkg/platform/circuit"
	"medinauts/pkg/platform/middleware/device"
	"medinauts/pkg/platform/middleware/request"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/intake.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := decoder.Validate(); err != nil {
		log.Error("decoder tables are inconsistent", "error", err)
		os.Exit(1)
	}

	log.Info("initializing medinauts intake gateway",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"backend_url", cfg.BackendURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthHandler := health.New(cfg.Environment)
	sessions, closeStore, err := buildStore(ctx, cfg, log, healthHandler)
	if err != nil {
		log.Error("session store unavailable", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	tracer := tracing.NewOTel()
	breaker := func(name string) clients.Option {
		b := circuit.New(name,
			circuit.WithFailureThreshold(cfg.BreakerFailures),
			circuit.WithCooldown(cfg.BreakerCooldown),
		)
		healthHandler.RegisterCheck(name, func(context.Context) error {
			if s := b.State(); s == circuit.StateOpen {
				return fmt.Errorf("circuit %s", s)
			}
			return nil
		})
		return clients.WithBreaker(b)
	}
	intake := service.New(
		sessions,
		clients.NewScanClient(cfg.ScanURL, clients.WithTimeout(cfg.ScanTimeout), clients.WithTracer(tracer), breaker(clients.CollaboratorScan)),
		clients.NewPredictClient(cfg.PredictURL, clients.WithTimeout(cfg.PredictTimeout), clients.WithTracer(tracer), breaker(clients.CollaboratorPredict)),
		clients.NewFeedbackClient(cfg.BackendURL, clients.WithTracer(tracer)),
		service.WithLogger(log),
		service.WithMetrics(intakeMetrics.New()),
		service.WithScanConcurrency(cfg.ScanConcurrency),
	)

	handlerOpts := []intakeHandler.Option{
		intakeHandler.WithRenderer(pdf.New(pdf.WithChromePath(cfg.ChromePath))),
		intakeHandler.WithMaxUploadBytes(cfg.MaxUploadBytes),
	}
	if cfg.SMTP.Host != "" {
		handlerOpts = append(handlerOpts, intakeHandler.WithMailer(email.New(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})))
	} else {
		log.Info("smtp host not set, report email disabled")
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(device.Middleware)
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(request.NewMetrics()))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(request.BodyLimit(cfg.MaxUploadBytes))
		r.Use(request.Timeout(cfg.ScanTimeout + cfg.PredictTimeout))
		intakeHandler.New(intake, log, handlerOpts...).Register(r)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return
	}

	log.Info("server stopped")
}

// buildStore returns the redis session store when REDIS_URL is set and the
// in-memory store otherwise.
func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger, checks *health.Handler) (service.Store, func(), error) {
	rc, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rc == nil {
		log.Info("redis not configured, sessions kept in memory")
		return store.NewInMemory(), func() {}, nil
	}

	checks.RegisterCheck("redis", rc.Health)
	go rc.ReportPoolStats(ctx, poolStatsInterval)
	log.Info("sessions stored in redis", "ttl", cfg.SessionTTL)
	return store.NewRedis(rc.Client, cfg.SessionTTL), func() {
		if err := rc.Close(); err != nil {
			log.Warn("closing redis client", "error", err)
		}
	}, nil
}
