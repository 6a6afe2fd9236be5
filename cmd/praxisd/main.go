// Command praxisd runs the Praxis API server: authentication, user and
// company management, and usage metering for the platform.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/praxishq/praxis/pkg/api"
	"github.com/praxishq/praxis/pkg/audit"
	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/companies"
	"github.com/praxishq/praxis/pkg/config"
	"github.com/praxishq/praxis/pkg/email"
	"github.com/praxishq/praxis/pkg/middleware"
	"github.com/praxishq/praxis/pkg/observability"
	"github.com/praxishq/praxis/pkg/usage"
	"github.com/praxishq/praxis/pkg/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "praxisd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting praxisd")

	// Postgres: the system of record
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("opening postgres: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}

	// Redis: principal cache L2 and usage counters. Optional.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup; principal caching and usage metering degraded")
		}
	}

	// Stores and schema
	userStore := users.NewStore(db)
	companyStore := companies.NewStore(db)
	usageStore := usage.NewStore(db)
	emailStore := email.NewStore(db)
	auditLog := audit.NewLogger(db, logger)

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSchema()
	for _, create := range []func(context.Context) error{
		userStore.CreateSchema,
		companyStore.CreateSchema,
		usageStore.CreateSchema,
		emailStore.CreateSchema,
		auditLog.CreateSchema,
	} {
		if err := create(schemaCtx); err != nil {
			return err
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Auth core
	codec := auth.NewCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.LoginTokenTTL, cfg.Auth.ImpersonationTokenTTL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	resolver := auth.NewResolver(userStore, cfg.Auth.PrincipalCacheSize, cfg.Auth.PrincipalCacheTTL, redisClient)
	if metrics != nil {
		resolver.OnCacheHit = metrics.PrincipalCacheHits.Inc
		resolver.OnCacheMiss = metrics.PrincipalCacheMisses.Inc
	}
	issuer := auth.NewImpersonationIssuer(codec, resolver)

	// Services
	userService := users.NewService(userStore, hasher, resolver)
	companyService := companies.NewService(companyStore)
	usageService := usage.NewService(usageStore, companyStore)
	emailService := email.NewService(emailStore, &email.LogSender{Logger: logger})

	// Usage metering: redis counters drained to postgres on a cron schedule
	var usageMeter *middleware.UsageMeter
	var flusher *usage.Flusher
	if redisClient != nil {
		counters := usage.NewCounterStore(redisClient)
		usageMeter = middleware.NewUsageMeter(counters, companyStore, metrics)
		flusher = usage.NewFlusher(counters, usageStore, logger)
		if err := flusher.Start(cfg.Usage.FlushSchedule); err != nil {
			return fmt.Errorf("starting usage flusher: %w", err)
		}
	} else {
		logger.Warn("redis not configured; usage metering disabled")
	}

	server := api.NewServer(cfg.Server, api.Dependencies{
		Logger:     logger,
		Metrics:    metrics,
		Codec:      codec,
		Auth:       api.NewAuthHandlers(codec, userService, resolver, issuer, auditLog, metrics),
		Users:      users.NewHandlers(userService, resolver, auditLog, metrics),
		Companies:  companies.NewHandlers(companyService, resolver, auditLog, metrics),
		Usage:      usage.NewHandlers(usageService, resolver, metrics),
		Email:      email.NewHandlers(emailService, resolver, metrics),
		UsageMeter: usageMeter,
	})

	// Health and metrics on a separate port so probes and scrapes stay off
	// the API surface
	health := observability.NewHealthChecker(db, redisClient)
	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/healthz", health.Liveness)
	opsMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		opsMux.Handle("/metrics", metrics.Handler())
	}
	opsServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      opsMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer(server.HTTPServer())
	shutdown.RegisterServer(opsServer)
	if flusher != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			flusher.Stop()
			// One last drain so closed buckets survive the restart
			return flusher.Flush(ctx)
		})
	}

	group, _ := errgroup.WithContext(context.Background())
	group.Go(server.Start)
	group.Go(func() error {
		logger.WithField("addr", opsServer.Addr).Info("ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	return group.Wait()
}
