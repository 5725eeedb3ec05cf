// main wires the hiretrack process: config, stores, collaborators, the HTTP
// API and the reminder scheduler. Business logic lives in internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	hirehandler "hiretrack/internal/hire/handler"
	"hiretrack/internal/hire/service"
	"hiretrack/internal/hire/store/memory"
	hirepg "hiretrack/internal/hire/store/postgres"
	"hiretrack/internal/identity"
	jwttoken "hiretrack/internal/jwt_token"
	"hiretrack/internal/notify"
	"hiretrack/internal/notify/kafka"
	"hiretrack/internal/platform/clock"
	"hiretrack/internal/platform/config"
	"hiretrack/internal/platform/httpserver"
	"hiretrack/internal/platform/logger"
	"hiretrack/internal/platform/metrics"
	"hiretrack/internal/platform/postgres"
	"hiretrack/internal/platform/redis"
	"hiretrack/internal/scheduler"
	httptransport "hiretrack/internal/transport/http"
)

// hireStore joins the two consumer-side store ports both backends satisfy.
type hireStore interface {
	service.Store
	scheduler.Store
}

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	location, err := cfg.Location()
	if err != nil {
		log.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthCheck{}

	// Store: postgres when configured, in-memory for local development.
	var store hireStore
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = hirepg.NewPostgres(pool)
		checks["postgres"] = pool.Ping
		log.Info("using postgres store")
	} else {
		store = memory.NewInMemoryStore()
		log.Warn("DATABASE_URL unset, using in-memory store")
	}

	// Identity resolution: static directory, optionally cached in Redis.
	var resolver service.Resolver = identity.NewStatic(nil)
	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		resolver = identity.NewCached(resolver, redisClient.Client, time.Hour, log)
		checks["redis"] = redisClient.Health
		log.Info("identity cache enabled")
	}

	// Notifications: kafka when brokers are configured, otherwise log-only.
	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaDirectTopic, cfg.KafkaChannelTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		if err := publisher.EnsureTopics(ctx, 3, 1); err != nil {
			log.Error("kafka topic provisioning failed", "error", err)
			os.Exit(1)
		}
		notifier = publisher
		log.Info("kafka notifier enabled", "brokers", cfg.KafkaBrokers)
	} else {
		notifier = notify.NewLog(log)
		log.Warn("KAFKA_BROKERS unset, notifications go to the log only")
	}

	clk := clock.NewSystem(location)
	m := metrics.New(prometheus.DefaultRegisterer)

	hires, err := service.New(store, clk, resolver, service.Defaults{
		LegalHandle:  cfg.DefaultLegalHandle,
		DevopsHandle: cfg.DefaultDevopsHandle,
	}, log)
	if err != nil {
		log.Error("service wiring failed", "error", err)
		os.Exit(1)
	}

	reminders := scheduler.New(store, notifier, clk, scheduler.Config{
		LegalReminderDays:  cfg.LegalReminderDays,
		DevopsReminderDays: cfg.DevopsReminderDays,
		EscalationHours:    cfg.EscalationHours,
		TickInterval:       cfg.TickInterval,
		NotifyTimeout:      cfg.NotifyTimeout,
		ChannelID:          cfg.OnboardingChannelID,
	}, m, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "hiretrack")
	handler := hirehandler.New(hires, location, cfg.AdminIDs, cfg.AllowedCreatorIDs, log)
	router := httptransport.NewRouter(handler, jwttoken.NewJWTServiceAdapter(jwtService), checks, log)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting hiretrack", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return reminders.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("hiretrack stopped")
}
