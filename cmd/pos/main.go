package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/config"
	h "github.com/fjod/go_pos/internal/http"
	"github.com/fjod/go_pos/internal/logger"
	"github.com/fjod/go_pos/internal/metrics"
	"github.com/fjod/go_pos/internal/publisher"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/fjod/go_pos/internal/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		// logger is not configured yet
		bootLog := logger.New("pos-service", "info", false)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	// Set up the SQL store
	repo, err := repository.NewRepository(credentials(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	// Session cart cache is optional
	cartCache, closeCache, err := newCartCache(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connection failed")
	}
	defer closeCache()
	if cfg.RedisAddr != "" {
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis ping succeeded")
	}

	m := metrics.New("server")

	registry := session.NewRegistry(cartCache, repo, log, cfg.SessionIdleTimeout)
	defer registry.Close()
	m.RegisterSessionGauge("server", func() float64 { return float64(registry.Len()) })

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Sale events go out only when brokers are configured
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.KafkaTopic, brokers...), log,
			publisher.WithPollInterval(cfg.OutboxPollEvery),
			publisher.WithMetrics(m),
		)
		defer poller.Close()
		go poller.Run(ctx)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("outbox publisher enabled")
	}

	router := h.NewRouter(h.RouterConfig{
		Products:           repo,
		Sales:              repo,
		Sessions:           registry,
		Metrics:            m,
		Logger:             log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		HealthCheck:        repo.Ping,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "pos-http"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("POS service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func credentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
	}
}

// newCartCache connects to Redis when REDIS_ADDR is set and falls back to
// NopCache otherwise. The returned func releases the connection.
func newCartCache(ctx context.Context, cfg *config.Config) (cache.CartCache, func() error, error) {
	if cfg.RedisAddr == "" {
		return cache.NopCache{}, func() error { return nil }, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return cache.NewRedisCache(redisClient, cfg.SessionTTL), redisClient.Close, nil
}
