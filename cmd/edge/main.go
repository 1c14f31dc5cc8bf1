package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geolink/edge/internal/config"
	"github.com/geolink/edge/internal/infrastructure/db"
	"github.com/geolink/edge/internal/infrastructure/logger"
	"github.com/geolink/edge/internal/infrastructure/telemetry"
	"github.com/geolink/edge/internal/processing/clicks"
	"github.com/geolink/edge/internal/processing/routing"
	"github.com/geolink/edge/internal/processing/tracker"
	kafkaStorage "github.com/geolink/edge/internal/storage/kafka"
	mongoStorage "github.com/geolink/edge/internal/storage/mongo"
	redisStorage "github.com/geolink/edge/internal/storage/redis"
	httpTransport "github.com/geolink/edge/internal/transport/http"
	"github.com/geolink/edge/internal/transport/http/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	mongoConn, err := db.ConnectMongo(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoConn.Disconnect() }()

	routingRepo, err := mongoStorage.NewRoutingRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize routing repository", zap.Error(err))
	}

	var rulesCache routing.RuleCache
	var connectLimiter *middleware.RedisFixedWindowLimiter
	if cfg.Redis.Enabled {
		redisClient, err := redisStorage.New(redisStorage.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()

		rulesCache = redisStorage.NewRulesCache(redisClient, "rule", cfg.Resolver.SharedCacheTTL)
		connectLimiter = middleware.NewRedisFixedWindowLimiter(
			redisStorage.NewFixedWindowLimiter(redisClient, "rl:socket", time.Minute),
			cfg.Tracker.ConnectsPerMinute,
		)
	}

	resolver, err := routing.NewResolver(routingRepo, rulesCache, routing.ResolverOptions{
		LookupTimeout:      cfg.Resolver.LookupTimeout,
		MaxAttempts:        cfg.Resolver.MaxAttempts,
		RetryBase:          cfg.Resolver.RetryBase,
		RetryMax:           cfg.Resolver.RetryMax,
		LocalCacheTTL:      cfg.Resolver.LocalCacheTTL,
		LocalCacheEntries:  int64(cfg.Resolver.LocalCacheEntries),
		BreakerMaxFailures: cfg.Resolver.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.Resolver.BreakerOpenTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to initialize resolver", zap.Error(err))
	}
	defer resolver.Close()

	clicksQueue := kafkaStorage.NewClicksQueue(cfg.Kafka.Brokers, cfg.Kafka.ClickTopic)
	defer func() {
		if err := clicksQueue.Close(); err != nil {
			logger.Warn("Failed to close kafka writer", zap.Error(err))
		}
	}()

	registry := tracker.NewRegistry(cfg.Tracker.SubscriberBuffer)

	dispatcher := clicks.NewDispatcher(clicksQueue, registry, clicks.DispatcherOptions{
		BufferSize:     cfg.Emitter.BufferSize,
		EnqueueTimeout: cfg.Emitter.EnqueueTimeout,
	})

	redirectHandler := httpTransport.NewRedirectHandler(cfg, resolver, dispatcher)
	trackerHandler := httpTransport.NewTrackerHandler(registry, cfg.Tracker.WriteTimeout)
	router := httpTransport.NewRouter(cfg, redirectHandler, trackerHandler, connectLimiter)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Shutdown makes ListenAndServe return immediately, so main must not
	// reach its deferred closes until the drain below has finished.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}

		// Drain buffered clicks before the queue writer goes away.
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.Warn("Click dispatcher drain interrupted", zap.Error(err))
		}

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}

	<-shutdownDone

	logger.Info("Server stopped gracefully")
}
