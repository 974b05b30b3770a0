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

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/fjod/storefront/internal/bus"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/config"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/poller"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/storage"
	"github.com/fjod/storefront/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)
	// incoming traceparent headers flow through to catalog requests
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	}

	backend, closeBackend, err := openBackend(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	b := bus.New()
	if cfg.CrossInstanceSync {
		relay := bus.NewRelay(redisClient, b, log)
		if err := relay.Start(ctx); err != nil {
			return fmt.Errorf("start relay: %w", err)
		}
		defer relay.Close()
		log.Info("cross-instance sync enabled", "instance", relay.ID())
	}

	carts := store.NewCartStore(backend, b, log)
	wishlists := store.NewWishlistStore(backend, b, log)
	policy := pricing.NewPolicy(cfg.TaxRate, cfg.FreeShippingThreshold, cfg.ShippingFee)
	cat := catalog.New(catalog.Config{BaseURL: cfg.CatalogBaseURL, Timeout: cfg.CatalogTimeout}, log)

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.New(poller.NewReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID), carts, log)
		defer p.Close()
		go p.Run(ctx)
		log.Info("cart reset consumer started", "topic", cfg.KafkaTopic)
	}

	router := h.NewRouter(h.RouterConfig{
		Products:  h.NewProductHandler(cat, cfg.RequestTimeout, log),
		Carts:     h.NewCartHandler(carts, wishlists, cat, policy, cfg.RequestTimeout, log),
		Wishlists: h.NewWishlistHandler(wishlists, carts, cat, policy, cfg.RequestTimeout, log),
		Events:    h.NewEventsHandler(b, carts, wishlists, log),
		JWTSecret: cfg.JWTSecret,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

// openBackend builds the configured storage, wrapped in a Redis read-through
// cache when enabled.
func openBackend(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log *slog.Logger) (storage.Store, func(), error) {
	var (
		backend storage.Store
		closeFn = func() {}
	)

	switch cfg.StorageBackend {
	case config.BackendMemory:
		backend = storage.NewMemoryStore()
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		backend = s
		closeFn = func() {
			if err := s.Close(); err != nil {
				log.Error("failed to close sqlite", "error", err)
			}
		}
	case config.BackendRedis:
		backend = storage.NewRedisStore(redisClient)
	case config.BackendMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		s := storage.NewMongoStore(db)
		if err := s.CreateIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("create mongo indexes: %w", err)
		}
		backend = s
		closeFn = func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Error("failed to disconnect MongoDB", "error", err)
			}
		}
		log.Info("connected to MongoDB", "uri", cfg.MongoURI)
	}

	if cfg.CacheEnabled {
		if cfg.StorageBackend == config.BackendRedis || cfg.StorageBackend == config.BackendMemory {
			log.Warn("CACHE_ENABLED ignored for in-memory or redis storage", "storage", cfg.StorageBackend)
		} else {
			cache := storage.NewRedisStore(redisClient,
				storage.WithPrefix("storefront:cache:"),
				storage.WithTTL(10*time.Minute, 2*time.Minute))
			backend = storage.NewCachedStore(backend, cache, log)
		}
	}
	return backend, closeFn, nil
}
