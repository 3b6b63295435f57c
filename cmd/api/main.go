package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/filter"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/recordstore"
	"github.com/angelmondragon/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewStorefront(reg)

	health := map[string]controllers.Pinger{}

	var store recordstore.Store
	if cfg.RecordStore.UsesDB() {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			os.Exit(1)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}()

		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "failed to run dev migrations", err)
			os.Exit(1)
		}

		dbStore, err := recordstore.NewDBStore(dbClient.DB(), logg, m)
		if err != nil {
			logg.Error(ctx, "failed to create db record store", err)
			os.Exit(1)
		}
		store = dbStore
		health["db"] = dbClient
	} else {
		httpStore, err := recordstore.NewHTTPStore(cfg.RecordStore, recordstore.WithObserver(m))
		if err != nil {
			logg.Error(ctx, "failed to create http record store", err)
			os.Exit(1)
		}
		store = httpStore
	}

	var (
		persister cart.Persister = cart.NewMemoryPersister()
		locker    cart.Locker    = cart.NewKeyedLocker()
		guard     checkout.Guard = checkout.NewMemoryGuard(checkout.DefaultGuardTTL)
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		persister = cart.NewRedisPersister(redisClient, cfg.Cart.TTL)
		locker = cart.NewRedisLocker(redisClient, cart.DefaultLockTTL, cart.DefaultLockWait)
		guard = checkout.NewRedisGuard(redisClient, checkout.DefaultGuardTTL)
		health["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, carts are kept in memory")
	}

	pricing, err := checkout.PricingFromConfig(cfg.Checkout)
	if err != nil {
		logg.Error(ctx, "invalid checkout pricing", err)
		os.Exit(1)
	}

	catalogSvc, err := catalog.NewService(store, logg, cfg.Catalog.FeaturedLimit)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}
	sorter, err := filter.NewSorter(cfg.Catalog.Language)
	if err != nil {
		logg.Error(ctx, "failed to create sorter", err)
		os.Exit(1)
	}
	sessions, err := cart.NewSessions(catalogSvc, persister, locker, notifications.ContextSink{}, logg, m, cfg.Cart.Namespace)
	if err != nil {
		logg.Error(ctx, "failed to create cart sessions", err)
		os.Exit(1)
	}
	checkoutSvc, err := checkout.NewService(store, pricing, guard, notifications.ContextSink{}, logg, m)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"recordstore": cfg.RecordStore.Backend,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Catalog:  catalogSvc,
			Sorter:   sorter,
			Carts:    sessions,
			Checkout: checkoutSvc,
			Gatherer: reg,
			Health:   health,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}
}
