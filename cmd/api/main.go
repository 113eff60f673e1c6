package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/amaiabotanic/storefront/api/controllers"
	"github.com/amaiabotanic/storefront/api/routes"
	"github.com/amaiabotanic/storefront/internal/cart"
	"github.com/amaiabotanic/storefront/internal/catalog"
	"github.com/amaiabotanic/storefront/internal/checkout"
	"github.com/amaiabotanic/storefront/internal/cron"
	"github.com/amaiabotanic/storefront/internal/notifications"
	"github.com/amaiabotanic/storefront/pkg/config"
	"github.com/amaiabotanic/storefront/pkg/db"
	"github.com/amaiabotanic/storefront/pkg/instance"
	"github.com/amaiabotanic/storefront/pkg/logger"
	"github.com/amaiabotanic/storefront/pkg/metrics"
	"github.com/amaiabotanic/storefront/pkg/migrate"
	"github.com/amaiabotanic/storefront/pkg/redis"
)

const (
	shutdownTimeout = 15 * time.Second
	cleanupLockKey  = "amaia:lock:cart-snapshot-cleanup"
)

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
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     strings.EqualFold(cfg.App.LogFormat, "console"),
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cacheMetrics := metrics.NewQueryCacheMetrics(reg)
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)
	maintenanceMetrics := metrics.NewMaintenanceMetrics(reg)

	pingers := map[string]controllers.Pinger{}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		pingers["redis"] = redisClient
	}

	var dbClient *db.Client
	if cfg.Cart.StorageDriver == config.StorageDriverSQL {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, dbClient.Close()) }()
		pingers["db"] = dbClient

		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return err
		}
	}

	source, err := catalogSource(cfg)
	if err != nil {
		return err
	}
	catalogClient := catalog.NewCachedClient(source, catalog.WithRecorder(cacheMetrics), catalog.WithLogger(logg))

	var (
		storage    cart.Storage
		sqlStorage *cart.SQLStorage
	)
	switch cfg.Cart.StorageDriver {
	case config.StorageDriverRedis:
		storage = cart.NewRedisStorage(redisClient, cfg.Cart.TTL)
	case config.StorageDriverSQL:
		sqlStorage = cart.NewSQLStorage(dbClient.DB())
		storage = sqlStorage
	default:
		storage = cart.NewMemoryStorage()
	}

	shipping, err := checkout.NewShippingPolicy(cfg.Checkout.FreeShippingThreshold, cfg.Checkout.FlatShipping)
	if err != nil {
		return err
	}
	feeds := notifications.NewFeeds(notifications.WithLogger(logg))
	registry := checkout.NewRegistry(checkout.Params{
		Gateway: checkout.NewSimulatedGateway(
			checkout.WithDelay(cfg.Checkout.PaymentDelay),
			checkout.WithFailure(cfg.Checkout.SimulateFailure),
		),
		Logger:   logg,
		Metrics:  checkoutMetrics,
		Shipping: shipping,
	}, func(sessionID string) checkout.Notifier { return feeds.For(sessionID) })

	sessions := cart.NewSessions(storage,
		cart.WithKeyPrefix(cfg.Cart.StorageKey),
		cart.WithSessionsLogger(logg),
		cart.WithEndHook(registry.Forget),
		cart.WithEndHook(feeds.Remove),
		cart.WithStoreOptions(
			cart.WithLogger(logg),
			cart.WithPersistenceFailureHook(func(error) { checkoutMetrics.IncPersistenceFailure() }),
		),
	)
	defer func() { err = multierr.Append(err, sessions.Close()) }()

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, pingers, redisClient, reg, catalogClient, sessions, feeds, registry, shipping),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	sweeper, err := newSessionSweeper(cfg, logg, sessions, maintenanceMetrics)
	if err != nil {
		return err
	}
	group.Go(func() error {
		if err := sweeper.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if sqlStorage != nil {
		maintenance, err := newMaintenance(cfg, logg, redisClient, sqlStorage, maintenanceMetrics)
		if err != nil {
			return err
		}
		group.Go(func() error {
			if err := maintenance.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		logg.Info(logg.WithFields(groupCtx, map[string]any{
			"env":             cfg.App.Env,
			"addr":            addr,
			"catalog_source":  cfg.Catalog.Source,
			"storage_driver":  cfg.Cart.StorageDriver,
			"redis_available": redisClient != nil,
		}), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		logg.Info(shutdownCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func catalogSource(cfg *config.Config) (catalog.Client, error) {
	if cfg.Catalog.Source == config.CatalogSourceStorefront {
		return catalog.NewStorefrontClient(cfg.Catalog.StoreDomain, cfg.Catalog.AccessToken,
			catalog.WithAPIVersion(cfg.Catalog.APIVersion),
			catalog.WithTimeout(cfg.Catalog.Timeout),
		)
	}
	return catalog.NewMockClient(catalog.WithLatency(cfg.Catalog.MockLatency)), nil
}

func newMaintenance(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, purger *cart.SQLStorage, maintenanceMetrics *metrics.MaintenanceMetrics) (*cron.Service, error) {
	job, err := cron.NewCartSnapshotCleanupJob(cron.CartSnapshotCleanupJobParams{
		Logger:    logg,
		Purger:    purger,
		Retention: cfg.Cart.SnapshotRetention,
	})
	if err != nil {
		return nil, err
	}

	var lock cron.Lock
	if redisClient != nil {
		lock, err = cron.NewRedisLock(redisClient, cleanupLockKey, cfg.Cart.CleanupInterval)
		if err != nil {
			return nil, err
		}
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{job},
		Lock:     lock,
		Metrics:  maintenanceMetrics,
		Interval: cfg.Cart.CleanupInterval,
	})
}

// newSessionSweeper evicts idle in-memory sessions. Sessions live in this
// process only, so the sweep runs on every instance under a local lock.
func newSessionSweeper(cfg *config.Config, logg *logger.Logger, sessions *cart.Sessions, maintenanceMetrics *metrics.MaintenanceMetrics) (*cron.Service, error) {
	job, err := cron.NewSessionEvictionJob(cron.SessionEvictionJobParams{
		Logger:      logg,
		Sessions:    sessions,
		IdleTimeout: cfg.Cart.SessionIdle,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{job},
		Metrics:  maintenanceMetrics,
		Interval: cfg.Cart.SessionSweep,
	})
}
