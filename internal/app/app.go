// Package app wires configuration into the scheduling components shared by
// the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/appointment"
	"github.com/hackgods/registry-scheduling/internal/catalog"
	"github.com/hackgods/registry-scheduling/internal/config"
	"github.com/hackgods/registry-scheduling/internal/contacts"
	"github.com/hackgods/registry-scheduling/internal/db"
	"github.com/hackgods/registry-scheduling/internal/identity"
	"github.com/hackgods/registry-scheduling/internal/metrics"
	redisclient "github.com/hackgods/registry-scheduling/internal/redis"
	"github.com/hackgods/registry-scheduling/internal/registry"
	"github.com/hackgods/registry-scheduling/internal/slots"
)

type App struct {
	Config   config.Config
	Logger   zerolog.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client // nil when Redis was unreachable at startup
	Metrics  *metrics.SchedulingMetrics
	Gateway  *registry.Gateway
	Catalog  *catalog.Catalog
	Slugs    *catalog.Resolver
	Engine   *slots.Engine
	Service  *appointment.Service
	Contacts contacts.Store
}

// Build connects to Postgres (required) and Redis (optional) and assembles
// the registry gateway, availability engine and appointment service.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancelPg()
	if err != nil {
		return nil, fmt.Errorf("postgres connection: %w", err)
	}
	a.Pool = pool
	logger.Info().Msg("connected to Postgres")

	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-process slot cache and locks")
	} else {
		a.Redis = rdb
		logger.Info().Msg("connected to Redis")
	}

	a.Metrics = metrics.New(reg)

	transport, err := registry.NewHTTPTransport(registry.HTTPTransportConfig{
		BaseURL: cfg.RegistryBaseURL,
		Timeout: cfg.RegistryTimeout,
		Metrics: a.Metrics,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("registry transport: %w", err)
	}
	tokens := registry.NewTokenManager(
		registry.NewTransportTokenSource(transport, cfg.RegistryLogin, cfg.RegistryPassword),
		logger,
		a.Metrics,
	)
	a.Gateway = registry.NewGateway(transport, tokens, registry.GatewayConfig{
		Location:        cfg.Location(),
		CancelSupported: cfg.RegistryCancelSupported,
	}, logger)

	a.Catalog = catalog.New(catalog.NewPgSource(pool), logger)
	a.Slugs = catalog.NewResolver(a.Catalog, a.Gateway, catalog.FirstDoctor{}, logger)

	var (
		cache  slots.Cache
		locker redisclient.Locker
	)
	if a.Redis != nil {
		cache = slots.NewRedisCache(a.Redis)
		locker = redisclient.NewRedisSlotLocker(a.Redis, cfg.LockTTL)
	} else {
		cache = slots.NewMemoryCache()
		locker = redisclient.NewLocalLocker()
	}

	a.Engine = slots.NewEngine(a.Slugs, a.Gateway, cache, slots.EngineConfig{
		Window:   time.Duration(cfg.SlotWindowDays) * 24 * time.Hour,
		TTL:      cfg.SlotCacheTTL,
		Location: cfg.Location(),
	}, logger, a.Metrics)

	a.Contacts = contacts.NewPgStore(pool)

	a.Service = appointment.NewService(appointment.Deps{
		Registry:   a.Gateway,
		Patients:   identity.NewResolver(a.Gateway, cfg.RegistryFacilityID, logger, a.Metrics),
		Contacts:   a.Contacts,
		Engine:     a.Engine,
		Cache:      cache,
		Locker:     locker,
		Repo:       appointment.NewPgRepository(pool),
		FacilityID: cfg.RegistryFacilityID,
		Logger:     logger,
		Metrics:    a.Metrics,
	})

	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("error closing redis")
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
