// Package app wires configuration, storage, cache and the billing service for
// the server and scheduler processes.
package app

import (
	"context"
	"fmt"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/cache"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/config"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository/memory"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   repository.Store
	Redis   *redis.Client
	Service *service.BillingService

	closers []func() error
}

// New opens the configured store and cache and builds the service on top.
// An unreachable Redis is logged and tolerated; the dashboard then recomputes
// on every request until the cache comes back.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := a.openStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	a.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, a.Redis.Close)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Health.Timeout)
	defer cancel()
	if err := a.Redis.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr()).Msg("redis unreachable, dashboard cache degraded")
	}

	dashboardCache := cache.NewRedisDashboardCache(a.Redis, cfg.Redis.DashboardTTL)
	a.Service = service.NewBillingService(store, dashboardCache, cfg, logger)

	return a, nil
}

func (a *App) openStore() (repository.Store, error) {
	switch a.Config.Database.Driver {
	case config.DriverMemory:
		a.Logger.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	case config.DriverPostgres:
		db, err := initDB(a.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return repository.NewPostgresStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", a.Config.Database.Driver)
	}
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn().Err(err).Msg("error closing resource")
		}
	}
	a.closers = nil
}
