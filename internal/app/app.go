// Package app arma el contenedor de dependencias y el router del servicio.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/keywarden/internal/config"
	httpx "github.com/dropDatabas3/keywarden/internal/http"
	"github.com/dropDatabas3/keywarden/internal/http/handlers"
	"github.com/dropDatabas3/keywarden/internal/http/middlewares"
	"github.com/dropDatabas3/keywarden/internal/keys"
	"github.com/dropDatabas3/keywarden/internal/rate"
	"github.com/dropDatabas3/keywarden/internal/security/secretbox"
	"github.com/dropDatabas3/keywarden/internal/store"
	"github.com/dropDatabas3/keywarden/internal/store/pg"
	"github.com/dropDatabas3/keywarden/internal/validation"
)

// Version se fija en build time via -ldflags.
var Version = "dev"

type Container struct {
	Cfg       *config.Config
	Stores    *store.Stores
	Box       *secretbox.Box
	Keys      *keys.Service
	Validator *validation.Validator

	limiter rate.Limiter
	redis   *rdb.Client
}

// New construye el contenedor completo a partir de la configuración.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	box, err := secretbox.New(cfg.Security.MasterPassword)
	if err != nil {
		return nil, fmt.Errorf("app: secretbox: %w", err)
	}

	stores, err := store.Open(ctx, store.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
		Postgres: pg.Config{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("app: store: %w", err)
	}

	c := &Container{
		Cfg:       cfg,
		Stores:    stores,
		Box:       box,
		Keys:      keys.New(stores.Keys, box, cfg.Keys.MaxActivePerClient),
		Validator: validation.New(stores.Keys, box),
	}

	if cfg.Rate.Enabled {
		window, err := time.ParseDuration(cfg.Rate.Validate.Window)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("app: rate window inválida: %w", err)
		}
		if cfg.Rate.Redis.Addr != "" {
			c.redis = rdb.NewClient(&rdb.Options{
				Addr: cfg.Rate.Redis.Addr,
				DB:   cfg.Rate.Redis.DB,
			})
			c.limiter = rate.NewRedisLimiter(c.redis, cfg.Rate.Redis.Prefix, cfg.Rate.Validate.Limit, window)
		} else {
			c.limiter = rate.NewMemoryLimiter(cfg.Rate.Validate.Limit, window)
		}
	}

	return c, nil
}

// Router arma el chi.Mux con middlewares, métricas y handlers.
func (c *Container) Router() (*chi.Mux, error) {
	metricsHandler, err := httpx.RegisterMetrics(httpx.MetricsConfig{
		DBPool: c.pgPool,
	})
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middlewares.WithRequestID())
	r.Use(middlewares.WithLogging())
	r.Use(middlewares.WithRecover())
	r.Use(httpx.WithMetrics)

	health := &handlers.HealthHandler{Version: Version, Ready: c.ready}
	health.Register(r)
	handlers.NewKeysHandler(c.Keys).Register(r)

	// /keys/validate con su propio rate limit
	r.Group(func(gr chi.Router) {
		if c.limiter != nil {
			gr.Use(middlewares.WithRateLimit(middlewares.RateLimitConfig{
				Limiter: c.limiter,
				KeyFunc: middlewares.ValidateRateKey,
			}))
		}
		handlers.NewValidateHandler(c.Validator).Register(gr)
	})

	r.Method("GET", "/metrics", metricsHandler)
	return r, nil
}

// ready consulta el store para el readiness probe.
func (c *Container) ready(ctx context.Context) error {
	if pool := c.pgPool(); pool != nil {
		return pool.Ping(ctx)
	}
	// driver fs: basta con poder leer el archivo
	_, err := c.Stores.Keys.GetAll(ctx)
	return err
}

func (c *Container) pgPool() *pgxpool.Pool {
	if s, ok := c.Stores.Keys.(*pg.Store); ok {
		return s.Pool()
	}
	return nil
}

// Close libera store y conexión redis.
func (c *Container) Close() {
	if c.Stores != nil {
		c.Stores.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
}
