// Package app assembles rescuedex components from configuration.
// Both the API server and the seed CLI build their dependencies here.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/config"
	"github.com/kailas-cloud/rescuedex/internal/db"
	dbRedis "github.com/kailas-cloud/rescuedex/internal/db/redis"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
	"github.com/kailas-cloud/rescuedex/internal/repository/catalog"
	boltcatalog "github.com/kailas-cloud/rescuedex/internal/repository/catalog/bolt"
)

// Catalog is the full entity store surface: read paths for search and
// vocabulary, write paths for seeding, and a ping for health checks.
type Catalog interface {
	Entities(ctx context.Context) ([]entity.Entity, error)
	Attributes(ctx context.Context) ([]entity.Attribute, error)
	EntityByName(ctx context.Context, name string) (entity.Entity, error)
	Vocabulary(ctx context.Context) (vocabulary.Vocabulary, error)
	Save(ctx context.Context, c entity.Catalog) error
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
}

// redisCatalog pairs the hash-backed repo with the store it pings.
type redisCatalog struct {
	*catalog.Repo
	db.Pinger
}

// Resources owns the long-lived connections opened from config.
type Resources struct {
	Catalog Catalog
	// Store is nil when no component needs Redis.
	Store   db.Store
	closers []func()
}

// Open connects the Redis store (when needed) and the configured catalog driver.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Resources, error) {
	res := &Resources{}

	if cfg.NeedsRedis() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		res.closers = append(res.closers, store.Close)
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			res.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		res.Store = store
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Database.Addrs))
	}

	switch cfg.Catalog.Driver {
	case config.CatalogRedis:
		res.Catalog = redisCatalog{Repo: catalog.New(res.Store), Pinger: res.Store}
	case config.CatalogBolt:
		bs, err := boltcatalog.Open(cfg.Catalog.BoltPath)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("open bolt catalog: %w", err)
		}
		res.closers = append(res.closers, func() {
			if err := bs.Close(); err != nil {
				logger.Warn("close bolt catalog", zap.Error(err))
			}
		})
		res.Catalog = bs
		logger.Info("Opened bolt catalog", zap.String("path", cfg.Catalog.BoltPath))
	default:
		res.Close()
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}
	return res, nil
}

// Close releases connections in reverse order of opening.
func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}
