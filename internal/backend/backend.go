// Package backend opens the storage selected by configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"orgmgr/pkg/collections"
	"orgmgr/pkg/config"
	"orgmgr/pkg/db"
	"orgmgr/pkg/locks"
	"orgmgr/pkg/tenants"
)

// Stores groups the persistence collaborators of the lifecycle manager.
type Stores struct {
	Registry    tenants.Registry
	Admins      tenants.AdminStore
	Journal     tenants.Journal
	Collections collections.Store
	Locker      locks.Locker

	closers []func(context.Context) error
}

// Close releases every client opened by Open, in reverse order.
func (s *Stores) Close(ctx context.Context) error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open connects to cfg.Backend, prepares its schema and returns the stores.
// Connection failures are fatal, like the other db helpers.
func Open(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*Stores, error) {
	s := &Stores{}
	switch cfg.Backend {
	case config.BackendMongo:
		cli, database := db.MustMongo(cfg, log)
		if cli == nil {
			return nil, fmt.Errorf("backend mongo requires MONGO_URI")
		}
		s.closers = append(s.closers, cli.Disconnect)
		if err := tenants.EnsureIndexes(ctx, database); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		store := tenants.NewMongoStore(database, log)
		s.Registry, s.Admins, s.Journal = store, store, store
		s.Collections = collections.NewMongo(database, log)
	case config.BackendPostgres:
		pool := db.MustConnect(cfg, log)
		if pool == nil {
			return nil, fmt.Errorf("backend postgres requires DATABASE_URL")
		}
		s.closers = append(s.closers, func(context.Context) error { pool.Close(); return nil })
		if err := tenants.EnsureSchema(ctx, pool); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		store := tenants.NewPostgresStore(pool, log)
		s.Registry, s.Admins, s.Journal = store, store, store
		s.Collections = collections.NewPostgres(pool, log)
	case config.BackendMemory:
		store := tenants.NewMemoryStore()
		s.Registry, s.Admins, s.Journal = store, store, store
		s.Collections = collections.NewMemory()
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if rdb := db.MustRedis(cfg, log); rdb != nil {
		s.closers = append(s.closers, func(context.Context) error { return rdb.Close() })
		s.Locker = locks.NewRedis(rdb, "")
	} else {
		if cfg.Backend != config.BackendMemory {
			log.Warnw("REDIS_URL not set, tenant locks are local to this process")
		}
		s.Locker = locks.NewMemory()
	}
	log.Infow("storage ready", "backend", cfg.Backend)
	return s, nil
}
