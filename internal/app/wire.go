package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // SQLite driver for the sql loader

	"github.com/awmpietro/golang-decision-engine/internal/config"
	"github.com/awmpietro/golang-decision-engine/internal/decision/cache"
	"github.com/awmpietro/golang-decision-engine/internal/loader"
)

// NewLoader builds the loader selected by cfg. The returned close function
// releases connections and stops the file watcher.
func NewLoader(ctx context.Context, cfg config.LoaderConfig, logger *slog.Logger) (loader.Loader, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var errList []error
		for i := len(closers) - 1; i >= 0; i-- {
			errList = append(errList, closers[i]())
		}
		return errors.Join(errList...)
	}

	var l loader.Loader
	switch cfg.Backend {
	case config.BackendMemory, "":
		l = loader.NewMemory(nil)

	case config.BackendFS:
		fsys := loader.NewFilesystem(cfg.FSRoot)
		if !cfg.FSWatch {
			l = fsys
			break
		}
		cached := loader.NewCached(fsys, cfg.CacheTTL)
		w, err := loader.NewWatcher(fsys, cached, logger)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, w.Close)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("decision watcher stopped", "err", err)
			}
		}()
		logger.Info("watching decisions", "root", cfg.FSRoot)
		return cached, closeAll, nil

	case config.BackendRedis:
		r := loader.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, loader.WithKeyPrefix(cfg.RedisPrefix))
		closers = append(closers, r.Close)
		l = r

	case config.BackendSQL:
		db, err := sql.Open(cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.SQLDriver, err)
		}
		closers = append(closers, db.Close)
		s, err := loader.NewSQL(db, cfg.SQLTable)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		l = s

	default:
		return nil, nil, fmt.Errorf("unknown loader backend %q", cfg.Backend)
	}

	if cfg.CacheTTL > 0 {
		l = loader.NewCached(l, cfg.CacheTTL)
	}
	return l, closeAll, nil
}

// NewEngineFromConfig wires an Engine from the runtime configuration.
func NewEngineFromConfig(ctx context.Context, cfg config.Runtime, logger *slog.Logger, opts ...Option) (*Engine, func() error, error) {
	l, closeFn, err := NewLoader(ctx, cfg.Loader, logger)
	if err != nil {
		return nil, nil, err
	}
	base := []Option{
		WithLoader(l),
		WithLogger(logger),
		WithCache(cache.NewInMemory(cfg.CacheMaxItems)),
		WithMaxSteps(cfg.MaxSteps),
		WithMaxDepth(cfg.MaxDepth),
	}
	return NewEngine(append(base, opts...)...), closeFn, nil
}
