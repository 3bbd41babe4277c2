package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/chrisdamba/profitlens/internal/analytics"
	"github.com/chrisdamba/profitlens/internal/lock"
	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/output"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/chrisdamba/profitlens/internal/repositories/postgres"
	"github.com/chrisdamba/profitlens/internal/repositories/sqlite"
)

// app holds the resources a command needs. Close releases them in reverse order.
type app struct {
	cfg     *models.Config
	logger  *slog.Logger
	store   *repositories.Store
	dest    output.Destination
	engines *analytics.Engines
	closers []func() error
}

func openStore(ctx context.Context, db models.DatabaseConfig) (*repositories.Store, error) {
	switch db.Driver {
	case "postgres":
		return postgres.NewStore(ctx, db)
	case "sqlite":
		return sqlite.NewStore(db.SQLitePath)
	}
	return nil, fmt.Errorf("unsupported database driver: %s", db.Driver)
}

func newApp(ctx context.Context, cfg *models.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	opts := []analytics.Option{}
	if cfg.Redis.Enabled {
		rdb, err := lock.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		opts = append(opts, analytics.WithLocker(lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, logger)))
	}

	if cfg.Output.Publish {
		dest, err := output.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open output: %w", err)
		}
		a.dest = dest
		a.closers = append(a.closers, dest.Close)
		opts = append(opts, analytics.WithDestination(dest))
	}

	a.engines = analytics.New(store, cfg.Analytics, logger, opts...)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
