package builder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/park285/ninedt-etl/internal/config"
	"github.com/park285/ninedt-etl/internal/fetch"
	"github.com/park285/ninedt-etl/internal/ledger"
	"github.com/park285/ninedt-etl/internal/pipeline"
	"github.com/park285/ninedt-etl/internal/sqlcat"
	"github.com/park285/ninedt-etl/internal/store"
	"go.uber.org/zap"
)

type Deps struct {
	Service *pipeline.Service
	Sink    store.Sink
	Ledger  *ledger.Store
	Fetch   *fetch.Client
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Sink != nil {
		errs = append(errs, d.Sink.Close())
	}
	if d.Ledger != nil {
		errs = append(errs, d.Ledger.Close())
	}
	return errors.Join(errs...)
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := sqlcat.New(cfg.SQLDir)
	if err != nil {
		return nil, fmt.Errorf("load sql catalog: %w", err)
	}

	sink, err := OpenSink(ctx, cfg.DatabaseURL, cat)
	if err != nil {
		return nil, err
	}

	// Ledger (Redis optional)
	led, err := ledger.Open(ctx, cfg.RedisURL)
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	if !led.Enabled() {
		logger.Info("REDIS_URL not set; runs are not locked or recorded")
	}

	client := fetch.NewClient(fetch.WithTimeout(cfg.FetchTimeout))

	svc, err := pipeline.NewService(sink, led, client, pipeline.Config{
		AllowUnresolved: cfg.AllowUnresolved,
		LockTTL:         cfg.LockTTL,
	}, logger)
	if err != nil {
		_ = sink.Close()
		_ = led.Close()
		return nil, err
	}
	return &Deps{Service: svc, Sink: sink, Ledger: led, Fetch: client}, nil
}

// OpenSink picks a sink by DATABASE_URL:
//
//	postgres://... or postgresql://...  Postgres
//	sqlite:///abs/path.db, sqlite://rel/path.db  SQLite file
//	memory (or empty)  in-process, nothing persisted
func OpenSink(ctx context.Context, databaseURL string, cat *sqlcat.Catalog) (store.Sink, error) {
	raw := strings.TrimSpace(databaseURL)
	if raw == "" || strings.EqualFold(raw, "memory") {
		return store.NewMemory(), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		pg, err := store.NewPostgres(ctx, raw, cat, store.DefaultTables())
		if err != nil {
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		return pg, nil
	case "sqlite", "file":
		path := sqlitePath(u)
		if path == "" {
			return nil, fmt.Errorf("DATABASE_URL %q has no sqlite path", raw)
		}
		lite, err := store.NewSQLite(ctx, path, cat, store.DefaultTables())
		if err != nil {
			return nil, fmt.Errorf("init sqlite sink: %w", err)
		}
		return lite, nil
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %s", u.Scheme)
	}
}

func sqlitePath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}
