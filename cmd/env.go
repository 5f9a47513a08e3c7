package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/arealock"
	"github.com/landgrid/geoaudit/internal/lifecycle"
	"github.com/landgrid/geoaudit/internal/pipeline"
	"github.com/landgrid/geoaudit/internal/store"
	"github.com/landgrid/geoaudit/pkg/detect"
	"github.com/landgrid/geoaudit/pkg/dispatch"
	"github.com/landgrid/geoaudit/pkg/objstore"
)

// appEnv holds the initialized store, clients and orchestrators shared by
// the scan/serve/action commands.
type appEnv struct {
	Store     store.Store
	Pipeline  *pipeline.Pipeline
	Lifecycle *lifecycle.Manager
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "geoaudit.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv builds the store, the detection/object-store/dispatch clients and
// the two orchestrators. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	detectClient := detect.NewClient(detect.Config{
		VectorizationURL: cfg.Detect.VectorizationURL,
		EncroachmentURL:  cfg.Detect.EncroachmentURL,
		UsageURL:         cfg.Detect.UsageURL,
		Timeout:          cfg.Detect.Timeout,
		RequestsPerSec:   cfg.Detect.RequestsPerSec,
	})
	objClient := objstore.NewClient(cfg.Storage.BaseURL, cfg.Storage.APIKey)
	dispatchClient := dispatch.NewClient(cfg.Dispatch.BaseURL, cfg.Dispatch.APIKey)

	rules := pipeline.DefaultRules()
	if cfg.Rules.Path != "" {
		rules, err = pipeline.LoadRules(cfg.Rules.Path)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "load classifier rules")
		}
		zap.L().Info("classifier rules loaded", zap.String("path", cfg.Rules.Path))
	}

	locks := arealock.NewRegistry()
	p := pipeline.New(st, detectClient, objClient, rules, locks, cfg.Storage.Folder, cfg.Detect.Timeout)
	lm := lifecycle.New(st, dispatchClient, locks, cfg.Admin.Email)

	return &appEnv{Store: st, Pipeline: p, Lifecycle: lm}, nil
}
