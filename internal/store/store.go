// Package store persists competitor lookups and analysis history.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-feasibility/internal/config"
	"github.com/sells-group/site-feasibility/internal/model"
)

// ErrNotFound is returned by GetAnalysis for an unknown id.
var ErrNotFound = eris.New("store: not found")

// defaultListLimit bounds ListAnalyses when the filter sets no limit.
const defaultListLimit = 100

// Store defines the persistence interface for the feasibility service.
type Store interface {
	// POI cache
	GetCacheEntry(ctx context.Context, key string) (*model.CacheEntry, error)
	PutCacheEntry(ctx context.Context, entry model.CacheEntry) error
	PurgeCacheEntries(ctx context.Context, fetchedBefore time.Time) (int64, error)

	// Analyses
	SaveAnalysis(ctx context.Context, report *model.AnalysisReport) error
	SaveAnalyses(ctx context.Context, reports []model.AnalysisReport) (int64, error)
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisReport, error)
	ListAnalyses(ctx context.Context, filter model.AnalysisFilter) ([]model.AnalysisReport, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store selected by cfg.Driver. It returns nil, nil when
// persistence is disabled.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "feasibility.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

func listLimit(f model.AnalysisFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
