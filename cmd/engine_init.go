package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-feasibility/internal/analysis"
	"github.com/sells-group/site-feasibility/internal/competitor"
	"github.com/sells-group/site-feasibility/internal/density"
	"github.com/sells-group/site-feasibility/internal/feasibility"
	"github.com/sells-group/site-feasibility/internal/locality"
	"github.com/sells-group/site-feasibility/internal/poicache"
	"github.com/sells-group/site-feasibility/internal/scoring"
	"github.com/sells-group/site-feasibility/internal/store"
	"github.com/sells-group/site-feasibility/internal/viability"
)

// engineEnv holds the loaded engine and everything it was built from,
// shared by the serve/analyze/predict/batch commands.
type engineEnv struct {
	Store     store.Store // may be nil
	Guard     *competitor.Guard
	Cache     *poicache.Cache
	Density   *density.Sampler
	Predictor *viability.Predictor
	Service   *analysis.Service
}

// Close releases resources held by the engine environment.
func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store and applies its migrations. It
// returns nil, nil when persistence is disabled.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st == nil {
		return nil, nil
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEngine validates the config for mode, opens the store and loads the
// raster, boundaries and model. Missing optional artifacts degrade the
// engine instead of failing. Callers should defer env.Close().
func initEngine(ctx context.Context, mode string) (*engineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	scoringCfg, err := scoring.FromConfig(cfg.Scoring)
	if err != nil {
		return nil, eris.Wrap(err, "scoring config")
	}
	evaluator, err := feasibility.FromConfig(cfg.Feasibility)
	if err != nil {
		return nil, eris.Wrap(err, "feasibility config")
	}

	guard, err := competitor.New(cfg)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	cacheOpts := poicache.Options{
		TTL:       time.Duration(cfg.POICache.TTLSecs) * time.Second,
		Precision: cfg.POICache.Precision,
	}
	if st != nil && cfg.POICache.Durable {
		cacheOpts.Backing = st
	}
	cache := poicache.New(guard, cacheOpts)

	sampler := density.Load(cfg.Density.RasterPath, density.Options{
		Rings:         cfg.Density.Rings,
		PointsPerRing: cfg.Density.PointsPerRing,
	})
	predictor := viability.Load(cfg.Model.Path)

	deps := analysis.Deps{
		Engine:      scoring.NewEngine(scoringCfg),
		Evaluator:   evaluator,
		Density:     sampler,
		Competitors: cache,
		Predictor:   predictor,
	}
	if st != nil {
		deps.Recorder = st
	}
	if cfg.Locality.Shapefile != "" {
		resolver, err := locality.Load(cfg.Locality.Shapefile, cfg.Locality.NameField)
		if err != nil {
			zap.L().Warn("locality boundaries unavailable, city must be supplied", zap.Error(err))
		} else {
			deps.Locality = resolver
		}
	}

	zap.L().Info("engine ready",
		zap.String("competitors", guard.Name()),
		zap.Bool("raster", sampler.Available()),
		zap.Bool("model", predictor.Loaded()),
		zap.Bool("persistence", st != nil),
		zap.Bool("durable_cache", cacheOpts.Backing != nil),
	)

	return &engineEnv{
		Store:     st,
		Guard:     guard,
		Cache:     cache,
		Density:   sampler,
		Predictor: predictor,
		Service:   analysis.New(deps),
	}, nil
}
