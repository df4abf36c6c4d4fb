package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings required by the given command mode:
// "serve", "analyze", "predict", "batch" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.engineErrors()...)
		errs = append(errs, c.storeErrors()...)
	case "analyze":
		errs = append(errs, c.engineErrors()...)
		errs = append(errs, c.storeErrors()...)
	case "batch":
		if c.Batch.MaxConcurrentSites < 1 || c.Batch.MaxConcurrentSites > 32 {
			errs = append(errs, "batch.max_concurrent_sites must be between 1 and 32")
		}
		errs = append(errs, c.engineErrors()...)
		errs = append(errs, c.storeErrors()...)
	case "predict":
		if strings.TrimSpace(c.Model.Path) == "" {
			errs = append(errs, "model.path is required")
		}
	case "migrate":
		if !c.Store.Enabled() {
			errs = append(errs, "store.driver is required")
		}
		errs = append(errs, c.storeErrors()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	switch c.Store.Driver {
	case "", "none":
		return nil
	case "postgres", "sqlite":
		if strings.TrimSpace(c.Store.DatabaseURL) == "" {
			return []string{"store.database_url is required for driver " + c.Store.Driver}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q is not supported", c.Store.Driver)}
	}
}

func (c *Config) engineErrors() []string {
	var errs []string

	switch c.Competitors.Provider {
	case "overpass":
		if c.Overpass.Endpoint == "" {
			errs = append(errs, "overpass.endpoint is required")
		}
	case "places":
		if c.Places.Key == "" {
			errs = append(errs, "places.key is required for provider places")
		}
	default:
		errs = append(errs, fmt.Sprintf("competitors.provider %q is not supported", c.Competitors.Provider))
	}
	if c.Competitors.TimeoutSecs <= 0 {
		errs = append(errs, "competitors.timeout_secs must be > 0")
	}
	if c.Competitors.RatePerSec < 0 {
		errs = append(errs, "competitors.rate_per_sec must be >= 0")
	}

	if c.POICache.TTLSecs <= 0 {
		errs = append(errs, "poi_cache.ttl_secs must be > 0")
	}
	if c.POICache.Precision < 0 || c.POICache.Precision > 8 {
		errs = append(errs, "poi_cache.precision must be between 0 and 8")
	}

	if c.Density.Rings < 0 || c.Density.PointsPerRing < 0 {
		errs = append(errs, "density.rings and density.points_per_ring must be >= 0")
	}

	if c.Scoring.MaxDensity <= 0 {
		errs = append(errs, "scoring.max_density must be > 0")
	}
	if c.Scoring.CompetitionPerKm2 <= 0 {
		errs = append(errs, "scoring.competition_per_km2 must be > 0")
	}
	if c.Scoring.EmptyMarketScore < 0 || c.Scoring.EmptyMarketScore > 100 {
		errs = append(errs, "scoring.empty_market_score must be between 0 and 100")
	}
	if c.Scoring.NeutralCompetition < 0 || c.Scoring.NeutralCompetition > 100 {
		errs = append(errs, "scoring.neutral_competition must be between 0 and 100")
	}

	f := c.Feasibility
	if f.DemandWeight < 0 || f.RiskWeight < 0 || f.CompetitionWeight < 0 {
		errs = append(errs, "feasibility weights must be >= 0")
	}
	if sum := f.DemandWeight + f.RiskWeight + f.CompetitionWeight; math.Abs(sum-1) > 0.001 {
		errs = append(errs, fmt.Sprintf("feasibility weights should sum to 1, got %.3f", sum))
	}
	if f.Cutoff < 0 || f.Cutoff > 100 {
		errs = append(errs, "feasibility.cutoff must be between 0 and 100")
	}

	return errs
}
