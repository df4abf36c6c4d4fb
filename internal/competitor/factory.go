package competitor

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-feasibility/internal/config"
	"github.com/sells-group/site-feasibility/internal/resilience"
	"github.com/sells-group/site-feasibility/pkg/overpass"
	"github.com/sells-group/site-feasibility/pkg/places"
)

// New builds the configured provider behind a Guard.
func New(cfg *config.Config) (*Guard, error) {
	timeout := time.Duration(cfg.Competitors.TimeoutSecs) * time.Second
	hc := &http.Client{Timeout: timeout + 5*time.Second}

	var src Source
	switch cfg.Competitors.Provider {
	case "", "overpass":
		src = NewOverpassSource(overpass.NewClient(
			overpass.WithEndpoint(cfg.Overpass.Endpoint),
			overpass.WithHTTPClient(hc),
			overpass.WithUserAgent(cfg.Competitors.UserAgent),
			overpass.WithQueryTimeout(timeout),
		))
	case "places":
		if cfg.Places.Key == "" {
			return nil, eris.New("competitor: places.key is required")
		}
		src = NewPlacesSource(places.NewClient(cfg.Places.Key,
			places.WithBaseURL(cfg.Places.BaseURL),
			places.WithHTTPClient(hc),
		))
	default:
		return nil, eris.Errorf("competitor: unknown provider %q", cfg.Competitors.Provider)
	}

	return NewGuard(src, GuardOptions{
		Timeout:     timeout,
		MaxResults:  cfg.Competitors.MaxResults,
		RatePerSec:  cfg.Competitors.RatePerSec,
		Burst:       cfg.Competitors.Burst,
		Retry:       resilience.PolicyFromConfig(cfg.Resilience),
		Breaker:     resilience.BreakerFromConfig(cfg.Resilience),
		MaxParallel: cfg.Overpass.MaxParallel,
	}), nil
}
