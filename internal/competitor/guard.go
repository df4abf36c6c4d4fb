package competitor

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/resilience"
	"github.com/sells-group/site-feasibility/pkg/overpass"
	"github.com/sells-group/site-feasibility/pkg/places"
)

// GuardOptions configures a Guard. Zero values select defaults.
type GuardOptions struct {
	Timeout    time.Duration
	MaxResults int
	RatePerSec float64
	Burst      int
	Retry      resilience.RetryPolicy
	Breaker    resilience.BreakerConfig

	// MaxParallel bounds in-flight upstream calls. Zero means unbounded.
	MaxParallel int
}

// Guard wraps a Source with a timeout, a rate limit, retries and a circuit
// breaker, and normalizes its output. Every failure it returns matches
// model.ErrUpstreamUnavailable.
type Guard struct {
	src        Source
	timeout    time.Duration
	maxResults int
	limiter    *rate.Limiter
	inflight   *semaphore.Weighted
	retry      resilience.RetryPolicy
	breaker    *resilience.Breaker
}

// NewGuard wraps src.
func NewGuard(src Source, opts GuardOptions) *Guard {
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 200
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	var inflight *semaphore.Weighted
	if opts.MaxParallel > 0 {
		inflight = semaphore.NewWeighted(int64(opts.MaxParallel))
	}
	return &Guard{
		src:        src,
		timeout:    opts.Timeout,
		maxResults: opts.MaxResults,
		limiter:    rate.NewLimiter(limit, opts.Burst),
		inflight:   inflight,
		retry:      opts.Retry,
		breaker:    resilience.NewBreaker(src.Name(), opts.Breaker),
	}
}

// Name returns the wrapped source's name.
func (g *Guard) Name() string { return g.src.Name() }

// Breaker exposes the circuit breaker for health reporting.
func (g *Guard) Breaker() *resilience.Breaker { return g.breaker }

// Fetch returns competitors within radiusM of loc sorted by distance.
func (g *Guard) Fetch(ctx context.Context, loc model.Location, radiusM int, category string) ([]model.CompetitorRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	records, err := resilience.Retry(ctx, g.retry, g.src.Name(), func(ctx context.Context) ([]model.CompetitorRecord, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "competitor: rate limit wait")
		}
		if g.inflight != nil {
			if err := g.inflight.Acquire(ctx, 1); err != nil {
				return nil, eris.Wrap(err, "competitor: wait for upstream slot")
			}
			defer g.inflight.Release(1)
		}
		return resilience.Call(ctx, g.breaker, func(ctx context.Context) ([]model.CompetitorRecord, error) {
			return g.src.Fetch(ctx, loc, radiusM, category)
		})
	})
	if err != nil {
		uerr := Classify(g.src.Name(), err)
		zap.L().Warn("competitor: upstream unavailable",
			zap.String("source", g.src.Name()),
			zap.String("kind", string(uerr.Kind)),
			zap.String("category", category),
			zap.Stringer("location", loc),
			zap.Int("radius_m", radiusM),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, uerr
	}

	out := Normalize(records, loc, radiusM, g.maxResults)
	zap.L().Debug("competitor: fetched",
		zap.String("source", g.src.Name()),
		zap.String("category", category),
		zap.Int("raw", len(records)),
		zap.Int("kept", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Classify maps a provider error onto an upstream failure kind.
func Classify(source string, err error) *model.UpstreamError {
	var ue *model.UpstreamError
	if errors.As(err, &ue) {
		return ue
	}
	switch {
	case errors.Is(err, overpass.ErrMalformed), errors.Is(err, places.ErrMalformed):
		return model.NewUpstreamError(source, model.UpstreamMalformed, err)
	case resilience.IsTimeout(err):
		return model.NewUpstreamError(source, model.UpstreamTimeout, err)
	default:
		return model.NewUpstreamError(source, model.UpstreamDown, err)
	}
}

// Normalize fills distances from loc, drops records outside radiusM, sorts by
// distance and caps the result. Records without usable coordinates were still
// returned by a radius-bounded search, so they are kept after the located
// ones with DistanceM -1 (unknown).
func Normalize(records []model.CompetitorRecord, loc model.Location, radiusM, maxResults int) []model.CompetitorRecord {
	out := make([]model.CompetitorRecord, 0, len(records))
	for _, r := range records {
		if r.Location.Validate() != nil || (r.Location.Lat == 0 && r.Location.Lon == 0) {
			r.Location = model.Location{}
			r.DistanceM = -1
			out = append(out, r)
			continue
		}
		r.DistanceM = loc.DistanceM(r.Location)
		if r.DistanceM > float64(radiusM) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DistanceM, out[j].DistanceM
		if (di < 0) != (dj < 0) {
			return dj < 0
		}
		return di < dj
	})
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}
