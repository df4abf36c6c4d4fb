package competitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-feasibility/internal/config"
	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/resilience"
	"github.com/sells-group/site-feasibility/pkg/overpass"
	"github.com/sells-group/site-feasibility/pkg/places"
)

type fakeSource struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int) ([]model.CompetitorRecord, error)
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context, _ model.Location, _ int, _ string) ([]model.CompetitorRecord, error) {
	n := int(f.calls.Add(1))
	return f.fn(ctx, n)
}

func fastOpts() GuardOptions {
	return GuardOptions{
		Timeout: time.Second,
		Retry:   resilience.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		Breaker: resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour},
	}
}

func TestGuard_NormalizesResults(t *testing.T) {
	src := &fakeSource{fn: func(context.Context, int) ([]model.CompetitorRecord, error) {
		return []model.CompetitorRecord{
			{Name: "far", Location: vellore.Offset(900, 0)},
			{Name: "outside", Location: vellore.Offset(1500, 0)},
			{Name: "near", Location: vellore.Offset(100, 1)},
			{Name: "null island", Location: model.Location{}},
		}, nil
	}}
	g := NewGuard(src, fastOpts())

	recs, err := g.Fetch(context.Background(), vellore, 1000, "cafe")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "near", recs[0].Name)
	assert.Equal(t, "far", recs[1].Name)
	assert.InDelta(t, 100, recs[0].DistanceM, 1)
	assert.InDelta(t, 900, recs[1].DistanceM, 2)
	assert.Equal(t, "null island", recs[2].Name)
	assert.InDelta(t, -1, recs[2].DistanceM, 1e-9)
}

func TestNormalize_UnknownLocationKeptLast(t *testing.T) {
	recs := []model.CompetitorRecord{
		{Name: "no coords"},
		{Name: "bad coords", Location: model.Location{Lat: 95, Lon: 79}},
		{Name: "near", Location: vellore.Offset(50, 0)},
		{Name: "mid", Location: vellore.Offset(400, 0)},
	}

	out := Normalize(recs, vellore, 1000, 0)
	require.Len(t, out, 4)
	assert.Equal(t, []string{"near", "mid", "no coords", "bad coords"},
		[]string{out[0].Name, out[1].Name, out[2].Name, out[3].Name})
	assert.Equal(t, model.Location{}, out[3].Location)
	assert.Less(t, out[3].DistanceM, 0.0)

	capped := Normalize(recs, vellore, 1000, 2)
	assert.Equal(t, "mid", capped[1].Name)
}

func TestGuard_ZeroResultsIsNotAnError(t *testing.T) {
	src := &fakeSource{fn: func(context.Context, int) ([]model.CompetitorRecord, error) { return nil, nil }}
	recs, err := NewGuard(src, fastOpts()).Fetch(context.Background(), vellore, 1000, "cafe")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGuard_RetriesTransient(t *testing.T) {
	src := &fakeSource{fn: func(_ context.Context, call int) ([]model.CompetitorRecord, error) {
		if call == 1 {
			return nil, resilience.NewTransientError(errors.New("503"), 503)
		}
		return []model.CompetitorRecord{{Name: "ok", Location: vellore.Offset(10, 0)}}, nil
	}}
	recs, err := NewGuard(src, fastOpts()).Fetch(context.Background(), vellore, 1000, "cafe")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestGuard_DownIsUpstreamUnavailable(t *testing.T) {
	src := &fakeSource{fn: func(context.Context, int) ([]model.CompetitorRecord, error) {
		return nil, resilience.NewTransientError(errors.New("502"), 502)
	}}
	_, err := NewGuard(src, fastOpts()).Fetch(context.Background(), vellore, 1000, "cafe")
	require.ErrorIs(t, err, model.ErrUpstreamUnavailable)

	var ue *model.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, model.UpstreamDown, ue.Kind)
	assert.Equal(t, "fake", ue.Source)
}

func TestGuard_MalformedIsDistinct(t *testing.T) {
	src := &fakeSource{fn: func(context.Context, int) ([]model.CompetitorRecord, error) {
		return nil, overpass.ErrMalformed
	}}
	_, err := NewGuard(src, fastOpts()).Fetch(context.Background(), vellore, 1000, "cafe")

	var ue *model.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, model.UpstreamMalformed, ue.Kind)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), src.calls.Load(), "malformed payloads are not retried")
}

func TestGuard_TimeoutIsUpstreamUnavailable(t *testing.T) {
	src := &fakeSource{fn: func(ctx context.Context, _ int) ([]model.CompetitorRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	opts := fastOpts()
	opts.Timeout = 20 * time.Millisecond

	_, err := NewGuard(src, opts).Fetch(context.Background(), vellore, 1000, "cafe")

	var ue *model.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, model.UpstreamTimeout, ue.Kind)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}

func TestGuard_BreakerOpensAndShortCircuits(t *testing.T) {
	src := &fakeSource{fn: func(context.Context, int) ([]model.CompetitorRecord, error) {
		return nil, resilience.NewTransientError(errors.New("503"), 503)
	}}
	opts := fastOpts()
	opts.Retry.MaxAttempts = 1
	g := NewGuard(src, opts)

	for i := 0; i < 2; i++ {
		_, err := g.Fetch(context.Background(), vellore, 1000, "cafe")
		require.Error(t, err)
	}
	assert.Equal(t, resilience.BreakerOpen, g.Breaker().State())

	_, err := g.Fetch(context.Background(), vellore, 1000, "cafe")
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, resilience.ErrBreakerOpen)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestGuard_MaxParallel(t *testing.T) {
	var inFlight, peak atomic.Int32
	src := &fakeSource{fn: func(context.Context, int) ([]model.CompetitorRecord, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	}}
	opts := fastOpts()
	opts.MaxParallel = 2
	g := NewGuard(src, opts)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Fetch(context.Background(), vellore, 1000, "cafe")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(6), src.calls.Load())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.UpstreamMalformed, Classify("places", places.ErrMalformed).Kind)
	assert.Equal(t, model.UpstreamTimeout, Classify("places", context.DeadlineExceeded).Kind)
	assert.Equal(t, model.UpstreamDown, Classify("places", errors.New("refused")).Kind)

	existing := model.NewUpstreamError("overpass", model.UpstreamMalformed, nil)
	assert.Same(t, existing, Classify("places", existing))
}

func TestNormalize_Cap(t *testing.T) {
	var recs []model.CompetitorRecord
	for i := 10; i > 0; i-- {
		recs = append(recs, model.CompetitorRecord{Name: "c", Location: vellore.Offset(float64(i*50), 0)})
	}
	out := Normalize(recs, vellore, 1000, 3)
	require.Len(t, out, 3)
	assert.Less(t, out[0].DistanceM, out[1].DistanceM)
	assert.Less(t, out[1].DistanceM, out[2].DistanceM)
}

func TestNew_Providers(t *testing.T) {
	cfg := &config.Config{}
	cfg.Competitors.Provider = "overpass"
	cfg.Competitors.TimeoutSecs = 5
	g, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "overpass", g.Name())

	cfg.Competitors.Provider = "places"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg.Places.Key = "k"
	g, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "places", g.Name())

	cfg.Competitors.Provider = "yelp"
	_, err = New(cfg)
	assert.Error(t, err)
}
