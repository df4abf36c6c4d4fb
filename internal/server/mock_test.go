package server

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/poicache"
)

// --- Analyzer mock ---

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisReport, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisReport), args.Error(1)
}

func (m *mockAnalyzer) Predict(ctx context.Context, f model.PredictionFeatures) (model.PredictionResult, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.PredictionResult), args.Error(1)
}

// --- History mock ---

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) GetAnalysis(ctx context.Context, id string) (*model.AnalysisReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisReport), args.Error(1)
}

func (m *mockHistory) ListAnalyses(ctx context.Context, filter model.AnalysisFilter) ([]model.AnalysisReport, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnalysisReport), args.Error(1)
}

func (m *mockHistory) PurgeCacheEntries(ctx context.Context, fetchedBefore time.Time) (int64, error) {
	args := m.Called(ctx, fetchedBefore)
	return args.Get(0).(int64), args.Error(1)
}

// --- Fakes ---

type fakeCache struct {
	stats   poicache.Stats
	entries int
	cleared bool
}

func (f *fakeCache) Stats() poicache.Stats { return f.stats }

func (f *fakeCache) InvalidateAll() int {
	f.cleared = true
	return f.entries
}

type fakeRaster bool

func (f fakeRaster) Available() bool { return bool(f) }

type fakeModel string

func (f fakeModel) Loaded() bool      { return f != "" }
func (f fakeModel) ModelName() string { return string(f) }
