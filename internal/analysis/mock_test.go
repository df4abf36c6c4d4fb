package analysis

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/poicache"
)

// --- Competitor lookup mock ---

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) Lookup(ctx context.Context, loc model.Location, radiusM int, category string) (poicache.Result, error) {
	args := m.Called(ctx, loc, radiusM, category)
	return args.Get(0).(poicache.Result), args.Error(1)
}

// --- Recorder mock ---

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) SaveAnalysis(ctx context.Context, report *model.AnalysisReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *mockRecorder) SaveAnalyses(ctx context.Context, reports []model.AnalysisReport) (int64, error) {
	args := m.Called(ctx, reports)
	return args.Get(0).(int64), args.Error(1)
}

// --- Predictor mock ---

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(ctx context.Context, f model.PredictionFeatures) (model.PredictionResult, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.PredictionResult), args.Error(1)
}

// --- Fakes ---

type fixedDensity struct {
	sample model.DensitySample
	calls  atomic.Int32
}

func (f *fixedDensity) Sample(model.Location, int) model.DensitySample {
	f.calls.Add(1)
	return f.sample
}

type fixedLocality string

func (f fixedLocality) Resolve(model.Location) (string, bool) {
	return string(f), f != ""
}
