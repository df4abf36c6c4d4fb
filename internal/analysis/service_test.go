package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/poicache"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func velloreRequest() model.AnalysisRequest {
	return model.AnalysisRequest{
		BusinessType:         model.BusinessCafe,
		City:                 "Vellore",
		Location:             model.Location{Lat: 12.9698, Lon: 79.1559},
		RadiusM:              500,
		BudgetLakh:           10,
		Capacity:             30,
		UsePopulationDensity: true,
		ConsiderCompetition:  true,
	}
}

func competitors(n int) []model.CompetitorRecord {
	out := make([]model.CompetitorRecord, n)
	for i := range out {
		out[i] = model.CompetitorRecord{
			Name:      "Cafe",
			Location:  model.Location{Lat: 12.97, Lon: 79.156},
			Category:  "cafe",
			Source:    "test",
			DistanceM: -1,
		}
	}
	return out
}

func newTestService(lookup CompetitorLookup, rec Recorder) (*Service, *fixedDensity) {
	dens := &fixedDensity{sample: model.DensityOf(3400)}
	d := Deps{
		Density: dens,
		Now:     func() time.Time { return fixedNow },
	}
	if lookup != nil {
		d.Competitors = lookup
	}
	if rec != nil {
		d.Recorder = rec
	}
	return New(d), dens
}

func TestAnalyze_Vellore(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("Lookup", mock.Anything, model.Location{Lat: 12.9698, Lon: 79.1559}, 500, "cafe").
		Return(poicache.Result{Records: competitors(5), Status: poicache.StatusMiss}, nil)
	rec := new(mockRecorder)
	rec.On("SaveAnalysis", mock.Anything, mock.AnythingOfType("*model.AnalysisReport")).Return(nil)

	svc, _ := newTestService(lookup, rec)
	report, err := svc.Analyze(context.Background(), velloreRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, model.Scores{Demand: 68, Risk: 70, Competition: 95}, report.Scores)
	assert.Equal(t, model.FeasibilityResult{Score: 38, Feasible: false, Cutoff: 60}, report.Feasibility)
	assert.Equal(t, "Feasibility analysis for a cafe in Vellore: demand 68, risk 70, competition 95 (population density: 3400.0).", report.Summary)
	assert.Len(t, report.Gap, 3)
	assert.Len(t, report.Trend, 12)
	assert.NotEmpty(t, report.Recommendations)
	assert.Len(t, report.Competitors, 5)
	assert.Equal(t, fixedNow, report.CreatedAt)

	assert.Equal(t, 5, report.Debug.POICount)
	require.NotNil(t, report.Debug.MeanDensity)
	assert.InDelta(t, 3400, *report.Debug.MeanDensity, 0.001)
	assert.True(t, report.Debug.RasterUsed)
	assert.Equal(t, model.CompetitorsFresh, report.Debug.CompetitorStatus)
	assert.Equal(t, "Vellore", report.Debug.City)

	lookup.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestAnalyze_ValidationError(t *testing.T) {
	lookup := new(mockLookup)
	rec := new(mockRecorder)
	svc, dens := newTestService(lookup, rec)

	req := velloreRequest()
	req.RadiusM = 10
	_, err := svc.Analyze(context.Background(), req)

	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "radius_m", ve.Field)
	assert.Zero(t, dens.calls.Load())
	lookup.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rec.AssertNotCalled(t, "SaveAnalysis", mock.Anything, mock.Anything)
}

func TestAnalyze_UpstreamFailureDegrades(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus model.CompetitorStatus
	}{
		{"down", model.NewUpstreamError("overpass", model.UpstreamDown, errors.New("503")), model.CompetitorsDown},
		{"timeout", model.NewUpstreamError("poi_cache", model.UpstreamTimeout, context.DeadlineExceeded), model.CompetitorsDown},
		{"malformed", model.NewUpstreamError("overpass", model.UpstreamMalformed, errors.New("bad json")), model.CompetitorsMalformed},
		{"untyped", errors.New("boom"), model.CompetitorsDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := new(mockLookup)
			lookup.On("Lookup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(poicache.Result{}, tt.err)

			svc, _ := newTestService(lookup, nil)
			report, err := svc.Analyze(context.Background(), velloreRequest())
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, report.Debug.CompetitorStatus)
			assert.Equal(t, 10, report.Scores.Competition)
			assert.NotNil(t, report.Competitors)
			assert.Empty(t, report.Competitors)
			assert.Contains(t, report.Cons, "Competitor data was unavailable; the competition score may understate saturation.")
		})
	}
}

func TestAnalyze_CacheStatusMapping(t *testing.T) {
	tests := []struct {
		status poicache.Status
		want   model.CompetitorStatus
	}{
		{poicache.StatusMiss, model.CompetitorsFresh},
		{poicache.StatusHit, model.CompetitorsCached},
		{poicache.StatusStale, model.CompetitorsStale},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			lookup := new(mockLookup)
			lookup.On("Lookup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(poicache.Result{Records: competitors(2), Status: tt.status}, nil)

			svc, _ := newTestService(lookup, nil)
			report, err := svc.Analyze(context.Background(), velloreRequest())
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Debug.CompetitorStatus)
			assert.Equal(t, 2, report.Debug.POICount)
		})
	}
}

func TestAnalyze_CompetitionNotConsidered(t *testing.T) {
	lookup := new(mockLookup)
	svc, _ := newTestService(lookup, nil)

	req := velloreRequest()
	req.ConsiderCompetition = false
	report, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.CompetitorsSkipped, report.Debug.CompetitorStatus)
	assert.Equal(t, 0, report.Scores.Competition)
	assert.Contains(t, report.Cons, "Competition was not assessed for this analysis.")
	lookup.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyze_NoCompetitorSource(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	report, err := svc.Analyze(context.Background(), velloreRequest())
	require.NoError(t, err)
	assert.Equal(t, model.CompetitorsDown, report.Debug.CompetitorStatus)
}

func TestAnalyze_DensityDisabled(t *testing.T) {
	svc, dens := newTestService(nil, nil)

	req := velloreRequest()
	req.UsePopulationDensity = false
	report, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, dens.calls.Load())
	assert.False(t, report.Debug.RasterUsed)
	assert.Nil(t, report.Debug.MeanDensity)
	assert.Equal(t, "density disabled", report.Debug.DensityReason)
	assert.Equal(t, 60, report.Scores.Demand)
}

func TestAnalyze_DefaultsWithoutRaster(t *testing.T) {
	svc := New(Deps{})

	report, err := svc.Analyze(context.Background(), velloreRequest())
	require.NoError(t, err)
	assert.False(t, report.Debug.RasterUsed)
	assert.Equal(t, "raster not configured", report.Debug.DensityReason)
	assert.Equal(t, 60, report.Scores.Demand)
}

func TestAnalyze_FillsCityFromLocality(t *testing.T) {
	svc := New(Deps{Locality: fixedLocality("Katpadi")})

	req := velloreRequest()
	req.City = "  "
	report, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Katpadi", report.Request.City)
	assert.Equal(t, "Katpadi", report.Debug.City)

	req.City = "Vellore"
	report, err = svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Vellore", report.Request.City)
}

func TestAnalyze_PersistFailureIsNotFatal(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("SaveAnalysis", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc, _ := newTestService(nil, rec)
	report, err := svc.Analyze(context.Background(), velloreRequest())
	require.NoError(t, err)
	assert.NotNil(t, report)
	rec.AssertExpectations(t)
}

func TestAnalyze_CapsCompetitors(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("Lookup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(poicache.Result{Records: competitors(80), Status: poicache.StatusMiss}, nil)

	svc, _ := newTestService(lookup, nil)
	report, err := svc.Analyze(context.Background(), velloreRequest())
	require.NoError(t, err)
	assert.Len(t, report.Competitors, model.MaxReportCompetitors)
	assert.Equal(t, 80, report.Debug.POICount)
}

func TestAnalyze_UniqueIDs(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	a, err := svc.Analyze(context.Background(), velloreRequest())
	require.NoError(t, err)
	b, err := svc.Analyze(context.Background(), velloreRequest())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Scores, b.Scores)
}

func TestPredict(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		svc := New(Deps{})
		_, err := svc.Predict(context.Background(), model.PredictionFeatures{BusinessType: model.BusinessCafe, BudgetLakh: 10})
		assert.ErrorIs(t, err, model.ErrModelUnavailable)
	})

	t.Run("fills city", func(t *testing.T) {
		pred := new(mockPredictor)
		want := model.PredictionResult{Label: "Promising", Confidence: 0.8}
		pred.On("Predict", mock.Anything, mock.MatchedBy(func(f model.PredictionFeatures) bool {
			return f.City == "Katpadi"
		})).Return(want, nil)

		svc := New(Deps{Predictor: pred, Locality: fixedLocality("Katpadi")})
		got, err := svc.Predict(context.Background(), model.PredictionFeatures{
			BusinessType: model.BusinessCafe,
			BudgetLakh:   10,
			Location:     &model.Location{Lat: 12.97, Lon: 79.13},
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		pred.AssertExpectations(t)
	})

	t.Run("passes errors through", func(t *testing.T) {
		pred := new(mockPredictor)
		pred.On("Predict", mock.Anything, mock.Anything).
			Return(model.PredictionResult{}, model.ErrModelUnavailable)

		svc := New(Deps{Predictor: pred})
		_, err := svc.Predict(context.Background(), model.PredictionFeatures{BusinessType: model.BusinessGym, City: "Vellore", BudgetLakh: 40})
		assert.ErrorIs(t, err, model.ErrModelUnavailable)
	})

	t.Run("rejects out of range features before predicting", func(t *testing.T) {
		pred := new(mockPredictor)
		svc := New(Deps{Predictor: pred})

		tests := []struct {
			name  string
			f     model.PredictionFeatures
			field string
		}{
			{"zero budget", model.PredictionFeatures{BusinessType: model.BusinessCafe}, "budget_lakh"},
			{"negative budget", model.PredictionFeatures{BusinessType: model.BusinessCafe, BudgetLakh: -5}, "budget_lakh"},
			{"negative capacity", model.PredictionFeatures{BusinessType: model.BusinessCafe, BudgetLakh: 10, Capacity: -1}, "capacity"},
			{"missing type", model.PredictionFeatures{BudgetLakh: 10}, "business_type"},
		}
		for _, tt := range tests {
			_, err := svc.Predict(context.Background(), tt.f)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve, tt.name)
			assert.Equal(t, tt.field, ve.Field, tt.name)
		}
		pred.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
	})
}
