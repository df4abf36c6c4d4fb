// Package analysis runs a feasibility request end to end: locality, density,
// competitors, scoring, verdict, recommendations, series and persistence.
package analysis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/site-feasibility/internal/feasibility"
	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/poicache"
	"github.com/sells-group/site-feasibility/internal/scoring"
)

// DensitySampler returns the mean population density around a point.
type DensitySampler interface {
	Sample(loc model.Location, radiusM int) model.DensitySample
}

// CompetitorLookup returns competitors of a category around a point.
type CompetitorLookup interface {
	Lookup(ctx context.Context, loc model.Location, radiusM int, category string) (poicache.Result, error)
}

// Localizer names the city containing a point.
type Localizer interface {
	Resolve(loc model.Location) (string, bool)
}

// Predictor classifies viability.
type Predictor interface {
	Predict(ctx context.Context, f model.PredictionFeatures) (model.PredictionResult, error)
}

// Recorder persists finished reports.
type Recorder interface {
	SaveAnalysis(ctx context.Context, report *model.AnalysisReport) error
	SaveAnalyses(ctx context.Context, reports []model.AnalysisReport) (int64, error)
}

// Deps wires a Service. Engine, Evaluator and Density default when nil; the
// rest are optional.
type Deps struct {
	Engine      *scoring.Engine
	Evaluator   *feasibility.Evaluator
	Density     DensitySampler
	Competitors CompetitorLookup
	Locality    Localizer
	Predictor   Predictor
	Recorder    Recorder
	Now         func() time.Time
}

// Service answers analysis and prediction requests. It is safe for
// concurrent use.
type Service struct {
	engine      *scoring.Engine
	evaluator   *feasibility.Evaluator
	density     DensitySampler
	competitors CompetitorLookup
	locality    Localizer
	predictor   Predictor
	recorder    Recorder
	now         func() time.Time
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Engine == nil {
		d.Engine = scoring.NewEngine(scoring.DefaultConfig())
	}
	if d.Evaluator == nil {
		d.Evaluator = feasibility.Default()
	}
	if d.Density == nil {
		d.Density = unavailableDensity{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		engine:      d.Engine,
		evaluator:   d.Evaluator,
		density:     d.Density,
		competitors: d.Competitors,
		locality:    d.Locality,
		predictor:   d.Predictor,
		recorder:    d.Recorder,
		now:         d.Now,
	}
}

type unavailableDensity struct{}

func (unavailableDensity) Sample(model.Location, int) model.DensitySample {
	return model.Unavailable("raster not configured")
}

// Analyze validates req and produces its report. Only a *model.ValidationError
// is returned as an error; upstream and raster failures degrade the report.
func (s *Service) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisReport, error) {
	report, err := s.analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		if err := s.recorder.SaveAnalysis(ctx, report); err != nil {
			zap.L().Warn("analysis: persist report failed", zap.String("id", report.ID), zap.Error(err))
		}
	}
	return report, nil
}

type competitorOutcome struct {
	records []model.CompetitorRecord
	status  model.CompetitorStatus
}

func (s *Service) analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.City = strings.TrimSpace(req.City)
	req.City = s.resolveCity(req.City, req.Location)

	log := zap.L().With(
		zap.String("business_type", string(req.BusinessType)),
		zap.String("location", req.Location.String()),
		zap.Int("radius_m", req.RadiusM),
	)

	var sample model.DensitySample
	var comps competitorOutcome

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if req.UsePopulationDensity {
			sample = s.density.Sample(req.Location, req.RadiusM)
		} else {
			sample = model.Unavailable("density disabled")
		}
		return nil
	})
	g.Go(func() error {
		comps = s.lookupCompetitors(gCtx, req, log)
		return nil
	})
	_ = g.Wait()

	scored := s.engine.Score(scoring.Input{
		Request:          req,
		Density:          sample,
		Competitors:      comps.records,
		CompetitorStatus: comps.status,
	})

	report := &model.AnalysisReport{
		ID:              uuid.NewString(),
		Request:         req,
		Summary:         scored.Summary,
		Pros:            scored.Pros,
		Cons:            scored.Cons,
		Scores:          scored.Scores,
		Feasibility:     s.evaluator.Evaluate(scored.Scores),
		Recommendations: feasibility.Recommend(scored.Scores),
		Gap:             feasibility.GapSeries(scored.Scores),
		Trend:           feasibility.TrendSeries(scored.Scores),
		Competitors:     capCompetitors(comps.records),
		Debug: model.AnalysisDebug{
			POICount:         len(comps.records),
			RasterUsed:       sample.Available,
			DensityReason:    sample.Reason,
			CompetitorStatus: comps.status,
			BusinessType:     req.BusinessType,
			RadiusM:          req.RadiusM,
			City:             req.City,
		},
		CreatedAt: s.now().UTC(),
	}
	if sample.Available {
		v := sample.Value
		report.Debug.MeanDensity = &v
	}

	log.Info("analysis: complete",
		zap.String("id", report.ID),
		zap.Int("bfs", report.Feasibility.Score),
		zap.Bool("feasible", report.Feasibility.Feasible),
		zap.String("competitor_status", string(comps.status)),
		zap.Bool("raster_used", sample.Available),
	)
	return report, nil
}

func (s *Service) resolveCity(city string, loc model.Location) string {
	if city != "" || s.locality == nil {
		return city
	}
	if name, ok := s.locality.Resolve(loc); ok {
		return name
	}
	return city
}

func (s *Service) lookupCompetitors(ctx context.Context, req model.AnalysisRequest, log *zap.Logger) competitorOutcome {
	if !req.ConsiderCompetition {
		return competitorOutcome{status: model.CompetitorsSkipped}
	}
	if s.competitors == nil {
		return competitorOutcome{status: model.CompetitorsDown}
	}

	res, err := s.competitors.Lookup(ctx, req.Location, req.RadiusM, string(req.BusinessType))
	if err != nil {
		status := model.CompetitorsDown
		var ue *model.UpstreamError
		if errors.As(err, &ue) && ue.Kind == model.UpstreamMalformed {
			status = model.CompetitorsMalformed
		}
		log.Warn("analysis: competitor data unavailable, scoring without it",
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return competitorOutcome{records: []model.CompetitorRecord{}, status: status}
	}

	status := model.CompetitorsFresh
	switch res.Status {
	case poicache.StatusHit:
		status = model.CompetitorsCached
	case poicache.StatusStale:
		status = model.CompetitorsStale
	}
	records := res.Records
	if records == nil {
		records = []model.CompetitorRecord{}
	}
	return competitorOutcome{records: records, status: status}
}

func capCompetitors(records []model.CompetitorRecord) []model.CompetitorRecord {
	if len(records) > model.MaxReportCompetitors {
		records = records[:model.MaxReportCompetitors]
	}
	out := slices.Clone(records)
	if out == nil {
		out = []model.CompetitorRecord{}
	}
	return out
}

// Predict fills a missing city from the locality resolver and classifies f.
func (s *Service) Predict(ctx context.Context, f model.PredictionFeatures) (model.PredictionResult, error) {
	if err := f.Validate(); err != nil {
		return model.PredictionResult{}, err
	}
	if s.predictor == nil {
		return model.PredictionResult{}, model.ErrModelUnavailable
	}
	if f.Location != nil {
		f.City = s.resolveCity(strings.TrimSpace(f.City), *f.Location)
	}
	return s.predictor.Predict(ctx, f)
}
