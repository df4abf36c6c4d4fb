package scoring

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/site-feasibility/internal/model"
)

// Input is everything the engine needs for one request.
type Input struct {
	Request          model.AnalysisRequest
	Density          model.DensitySample
	Competitors      []model.CompetitorRecord
	CompetitorStatus model.CompetitorStatus
}

// Result is the score triple with its narrative.
type Result struct {
	Scores  model.Scores
	Pros    []string
	Cons    []string
	Summary string
}

// Engine scores requests. It is immutable and safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine over cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's constants.
func (e *Engine) Config() Config {
	return e.cfg
}

// Profile returns the profile for bt, falling back to BusinessOther.
func (e *Engine) Profile(bt model.BusinessType) Profile {
	if p, ok := e.cfg.Profiles[bt]; ok {
		return p
	}
	return e.cfg.Profiles[model.BusinessOther]
}

// Score computes all three scores and the narrative.
func (e *Engine) Score(in Input) Result {
	req := in.Request
	demand := e.Demand(req, in.Density)
	competition := e.Competition(req, in.Competitors)
	risk := e.Risk(req, demand, competition)
	scores := model.Scores{Demand: demand, Risk: risk, Competition: competition}

	f := facts{
		scores:     scores,
		req:        req,
		count:      len(in.Competitors),
		status:     in.CompetitorStatus,
		considered: req.ConsiderCompetition,
	}
	f.avgRating, f.rated = model.AverageRating(in.Competitors)
	pros, cons := narrate(f)

	zap.L().Debug("scoring: scored request",
		zap.String("business_type", string(req.BusinessType)),
		zap.Int("demand", demand),
		zap.Int("risk", risk),
		zap.Int("competition", competition),
		zap.Int("competitors", len(in.Competitors)),
	)

	return Result{
		Scores:  scores,
		Pros:    pros,
		Cons:    cons,
		Summary: e.summary(req, scores, in.Density),
	}
}

// Demand maps the density sample onto 0-100, or uses the fallback table when
// density is disabled or unavailable.
func (e *Engine) Demand(req model.AnalysisRequest, d model.DensitySample) int {
	if req.UsePopulationDensity && d.Available && !math.IsNaN(d.Value) {
		return model.ClampScore(100 * d.Value / e.cfg.MaxDensity)
	}
	base := e.Profile(req.BusinessType).FallbackDemand
	return model.ClampScore(float64(base + e.cfg.CityDemandAdjust[NormalizeCity(req.City)]))
}

// Competition weighs each competitor by proximity and rating and scales the
// weighted count per km² onto 0-100. Any competitor scores at least the empty
// market floor, so the score never drops as competitors are added.
func (e *Engine) Competition(req model.AnalysisRequest, competitors []model.CompetitorRecord) int {
	if !req.ConsiderCompetition {
		return e.cfg.NeutralCompetition
	}
	if len(competitors) == 0 {
		return e.cfg.EmptyMarketScore
	}

	radius := float64(req.RadiusM)
	var weighted float64
	for _, c := range competitors {
		weighted += proximity(c.DistanceM, radius) * quality(c.Rating)
	}
	areaKm2 := math.Pi * (radius / 1000) * (radius / 1000)
	if areaKm2 <= 0 {
		return e.cfg.EmptyMarketScore
	}
	return max(model.ClampScore(weighted/areaKm2*e.cfg.CompetitionPerKm2), e.cfg.EmptyMarketScore)
}

// proximity is 1.25 at the centre falling to 0.75 at the radius edge. A
// negative distance means unknown.
func proximity(distM, radiusM float64) float64 {
	if distM < 0 || math.IsNaN(distM) || radiusM <= 0 {
		return 1
	}
	return 1.25 - 0.5*math.Min(distM/radiusM, 1)
}

// quality is 0.75 for a zero rating up to 1.25 for a five-star rating.
func quality(rating *float64) float64 {
	if rating == nil || math.IsNaN(*rating) {
		return 1
	}
	r := math.Max(0, math.Min(*rating, 5))
	return 0.75 + 0.1*r
}

// Risk starts at 50 and adds the budget, capacity, hours and market
// adjustments. Higher is riskier.
func (e *Engine) Risk(req model.AnalysisRequest, demand, competition int) int {
	p := e.Profile(req.BusinessType)
	risk := 50

	switch {
	case req.BudgetLakh < p.BudgetMin:
		risk += 15
	case req.BudgetLakh > p.BudgetMax:
		risk -= 10
	}

	if p.SeatsCustomers() {
		switch {
		case req.Capacity < p.CapacityMin:
			risk += 10
		case req.Capacity > p.CapacityMax:
			risk += 5
		}
	}

	span := req.OpenHours
	if span == "" {
		span = e.cfg.DefaultOpenHours
	}
	if hours, ok := ParseHours(span); ok {
		switch {
		case hours >= 16:
			risk += 13
		case hours >= 12:
			risk += 8
		}
	} else {
		zap.L().Debug("scoring: unparseable open hours", zap.String("open_hours", span))
	}

	if demand <= 40 {
		risk += 10
	}
	if competition >= 70 {
		risk += 12
	}

	return model.ClampScore(float64(risk))
}

func (e *Engine) summary(req model.AnalysisRequest, s model.Scores, d model.DensitySample) string {
	out := fmt.Sprintf("Feasibility analysis for a %s in %s: demand %d, risk %d, competition %d",
		strings.ToLower(e.Profile(req.BusinessType).Label), req.CityOrDefault(), s.Demand, s.Risk, s.Competition)
	if req.UsePopulationDensity && d.Available {
		out += fmt.Sprintf(" (population density: %.1f)", d.Value)
	}
	return out + "."
}
