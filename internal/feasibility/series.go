package feasibility

import (
	"math"

	"github.com/sells-group/site-feasibility/internal/model"
)

// gapSteps projects demand growth and supply headroom over a year.
var gapSteps = []struct {
	period     string
	demandMult float64
	supplyAdd  int
}{
	{"Current", 1.0, 0},
	{"6 Months", 1.1, 10},
	{"12 Months", 1.2, 20},
}

// monthlyMultipliers is the seasonal demand profile, January first.
var monthlyMultipliers = [12]struct {
	month string
	mult  float64
}{
	{"Jan", 0.85}, {"Feb", 0.88}, {"Mar", 0.95}, {"Apr", 1.00},
	{"May", 1.05}, {"Jun", 0.98}, {"Jul", 0.92}, {"Aug", 0.95},
	{"Sep", 1.02}, {"Oct", 1.10}, {"Nov", 1.15}, {"Dec", 1.20},
}

// GapSeries returns the current, 6-month and 12-month demand against the
// supply proxy 100 - competition.
func GapSeries(s model.Scores) []model.GapPoint {
	supply := 100 - s.Competition
	out := make([]model.GapPoint, 0, len(gapSteps))
	for _, g := range gapSteps {
		out = append(out, model.GapPoint{
			Period: g.period,
			Demand: nonNegative(math.Round(float64(s.Demand) * g.demandMult)),
			Supply: nonNegative(float64(supply + g.supplyAdd)),
		})
	}
	return out
}

// TrendSeries returns twelve months of demand scaled by the seasonal table.
func TrendSeries(s model.Scores) []model.TrendPoint {
	out := make([]model.TrendPoint, 0, len(monthlyMultipliers))
	for _, m := range monthlyMultipliers {
		out = append(out, model.TrendPoint{
			Month:  m.month,
			Demand: nonNegative(math.Round(float64(s.Demand) * m.mult)),
		})
	}
	return out
}

func nonNegative(v float64) int {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(v)
}
