// Package feasibility derives the Business Feasibility Score, alternative
// business recommendations and the chart series from a score triple.
package feasibility

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-feasibility/internal/config"
	"github.com/sells-group/site-feasibility/internal/model"
)

// DefaultCutoff is the BFS at or above which a site is feasible.
const DefaultCutoff = 60

// Weights are the BFS component weights. Risk and competition are inverted
// before weighting.
type Weights struct {
	Demand      float64
	Risk        float64
	Competition float64
}

// DefaultWeights returns 0.4 / 0.3 / 0.3.
func DefaultWeights() Weights {
	return Weights{Demand: 0.4, Risk: 0.3, Competition: 0.3}
}

// Evaluator computes the BFS. It is immutable and safe for concurrent use.
type Evaluator struct {
	weights Weights
	cutoff  int
}

// NewEvaluator validates weights and cutoff and returns an evaluator.
func NewEvaluator(w Weights, cutoff int) (*Evaluator, error) {
	var errs []string
	if w.Demand < 0 || w.Risk < 0 || w.Competition < 0 {
		errs = append(errs, "weights must be >= 0")
	}
	if sum := w.Demand + w.Risk + w.Competition; math.Abs(sum-1) > 0.001 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1, got %.3f", sum))
	}
	if cutoff < 0 || cutoff > 100 {
		errs = append(errs, "cutoff must be between 0 and 100")
	}
	if len(errs) > 0 {
		return nil, eris.Errorf("feasibility: %s", strings.Join(errs, "; "))
	}
	return &Evaluator{weights: w, cutoff: cutoff}, nil
}

// FromConfig builds an evaluator from the feasibility section.
func FromConfig(fc config.FeasibilityConfig) (*Evaluator, error) {
	return NewEvaluator(Weights{
		Demand:      fc.DemandWeight,
		Risk:        fc.RiskWeight,
		Competition: fc.CompetitionWeight,
	}, fc.Cutoff)
}

// Default returns the evaluator with the built-in weights and cutoff.
func Default() *Evaluator {
	return &Evaluator{weights: DefaultWeights(), cutoff: DefaultCutoff}
}

// Cutoff returns the feasibility threshold.
func (e *Evaluator) Cutoff() int {
	return e.cutoff
}

// Evaluate returns round(wd·demand + wr·(100-risk) + wc·(100-competition))
// and whether it reaches the cutoff.
func (e *Evaluator) Evaluate(s model.Scores) model.FeasibilityResult {
	raw := e.weights.Demand*float64(s.Demand) +
		e.weights.Risk*float64(100-s.Risk) +
		e.weights.Competition*float64(100-s.Competition)
	score := model.ClampScore(raw)
	return model.FeasibilityResult{
		Score:    score,
		Feasible: score >= e.cutoff,
		Cutoff:   e.cutoff,
	}
}
