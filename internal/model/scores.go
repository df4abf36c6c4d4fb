package model

import "math"

// DensitySample is the mean population density around a point, or the
// reason it could not be computed.
type DensitySample struct {
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason,omitempty"`
}

// DensityOf returns an available sample.
func DensityOf(v float64) DensitySample {
	return DensitySample{Value: v, Available: true}
}

// Unavailable returns a sample that carries only the reason.
func Unavailable(reason string) DensitySample {
	return DensitySample{Reason: reason}
}

// Scores is the demand/risk/competition triple. All three are always set.
type Scores struct {
	Demand      int `json:"demand"`
	Risk        int `json:"risk"`
	Competition int `json:"competition"`
}

// ClampScore rounds x half away from zero and clamps it to [0,100]. NaN maps to 0.
func ClampScore(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	r := math.Round(x)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}

// FeasibilityResult is the Business Feasibility Score and its verdict.
type FeasibilityResult struct {
	Score    int  `json:"score"`
	Feasible bool `json:"feasible"`
	Cutoff   int  `json:"cutoff"`
}

// BusinessRecommendation is an alternative business type with an estimated
// success probability in percent.
type BusinessRecommendation struct {
	Name        string `json:"name"`
	Probability int    `json:"probability"`
}

// GapPoint is one period of the demand vs. supply projection.
type GapPoint struct {
	Period string `json:"period"`
	Demand int    `json:"demand"`
	Supply int    `json:"supply"`
}

// TrendPoint is one month of the seasonal demand series.
type TrendPoint struct {
	Month  string `json:"month"`
	Demand int    `json:"demand"`
}
