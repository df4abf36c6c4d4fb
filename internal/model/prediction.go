package model

import "math"

// PredictionFeatures is the narrower feature set consumed by the viability
// predictor.
type PredictionFeatures struct {
	BusinessType BusinessType `json:"business_type"`
	City         string       `json:"city"`
	BudgetLakh   float64      `json:"budget_lakh"`
	Capacity     int          `json:"capacity"`
	RadiusM      int          `json:"radius_m"`
	DemandScore  *float64     `json:"demand_score,omitempty"`
	Location     *Location    `json:"location,omitempty"`
}

// Validate applies the request bounds to the prediction inputs. A zero
// radius means the predictor's default.
func (f PredictionFeatures) Validate() error {
	if !f.BusinessType.Valid() {
		return &ValidationError{Field: "business_type", Reason: "unknown business type " + string(f.BusinessType)}
	}
	if math.IsNaN(f.BudgetLakh) || f.BudgetLakh <= MinBudgetLakh {
		return &ValidationError{Field: "budget_lakh", Reason: "must be greater than 0.1"}
	}
	if f.Capacity < 0 {
		return &ValidationError{Field: "capacity", Reason: "must not be negative"}
	}
	if f.RadiusM != 0 && (f.RadiusM < MinRadiusM || f.RadiusM > MaxRadiusM) {
		return &ValidationError{Field: "radius_m", Reason: "must be between 50 and 5000"}
	}
	if d := f.DemandScore; d != nil && (math.IsNaN(*d) || *d < 0 || *d > 100) {
		return &ValidationError{Field: "demand_score", Reason: "must be between 0 and 100"}
	}
	if f.Location != nil {
		return f.Location.Validate()
	}
	return nil
}

// PredictionResult is the classifier output.
type PredictionResult struct {
	Label         string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
}
