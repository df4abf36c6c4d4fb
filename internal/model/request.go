package model

import (
	"math"
	"strings"
)

// Request bounds enforced at the engine boundary.
const (
	MinRadiusM    = 50
	MaxRadiusM    = 5000
	MinBudgetLakh = 0.1
)

// AnalysisRequest is a single feasibility question: what would a business of
// this shape look like at this point?
type AnalysisRequest struct {
	BusinessType         BusinessType `json:"business_type"`
	City                 string       `json:"city,omitempty"`
	Address              string       `json:"address,omitempty"`
	Notes                string       `json:"notes,omitempty"`
	Location             Location     `json:"location"`
	RadiusM              int          `json:"radius_m"`
	BudgetLakh           float64      `json:"budget_lakh"`
	Capacity             int          `json:"capacity"`
	OpenHours            string       `json:"open_hours,omitempty"`
	UsePopulationDensity bool         `json:"use_population_density"`
	ConsiderCompetition  bool         `json:"consider_competition"`
}

// Validate rejects requests outside the documented bounds. Nothing is clamped.
func (r AnalysisRequest) Validate() error {
	if !r.BusinessType.Valid() {
		return &ValidationError{Field: "business_type", Reason: "unknown business type " + string(r.BusinessType)}
	}
	if err := r.Location.Validate(); err != nil {
		return err
	}
	if r.RadiusM < MinRadiusM || r.RadiusM > MaxRadiusM {
		return &ValidationError{Field: "radius_m", Reason: "must be between 50 and 5000"}
	}
	if math.IsNaN(r.BudgetLakh) || r.BudgetLakh <= MinBudgetLakh {
		return &ValidationError{Field: "budget_lakh", Reason: "must be greater than 0.1"}
	}
	if r.Capacity < 0 {
		return &ValidationError{Field: "capacity", Reason: "must not be negative"}
	}
	return nil
}

// CityOrDefault returns the trimmed city or "this area" when none was given.
func (r AnalysisRequest) CityOrDefault() string {
	if c := strings.TrimSpace(r.City); c != "" {
		return c
	}
	return "this area"
}
