package model

import "time"

// CompetitorStatus describes how the competitor list of a report was obtained.
type CompetitorStatus string

const (
	CompetitorsFresh     CompetitorStatus = "fresh"
	CompetitorsCached    CompetitorStatus = "cached"
	CompetitorsStale     CompetitorStatus = "stale"
	CompetitorsSkipped   CompetitorStatus = "skipped"
	CompetitorsDown      CompetitorStatus = "unavailable"
	CompetitorsMalformed CompetitorStatus = "malformed"
)

// Degraded reports whether competition was scored without upstream data.
func (s CompetitorStatus) Degraded() bool {
	return s == CompetitorsDown || s == CompetitorsMalformed
}

// MaxReportCompetitors caps the competitor list carried in a report.
const MaxReportCompetitors = 50

// AnalysisDebug carries the intermediate values behind a report.
type AnalysisDebug struct {
	POICount         int              `json:"poi_count"`
	MeanDensity      *float64         `json:"mean_density,omitempty"`
	RasterUsed       bool             `json:"raster_used"`
	DensityReason    string           `json:"density_reason,omitempty"`
	CompetitorStatus CompetitorStatus `json:"competitor_status"`
	BusinessType     BusinessType     `json:"business_type"`
	RadiusM          int              `json:"radius_m"`
	City             string           `json:"city,omitempty"`
}

// AnalysisReport is everything the presentation layer renders for one request.
type AnalysisReport struct {
	ID              string                   `json:"id"`
	Request         AnalysisRequest          `json:"request"`
	Summary         string                   `json:"summary"`
	Pros            []string                 `json:"pros"`
	Cons            []string                 `json:"cons"`
	Scores          Scores                   `json:"scores"`
	Feasibility     FeasibilityResult        `json:"feasibility"`
	Recommendations []BusinessRecommendation `json:"recommendations"`
	Gap             []GapPoint               `json:"gap"`
	Trend           []TrendPoint             `json:"trend"`
	Competitors     []CompetitorRecord       `json:"competitors"`
	Debug           AnalysisDebug            `json:"debug"`
	CreatedAt       time.Time                `json:"created_at"`
}

// AnalysisFilter narrows a history listing.
type AnalysisFilter struct {
	BusinessType BusinessType `json:"business_type,omitempty"`
	City         string       `json:"city,omitempty"`
	Limit        int          `json:"limit,omitempty"`
	Offset       int          `json:"offset,omitempty"`
}
