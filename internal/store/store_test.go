package store

import (
	"context"
	"time"

	"github.com/sells-group/site-feasibility/internal/model"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func ptrFloat64(v float64) *float64 { return &v }

func testEntry(key string, fetchedAt time.Time) model.CacheEntry {
	return model.CacheEntry{
		Key: key,
		Payload: []model.CompetitorRecord{
			{
				Name:      "Brew Point",
				Location:  model.Location{Lat: 12.9165, Lon: 79.1325},
				Rating:    ptrFloat64(4.2),
				Category:  "cafe",
				Source:    "overpass",
				DistanceM: 120,
			},
		},
		FetchedAt: fetchedAt,
	}
}

func testReport(id string, bt model.BusinessType, city string, createdAt time.Time) model.AnalysisReport {
	return model.AnalysisReport{
		ID: id,
		Request: model.AnalysisRequest{
			BusinessType:         bt,
			City:                 city,
			Location:             model.Location{Lat: 12.9165, Lon: 79.1325},
			RadiusM:              1000,
			BudgetLakh:           15,
			Capacity:             30,
			UsePopulationDensity: true,
			ConsiderCompetition:  true,
		},
		Summary:         "Feasibility analysis",
		Pros:            []string{"Strong local demand near the chosen location."},
		Cons:            []string{},
		Scores:          model.Scores{Demand: 68, Risk: 70, Competition: 95},
		Feasibility:     model.FeasibilityResult{Score: 38, Cutoff: 60},
		Recommendations: []model.BusinessRecommendation{{Name: "Cafe", Probability: 80}},
		Competitors:     []model.CompetitorRecord{},
		Debug:           model.AnalysisDebug{CompetitorStatus: model.CompetitorsFresh, BusinessType: bt, RadiusM: 1000},
		CreatedAt:       createdAt,
	}
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*SQLiteStore)(nil)

// ctx is shared by tests that do not exercise cancellation.
var ctx = context.Background()
