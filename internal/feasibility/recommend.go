package feasibility

import (
	"slices"

	"github.com/sells-group/site-feasibility/internal/model"
)

// bucket is one row of the recommendation table.
type bucket struct {
	name  string
	when  func(s model.Scores) bool
	picks []model.BusinessRecommendation
}

// buckets are evaluated in order; the first match wins. Boundaries are strict
// so a tie falls through to the next bucket.
var buckets = []bucket{
	{
		name: "high demand, low competition",
		when: func(s model.Scores) bool { return s.Demand > 70 && s.Competition < 40 },
		picks: []model.BusinessRecommendation{
			{Name: "Specialty Cafe", Probability: 85},
			{Name: "Fast Casual Restaurant", Probability: 78},
			{Name: "Fitness Studio", Probability: 72},
		},
	},
	{
		name: "moderate",
		when: func(s model.Scores) bool { return s.Demand > 50 && s.Competition < 60 },
		picks: []model.BusinessRecommendation{
			{Name: "Convenience Store", Probability: 70},
			{Name: "Pharmacy", Probability: 65},
			{Name: "Beauty Salon", Probability: 60},
		},
	},
	{
		name: "fallback",
		when: func(model.Scores) bool { return true },
		picks: []model.BusinessRecommendation{
			{Name: "Cloud Kitchen", Probability: 55},
			{Name: "Home Services", Probability: 50},
			{Name: "Online Retail", Probability: 45},
		},
	},
}

// Recommend returns the three alternative business types of the first
// matching bucket, highest probability first. The result is a fresh slice.
func Recommend(s model.Scores) []model.BusinessRecommendation {
	for _, b := range buckets {
		if !b.when(s) {
			continue
		}
		out := slices.Clone(b.picks)
		slices.SortStableFunc(out, func(x, y model.BusinessRecommendation) int {
			return y.Probability - x.Probability
		})
		return out
	}
	return nil
}
