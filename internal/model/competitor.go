package model

import "time"

// CompetitorRecord is one nearby business of the same category.
type CompetitorRecord struct {
	Name      string   `json:"name"`
	Location  Location `json:"location"`
	Rating    *float64 `json:"rating,omitempty"`     // 0-5
	PriceTier *int     `json:"price_tier,omitempty"` // 0-4
	Category  string   `json:"category"`
	Source    string   `json:"source"`
	DistanceM float64  `json:"distance_m"`
}

// CacheEntry is a memoized competitor lookup.
type CacheEntry struct {
	Key       string             `json:"key"`
	Payload   []CompetitorRecord `json:"payload"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Age returns how old the entry is at now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// AverageRating returns the mean rating over records that carry one, and
// whether any did.
func AverageRating(records []CompetitorRecord) (float64, bool) {
	var sum float64
	var n int
	for _, r := range records {
		if r.Rating != nil {
			sum += *r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
