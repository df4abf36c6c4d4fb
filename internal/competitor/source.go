// Package competitor fetches nearby businesses of the same category from a
// POI provider.
package competitor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/resilience"
	"github.com/sells-group/site-feasibility/pkg/overpass"
	"github.com/sells-group/site-feasibility/pkg/places"
)

// Source is a competitor data provider. Zero records is a valid answer.
type Source interface {
	Name() string
	Fetch(ctx context.Context, loc model.Location, radiusM int, category string) ([]model.CompetitorRecord, error)
}

// OverpassSource reads competitors from OpenStreetMap. OSM carries no
// rating or price, so those fields stay empty.
type OverpassSource struct {
	client overpass.Client
}

// NewOverpassSource wraps an Overpass client.
func NewOverpassSource(client overpass.Client) *OverpassSource {
	return &OverpassSource{client: client}
}

// Name implements Source.
func (s *OverpassSource) Name() string { return "overpass" }

// Fetch implements Source.
func (s *OverpassSource) Fetch(ctx context.Context, loc model.Location, radiusM int, category string) ([]model.CompetitorRecord, error) {
	elems, err := s.client.Around(ctx, overpass.AroundQuery{
		Lat:     loc.Lat,
		Lon:     loc.Lon,
		RadiusM: radiusM,
		Filters: OSMFilters(category),
	})
	if err != nil {
		var se *overpass.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			return nil, resilience.NewTransientError(err, se.StatusCode)
		}
		return nil, err
	}

	out := make([]model.CompetitorRecord, 0, len(elems))
	for _, e := range elems {
		out = append(out, model.CompetitorRecord{
			Name:     osmName(e),
			Location: model.Location{Lat: e.Lat, Lon: e.Lon},
			Category: category,
			Source:   s.Name(),
		})
	}
	return out, nil
}

func osmName(e overpass.Element) string {
	if n := strings.TrimSpace(e.Name()); n != "" {
		return n
	}
	return fmt.Sprintf("Unnamed %s %d", e.Kind, e.ID)
}

// PlacesSource reads competitors from Google Places nearby search.
type PlacesSource struct {
	client places.Client
}

// NewPlacesSource wraps a Places client.
func NewPlacesSource(client places.Client) *PlacesSource {
	return &PlacesSource{client: client}
}

// Name implements Source.
func (s *PlacesSource) Name() string { return "places" }

// Fetch implements Source.
func (s *PlacesSource) Fetch(ctx context.Context, loc model.Location, radiusM int, category string) ([]model.CompetitorRecord, error) {
	resp, err := s.client.SearchNearby(ctx, places.NearbyRequest{
		IncludedTypes:  PlaceTypes(category),
		RankPreference: "DISTANCE",
		LocationRestriction: places.LocationRestriction{Circle: places.Circle{
			Center: places.LatLng{Latitude: loc.Lat, Longitude: loc.Lon},
			Radius: float64(radiusM),
		}},
	})
	if err != nil {
		var se *places.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			return nil, resilience.NewTransientError(err, se.StatusCode)
		}
		return nil, err
	}

	out := make([]model.CompetitorRecord, 0, len(resp.Places))
	for _, p := range resp.Places {
		if p.BusinessStatus == "CLOSED_PERMANENTLY" {
			continue
		}
		rec := model.CompetitorRecord{
			Name:     p.DisplayName.Text,
			Rating:   p.Rating,
			Category: category,
			Source:   s.Name(),
		}
		if p.Location != nil {
			rec.Location = model.Location{Lat: p.Location.Latitude, Lon: p.Location.Longitude}
		}
		if tier, ok := places.PriceTier(p.PriceLevel); ok {
			rec.PriceTier = &tier
		}
		out = append(out, rec)
	}
	return out, nil
}
