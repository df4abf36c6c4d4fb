package model

import (
	"fmt"
	"math"
)

// EarthRadiusM is the mean Earth radius used for great-circle distances.
const EarthRadiusM = 6371000.0

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the coordinates are inside the WGS84 domain.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || l.Lat < -90 || l.Lat > 90 {
		return &ValidationError{Field: "lat", Reason: "must be between -90 and 90"}
	}
	if math.IsNaN(l.Lon) || l.Lon < -180 || l.Lon > 180 {
		return &ValidationError{Field: "lon", Reason: "must be between -180 and 180"}
	}
	return nil
}

// String formats the location as "lat,lon" with 6 decimals.
func (l Location) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lon)
}

// DistanceM returns the haversine distance in meters between two locations.
func (l Location) DistanceM(o Location) float64 {
	lat1 := l.Lat * math.Pi / 180
	lat2 := o.Lat * math.Pi / 180
	dLat := (o.Lat - l.Lat) * math.Pi / 180
	dLon := (o.Lon - l.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Offset returns the point reached by moving distM meters from l on the given
// bearing (radians, clockwise from north) on a local flat-earth projection.
func (l Location) Offset(distM, bearing float64) Location {
	dLat := distM * math.Cos(bearing) / metersPerDegree
	cosLat := math.Cos(l.Lat * math.Pi / 180)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	dLon := distM * math.Sin(bearing) / (metersPerDegree * cosLat)
	return Location{Lat: l.Lat + dLat, Lon: l.Lon + dLon}
}

// metersPerDegree is the length of one degree of latitude on the mean sphere.
const metersPerDegree = EarthRadiusM * math.Pi / 180
