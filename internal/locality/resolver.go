// Package locality resolves a coordinate to the name of the city or town
// polygon that contains it.
package locality

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/site-feasibility/internal/model"
)

// Region is a named boundary.
type Region struct {
	Name    string
	Polygon *geom.MultiPolygon
	bounds  *geom.Bounds
}

// Resolver answers point-in-polygon lookups. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	regions []Region
}

// NewResolver indexes regions by their bounds. Regions without a name or
// polygon are dropped.
func NewResolver(regions []Region) *Resolver {
	r := &Resolver{}
	for _, reg := range regions {
		if reg.Name == "" || reg.Polygon == nil || reg.Polygon.NumPolygons() == 0 {
			continue
		}
		reg.bounds = reg.Polygon.Bounds()
		r.regions = append(r.regions, reg)
	}
	return r
}

// Len returns the number of indexed regions.
func (r *Resolver) Len() int {
	return len(r.regions)
}

// Resolve returns the name of the first region containing loc.
func (r *Resolver) Resolve(loc model.Location) (string, bool) {
	if r == nil {
		return "", false
	}
	pt := geom.Coord{loc.Lon, loc.Lat}
	for _, reg := range r.regions {
		if !reg.bounds.OverlapsPoint(geom.XY, pt) {
			continue
		}
		if contains(reg.Polygon, pt) {
			return reg.Name, true
		}
	}
	return "", false
}

// contains applies the even-odd rule across every ring, so shapefile holes
// stored as separate parts are excluded. Points on a ring count as inside it.
func contains(mp *geom.MultiPolygon, pt geom.Coord) bool {
	inside := false
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			ring := p.LinearRing(j)
			if ring.NumCoords() < 4 {
				continue
			}
			if xy.IsPointInRing(ring.Layout(), pt, ring.FlatCoords()) {
				inside = !inside
			}
		}
	}
	return inside
}

// Load reads polygon boundaries from a shapefile, naming each by nameField.
func Load(path, nameField string) (*Resolver, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "locality: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("locality: field %s not found in %s", nameField, path)
	}

	var regions []Region
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if mp == nil || name == "" {
			skipped++
			continue
		}
		regions = append(regions, Region{Name: name, Polygon: mp})
	}

	r := NewResolver(regions)
	zap.L().Info("locality: boundaries loaded",
		zap.String("path", path),
		zap.Int("regions", r.Len()),
		zap.Int("skipped", skipped),
	)
	return r, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon turns each shapefile part into a single-ring polygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 3 {
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("locality: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("locality: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
