package density

import (
	"math"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/site-feasibility/internal/model"
)

// Sampling radius bounds. Out-of-range radii are clamped.
const (
	MinRadiusM = 50
	MaxRadiusM = 5000
)

// Options configures the disc approximation.
type Options struct {
	Rings         int
	PointsPerRing int
}

// Sampler computes mean density over a disc. It is read-only after
// construction and safe for concurrent use.
type Sampler struct {
	raster        *Raster
	rings         int
	pointsPerRing int
	reason        string
}

// NewSampler samples r. A nil raster yields a sampler whose every sample is
// unavailable with reason.
func NewSampler(r *Raster, reason string, opts Options) *Sampler {
	if opts.Rings < 0 {
		opts.Rings = 0
	}
	if opts.PointsPerRing <= 0 {
		opts.PointsPerRing = 8
	}
	if r == nil && reason == "" {
		reason = "raster not configured"
	}
	return &Sampler{raster: r, rings: opts.Rings, pointsPerRing: opts.PointsPerRing, reason: reason}
}

// Load opens the raster at path. An empty path or an unreadable raster gives
// a sampler that reports unavailable samples; the engine keeps running.
func Load(path string, opts Options) *Sampler {
	if path == "" {
		return NewSampler(nil, "raster not configured", opts)
	}
	r, err := Open(path)
	if err != nil {
		zap.L().Warn("density: raster unavailable, density scoring disabled", zap.String("path", path), zap.Error(err))
		return NewSampler(nil, "raster unreadable", opts)
	}
	ncols, nrows := r.Size()
	zap.L().Info("density: raster loaded",
		zap.String("path", path),
		zap.Int("ncols", ncols),
		zap.Int("nrows", nrows),
	)
	return NewSampler(r, "", opts)
}

// Available reports whether a raster is loaded.
func (s *Sampler) Available() bool {
	return s.raster != nil
}

// Sample returns the mean of valid readings over the disc of radiusM around
// loc. It never panics and never returns an error.
func (s *Sampler) Sample(loc model.Location, radiusM int) model.DensitySample {
	if s.raster == nil {
		return model.Unavailable(s.reason)
	}
	if loc.Validate() != nil {
		return model.Unavailable("location out of range")
	}

	pts := DiscPoints(loc, clampRadius(radiusM), s.rings, s.pointsPerRing)
	flat := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		flat = append(flat, p.Lon, p.Lat)
	}
	disc := geom.NewMultiPointFlat(geom.XY, flat)
	if !s.raster.Bounds().Overlaps(geom.XY, disc.Bounds()) {
		return model.Unavailable("location outside raster")
	}

	var sum float64
	var n int
	for _, p := range pts {
		if v, ok := s.raster.Value(p.Lon, p.Lat); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return model.Unavailable("no valid raster cells")
	}
	return model.DensityOf(sum / float64(n))
}

// DiscPoints approximates a disc by its center plus rings concentric rings
// of perRing equally spaced points.
func DiscPoints(center model.Location, radiusM, rings, perRing int) []model.Location {
	pts := make([]model.Location, 0, 1+rings*perRing)
	pts = append(pts, center)
	for i := 1; i <= rings; i++ {
		dist := float64(radiusM) * float64(i) / float64(rings)
		for j := 0; j < perRing; j++ {
			bearing := 2 * math.Pi * float64(j) / float64(perRing)
			pts = append(pts, center.Offset(dist, bearing))
		}
	}
	return pts
}

func clampRadius(r int) int {
	if r < MinRadiusM {
		return MinRadiusM
	}
	if r > MaxRadiusM {
		return MaxRadiusM
	}
	return r
}
