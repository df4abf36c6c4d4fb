// Package density samples mean population density around a point from an
// ESRI ASCII grid raster.
package density

import (
	"bufio"
	"compress/gzip"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Raster is an in-memory WGS84 grid. Row 0 is the northernmost row.
type Raster struct {
	ncols     int
	nrows     int
	xll       float64 // west edge
	yll       float64 // south edge
	cellSize  float64
	noData    float64
	hasNoData bool
	cells     []float32
	bounds    *geom.Bounds
}

// Open reads an .asc or gzip-compressed .asc.gz grid from path.
func Open(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "density: open raster %s", path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, eris.Wrapf(err, "density: gunzip raster %s", path)
		}
		defer gz.Close() //nolint:errcheck
		r = gz
	}

	raster, err := Read(r)
	if err != nil {
		return nil, eris.Wrapf(err, "density: parse raster %s", path)
	}
	return raster, nil
}

// Read parses an ESRI ASCII grid.
func Read(r io.Reader) (*Raster, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		tok := sc.Text()
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			first = tok
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("density: header %q has no value", tok)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "density: header %q", tok)
		}
		header[strings.ToLower(tok)] = v
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "density: read header")
	}

	ncols, okc := header["ncols"]
	nrows, okr := header["nrows"]
	cell, okz := header["cellsize"]
	if !okc || !okr || !okz || ncols < 1 || nrows < 1 || cell <= 0 {
		return nil, eris.New("density: header requires positive ncols, nrows and cellsize")
	}

	rs := &Raster{ncols: int(ncols), nrows: int(nrows), cellSize: cell}
	switch {
	case hasKey(header, "xllcorner"):
		rs.xll = header["xllcorner"]
	case hasKey(header, "xllcenter"):
		rs.xll = header["xllcenter"] - cell/2
	default:
		return nil, eris.New("density: header requires xllcorner or xllcenter")
	}
	switch {
	case hasKey(header, "yllcorner"):
		rs.yll = header["yllcorner"]
	case hasKey(header, "yllcenter"):
		rs.yll = header["yllcenter"] - cell/2
	default:
		return nil, eris.New("density: header requires yllcorner or yllcenter")
	}
	if v, ok := header["nodata_value"]; ok {
		rs.noData = v
		rs.hasNoData = true
	}

	total := rs.ncols * rs.nrows
	rs.cells = make([]float32, 0, total)
	if first != "" {
		v, _ := strconv.ParseFloat(first, 64)
		rs.cells = append(rs.cells, float32(v))
	}
	for len(rs.cells) < total && sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "density: cell %d", len(rs.cells))
		}
		rs.cells = append(rs.cells, float32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "density: read cells")
	}
	if len(rs.cells) != total {
		return nil, eris.Errorf("density: expected %d cells, got %d", total, len(rs.cells))
	}

	rs.bounds = geom.NewBounds(geom.XY).Set(
		rs.xll, rs.yll,
		rs.xll+float64(rs.ncols)*cell, rs.yll+float64(rs.nrows)*cell,
	)
	return rs, nil
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

// Bounds returns the raster extent in lon/lat.
func (r *Raster) Bounds() *geom.Bounds {
	return r.bounds
}

// Size returns the grid dimensions.
func (r *Raster) Size() (ncols, nrows int) {
	return r.ncols, r.nrows
}

// Value returns the cell containing lon/lat. ok is false outside the grid,
// on NODATA, and on non-finite or negative readings.
func (r *Raster) Value(lon, lat float64) (float64, bool) {
	if !r.bounds.OverlapsPoint(geom.XY, geom.Coord{lon, lat}) {
		return 0, false
	}
	col := int(math.Floor((lon - r.xll) / r.cellSize))
	row := r.nrows - 1 - int(math.Floor((lat-r.yll)/r.cellSize))
	// The north and east edges belong to the last cell.
	if col == r.ncols {
		col--
	}
	if row < 0 {
		row = 0
	}
	if col < 0 || col >= r.ncols || row >= r.nrows {
		return 0, false
	}

	v := float64(r.cells[row*r.ncols+col])
	if r.hasNoData && v == r.noData {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
