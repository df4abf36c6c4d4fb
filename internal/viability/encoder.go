package viability

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/site-feasibility/internal/model"
)

// NormalizeCategory lowercases s, strips diacritics and collapses whitespace,
// so "  Bengalurú " and "bengaluru" encode identically.
func NormalizeCategory(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(stripped)), " ")
}

// encoder maps features onto the artifact's column layout: every categorical
// block in order, then every numeric column.
type encoder struct {
	categorical []categoricalColumn
	numeric     []NumericFeature
	width       int
}

type categoricalColumn struct {
	source  string
	offset  int
	index   map[string]int
	unknown int // -1 when the vocabulary has no unknown bucket
}

func newEncoder(a *Artifact) *encoder {
	e := &encoder{numeric: a.Numeric}
	offset := 0
	for _, c := range a.Categorical {
		col := categoricalColumn{
			source:  c.Source,
			offset:  offset,
			index:   make(map[string]int, len(c.Vocabulary)),
			unknown: -1,
		}
		for i, v := range c.Vocabulary {
			if v == UnknownToken {
				col.unknown = i
				continue
			}
			col.index[normalizeFor(c.Source, v)] = i
		}
		e.categorical = append(e.categorical, col)
		offset += len(c.Vocabulary)
	}
	e.width = offset + len(a.Numeric)
	return e
}

// normalizeFor canonicalizes a category value the same way for vocabulary
// entries and inputs.
func normalizeFor(source, v string) string {
	if source == SourceBusinessType {
		return string(model.ParseBusinessType(v))
	}
	return NormalizeCategory(v)
}

// encode builds the feature vector. Unseen categories hit the unknown bucket
// when there is one, otherwise their block stays zero.
func (e *encoder) encode(f model.PredictionFeatures) []float64 {
	x := make([]float64, e.width)

	for _, c := range e.categorical {
		var raw string
		switch c.source {
		case SourceBusinessType:
			raw = string(f.BusinessType)
		case SourceCity:
			raw = f.City
		}
		if i, ok := c.index[normalizeFor(c.source, raw)]; ok {
			x[c.offset+i] = 1
		} else if c.unknown >= 0 {
			x[c.offset+c.unknown] = 1
		}
	}

	base := e.width - len(e.numeric)
	for i, n := range e.numeric {
		v, ok := numericValue(n.Source, f)
		if !ok {
			v = n.Default
		}
		v -= n.Mean
		if n.Scale != nil {
			v /= *n.Scale
		}
		x[base+i] = v
	}
	return x
}

func numericValue(source string, f model.PredictionFeatures) (float64, bool) {
	switch source {
	case SourceBudget:
		return f.BudgetLakh, true
	case SourceCapacity:
		return float64(f.Capacity), true
	case SourceRadius:
		return float64(f.RadiusM), true
	case SourceDemand:
		if f.DemandScore == nil {
			return 0, false
		}
		return *f.DemandScore, true
	case SourceLat:
		if f.Location == nil {
			return 0, false
		}
		return f.Location.Lat, true
	case SourceLon:
		if f.Location == nil {
			return 0, false
		}
		return f.Location.Lon, true
	}
	return 0, false
}
