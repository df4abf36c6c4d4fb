// Package viability serves the trained business viability classifier: a
// one-hot encoder feeding a logistic regression, exported as YAML.
package viability

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// UnknownToken is the vocabulary entry unseen categories map to.
const UnknownToken = "__unknown__"

// Feature sources a column can be read from.
const (
	SourceBusinessType = "business_type"
	SourceCity         = "city"
	SourceBudget       = "budget_lakh"
	SourceCapacity     = "capacity"
	SourceRadius       = "radius_m"
	SourceDemand       = "demand_score"
	SourceLat          = "lat"
	SourceLon          = "lon"
)

var categoricalSources = map[string]bool{
	SourceBusinessType: true,
	SourceCity:         true,
}

var numericSources = map[string]bool{
	SourceBudget:   true,
	SourceCapacity: true,
	SourceRadius:   true,
	SourceDemand:   true,
	SourceLat:      true,
	SourceLon:      true,
}

// Artifact is the on-disk model description.
type Artifact struct {
	Name         string               `yaml:"name"`
	Version      string               `yaml:"version"`
	Classes      []Class              `yaml:"classes"`
	Categorical  []CategoricalFeature `yaml:"categorical"`
	Numeric      []NumericFeature     `yaml:"numeric"`
	Intercept    []float64            `yaml:"intercept"`
	Coefficients [][]float64          `yaml:"coefficients"`
}

// Class is one outcome. Key names the probability, Label is shown to users.
type Class struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// CategoricalFeature is a one-hot encoded column.
type CategoricalFeature struct {
	Name       string   `yaml:"name"`
	Source     string   `yaml:"source"`
	Vocabulary []string `yaml:"vocabulary"`
}

// NumericFeature is a passthrough column with optional standardization.
// Default is used when the input omits the value.
type NumericFeature struct {
	Name    string   `yaml:"name"`
	Source  string   `yaml:"source"`
	Mean    float64  `yaml:"mean"`
	Scale   *float64 `yaml:"scale,omitempty"`
	Default float64  `yaml:"default"`
}

// Width returns the length of the encoded feature vector.
func (a *Artifact) Width() int {
	n := len(a.Numeric)
	for _, c := range a.Categorical {
		n += len(c.Vocabulary)
	}
	return n
}

// Binary reports whether the artifact stores a single logit row for two
// classes.
func (a *Artifact) Binary() bool {
	return len(a.Classes) == 2 && len(a.Coefficients) == 1
}

// Uses reports whether any column reads from source.
func (a *Artifact) Uses(source string) bool {
	for _, c := range a.Categorical {
		if c.Source == source {
			return true
		}
	}
	for _, n := range a.Numeric {
		if n.Source == source {
			return true
		}
	}
	return false
}

// LoadArtifact reads and validates a model artifact from a YAML file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "viability: read model %s", path)
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes and validates a YAML model artifact.
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrap(err, "viability: parse model")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks that the artifact's shapes agree.
func (a *Artifact) Validate() error {
	var errs []string

	if len(a.Classes) < 2 {
		errs = append(errs, "at least 2 classes are required")
	}
	seen := map[string]bool{}
	for i, c := range a.Classes {
		if c.Key == "" {
			errs = append(errs, fmt.Sprintf("class %d has no key", i))
		}
		if seen[c.Key] {
			errs = append(errs, fmt.Sprintf("duplicate class key %q", c.Key))
		}
		seen[c.Key] = true
	}

	for _, c := range a.Categorical {
		if !categoricalSources[c.Source] {
			errs = append(errs, fmt.Sprintf("categorical %s: unsupported source %q", c.Name, c.Source))
		}
		if len(c.Vocabulary) == 0 {
			errs = append(errs, fmt.Sprintf("categorical %s: empty vocabulary", c.Name))
		}
	}
	for _, n := range a.Numeric {
		if !numericSources[n.Source] {
			errs = append(errs, fmt.Sprintf("numeric %s: unsupported source %q", n.Name, n.Source))
		}
		if n.Scale != nil && (*n.Scale == 0 || math.IsNaN(*n.Scale)) {
			errs = append(errs, fmt.Sprintf("numeric %s: scale must be non-zero", n.Name))
		}
	}

	rows := len(a.Coefficients)
	switch {
	case rows == 0:
		errs = append(errs, "coefficients are required")
	case len(a.Classes) == 2 && rows != 1 && rows != 2:
		errs = append(errs, fmt.Sprintf("binary model needs 1 or 2 coefficient rows, got %d", rows))
	case len(a.Classes) > 2 && rows != len(a.Classes):
		errs = append(errs, fmt.Sprintf("multinomial model needs %d coefficient rows, got %d", len(a.Classes), rows))
	}
	if len(a.Intercept) != rows {
		errs = append(errs, fmt.Sprintf("intercept has %d values for %d coefficient rows", len(a.Intercept), rows))
	}
	width := a.Width()
	for i, row := range a.Coefficients {
		if len(row) != width {
			errs = append(errs, fmt.Sprintf("coefficient row %d has %d values, encoder width is %d", i, len(row), width))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("viability: invalid model: %s", strings.Join(errs, "; "))
	}
	return nil
}
