package viability

import (
	"context"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sells-group/site-feasibility/internal/model"
)

// Model is a validated artifact with its encoder. It is never mutated after
// construction.
type Model struct {
	artifact *Artifact
	enc      *encoder
}

// NewModel wraps a validated artifact.
func NewModel(a *Artifact) (*Model, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &Model{artifact: a, enc: newEncoder(a)}, nil
}

// Name returns the artifact name and version.
func (m *Model) Name() string {
	if m.artifact.Version == "" {
		return m.artifact.Name
	}
	return m.artifact.Name + "@" + m.artifact.Version
}

// Predict scores one feature set.
func (m *Model) Predict(f model.PredictionFeatures) model.PredictionResult {
	x := m.enc.encode(f)
	a := m.artifact

	logits := make([]float64, len(a.Coefficients))
	for k, row := range a.Coefficients {
		z := a.Intercept[k]
		for i, w := range row {
			z += w * x[i]
		}
		logits[k] = z
	}

	var probs []float64
	if a.Binary() {
		p := sigmoid(logits[0])
		probs = []float64{1 - p, p}
	} else {
		probs = softmax(logits)
	}

	best := 0
	for k := range probs {
		if probs[k] > probs[best] {
			best = k
		}
	}

	out := model.PredictionResult{
		Label:         labelOf(a.Classes[best]),
		Confidence:    probs[best],
		Probabilities: make(map[string]float64, len(probs)),
	}
	for k, p := range probs {
		out.Probabilities[a.Classes[k].Key] = p
	}
	return out
}

func labelOf(c Class) string {
	if c.Label != "" {
		return c.Label
	}
	return c.Key
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softmax is shifted by the max logit so large logits do not overflow.
func softmax(z []float64) []float64 {
	maxZ := math.Inf(-1)
	for _, v := range z {
		maxZ = math.Max(maxZ, v)
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Predictor serves the currently loaded model. Inference is read-only and
// safe for concurrent use.
type Predictor struct {
	current atomic.Pointer[Model]
}

// NewPredictor returns a predictor serving m. m may be nil.
func NewPredictor(m *Model) *Predictor {
	p := &Predictor{}
	if m != nil {
		p.current.Store(m)
	}
	return p
}

// Load reads the artifact at path. An empty path or a bad artifact gives a
// predictor without a model; Predict then returns ErrModelUnavailable.
func Load(path string) *Predictor {
	if path == "" {
		zap.L().Info("viability: no model configured")
		return NewPredictor(nil)
	}
	a, err := LoadArtifact(path)
	if err != nil {
		zap.L().Warn("viability: model unavailable", zap.String("path", path), zap.Error(err))
		return NewPredictor(nil)
	}
	m, err := NewModel(a)
	if err != nil {
		zap.L().Warn("viability: model unavailable", zap.String("path", path), zap.Error(err))
		return NewPredictor(nil)
	}
	zap.L().Info("viability: model loaded",
		zap.String("path", path),
		zap.String("model", m.Name()),
		zap.Int("classes", len(a.Classes)),
		zap.Int("width", a.Width()),
	)
	return NewPredictor(m)
}

// Swap replaces the served model and returns the previous one.
func (p *Predictor) Swap(m *Model) *Model {
	return p.current.Swap(m)
}

// Loaded reports whether a model is being served.
func (p *Predictor) Loaded() bool {
	return p.current.Load() != nil
}

// ModelName returns the served model's name, or "" when none is loaded.
func (p *Predictor) ModelName() string {
	if m := p.current.Load(); m != nil {
		return m.Name()
	}
	return ""
}

// Predict classifies f with the loaded model.
func (p *Predictor) Predict(ctx context.Context, f model.PredictionFeatures) (model.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return model.PredictionResult{}, err
	}
	m := p.current.Load()
	if m == nil {
		return model.PredictionResult{}, model.ErrModelUnavailable
	}
	return m.Predict(f), nil
}
