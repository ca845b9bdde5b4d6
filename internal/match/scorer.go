package match

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// Classifier is an opaque trained binary classifier. PredictProba returns
// [p0, p1]; implementations without probability output may return an error
// from PredictProba, in which case the scorer degrades to Predict's hard
// label.
type Classifier interface {
	PredictProba(features []float64) ([2]float64, error)
	Predict(features []float64) (int, error)
}

// Scaler preprocesses a feature vector before classification.
type Scaler interface {
	Transform(features []float64) []float64
}

// Scorer maps a pair of song names to a match probability in [0, 1].
type Scorer struct {
	model  Classifier
	scaler Scaler
}

// NewScorer creates a Scorer from a classifier and a scaler.
func NewScorer(model Classifier, scaler Scaler) *Scorer {
	return &Scorer{model: model, scaler: scaler}
}

// Score returns the probability that both names describe the same song.
// Inputs are lower-cased before featurization.
func (s *Scorer) Score(name1, name2 string) float64 {
	features := s.scaler.Transform(Features(strings.ToLower(name1), strings.ToLower(name2)))

	proba, err := s.model.PredictProba(features)
	if err == nil {
		return proba[1]
	}

	label, err := s.model.Predict(features)
	if err != nil || label <= 0 {
		return 0
	}
	return 1
}

// LogisticModel is a logistic-regression [Classifier] with weights exported
// from an offline training run.
type LogisticModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// PredictProba returns [1-p, p] where p is the sigmoid of the linear score.
func (m *LogisticModel) PredictProba(features []float64) ([2]float64, error) {
	if len(features) != len(m.Weights) {
		return [2]float64{}, fmt.Errorf("feature vector has %d dimensions, model expects %d", len(features), len(m.Weights))
	}
	z := m.Bias
	for i, w := range m.Weights {
		z += w * features[i]
	}
	p := 1 / (1 + math.Exp(-z))
	return [2]float64{1 - p, p}, nil
}

// Predict returns the hard label at the 0.5 decision boundary.
func (m *LogisticModel) Predict(features []float64) (int, error) {
	proba, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if proba[1] >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// StandardScaler centers and scales features with per-dimension mean and
// standard deviation from training.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform applies (x - mean) / scale per dimension. Dimensions beyond the
// fitted parameters pass through unchanged.
func (s *StandardScaler) Transform(features []float64) []float64 {
	out := make([]float64, len(features))
	for i, x := range features {
		if i < len(s.Mean) && i < len(s.Scale) && s.Scale[i] != 0 {
			out[i] = (x - s.Mean[i]) / s.Scale[i]
		} else {
			out[i] = x
		}
	}
	return out
}

// modelFile is the on-disk JSON layout bundling model and scaler parameters.
type modelFile struct {
	LogisticModel
	StandardScaler
}

//go:embed model_default.json
var defaultModel []byte

// DefaultScorer returns a Scorer backed by the bundled baseline model, used
// when no trained weights file is configured.
func DefaultScorer() *Scorer {
	var mf modelFile
	if err := json.Unmarshal(defaultModel, &mf); err != nil {
		panic(fmt.Sprintf("failed to parse bundled model: %v", err))
	}
	return NewScorer(&mf.LogisticModel, &mf.StandardScaler)
}

// LoadScorer reads model and scaler parameters from a JSON weights file.
func LoadScorer(path string) (*Scorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if len(mf.Weights) == 0 {
		return nil, fmt.Errorf("model file %s has no weights", path)
	}

	return NewScorer(&mf.LogisticModel, &mf.StandardScaler), nil
}
