package ml

import "errors"

var (
	// ErrModelLoad wraps every failure to read or decode a model artifact.
	ErrModelLoad = errors.New("model could not be loaded")
	// ErrInvalidModel reports a structurally broken artifact.
	ErrInvalidModel = errors.New("invalid model")
)

// Classifier is a loaded, read-only binary model. Predict scores every
// sample and returns one label per sample.
type Classifier interface {
	Predict(samples [][]float64) ([]int, error)
}

// Describer is implemented by classifiers that can summarise their shape.
type Describer interface {
	Describe() ModelInfo
}

type ModelInfo struct {
	Kind       string `json:"kind"`
	NFeatures  int    `json:"n_features"`
	Trees      int    `json:"trees"`
	Nodes      int    `json:"nodes"`
	MaxDepth   int    `json:"max_depth"`
	SourcePath string `json:"source_path,omitempty"`
}

const (
	LabelLegitimate = 0
	LabelFraud      = 1
)
