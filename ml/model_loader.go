package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

const (
	KindDecisionTree = "decision_tree"
	KindRandomForest = "random_forest"
)

type artifact struct {
	Kind      string       `json:"kind"`
	NFeatures int          `json:"n_features"`
	Nodes     []TreeNode   `json:"nodes"`
	Trees     [][]TreeNode `json:"trees"`
}

// LoadModel reads a JSON tree-ensemble artifact. All failures wrap
// ErrModelLoad so callers can disable prediction with one errors.Is check.
func LoadModel(path string) (Classifier, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}
	model, err := DecodeModel(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, path, err)
	}
	return model, nil
}

// DecodeModel accepts a wrapped artifact or a bare node array, the latter
// being a decision tree over FeatureCount features.
func DecodeModel(payload []byte) (Classifier, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty artifact", ErrInvalidModel)
	}

	if payload[0] == '[' {
		var nodes []TreeNode
		if err := json.Unmarshal(payload, &nodes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
		tree, err := NewDecisionTree(nodes, FeatureCount)
		if err != nil {
			return nil, err
		}
		return tree, nil
	}

	var a artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if a.NFeatures == 0 {
		a.NFeatures = FeatureCount
	}
	if a.NFeatures != FeatureCount {
		return nil, fmt.Errorf("%w: model expects %d features, form provides %d", ErrInvalidModel, a.NFeatures, FeatureCount)
	}

	switch a.Kind {
	case KindDecisionTree:
		tree, err := NewDecisionTree(a.Nodes, a.NFeatures)
		if err != nil {
			return nil, err
		}
		return tree, nil
	case KindRandomForest:
		forest, err := NewRandomForest(a.Trees, a.NFeatures)
		if err != nil {
			return nil, err
		}
		return forest, nil
	default:
		return nil, fmt.Errorf("%w: unsupported model kind %q", ErrInvalidModel, a.Kind)
	}
}
