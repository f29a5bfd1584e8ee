package ml

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, v interface{}) string {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func leaf(label int) TreeNode {
	return TreeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: label, IsLeaf: true}
}

func TestLoadModelRandomForest(t *testing.T) {
	path := writeArtifact(t, map[string]interface{}{
		"kind":       KindRandomForest,
		"n_features": 4,
		"trees": [][]TreeNode{
			balanceDrainTree(),
			balanceDrainTree(),
			{leaf(0)},
		},
	})

	model, err := LoadModel(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labels, err := model.Predict([][]float64{{1, 500, 500, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != 1 || labels[0] != LabelFraud {
		t.Fatalf("expected [1], got %v", labels)
	}

	info := model.(Describer).Describe()
	if info.Trees != 3 || info.Nodes != 11 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestRandomForestTieGoesLegitimate(t *testing.T) {
	forest, err := NewRandomForest([][]TreeNode{{leaf(1)}, {leaf(0)}}, FeatureCount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labels, err := forest.Predict([][]float64{{1, 0, 0, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != LabelLegitimate {
		t.Fatalf("expected tie to resolve to 0, got %d", labels[0])
	}
}

func TestLoadModelBareNodeArray(t *testing.T) {
	path := writeArtifact(t, balanceDrainTree())
	model, err := LoadModel(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := model.(*DecisionTree); !ok {
		t.Fatalf("expected *DecisionTree, got %T", model)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
}

func TestLoadModelCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("\x80\x04pickle"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadModel(path)
	if !errors.Is(err, ErrModelLoad) || !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrModelLoad wrapping ErrInvalidModel, got %v", err)
	}
}

func TestDecodeModelRejectsWrongShape(t *testing.T) {
	cases := map[string]string{
		"unknown kind":   `{"kind":"svm","n_features":4}`,
		"feature count":  `{"kind":"decision_tree","n_features":7,"nodes":[{"is_leaf":true}]}`,
		"empty forest":   `{"kind":"random_forest","n_features":4,"trees":[]}`,
		"empty artifact": `   `,
	}
	for name, payload := range cases {
		if _, err := DecodeModel([]byte(payload)); !errors.Is(err, ErrInvalidModel) {
			t.Fatalf("%s: expected ErrInvalidModel, got %v", name, err)
		}
	}
}
