package ml

import (
	"errors"
	"fmt"
)

type DecisionTree struct {
	nodes     []TreeNode
	nFeatures int
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

// NewDecisionTree validates nodes and returns a tree rooted at nodes[0].
func NewDecisionTree(nodes []TreeNode, nFeatures int) (*DecisionTree, error) {
	if err := validateNodes(nodes, nFeatures); err != nil {
		return nil, err
	}
	return &DecisionTree{nodes: nodes, nFeatures: nFeatures}, nil
}

func (dt *DecisionTree) Predict(samples [][]float64) ([]int, error) {
	labels := make([]int, len(samples))
	for i, sample := range samples {
		label, err := dt.predictOne(sample)
		if err != nil {
			return nil, err
		}
		labels[i] = label
	}
	return labels, nil
}

func (dt *DecisionTree) Describe() ModelInfo {
	return ModelInfo{
		Kind:      KindDecisionTree,
		NFeatures: dt.nFeatures,
		Trees:     1,
		Nodes:     len(dt.nodes),
		MaxDepth:  dt.depth(0),
	}
}

func (dt *DecisionTree) predictOne(features []float64) (int, error) {
	if len(dt.nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != dt.nFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", dt.nFeatures, len(features))
	}
	idx := 0
	// a validated tree reaches a leaf in at most len(nodes) steps
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
	return 0, errors.New("invalid tree state")
}

func (dt *DecisionTree) depth(idx int) int {
	node := dt.nodes[idx]
	if node.IsLeaf {
		return 0
	}
	left := dt.depth(node.LeftChild)
	right := dt.depth(node.RightChild)
	if left > right {
		return left + 1
	}
	return right + 1
}

func validateNodes(nodes []TreeNode, nFeatures int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("%w: tree has no nodes", ErrInvalidModel)
	}
	if nFeatures <= 0 {
		return fmt.Errorf("%w: n_features must be positive", ErrInvalidModel)
	}
	parents := make([]int, len(nodes))
	for i, node := range nodes {
		if node.IsLeaf {
			if node.ClassLabel != LabelLegitimate && node.ClassLabel != LabelFraud {
				return fmt.Errorf("%w: node %d has label %d", ErrInvalidModel, i, node.ClassLabel)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= nFeatures {
			return fmt.Errorf("%w: node %d feature index %d out of range", ErrInvalidModel, i, node.FeatureIdx)
		}
		// children always point forward, which also rules out cycles
		if node.LeftChild <= i || node.LeftChild >= len(nodes) {
			return fmt.Errorf("%w: node %d left child %d out of range", ErrInvalidModel, i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("%w: node %d right child %d out of range", ErrInvalidModel, i, node.RightChild)
		}
		parents[node.LeftChild]++
		parents[node.RightChild]++
	}
	// every node below the root hangs off exactly one parent
	for i := 1; i < len(nodes); i++ {
		if parents[i] != 1 {
			return fmt.Errorf("%w: node %d has %d parents", ErrInvalidModel, i, parents[i])
		}
	}
	return nil
}
