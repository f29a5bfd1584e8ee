package ml

import (
	"fmt"
)

// RandomForest votes over its trees. Ties go to the lower label.
type RandomForest struct {
	trees     []*DecisionTree
	nFeatures int
}

func NewRandomForest(trees [][]TreeNode, nFeatures int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrInvalidModel)
	}
	forest := &RandomForest{
		trees:     make([]*DecisionTree, 0, len(trees)),
		nFeatures: nFeatures,
	}
	for i, nodes := range trees {
		tree, err := NewDecisionTree(nodes, nFeatures)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		forest.trees = append(forest.trees, tree)
	}
	return forest, nil
}

func (rf *RandomForest) Predict(samples [][]float64) ([]int, error) {
	labels := make([]int, len(samples))
	for i, sample := range samples {
		var fraudVotes int
		for _, tree := range rf.trees {
			label, err := tree.predictOne(sample)
			if err != nil {
				return nil, err
			}
			if label == LabelFraud {
				fraudVotes++
			}
		}
		if 2*fraudVotes > len(rf.trees) {
			labels[i] = LabelFraud
		} else {
			labels[i] = LabelLegitimate
		}
	}
	return labels, nil
}

func (rf *RandomForest) Describe() ModelInfo {
	info := ModelInfo{
		Kind:      KindRandomForest,
		NFeatures: rf.nFeatures,
		Trees:     len(rf.trees),
	}
	for _, tree := range rf.trees {
		d := tree.Describe()
		info.Nodes += d.Nodes
		if d.MaxDepth > info.MaxDepth {
			info.MaxDepth = d.MaxDepth
		}
	}
	return info
}
