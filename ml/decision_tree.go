package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DecisionTree is a binary tree flattened into a node slice. Node 0 is the root
// and children are referenced by index.
type DecisionTree struct {
	Features int        `json:"n_features"`
	Nodes    []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

func (dt *DecisionTree) Type() string { return ModelDecisionTree }

func (dt *DecisionTree) NumFeatures() int { return dt.Features }

func (dt *DecisionTree) Predict(rows [][]float64) ([]int, error) {
	if len(dt.Nodes) == 0 {
		return nil, ErrModelNotLoaded
	}
	if err := checkShape(rows, dt.Features); err != nil {
		return nil, err
	}
	labels := make([]int, len(rows))
	for i, row := range rows {
		label, err := dt.walk(row)
		if err != nil {
			return nil, err
		}
		labels[i] = label
	}
	return labels, nil
}

func (dt *DecisionTree) walk(features []float64) (int, error) {
	idx := 0
	// a valid tree never visits more nodes than it has
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree contains a cycle")
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.Nodes) == 0 {
		return ErrModelNotLoaded
	}
	payload, err := json.Marshal(dt)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) validate() error {
	if dt.Features <= 0 {
		return errors.New("decision tree: n_features must be positive")
	}
	if len(dt.Nodes) == 0 {
		return errors.New("decision tree: no nodes")
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= dt.Features {
			return fmt.Errorf("decision tree: node %d feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild < 0 || node.LeftChild >= len(dt.Nodes) || node.RightChild < 0 || node.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("decision tree: node %d has invalid children", i)
		}
	}
	return nil
}
