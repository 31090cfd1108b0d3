package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// cpTree predicts 1 when cp=4 (slot 5) is set.
func cpTree() *DecisionTree {
	return &DecisionTree{
		Features: VectorLen,
		Nodes: []TreeNode{
			{FeatureIdx: 5, Threshold: 0.5, LeftChild: 1, RightChild: 2},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 1, IsLeaf: true},
		},
	}
}

func TestLoadDecisionTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := cpTree().Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	model, err := LoadModel(ModelDecisionTree, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.NumFeatures() != VectorLen || model.Type() != ModelDecisionTree {
		t.Fatalf("unexpected model: %d %s", model.NumFeatures(), model.Type())
	}

	in := DefaultInputs()
	healthy := Encode(in).Vector
	in.ChestPain = 4
	sick := Encode(in).Vector
	labels, err := model.Predict([][]float64{healthy.Row(), sick.Row()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != 0 || labels[1] != 1 {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestLoadLogisticRegression(t *testing.T) {
	weights := make([]float64, VectorLen)
	weights[15] = 4 // exang
	lr := &LogisticRegression{Features: VectorLen, Weights: weights, Bias: -2}
	path := filepath.Join(t.TempDir(), "lr.json")
	if err := lr.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	model, err := LoadModel(ModelLogisticRegression, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := DefaultInputs()
	in.ExerciseAngina = "Yes"
	labels, err := model.Predict([][]float64{Encode(in).Vector.Row()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != 1 {
		t.Fatalf("expected label 1, got %d", labels[0])
	}
}

func TestLoadModelErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadModel(ModelDecisionTree, filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing artifact")
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(ModelDecisionTree, corrupt); err == nil {
		t.Fatal("expected error for corrupt artifact")
	}

	badTree := filepath.Join(dir, "bad_tree.json")
	if err := os.WriteFile(badTree, []byte(`{"n_features":18,"nodes":[{"feature_idx":30,"left_child":0,"right_child":0}]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(ModelDecisionTree, badTree); err == nil {
		t.Fatal("expected error for out of range feature index")
	}

	badLR := filepath.Join(dir, "bad_lr.json")
	if err := os.WriteFile(badLR, []byte(`{"n_features":18,"weights":[1,2,3]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(ModelLogisticRegression, badLR); err == nil {
		t.Fatal("expected error for weight count mismatch")
	}

	if _, err := LoadModel("random_forest", corrupt); !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}

func TestDecisionTreeShapeMismatch(t *testing.T) {
	_, err := cpTree().Predict([][]float64{make([]float64, 19)})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestDecisionTreeCycle(t *testing.T) {
	tree := &DecisionTree{
		Features: 1,
		Nodes:    []TreeNode{{FeatureIdx: 0, Threshold: 1, LeftChild: 0, RightChild: 0}},
	}
	if _, err := tree.Predict([][]float64{{0}}); err == nil {
		t.Fatal("expected error for cyclic tree")
	}
}

func TestLoadBundledModel(t *testing.T) {
	model, err := LoadModel(ModelDecisionTree, filepath.Join("..", "models", "heart.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.NumFeatures() != VectorLen {
		t.Fatalf("expected %d features, got %d", VectorLen, model.NumFeatures())
	}

	calm := DefaultInputs()
	calm.ExerciseAngina = "No"
	sick := DefaultInputs()
	sick.ChestPain, sick.Vessels = 4, 2
	labels, err := model.Predict([][]float64{Encode(calm).Vector.Row(), Encode(sick).Vector.Row()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != 0 || labels[1] != 1 {
		t.Fatalf("unexpected labels: %v", labels)
	}
}
