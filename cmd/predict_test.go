package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"heartform/ml"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// anginaModel labels a row 1 when exercise induced angina is set.
func anginaModel(t *testing.T, dir string) string {
	t.Helper()
	tree := &ml.DecisionTree{
		Features: ml.VectorLen,
		Nodes: []ml.TreeNode{
			{FeatureIdx: 15, Threshold: 0.5, LeftChild: 1, RightChild: 2},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 1, IsLeaf: true},
		},
	}
	path := filepath.Join(dir, "tree.json")
	if err := tree.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPredictCommand(t *testing.T) {
	dir := t.TempDir()
	modelPath := anginaModel(t, dir)
	configPath := writeFile(t, dir, "config.yaml", "ml:\n  model_type: decision_tree\n  model_path: "+modelPath+"\n")
	inputPath := writeFile(t, dir, "inputs.yaml", "sex: Female\ncp: 2\nexang: \"Yes\"\n")

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"predict", "--config", configPath, "--input", inputPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "Prediction (0: No Heart Disease, 1: Heart Disease): 1\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPredictCommandReadsStdin(t *testing.T) {
	dir := t.TempDir()
	modelPath := anginaModel(t, dir)
	configPath := writeFile(t, dir, "config.yaml", "ml:\n  model_type: decision_tree\n  model_path: "+modelPath+"\n")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("cp: 3\nexang: \"No\"\n"))
	root.SetArgs([]string{"predict", "--config", configPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(out.String(), ": 0\n") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestPredictCommandMissingModel(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", "ml:\n  model_type: decision_tree\n  model_path: "+filepath.Join(dir, "missing.json")+"\n")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"predict", "--config", configPath})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing model artifact")
	}
}

func TestReadInputsRejectsInvalid(t *testing.T) {
	if _, err := readInputs("-", strings.NewReader("chol: 9000\n")); err == nil {
		t.Fatal("expected range error")
	}
	if _, err := readInputs("-", strings.NewReader("cholesterol: 200\n")); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestRunPredictWarnsOnDefaultedGroups(t *testing.T) {
	dir := t.TempDir()
	model, err := ml.LoadModel(ml.ModelDecisionTree, anginaModel(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	in := ml.DefaultInputs()
	in.Slope = 4
	var out, errOut bytes.Buffer
	if err := runPredict(context.Background(), ml.NewPredictor(model), in, &out, &errOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(errOut.String(), "slope") {
		t.Fatalf("expected slope warning, got %q", errOut.String())
	}
}
