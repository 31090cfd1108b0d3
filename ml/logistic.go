package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// LogisticRegression scores a row as sigmoid(w·x + b) and labels it 1 when the
// score reaches Threshold.
type LogisticRegression struct {
	Features  int       `json:"n_features"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"`
}

func (lr *LogisticRegression) Type() string { return ModelLogisticRegression }

func (lr *LogisticRegression) NumFeatures() int { return lr.Features }

func (lr *LogisticRegression) Predict(rows [][]float64) ([]int, error) {
	if len(lr.Weights) == 0 {
		return nil, ErrModelNotLoaded
	}
	if err := checkShape(rows, lr.Features); err != nil {
		return nil, err
	}
	labels := make([]int, len(rows))
	for i, row := range rows {
		if lr.Probability(row) >= lr.threshold() {
			labels[i] = 1
		}
	}
	return labels, nil
}

// Probability returns the positive class probability for one row. The row must
// already match NumFeatures.
func (lr *LogisticRegression) Probability(row []float64) float64 {
	z := lr.Bias
	for i, w := range lr.Weights {
		z += w * row[i]
	}
	return 1 / (1 + math.Exp(-z))
}

func (lr *LogisticRegression) threshold() float64 {
	if lr.Threshold <= 0 || lr.Threshold >= 1 {
		return 0.5
	}
	return lr.Threshold
}

func (lr *LogisticRegression) Save(path string) error {
	if len(lr.Weights) == 0 {
		return ErrModelNotLoaded
	}
	payload, err := json.Marshal(lr)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (lr *LogisticRegression) validate() error {
	if lr.Features <= 0 {
		return errors.New("logistic regression: n_features must be positive")
	}
	if len(lr.Weights) != lr.Features {
		return fmt.Errorf("logistic regression: %d weights for %d features", len(lr.Weights), lr.Features)
	}
	return nil
}
