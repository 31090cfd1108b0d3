package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	ModelDecisionTree       = "decision_tree"
	ModelLogisticRegression = "logistic_regression"
)

// LoadModel reads a classifier artifact of the given type from path.
func LoadModel(modelType, path string) (Classifier, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	switch modelType {
	case ModelDecisionTree:
		model := &DecisionTree{}
		if err := json.Unmarshal(payload, model); err != nil {
			return nil, fmt.Errorf("decode decision tree: %w", err)
		}
		if err := model.validate(); err != nil {
			return nil, err
		}
		return model, nil
	case ModelLogisticRegression:
		model := &LogisticRegression{}
		if err := json.Unmarshal(payload, model); err != nil {
			return nil, fmt.Errorf("decode logistic regression: %w", err)
		}
		if err := model.validate(); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
}
