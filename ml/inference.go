package ml

import (
	"context"
	"fmt"
	"strconv"
)

// Predictor wraps the classifier loaded at startup. It holds no mutable state
// and is safe to share between requests.
type Predictor struct {
	model Classifier
}

func NewPredictor(model Classifier) *Predictor {
	return &Predictor{model: model}
}

// ModelType reports the artifact type behind the predictor.
func (p *Predictor) ModelType() string {
	if p == nil || p.model == nil {
		return ""
	}
	return p.model.Type()
}

// Predict sends v to the classifier as a single row and returns its label.
// Failures are returned as-is; there is no retry or fallback label.
func (p *Predictor) Predict(ctx context.Context, v FeatureVector) (int, error) {
	if p == nil || p.model == nil {
		return 0, ErrModelNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	labels, err := p.model.Predict([][]float64{v.Row()})
	if err != nil {
		return 0, fmt.Errorf("classifier predict: %w", err)
	}
	if len(labels) != 1 {
		return 0, fmt.Errorf("%w: expected 1 label, got %d", ErrInvalidPrediction, len(labels))
	}
	if labels[0] != 0 && labels[0] != 1 {
		return 0, fmt.Errorf("%w: label %d is not binary", ErrInvalidPrediction, labels[0])
	}
	return labels[0], nil
}

// FormatLabel renders a label the way it is displayed to the user.
func FormatLabel(label int) string {
	return strconv.Itoa(label)
}
