package ml

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedModel  = errors.New("unsupported model type")
	ErrShapeMismatch     = errors.New("feature shape mismatch")
	ErrInvalidPrediction = errors.New("invalid prediction")
	ErrModelNotLoaded    = errors.New("model not loaded")
)

// Classifier is a pre-trained binary model. Predict takes a matrix of rows,
// each NumFeatures wide, and returns one class label per row.
type Classifier interface {
	Predict(rows [][]float64) ([]int, error)
	NumFeatures() int
	Type() string
}

func checkShape(rows [][]float64, want int) error {
	if len(rows) == 0 {
		return errors.New("no rows to predict")
	}
	for i, row := range rows {
		if len(row) != want {
			return fmt.Errorf("%w: row %d has %d columns, model expects %d", ErrShapeMismatch, i, len(row), want)
		}
	}
	return nil
}
