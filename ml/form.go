package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrInvalidField = errors.New("invalid field value")
	ErrOutOfRange   = errors.New("value out of range")
)

type FieldKind string

const (
	FieldSelect FieldKind = "select"
	FieldRange  FieldKind = "range"
)

// FormField describes one input of the clinical form.
type FormField struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
	Min     float64   `json:"-"`
	Max     float64   `json:"-"`
	Step    float64   `json:"-"`
	Default string    `json:"default"`
	Unused  bool      `json:"unused,omitempty"`
}

// MarshalJSON writes min, max and step for range fields only, so a lower bound
// of 0 is still reported.
func (f FormField) MarshalJSON() ([]byte, error) {
	type plain FormField
	out := struct {
		plain
		Min  *float64 `json:"min,omitempty"`
		Max  *float64 `json:"max,omitempty"`
		Step *float64 `json:"step,omitempty"`
	}{plain: plain(f)}
	if f.Kind == FieldRange {
		out.Min, out.Max, out.Step = &f.Min, &f.Max, &f.Step
	}
	return json.Marshal(out)
}

// FormFields lists the form inputs in display order.
func FormFields() []FormField {
	return []FormField{
		{Key: "sex", Label: "Sex", Kind: FieldSelect, Options: []string{"Male", "Female"}, Default: "Male"},
		{Key: "cp", Label: "Chest Pain Type", Kind: FieldSelect, Options: []string{"1", "2", "3", "4"}, Default: "1"},
		{Key: "trestbps", Label: "Resting Blood Pressure", Kind: FieldRange, Min: 94, Max: 200, Step: 1, Default: "120"},
		{Key: "chol", Label: "Cholesterol", Kind: FieldRange, Min: 126, Max: 564, Step: 1, Default: "240"},
		{Key: "fbs", Label: "Fasting Blood Sugar > 120 mg/dl", Kind: FieldSelect, Options: []string{"Yes", "No"}, Default: "Yes"},
		{Key: "restecg", Label: "Resting Electrocardiographic Results", Kind: FieldSelect, Options: []string{"0", "1", "2"}, Default: "0"},
		{Key: "thalach", Label: "Max Heart Rate Achieved", Kind: FieldRange, Min: 71, Max: 202, Step: 1, Default: "150"},
		{Key: "exang", Label: "Exercise Induced Angina", Kind: FieldSelect, Options: []string{"Yes", "No"}, Default: "Yes"},
		{Key: "oldpeak", Label: "ST depression induced by exercise relative to rest", Kind: FieldRange, Min: 0, Max: 6.2, Step: 0.1, Default: "1.0"},
		{Key: "slope", Label: "The slope of the peak exercise ST segment", Kind: FieldSelect, Options: []string{"0", "1"}, Default: "0"},
		{Key: "ca", Label: "Number of major vessels colored by flourosopy", Kind: FieldRange, Min: 0, Max: 4, Step: 1, Default: "0"},
		{Key: "thal", Label: "Thalassemia", Kind: FieldSelect, Options: []string{"0", "1", "2", "3"}, Default: "0", Unused: true},
	}
}

// DefaultInputs returns the values the form starts with. Yes/No selects start
// on their first option.
func DefaultInputs() ClinicalInputs {
	return ClinicalInputs{
		Sex:               "Male",
		ChestPain:         1,
		RestingBP:         120,
		Cholesterol:       240,
		FastingBloodSugar: "Yes",
		RestECG:           0,
		MaxHeartRate:      150,
		ExerciseAngina:    "Yes",
		STDepression:      1.0,
		Slope:             0,
		Vessels:           0,
		Thalassemia:       0,
	}
}

func rangeField(key string) (FormField, bool) {
	for _, f := range FormFields() {
		if f.Key == key && f.Kind == FieldRange {
			return f, true
		}
	}
	return FormField{}, false
}

// CheckRanges rejects numeric inputs outside the slider bounds. Categorical
// values are left to Encode, which never rejects them.
func CheckRanges(in ClinicalInputs) error {
	values := map[string]float64{
		"trestbps": in.RestingBP,
		"chol":     in.Cholesterol,
		"thalach":  in.MaxHeartRate,
		"oldpeak":  in.STDepression,
		"ca":       in.Vessels,
	}
	for _, key := range []string{"trestbps", "chol", "thalach", "oldpeak", "ca"} {
		field, _ := rangeField(key)
		value := values[key]
		if math.IsNaN(value) || value < field.Min || value > field.Max {
			return fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrOutOfRange, key, value, field.Min, field.Max)
		}
	}
	if in.Vessels != float64(int(in.Vessels)) {
		return fmt.Errorf("%w: ca=%g must be a whole number", ErrInvalidField, in.Vessels)
	}
	return nil
}

// ParseForm builds ClinicalInputs from submitted form values. Missing keys keep
// their default.
func ParseForm(values url.Values) (ClinicalInputs, error) {
	in := DefaultInputs()

	if v, ok := lookup(values, "sex"); ok {
		in.Sex = v
	}
	if v, ok := lookup(values, "fbs"); ok {
		in.FastingBloodSugar = v
	}
	if v, ok := lookup(values, "exang"); ok {
		in.ExerciseAngina = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"cp", &in.ChestPain},
		{"restecg", &in.RestECG},
		{"slope", &in.Slope},
		{"thal", &in.Thalassemia},
	}
	for _, f := range ints {
		v, ok := lookup(values, f.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return ClinicalInputs{}, fmt.Errorf("%w: %s=%q", ErrInvalidField, f.key, v)
		}
		*f.dst = n
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"trestbps", &in.RestingBP},
		{"chol", &in.Cholesterol},
		{"thalach", &in.MaxHeartRate},
		{"oldpeak", &in.STDepression},
		{"ca", &in.Vessels},
	}
	for _, f := range floats {
		v, ok := lookup(values, f.key)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ClinicalInputs{}, fmt.Errorf("%w: %s=%q", ErrInvalidField, f.key, v)
		}
		*f.dst = n
	}

	if err := CheckRanges(in); err != nil {
		return ClinicalInputs{}, err
	}
	return in, nil
}

func lookup(values url.Values, key string) (string, bool) {
	v := strings.TrimSpace(values.Get(key))
	return v, v != ""
}
