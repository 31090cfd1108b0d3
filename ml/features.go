package ml

import (
	"golang.org/x/text/cases"
)

// VectorLen is the number of columns the heart disease classifier was trained on.
const VectorLen = 18

// Slot offsets inside FeatureVector.
const (
	idxMale           = 0
	idxFemale         = 1
	idxChestPain      = 2
	idxRestingBP      = 6
	idxCholesterol    = 7
	idxMaxHeartRate   = 8
	idxSTDepression   = 9
	idxVessels        = 10
	idxFastingSugar   = 11
	idxRestECG        = 12
	idxExerciseAngina = 15
	idxSlope          = 16
)

const (
	chestPainMin = 1
	chestPainMax = 4
	restECGMin   = 0
	restECGMax   = 2
	slopeMin     = 0
	slopeMax     = 1
)

// FeatureVector is the fixed 18 column row fed to a Classifier.
type FeatureVector [VectorLen]float64

// Row returns the vector as a fresh slice, suitable for a one row matrix.
func (v FeatureVector) Row() []float64 {
	row := make([]float64, VectorLen)
	copy(row, v[:])
	return row
}

// Group names a categorical input of ClinicalInputs.
type Group string

const (
	GroupSex               Group = "sex"
	GroupChestPain         Group = "chest_pain"
	GroupFastingBloodSugar Group = "fasting_blood_sugar"
	GroupRestECG           Group = "rest_ecg"
	GroupExerciseAngina    Group = "exercise_angina"
	GroupSlope             Group = "slope"
)

// ClinicalInputs holds the twelve values collected by the form.
type ClinicalInputs struct {
	Sex               string  `json:"sex" yaml:"sex"`
	ChestPain         int     `json:"cp" yaml:"cp"`
	RestingBP         float64 `json:"trestbps" yaml:"trestbps"`
	Cholesterol       float64 `json:"chol" yaml:"chol"`
	FastingBloodSugar string  `json:"fbs" yaml:"fbs"`
	RestECG           int     `json:"restecg" yaml:"restecg"`
	MaxHeartRate      float64 `json:"thalach" yaml:"thalach"`
	ExerciseAngina    string  `json:"exang" yaml:"exang"`
	STDepression      float64 `json:"oldpeak" yaml:"oldpeak"`
	Slope             int     `json:"slope" yaml:"slope"`
	Vessels           float64 `json:"ca" yaml:"ca"`
	// Thalassemia is collected but not part of the trained schema.
	Thalassemia       int     `json:"thal" yaml:"thal"`
}

// Encoding is the result of Encode. Defaulted lists the categorical groups whose
// input fell outside the known domain and was silently dropped or defaulted.
type Encoding struct {
	Vector    FeatureVector `json:"vector"`
	Defaulted []Group       `json:"defaulted,omitempty"`
}

// IsDefaulted reports whether g was flagged during encoding.
func (e Encoding) IsDefaulted(g Group) bool {
	for _, d := range e.Defaulted {
		if d == g {
			return true
		}
	}
	return false
}

// sameFold compares under Unicode case folding. A Caser keeps state, so each
// call gets its own.
func sameFold(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

// Encode maps clinical inputs onto the 18 slot layout. It never fails: integer
// categories outside their range leave the whole group at zero, and string
// categories fall back the same way the trained pipeline did (anything not
// "Male" is female, anything not "Yes" is 0). Both cases are reported in
// Encoding.Defaulted.
func Encode(in ClinicalInputs) Encoding {
	var (
		v         FeatureVector
		defaulted []Group
	)

	if sameFold(in.Sex, "Male") {
		v[idxMale] = 1
	} else {
		v[idxFemale] = 1
		if !sameFold(in.Sex, "Female") {
			defaulted = append(defaulted, GroupSex)
		}
	}

	if !oneHot(&v, idxChestPain, in.ChestPain, chestPainMin, chestPainMax) {
		defaulted = append(defaulted, GroupChestPain)
	}

	v[idxRestingBP] = in.RestingBP
	v[idxCholesterol] = in.Cholesterol
	v[idxMaxHeartRate] = in.MaxHeartRate
	v[idxSTDepression] = in.STDepression
	v[idxVessels] = in.Vessels

	flag, ok := yesNo(in.FastingBloodSugar)
	v[idxFastingSugar] = flag
	if !ok {
		defaulted = append(defaulted, GroupFastingBloodSugar)
	}

	if !oneHot(&v, idxRestECG, in.RestECG, restECGMin, restECGMax) {
		defaulted = append(defaulted, GroupRestECG)
	}

	flag, ok = yesNo(in.ExerciseAngina)
	v[idxExerciseAngina] = flag
	if !ok {
		defaulted = append(defaulted, GroupExerciseAngina)
	}

	if !oneHot(&v, idxSlope, in.Slope, slopeMin, slopeMax) {
		defaulted = append(defaulted, GroupSlope)
	}

	return Encoding{Vector: v, Defaulted: defaulted}
}

func oneHot(v *FeatureVector, offset, value, lo, hi int) bool {
	if value < lo || value > hi {
		return false
	}
	v[offset+value-lo] = 1
	return true
}

func yesNo(s string) (float64, bool) {
	switch {
	case sameFold(s, "Yes"):
		return 1, true
	case sameFold(s, "No"):
		return 0, true
	default:
		return 0, false
	}
}

// FeatureNames returns the column names in vector order.
func FeatureNames() []string {
	return []string{
		"sex_male",
		"sex_female",
		"cp_1",
		"cp_2",
		"cp_3",
		"cp_4",
		"trestbps",
		"chol",
		"thalach",
		"oldpeak",
		"ca",
		"fbs",
		"restecg_0",
		"restecg_1",
		"restecg_2",
		"exang",
		"slope_0",
		"slope_1",
	}
}
