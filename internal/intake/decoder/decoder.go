// Package decoder maps coded clinical values to canonical display labels.
//
// Decoding fails open: an out-of-range code or a non-numeric value is returned
// unchanged so a malformed input is surfaced rather than hidden.
package decoder

import (
	"errors"
	"fmt"
	"strconv"

	"medinauts/internal/intake/models"
)

// DisplayValue is the human-readable rendering of one field value.
type DisplayValue string

type rule func(raw string, code float64) DisplayValue

// labelList decodes integer codes by position.
func labelList(labels ...string) rule {
	return func(raw string, code float64) DisplayValue {
		i := int(code)
		if code != float64(i) || i < 0 || i >= len(labels) {
			return DisplayValue(raw)
		}
		return DisplayValue(labels[i])
	}
}

// binary decodes 1 to yes and every other number to no.
func binary(yes, no string) rule {
	return func(_ string, code float64) DisplayValue {
		if code == 1 {
			return DisplayValue(yes)
		}
		return DisplayValue(no)
	}
}

func unit(suffix string) rule {
	return func(raw string, _ float64) DisplayValue {
		return DisplayValue(raw + " " + suffix)
	}
}

func verbatim(raw string, _ float64) DisplayValue {
	return DisplayValue(raw)
}

func vessels(raw string, code float64) DisplayValue {
	n := int(code)
	if code != float64(n) || n < 0 || n > 3 {
		return DisplayValue(raw)
	}
	if n == 1 {
		return "1 Vessel"
	}
	return DisplayValue(fmt.Sprintf("%d Vessels", n))
}

var rules = map[models.Field]rule{
	models.FieldAge:      verbatim,
	models.FieldSex:      binary("Male", "Female"),
	models.FieldCP:       labelList("Typical Angina", "Atypical Angina", "Non-Anginal Pain", "Asymptomatic"),
	models.FieldTrestbps: unit("mm Hg"),
	models.FieldChol:     unit("mg/dL"),
	models.FieldFBS:      binary("> 120 mg/dL", "≤ 120 mg/dL"),
	models.FieldRestECG:  labelList("Normal", "ST-T Wave Abnormality", "LV Hypertrophy"),
	models.FieldThalach:  unit("BPM"),
	models.FieldExang:    binary("Yes", "No"),
	models.FieldOldpeak:  verbatim,
	models.FieldSlope:    labelList("Upsloping", "Flat", "Downsloping"),
	models.FieldCA:       vessels,
	// 0 is not a valid thal code for submission but older scans report it.
	models.FieldThal: labelList("Unknown", "Normal", "Fixed Defect", "Reversible Defect"),
}

var labels = map[models.Field]string{
	models.FieldAge:      "Age",
	models.FieldSex:      "Sex",
	models.FieldCP:       "Chest Pain Type",
	models.FieldTrestbps: "Resting BP",
	models.FieldChol:     "Cholesterol",
	models.FieldFBS:      "Fasting BS",
	models.FieldRestECG:  "Resting ECG",
	models.FieldThalach:  "Max Heart Rate",
	models.FieldExang:    "Exercise Angina",
	models.FieldOldpeak:  "ST Depression",
	models.FieldSlope:    "ST Slope",
	models.FieldCA:       "Major Vessels",
	models.FieldThal:     "Thalassemia",
}

// ErrNoRule is returned by Validate for a schema field without a decode rule or label.
var ErrNoRule = errors.New("decoder: schema field has no decode rule")

// Validate checks that every schema field has a decode rule and a label.
// A failure is a programming defect; the server refuses to start on it.
func Validate() error {
	var errs []error
	for _, f := range models.Schema() {
		if _, ok := rules[f]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoRule, f))
		}
		if _, ok := labels[f]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s has no label", ErrNoRule, f))
		}
	}
	return errors.Join(errs...)
}

// Decode renders raw for display. Values that are not numbers are returned as-is.
func Decode(f models.Field, raw models.Value) DisplayValue {
	text := raw.String()
	code, err := raw.Float()
	if err != nil {
		return DisplayValue(text)
	}
	r, ok := rules[f]
	if !ok {
		return DisplayValue(text)
	}
	return r(text, code)
}

// DecodeNumber renders a normalized numeric value for display.
func DecodeNumber(f models.Field, v float64) DisplayValue {
	return Decode(f, models.Number(v))
}

// Label returns the human-readable parameter name for f, or the key itself
// when no label is registered.
func Label(f models.Field) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Codes returns the canonical (code, label) pairs of an enumerated field, for
// building pick lists. ok is false for measurement fields.
func Codes(f models.Field) (pairs []CodeLabel, ok bool) {
	d, found := models.DomainOf(f)
	if !found || d.Kind != models.DomainEnumerated {
		return nil, false
	}
	for _, c := range d.Codes {
		pairs = append(pairs, CodeLabel{Code: c, Label: string(DecodeNumber(f, float64(c)))})
	}
	return pairs, true
}

// CodeLabel pairs an enumerated code with its display label.
type CodeLabel struct {
	Code  int
	Label string
}

func (c CodeLabel) String() string {
	return strconv.Itoa(c.Code) + ": " + c.Label
}
