package models

import (
	"math"
	"slices"
)

// Field is one key of the clinical field schema.
type Field string

const (
	FieldAge      Field = "age"
	FieldSex      Field = "sex"
	FieldCP       Field = "cp"
	FieldTrestbps Field = "trestbps"
	FieldChol     Field = "chol"
	FieldFBS      Field = "fbs"
	FieldRestECG  Field = "restecg"
	FieldThalach  Field = "thalach"
	FieldExang    Field = "exang"
	FieldOldpeak  Field = "oldpeak"
	FieldSlope    Field = "slope"
	FieldCA       Field = "ca"
	FieldThal     Field = "thal"
)

// DomainKind separates bounded enumerations from open measurements.
type DomainKind int

const (
	DomainEnumerated DomainKind = iota
	DomainMeasurement
)

// Domain declares the admissible values of a field.
type Domain struct {
	Kind DomainKind
	// Codes lists the admissible codes of an enumerated field, in ascending order.
	Codes []int
	// Decimal marks a measurement that keeps its fractional part.
	Decimal bool
}

// Contains reports whether v belongs to the domain. Measurements accept any
// finite non-negative value; integer measurements additionally reject fractions.
func (d Domain) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	switch d.Kind {
	case DomainEnumerated:
		if v != float64(int(v)) {
			return false
		}
		return slices.Contains(d.Codes, int(v))
	default:
		if v < 0 {
			return false
		}
		return d.Decimal || v == float64(int(v))
	}
}

func enumerated(codes ...int) Domain {
	return Domain{Kind: DomainEnumerated, Codes: codes}
}

func measurement(decimal bool) Domain {
	return Domain{Kind: DomainMeasurement, Decimal: decimal}
}

// schema is the ordered clinical field schema. It is never mutated; callers
// receive copies through Schema.
var schema = []Field{
	FieldAge, FieldSex, FieldCP, FieldTrestbps, FieldChol, FieldFBS, FieldRestECG,
	FieldThalach, FieldExang, FieldOldpeak, FieldSlope, FieldCA, FieldThal,
}

var domains = map[Field]Domain{
	FieldAge:      measurement(false),
	FieldSex:      enumerated(0, 1),
	FieldCP:       enumerated(0, 1, 2, 3),
	FieldTrestbps: measurement(false),
	FieldChol:     measurement(false),
	FieldFBS:      enumerated(0, 1),
	FieldRestECG:  enumerated(0, 1, 2),
	FieldThalach:  measurement(false),
	FieldExang:    enumerated(0, 1),
	FieldOldpeak:  measurement(true),
	FieldSlope:    enumerated(0, 1, 2),
	FieldCA:       enumerated(0, 1, 2, 3),
	FieldThal:     enumerated(1, 2, 3),
}

// Schema returns the 13 clinical fields in their canonical order.
func Schema() []Field {
	return slices.Clone(schema)
}

// DomainOf returns the declared domain of f. ok is false for keys outside the schema.
func DomainOf(f Field) (Domain, bool) {
	d, ok := domains[f]
	if !ok {
		return Domain{}, false
	}
	d.Codes = slices.Clone(d.Codes)
	return d, true
}

// IsValid checks that the field is part of the schema.
func (f Field) IsValid() bool {
	_, ok := domains[f]
	return ok
}

// ParseField converts a raw key into a schema field.
func ParseField(s string) (Field, bool) {
	f := Field(s)
	return f, f.IsValid()
}
