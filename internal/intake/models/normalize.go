package models

import (
	"fmt"
	"strings"

	dErrors "medinauts/pkg/domain-errors"
)

// FieldError describes one field that could not be normalized.
type FieldError struct {
	Field  Field
	Reason string
}

// NormalizationError lists every field that blocked normalization, in schema order.
type NormalizationError struct {
	Fields []FieldError
}

func (e *NormalizationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Reason))
	}
	return "record is not submittable: " + strings.Join(parts, "; ")
}

// Normalize coerces every schema field of m to its numeric domain type.
//
// A record reaching this point must already be complete and well-typed; any
// absent, non-numeric or out-of-domain field fails with CodeValidation wrapping
// a *NormalizationError that names the offending fields.
func Normalize(m MergedRecord) (NormalizedRecord, error) {
	var out NormalizedRecord
	var bad []FieldError
	for _, f := range schema {
		v := m.Get(f)
		if v.IsEmpty() {
			bad = append(bad, FieldError{Field: f, Reason: "missing"})
			continue
		}
		num, err := v.Float()
		if err != nil {
			bad = append(bad, FieldError{Field: f, Reason: err.Error()})
			continue
		}
		if !domains[f].Contains(num) {
			bad = append(bad, FieldError{Field: f, Reason: fmt.Sprintf("%s is outside the field domain", v.String())})
			continue
		}
		out.set(f, num)
	}
	if len(bad) > 0 {
		nerr := &NormalizationError{Fields: bad}
		return NormalizedRecord{}, dErrors.Wrap(nerr, dErrors.CodeValidation, nerr.Error())
	}
	return out, nil
}
