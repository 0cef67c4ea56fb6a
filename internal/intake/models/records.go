package models

import (
	"encoding/json"
	"maps"
)

// PartialRecord holds the fields one scanned document yielded. Keys outside
// the schema never enter a PartialRecord; see DecodePartialRecord.
type PartialRecord map[Field]Value

// DecodePartialRecord decodes the scan collaborator's data object. Unknown keys
// are returned separately so callers can log them; they are never merged.
func DecodePartialRecord(data json.RawMessage) (PartialRecord, []string, error) {
	var raw map[string]Value
	if len(data) == 0 {
		return PartialRecord{}, nil, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	rec := make(PartialRecord, len(raw))
	var unknown []string
	for k, v := range raw {
		f, ok := ParseField(k)
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		rec[f] = v
	}
	return rec, unknown, nil
}

// MergedRecord is the best-known raw value per schema field across all
// documents of a session. A missing key means absent.
type MergedRecord map[Field]Value

// NewMergedRecord returns an empty record.
func NewMergedRecord() MergedRecord {
	return MergedRecord{}
}

// Get returns the value for f, Absent when unset.
func (m MergedRecord) Get(f Field) Value {
	if m == nil {
		return Absent
	}
	return m[f]
}

// Clone returns an independent copy.
func (m MergedRecord) Clone() MergedRecord {
	out := make(MergedRecord, len(m))
	maps.Copy(out, m)
	return out
}

// MarshalJSON emits every schema key, with null for absent values.
func (m MergedRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]Value, len(schema))
	for _, f := range schema {
		out[string(f)] = m.Get(f)
	}
	return json.Marshal(out)
}

// UnmarshalJSON drops unknown keys and absent values.
func (m *MergedRecord) UnmarshalJSON(data []byte) error {
	rec, _, err := DecodePartialRecord(data)
	if err != nil {
		return err
	}
	out := make(MergedRecord, len(rec))
	for f, v := range rec {
		if !v.IsEmpty() {
			out[f] = v
		}
	}
	*m = out
	return nil
}

// NormalizedRecord is a complete record coerced to numeric domain types. Its
// JSON form is the flat 13-field object the prediction collaborator expects.
type NormalizedRecord struct {
	Age      int     `json:"age"`
	Sex      int     `json:"sex"`
	CP       int     `json:"cp"`
	Trestbps int     `json:"trestbps"`
	Chol     int     `json:"chol"`
	FBS      int     `json:"fbs"`
	RestECG  int     `json:"restecg"`
	Thalach  int     `json:"thalach"`
	Exang    int     `json:"exang"`
	Oldpeak  float64 `json:"oldpeak"`
	Slope    int     `json:"slope"`
	CA       int     `json:"ca"`
	Thal     int     `json:"thal"`
}

// Value returns the numeric value stored for f.
func (r NormalizedRecord) Value(f Field) float64 {
	switch f {
	case FieldAge:
		return float64(r.Age)
	case FieldSex:
		return float64(r.Sex)
	case FieldCP:
		return float64(r.CP)
	case FieldTrestbps:
		return float64(r.Trestbps)
	case FieldChol:
		return float64(r.Chol)
	case FieldFBS:
		return float64(r.FBS)
	case FieldRestECG:
		return float64(r.RestECG)
	case FieldThalach:
		return float64(r.Thalach)
	case FieldExang:
		return float64(r.Exang)
	case FieldOldpeak:
		return r.Oldpeak
	case FieldSlope:
		return float64(r.Slope)
	case FieldCA:
		return float64(r.CA)
	case FieldThal:
		return float64(r.Thal)
	}
	return 0
}

// set stores v for f; integer fields truncate, which Normalize only calls
// after the domain check rejected fractions.
func (r *NormalizedRecord) set(f Field, v float64) {
	switch f {
	case FieldAge:
		r.Age = int(v)
	case FieldSex:
		r.Sex = int(v)
	case FieldCP:
		r.CP = int(v)
	case FieldTrestbps:
		r.Trestbps = int(v)
	case FieldChol:
		r.Chol = int(v)
	case FieldFBS:
		r.FBS = int(v)
	case FieldRestECG:
		r.RestECG = int(v)
	case FieldThalach:
		r.Thalach = int(v)
	case FieldExang:
		r.Exang = int(v)
	case FieldOldpeak:
		r.Oldpeak = v
	case FieldSlope:
		r.Slope = int(v)
	case FieldCA:
		r.CA = int(v)
	case FieldThal:
		r.Thal = int(v)
	}
}
