package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindAbsent valueKind = iota
	kindNumber
	kindText
)

// Value is a raw clinical value as produced by a scan or typed by a user:
// a number, a string, or absent. JSON null and the empty string are absent.
type Value struct {
	kind valueKind
	num  float64
	text string
}

// Absent is the zero Value.
var Absent = Value{}

// Number wraps a numeric raw value.
func Number(v float64) Value {
	return Value{kind: kindNumber, num: v}
}

// Text wraps a textual raw value. An empty string yields Absent.
func Text(s string) Value {
	if s == "" {
		return Absent
	}
	return Value{kind: kindText, text: s}
}

// IsEmpty reports whether the value is absent, null or the empty string.
func (v Value) IsEmpty() bool {
	return v.kind == kindAbsent || (v.kind == kindText && v.text == "")
}

// IsNumber reports whether the value was supplied as a number.
func (v Value) IsNumber() bool {
	return v.kind == kindNumber
}

// Float coerces the raw value to a number. Text is parsed after trimming
// surrounding whitespace; absent values, unparsable text, NaN and infinities
// fail.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case kindNumber:
		return v.num, nil
	case kindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not a number: %q", v.text)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value is absent")
	}
}

// String renders the raw value the way it was supplied.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON emits null, a JSON number or a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, numbers and strings. Booleans, objects and
// arrays are rejected so malformed scan payloads surface as errors.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Absent
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = Number(f)
		return nil
	default:
		return fmt.Errorf("unsupported clinical value %s", string(data))
	}
}
