package tabular

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CellKind identifies which arm of the CellValue union a value occupies.
// Kinds are computed from the stored text at inspection time; no numeric
// representation is ever stored.
type CellKind int

const (
	// KindNull indicates an absent or explicitly-cleared cell value
	KindNull CellKind = iota
	// KindText indicates a textual cell value with no numeric interpretation
	KindText
	// KindNumber indicates a textual cell value which parses as a number
	KindNumber
)

// CellValue is a single cell's value: null, text, or number-looking text.
// The zero value is null, so looking up a missing cell in a Row yields null
// without any special casing.
type CellValue struct {
	valid bool
	raw   string
}

// Null returns the null CellValue
func Null() CellValue {
	return CellValue{}
}

// Text builds a CellValue from raw text
func Text(raw string) CellValue {
	return CellValue{valid: true, raw: raw}
}

// IsNull returns true iff this value is the null value
func (v CellValue) IsNull() bool {
	return !v.valid
}

// IsEmpty returns true iff this value is null or the empty string
func (v CellValue) IsEmpty() bool {
	return !v.valid || v.raw == ""
}

// Raw returns the stored text, or the empty string for null
func (v CellValue) Raw() string {
	return v.raw
}

// Kind computes which arm of the union this value occupies
func (v CellValue) Kind() CellKind {
	if !v.valid {
		return KindNull
	}
	if _, ok := v.Number(); ok {
		return KindNumber
	}
	return KindText
}

// Number attempts a best-effort numeric parse of the stored text.
// Null and non-numeric text report false.
func (v CellValue) Number() (float64, bool) {
	if !v.valid {
		return 0, false
	}
	trimmed := strings.TrimSpace(v.raw)
	if trimmed == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Equals returns true iff two values occupy the same arm and hold the same text
func (v CellValue) Equals(other CellValue) bool {
	return v.valid == other.valid && v.raw == other.raw
}

// MarshalJSON encodes null as JSON null and text as a JSON string
func (v CellValue) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON decodes JSON null as the null value and a JSON string as text
func (v *CellValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = CellValue{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = CellValue{valid: true, raw: raw}
	return nil
}
