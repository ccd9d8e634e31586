package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Row is one raw record as returned by the data source.
// Date is dd/mm/yyyy and Time is HH:MM; neither carries a timezone.
type Row struct {
	Date      string `json:"fecha"`
	Time      string `json:"hora"`
	HeartRate Value  `json:"fc"`
	SpO2      Value  `json:"spo2"`
	Movements Value  `json:"patadas"`
}

// ListResponse is the body returned by the data source for action=list.
type ListResponse struct {
	OK    bool   `json:"ok"`
	Rows  []Row  `json:"rows"`
	Error string `json:"error,omitempty"`
}

// Value is a measurement that may be absent or non-numeric on the wire.
// Raw keeps the text exactly as received so exports reproduce it.
type Value struct {
	Raw   string
	Num   float64
	Valid bool
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{Raw: strconv.FormatFloat(f, 'f', -1, 64), Num: f, Valid: true}
}

// ParseValue interprets s the way a spreadsheet cell would: surrounding
// whitespace is ignored and anything that is not a finite number is kept
// as text only.
func ParseValue(s string) Value {
	v := Value{Raw: s}
	t := strings.TrimSpace(s)
	if t == "" {
		return v
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	v.Num = f
	v.Valid = true
	return v
}

// String returns the raw text of the value.
func (v Value) String() string { return v.Raw }

// UnmarshalJSON accepts numbers, strings and null.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = Value{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = ParseValue(s)
		return nil
	default:
		// Numbers and anything else (booleans) keep their literal text.
		*v = ParseValue(string(b))
		return nil
	}
}

// MarshalJSON writes numeric values as numbers, empty values as null and
// everything else as the raw string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.Valid:
		return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
	case v.Raw == "":
		return []byte("null"), nil
	default:
		return json.Marshal(v.Raw)
	}
}
