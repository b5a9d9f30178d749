package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt is an optional integer body field that may arrive as a JSON number
// or as a numeric string. A value that is neither decodes without error and
// leaves Valid false so callers can report it with their own code.
type FlexInt struct {
	Value   int64
	Present bool
	Valid   bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	*f = FlexInt{}
	raw, ok := flexRaw(b)
	if !ok {
		return nil
	}
	f.Present = true
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		f.Value, f.Valid = v, true
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Present || !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

// Int returns a FlexInt holding v
func Int(v int64) FlexInt {
	return FlexInt{Value: v, Present: true, Valid: true}
}

// FlexFloat is the floating point counterpart of FlexInt
type FlexFloat struct {
	Value   float64
	Present bool
	Valid   bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	*f = FlexFloat{}
	raw, ok := flexRaw(b)
	if !ok {
		return nil
	}
	f.Present = true
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		f.Value, f.Valid = v, true
	}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Present || !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Float returns a FlexFloat holding v
func Float(v float64) FlexFloat {
	return FlexFloat{Value: v, Present: true, Valid: true}
}

// Ptr returns the value as a pointer, nil when absent or invalid
func (f FlexFloat) Ptr() *float64 {
	if !f.Present || !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// flexRaw extracts the textual number from a JSON number or string.
// null and the empty string count as absent.
func flexRaw(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", false
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return string(b), true
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false
		}
		return s, true
	}
	return string(b), true
}
