package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is an optional float64. The zero Value is unknown.
type Value struct {
	v  float64
	ok bool
}

// Known returns a known Value. Non-finite numbers are treated as unknown so
// that NaN or infinity never leak into a session.
func Known(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Unknown returns an unknown Value.
func Unknown() Value { return Value{} }

// Get returns the number and whether it is known.
func (v Value) Get() (float64, bool) { return v.v, v.ok }

// IsKnown reports whether the value holds a number.
func (v Value) IsKnown() bool { return v.ok }

// OrElse returns the number or def when unknown.
func (v Value) OrElse(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.v
}

// Or returns v when known, otherwise other.
func (v Value) Or(other Value) Value {
	if v.ok {
		return v
	}
	return other
}

func (v Value) String() string {
	if !v.ok {
		return "unknown"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON encodes unknown values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Known(f)
	return nil
}
