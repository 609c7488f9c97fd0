package indicator

import (
	"encoding/json"
	"strconv"
)

// Value is a number that may be undefined, e.g. an indicator whose trailing
// window is not yet full. The zero Value is undefined.
type Value struct {
	Float float64
	Valid bool
}

// Some returns a defined Value.
func Some(f float64) Value {
	return Value{Float: f, Valid: true}
}

// Get returns the number and whether it is defined.
func (v Value) Get() (float64, bool) {
	return v.Float, v.Valid
}

// OrZero returns the number, or 0 when undefined.
func (v Value) OrZero() float64 {
	if !v.Valid {
		return 0
	}
	return v.Float
}

func (v Value) String() string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

// MarshalJSON encodes an undefined Value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

// UnmarshalJSON decodes null as an undefined Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// MarshalYAML encodes an undefined Value as null.
func (v Value) MarshalYAML() (any, error) {
	if !v.Valid {
		return nil, nil
	}
	return v.Float, nil
}
