package wave

import "encoding/json"

// Value is the tri-state result of sampling a signal or reconstructing a bus:
// either a known unsigned integer or indeterminate. Indeterminate values
// propagate through every downstream computation and are never coerced to
// zero.
type Value struct {
	Bits  uint32
	Known bool
}

// Known wraps a determinate value.
func Known(bits uint32) Value {
	return Value{Bits: bits, Known: true}
}

// Unknown is the indeterminate value.
var Unknown = Value{}

// Equals reports whether v is known and equal to bits.
func (v Value) Equals(bits uint32) bool {
	return v.Known && v.Bits == bits
}

// Ptr returns the value as a nullable pointer.
func (v Value) Ptr() *uint32 {
	if !v.Known {
		return nil
	}
	bits := v.Bits
	return &bits
}

// MarshalJSON encodes an indeterminate value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Ptr())
}

// UnmarshalJSON accepts null or an unsigned integer.
func (v *Value) UnmarshalJSON(data []byte) error {
	var bits *uint32
	if err := json.Unmarshal(data, &bits); err != nil {
		return err
	}
	if bits == nil {
		*v = Unknown
	} else {
		*v = Known(*bits)
	}
	return nil
}
