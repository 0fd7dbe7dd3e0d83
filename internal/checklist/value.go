package checklist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is an answer value on the wire: a number, a string, or null. The
// runtime shape a question may legally carry is decided by its answer type,
// not by Value itself; Value only guarantees the JSON round-trip preserves
// which of the three shapes was stored.
type Value struct {
	num *float64
	str *string
}

// NumberValue wraps a numeric answer.
func NumberValue(n float64) Value {
	return Value{num: &n}
}

// StringValue wraps a string answer.
func StringValue(s string) Value {
	return Value{str: &s}
}

// IsNull reports whether no value was given (JSON null).
func (v Value) IsNull() bool {
	return v.num == nil && v.str == nil
}

// IsEmpty reports whether the value is the "nothing entered" shape for any
// answer type: null, or the empty string.
func (v Value) IsEmpty() bool {
	if v.IsNull() {
		return true
	}
	return v.str != nil && *v.str == ""
}

// Num returns the numeric value, if the answer is a number.
func (v Value) Num() (float64, bool) {
	if v.num == nil {
		return 0, false
	}
	return *v.num, true
}

// Str returns the string value, if the answer is a string.
func (v Value) Str() (string, bool) {
	if v.str == nil {
		return "", false
	}
	return *v.str, true
}

// AsNumber coerces the value to a number: numbers pass through, numeric
// strings are parsed. Null and the empty string are not numbers.
func (v Value) AsNumber() (float64, bool) {
	if v.num != nil {
		return *v.num, true
	}
	if v.str == nil || *v.str == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(*v.str, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// AsString coerces the value to a string: strings pass through, numbers are
// formatted. Null coerces to the empty string.
func (v Value) AsString() string {
	if v.str != nil {
		return *v.str
	}
	if v.num != nil {
		return strconv.FormatFloat(*v.num, 'f', -1, 64)
	}
	return ""
}

// Equal compares two values structurally (shape and content).
func (v Value) Equal(other Value) bool {
	switch {
	case v.num != nil && other.num != nil:
		return *v.num == *other.num
	case v.str != nil && other.str != nil:
		return *v.str == *other.str
	default:
		return v.IsNull() && other.IsNull()
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.num != nil {
		return json.Marshal(*v.num)
	}
	if v.str != nil {
		return json.Marshal(*v.str)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("answer value must be a number, a string, or null")
	}
	*v = NumberValue(n)
	return nil
}
