package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The extraction model is asked for "Yes"/"No" strings but in practice
// returns booleans, numbers, or nulls often enough that strict decoding
// would fail whole documents. These scalar types accept every shape the
// model has been observed to emit and default instead of erroring.

// FlexBool decodes JSON booleans, "Yes"/"No"-style strings, and numbers.
// Anything unrecognized decodes as false.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	switch data[0] {
	case 't':
		*b = true
		return nil
	case 'f':
		*b = false
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*b = false
			return nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "true", "y", "1":
			*b = true
		default:
			*b = false
		}
		return nil
	default:
		if n, err := strconv.ParseFloat(string(data), 64); err == nil {
			*b = n != 0
			return nil
		}
		*b = false
		return nil
	}
}

// MarshalJSON renders the canonical "Yes"/"No" form the schema asks for.
func (b FlexBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte(`"Yes"`), nil
	}
	return []byte(`"No"`), nil
}

// Bool returns the underlying value.
func (b FlexBool) Bool() bool { return bool(b) }

// FlexString decodes JSON strings, numbers, booleans, and null into a
// trimmed string. Null and unrecognized shapes decode as "".
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(strings.TrimSpace(str))
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		*s = ""
		return nil
	}
	*s = FlexString(string(data))
	return nil
}

// String returns the underlying value.
func (s FlexString) String() string { return string(s) }

// IsBlank reports whether the value is empty after trimming. The literal
// strings "null" and "none" count as blank; the model emits them for
// missing fields despite instructions.
func (s FlexString) IsBlank() bool {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "", "null", "none", "n/a":
		return true
	}
	return false
}

// FlexInt decodes JSON numbers, numeric strings, and null. Valid reports
// whether a number was actually present, so callers can map absence to a
// SQL NULL instead of zero.
type FlexInt struct {
	Value int
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*i = FlexInt{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	i.Value = int(f)
	i.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (i FlexInt) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(i.Value)), nil
}

// Ptr returns the value as a nullable pointer.
func (i FlexInt) Ptr() *int {
	if !i.Valid {
		return nil
	}
	v := i.Value
	return &v
}
