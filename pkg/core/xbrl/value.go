package xbrl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind is the stored representation of a fact value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindString
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	}
	return "null"
}

// Value is a single fact value. The zero Value is null.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
}

func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func (v Value) IsNull() bool { return v.Kind == KindNull }
func (v Value) IsNumber() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Float64 returns the numeric value as a float64. Strings that parse as
// numbers are converted; anything else yields 0.
func (v Value) Float64() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindFloat:
		return v.Float
	case KindString:
		if f, ok := parseNumber(v.Str); ok {
			return f
		}
	}
	return 0
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindString:
		return v.Str
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return []byte(strconv.FormatInt(v.Int, 10)), nil
	case KindFloat:
		b, err := json.Marshal(v.Float)
		if err != nil {
			return nil, err
		}
		// Keep integral floats distinguishable from ints.
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, ".0"...)
		}
		return b, nil
	case KindString:
		return json.Marshal(v.Str)
	}
	return []byte("null"), nil
}

// UnmarshalJSON restores a Value written by MarshalJSON. Integral literals
// come back as ints, other numbers as floats.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Value{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	default:
		lit := string(data)
		if !strings.ContainsAny(lit, ".eE") {
			if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
				*v = IntValue(i)
				return nil
			}
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return fmt.Errorf("invalid fact value %s: %w", lit, err)
		}
		*v = FloatValue(f)
	}
	return nil
}

// parseNumber reports whether s, ignoring surrounding whitespace, is a
// plain decimal or exponent number.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(strings.TrimLeft(s, "+-"), "0x") || strings.HasPrefix(strings.TrimLeft(s, "+-"), "0X") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsNumber reports whether text would be accepted as a numeric fact.
func IsNumber(text string) bool {
	_, ok := parseNumber(text)
	return ok
}
