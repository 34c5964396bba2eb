package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a typed attribute value. The zero Value is Null.
//
// Equality is type-sensitive: String("1") never equals Int(1), and Int(1)
// never equals Float(1).
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

func Null() Value            { return Value{} }
func Int(v int64) Value      { return Value{kind: KindInt, i: v} }
func Float(v float64) Value  { return Value{kind: KindFloat, f: v} }
func String(v string) Value  { return Value{kind: KindString, s: v} }
func Bool(v bool) Value      { return Value{kind: KindBool, b: v} }
func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer if Kind is KindInt.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float if Kind is KindFloat.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns the string if Kind is KindString.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBool returns the boolean if Kind is KindBool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Equal reports whether v and o have the same kind and the same payload.
// Two Null values are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	default:
		return false
	}
}

// Any returns the payload as a plain Go value (nil, int64, float64, string,
// bool), suitable for encoders.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// String renders the value for display. Strings are printed bare.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// FromAny converts a decoded scalar into a Value. Integral JSON numbers stay
// floats; callers that need integers must convert before calling.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return String(string(t)), nil
	case bool:
		return Bool(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported attribute type %T", x)
	}
}

// ParseValue interprets operator input. Quoted text is always a string;
// otherwise null, true/false, integers and floats are recognized in that
// order and anything else is taken as a bare string.
func ParseValue(text string) Value {
	text = strings.TrimSpace(text)
	if n := len(text); n >= 2 {
		if (text[0] == '"' && text[n-1] == '"') || (text[0] == '\'' && text[n-1] == '\'') {
			return String(text[1 : n-1])
		}
	}
	switch strings.ToLower(text) {
	case "null":
		return Null()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return Float(f)
	}
	return String(text)
}
