package blockapi

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the concrete variant held by a Value.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindString
	KindVector
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the tagged value carried on pins. Exactly one variant is set,
// determined by Kind. The zero Value is a float 0.
type Value struct {
	kind Kind
	f    float64
	i    int64
	b    bool
	s    string
	vec  []float64
}

// Float wraps a float64.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Int wraps an int64.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Bool wraps a bool.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String wraps a string.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Vector wraps a float64 slice. The slice is copied so callers cannot
// mutate the value after the fact.
func Vector(v []float64) Value {
	cp := make([]float64, len(v))
	copy(cp, v)
	return Value{kind: KindVector, vec: cp}
}

// Zero returns the zero value for the given kind.
func Zero(k Kind) Value {
	return Value{kind: k}
}

// Kind reports which variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// AsFloat returns the numeric content as a float64. It accepts both float
// and int variants, mirroring the engine's implicit numeric cast.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsInt returns the numeric content as an int64, truncating floats.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return int64(v.f), true
	default:
		return 0, false
	}
}

// AsBool returns the bool content.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsString returns the string content.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsVector returns a copy of the vector content.
func (v Value) AsVector() ([]float64, bool) {
	if v.kind != KindVector {
		return nil, false
	}
	cp := make([]float64, len(v.vec))
	copy(cp, v.vec)
	return cp, true
}

// Interface unwraps the value into its native Go representation. Used when
// handing configuration to decoding helpers that expect plain Go values.
func (v Value) Interface() any {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return v.i
	case KindBool:
		return v.b
	case KindString:
		return v.s
	case KindVector:
		cp := make([]float64, len(v.vec))
		copy(cp, v.vec)
		return cp
	default:
		return nil
	}
}

// String renders the value for logs and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.s)
	case KindVector:
		parts := make([]string, len(v.vec))
		for i, f := range v.vec {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

// Convert coerces a value to the target kind. Identical kinds pass through
// unchanged; the only cross-kind conversion permitted is the implicit
// numeric cast between float and int. Everything else is an error.
func Convert(v Value, target Kind) (Value, error) {
	if v.kind == target {
		return v, nil
	}
	switch {
	case v.kind == KindInt && target == KindFloat:
		return Float(float64(v.i)), nil
	case v.kind == KindFloat && target == KindInt:
		return Int(int64(v.f)), nil
	}
	return Value{}, fmt.Errorf("cannot convert %s value to %s", v.kind, target)
}

// FromAny converts a native Go value (typically produced by a JSON decoder)
// into a tagged Value. JSON numbers arrive as float64; whole numbers are
// kept as floats because JSON carries no int/float distinction.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case []float64:
		return Vector(t), nil
	case []any:
		vec := make([]float64, len(t))
		for i, e := range t {
			f, ok := e.(float64)
			if !ok {
				return Value{}, fmt.Errorf("vector element %d is %T, want number", i, e)
			}
			vec[i] = f
		}
		return Vector(vec), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
