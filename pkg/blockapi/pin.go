package blockapi

import "fmt"

// PinType is the declared data type of a pin. It is a superset of Kind:
// Vec3 and Array both carry vector values, and Any matches every kind.
type PinType int

const (
	PinFloat PinType = iota
	PinInt
	PinBool
	PinString
	PinVec3
	PinArray
	PinAny
)

// String returns the manifest-facing name of the pin type.
func (t PinType) String() string {
	switch t {
	case PinFloat:
		return "float"
	case PinInt:
		return "int"
	case PinBool:
		return "bool"
	case PinString:
		return "string"
	case PinVec3:
		return "vec3"
	case PinArray:
		return "array"
	case PinAny:
		return "any"
	default:
		return fmt.Sprintf("pintype(%d)", int(t))
	}
}

// ParsePinType maps a definition-file type name onto a PinType.
func ParsePinType(name string) (PinType, error) {
	switch name {
	case "float":
		return PinFloat, nil
	case "int":
		return PinInt, nil
	case "bool":
		return PinBool, nil
	case "string":
		return PinString, nil
	case "vec3":
		return PinVec3, nil
	case "array":
		return PinArray, nil
	case "any":
		return PinAny, nil
	default:
		return 0, fmt.Errorf("unknown pin type %q", name)
	}
}

// Kind returns the value kind a pin of this type carries. Any has no fixed
// kind; the second return is false in that case.
func (t PinType) Kind() (Kind, bool) {
	switch t {
	case PinFloat:
		return KindFloat, true
	case PinInt:
		return KindInt, true
	case PinBool:
		return KindBool, true
	case PinString:
		return KindString, true
	case PinVec3, PinArray:
		return KindVector, true
	default:
		return 0, false
	}
}

// Compatible reports whether a value produced on an output pin of type out
// may be delivered to an input pin of type in. Identical types match, Any
// matches on either side, and float/int pairs match through the implicit
// numeric cast. Every other combination is rejected.
func Compatible(out, in PinType) bool {
	if out == in {
		return true
	}
	if out == PinAny || in == PinAny {
		return true
	}
	numeric := func(t PinType) bool { return t == PinFloat || t == PinInt }
	return numeric(out) && numeric(in)
}

// PinDecl declares a single named input or output slot on a block.
type PinDecl struct {
	Name string
	Type PinType
}
