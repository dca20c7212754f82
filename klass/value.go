package klass

import (
	"fmt"
	"math"
	"strconv"
)

// MemberType tags the scalar representation held by a Value.
type MemberType int

const (
	TypeF32 MemberType = iota
	TypeF64
	TypeI32
	TypeU32
)

func (t MemberType) String() string {
	switch t {
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeI32:
		return "i32"
	case TypeU32:
		return "u32"
	default:
		return fmt.Sprintf("MemberType(%d)", int(t))
	}
}

// ParseMemberType is the inverse of MemberType.String.
func ParseMemberType(s string) (MemberType, error) {
	switch s {
	case "f32":
		return TypeF32, nil
	case "f64":
		return TypeF64, nil
	case "i32":
		return TypeI32, nil
	case "u32":
		return TypeU32, nil
	default:
		return 0, fmt.Errorf("unknown member type %q", s)
	}
}

// Value is a tagged scalar. The raw bits are only ever read through the tag
// they were written with.
type Value struct {
	typ  MemberType
	bits uint64
}

func F32(v float32) Value { return Value{typ: TypeF32, bits: uint64(math.Float32bits(v))} }

func F64(v float64) Value { return Value{typ: TypeF64, bits: math.Float64bits(v)} }

func I32(v int32) Value { return Value{typ: TypeI32, bits: uint64(uint32(v))} }

func U32(v uint32) Value { return Value{typ: TypeU32, bits: uint64(v)} }

// Zero returns the zero value of the given type.
func Zero(t MemberType) Value {
	return Value{typ: t}
}

func (v Value) Type() MemberType { return v.typ }

func (v Value) Float32() float32 {
	if v.typ != TypeF32 {
		return 0
	}
	return math.Float32frombits(uint32(v.bits))
}

func (v Value) Float64() float64 {
	if v.typ != TypeF64 {
		return 0
	}
	return math.Float64frombits(v.bits)
}

func (v Value) Int32() int32 {
	if v.typ != TypeI32 {
		return 0
	}
	return int32(uint32(v.bits))
}

func (v Value) Uint32() uint32 {
	if v.typ != TypeU32 {
		return 0
	}
	return uint32(v.bits)
}

// Float widens any kind to float64.
func (v Value) Float() float64 {
	switch v.typ {
	case TypeF32:
		return float64(v.Float32())
	case TypeF64:
		return v.Float64()
	case TypeI32:
		return float64(v.Int32())
	case TypeU32:
		return float64(v.Uint32())
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.typ {
	case TypeF32:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
	case TypeF64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case TypeI32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case TypeU32:
		return strconv.FormatUint(uint64(v.Uint32()), 10)
	default:
		return "<invalid>"
	}
}

// Equal reports whether both values carry the same tag and payload.
// Floats compare by value, so NaN is never equal to itself.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeF32:
		return v.Float32() == other.Float32()
	case TypeF64:
		return v.Float64() == other.Float64()
	default:
		return v.bits == other.bits
	}
}

// ParseValue reads s as a value of type t.
func ParseValue(t MemberType, s string) (Value, error) {
	switch t {
	case TypeF32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, fmt.Errorf("parse f32 %q: %w", s, err)
		}
		return F32(float32(f)), nil
	case TypeF64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse f64 %q: %w", s, err)
		}
		return F64(f), nil
	case TypeI32:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("parse i32 %q: %w", s, err)
		}
		return I32(int32(i)), nil
	case TypeU32:
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("parse u32 %q: %w", s, err)
		}
		return U32(uint32(u)), nil
	default:
		return Value{}, fmt.Errorf("unknown member type %s", t)
	}
}
