package klass

import "fmt"

func addValues(left, right Value) (Value, error) {
	if left.typ != right.typ {
		return Value{}, fmt.Errorf("%w: cannot add %s and %s", ErrTypeMismatch, left.typ, right.typ)
	}
	switch left.typ {
	case TypeF32:
		return F32(left.Float32() + right.Float32()), nil
	case TypeF64:
		return F64(left.Float64() + right.Float64()), nil
	case TypeI32:
		return I32(left.Int32() + right.Int32()), nil
	case TypeU32:
		return U32(left.Uint32() + right.Uint32()), nil
	default:
		return Value{}, fmt.Errorf("unsupported addition operands")
	}
}

func subtractValues(left, right Value) (Value, error) {
	if left.typ != right.typ {
		return Value{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrTypeMismatch, right.typ, left.typ)
	}
	switch left.typ {
	case TypeF32:
		return F32(left.Float32() - right.Float32()), nil
	case TypeF64:
		return F64(left.Float64() - right.Float64()), nil
	case TypeI32:
		return I32(left.Int32() - right.Int32()), nil
	case TypeU32:
		return U32(left.Uint32() - right.Uint32()), nil
	default:
		return Value{}, fmt.Errorf("unsupported subtraction operands")
	}
}

func multiplyValues(left, right Value) (Value, error) {
	if left.typ != right.typ {
		return Value{}, fmt.Errorf("%w: cannot multiply %s and %s", ErrTypeMismatch, left.typ, right.typ)
	}
	switch left.typ {
	case TypeF32:
		return F32(left.Float32() * right.Float32()), nil
	case TypeF64:
		return F64(left.Float64() * right.Float64()), nil
	case TypeI32:
		return I32(left.Int32() * right.Int32()), nil
	case TypeU32:
		return U32(left.Uint32() * right.Uint32()), nil
	default:
		return Value{}, fmt.Errorf("unsupported multiplication operands")
	}
}

// negateValue wraps for integers: -MinInt32 stays MinInt32 and u32 negates
// modulo 2^32.
func negateValue(v Value) Value {
	switch v.typ {
	case TypeF32:
		return F32(-v.Float32())
	case TypeF64:
		return F64(-v.Float64())
	case TypeI32:
		return I32(-v.Int32())
	case TypeU32:
		return U32(-v.Uint32())
	default:
		return v
	}
}
