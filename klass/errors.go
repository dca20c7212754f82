package klass

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidClass    = errors.New("invalid class")
	ErrReleased        = errors.New("class already released")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNoUnaryForm     = errors.New("function has no unary form")
	ErrNoBinaryForm    = errors.New("function has no binary form")
	ErrNilResult       = errors.New("binary function returned no instance")
	ErrAliasedResult   = errors.New("binary function returned one of its operands")
	ErrTypeMismatch    = errors.New("member type mismatch")
	ErrShapeMismatch   = errors.New("member layouts differ")
	ErrQuotaExceeded   = errors.New("memory quota exceeded")
	ErrLiveLimit       = errors.New("live instance limit reached")
	ErrInvokeDepth     = errors.New("invocation depth exceeded")
)

// IndexError reports an out-of-range lookup in a member or function table.
type IndexError struct {
	Table string
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %d out of range (count %d)", e.Table, e.Index, e.Count)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}
