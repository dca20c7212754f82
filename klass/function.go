package klass

import "fmt"

// FunctionKind is the closed set of roles a Function can play.
type FunctionKind int

const (
	KindMember FunctionKind = iota
	KindConstructor
	KindDestructor
)

func (k FunctionKind) String() string {
	switch k {
	case KindMember:
		return "member"
	case KindConstructor:
		return "constructor"
	case KindDestructor:
		return "destructor"
	default:
		return fmt.Sprintf("FunctionKind(%d)", int(k))
	}
}

// UnaryFunc operates on the owning instance.
type UnaryFunc func(self *Class) error

// BinaryFunc combines the owning instance with another and returns a fresh
// instance owned by the caller. It must not mutate either operand.
type BinaryFunc func(self, other *Class) (*Class, error)

// Function is a named, kinded invocable. Copying a Function copies the
// record; the callables are shared references.
type Function struct {
	name   string
	kind   FunctionKind
	unary  UnaryFunc
	binary BinaryFunc
}

func NewUnary(name string, fn UnaryFunc) Function {
	return Function{name: name, kind: KindMember, unary: fn}
}

func NewBinary(name string, fn BinaryFunc) Function {
	return Function{name: name, kind: KindMember, binary: fn}
}

// NewMethod builds a member function that may carry both forms; the form
// used is picked at call time by whether a second instance is supplied.
func NewMethod(name string, unary UnaryFunc, binary BinaryFunc) Function {
	return Function{name: name, kind: KindMember, unary: unary, binary: binary}
}

func NewConstructor(name string, fn UnaryFunc) Function {
	return Function{name: name, kind: KindConstructor, unary: fn}
}

func NewDestructor(name string, fn UnaryFunc) Function {
	return Function{name: name, kind: KindDestructor, unary: fn}
}

func (f Function) Name() string { return f.name }

func (f Function) Kind() FunctionKind { return f.kind }

func (f Function) HasUnary() bool { return f.unary != nil }

func (f Function) HasBinary() bool { return f.binary != nil }

// withKind returns a copy carrying kind k; the receiver is left untouched.
func (f Function) withKind(k FunctionKind) Function {
	f.kind = k
	return f
}

func (f Function) forms() string {
	switch {
	case f.unary != nil && f.binary != nil:
		return "unary+binary"
	case f.binary != nil:
		return "binary"
	case f.unary != nil:
		return "unary"
	default:
		return "none"
	}
}

func (f Function) String() string {
	return fmt.Sprintf("%s %s (%s)", f.kind, f.name, f.forms())
}
