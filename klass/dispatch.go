package klass

import (
	"fmt"
	"log/slog"
)

// Invoke calls fn on c. Constructors and destructors always take the unary
// form. A member function takes the binary form when other is non-nil and
// returns the instance it produced, which the caller then owns; otherwise it
// takes the unary form and returns nil.
func (c *Class) Invoke(fn Function, other *Class) (*Class, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.dispatch(fn, other)
}

// InvokeIndex resolves the function at index and invokes it.
func (c *Class) InvokeIndex(index int, other *Class) (*Class, error) {
	fn, err := c.Function(index)
	if err != nil {
		return nil, err
	}
	return c.dispatch(fn, other)
}

func (c *Class) dispatch(fn Function, other *Class) (*Class, error) {
	rt := c.rt
	if rt.depth >= rt.config.MaxInvokeDepth {
		return nil, fmt.Errorf("%s.%s: %w (limit %d)", c.name, fn.name, ErrInvokeDepth, rt.config.MaxInvokeDepth)
	}
	rt.depth++
	defer func() { rt.depth-- }()

	rt.log.Debug("function invoked",
		slog.String("class", c.name),
		slog.String("id", c.id.String()),
		slog.String("function", fn.name),
		slog.String("kind", fn.kind.String()),
		slog.Bool("binary", other != nil && fn.kind == KindMember),
	)

	switch fn.kind {
	case KindConstructor, KindDestructor:
		return nil, c.callUnary(fn)
	case KindMember:
		if other == nil {
			return nil, c.callUnary(fn)
		}
		return c.callBinary(fn, other)
	default:
		panic(fmt.Sprintf("klass: unreachable function kind %d", int(fn.kind)))
	}
}

func (c *Class) callUnary(fn Function) error {
	if fn.unary == nil {
		return fmt.Errorf("%s.%s: %w", c.name, fn.name, ErrNoUnaryForm)
	}
	if err := fn.unary(c); err != nil {
		return fmt.Errorf("%s.%s: %w", c.name, fn.name, err)
	}
	return nil
}

func (c *Class) callBinary(fn Function, other *Class) (*Class, error) {
	if fn.binary == nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, fn.name, ErrNoBinaryForm)
	}
	if err := other.check(); err != nil {
		return nil, fmt.Errorf("%s.%s operand: %w", c.name, fn.name, err)
	}

	result, err := fn.binary(c, other)
	if err != nil {
		if result != nil && result != c && result != other && !result.Released() {
			_ = result.Destroy()
		}
		return nil, fmt.Errorf("%s.%s: %w", c.name, fn.name, err)
	}
	switch {
	case result == nil:
		return nil, fmt.Errorf("%s.%s: %w", c.name, fn.name, ErrNilResult)
	case result == c || result == other:
		return nil, fmt.Errorf("%s.%s: %w", c.name, fn.name, ErrAliasedResult)
	case result.Released():
		return nil, fmt.Errorf("%s.%s result: %w", c.name, fn.name, ErrReleased)
	}
	return result, nil
}
