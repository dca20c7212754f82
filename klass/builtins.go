package klass

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Library maps names to stock functions. Manifests and the REPL refer to
// functions by these names.
type Library map[string]Function

// StandardLibrary returns the stock functions: memberwise add, sub and mul
// (binary), negate and zero (unary), and trace, which logs the instance
// through its runtime logger.
func StandardLibrary() Library {
	return Library{
		"add":    NewBinary("add", memberwise(addValues)),
		"sub":    NewBinary("sub", memberwise(subtractValues)),
		"mul":    NewBinary("mul", memberwise(multiplyValues)),
		"negate": NewUnary("negate", negateMembers),
		"zero":   NewUnary("zero", zeroMembers),
		"trace":  NewUnary("trace", traceClass),
	}
}

func (l Library) Lookup(name string) (Function, error) {
	fn, ok := l[name]
	if !ok {
		return Function{}, fmt.Errorf("unknown function %q", name)
	}
	return fn, nil
}

// Names returns the registered names in sorted order.
func (l Library) Names() []string {
	return slices.Sorted(maps.Keys(l))
}

func memberwise(op func(left, right Value) (Value, error)) BinaryFunc {
	return func(self, other *Class) (*Class, error) {
		if self.MemberCount() != other.MemberCount() {
			return nil, fmt.Errorf("%w: %s has %d members, %s has %d",
				ErrShapeMismatch, self.Name(), self.MemberCount(), other.Name(), other.MemberCount())
		}
		members := self.Members()
		for i := range members {
			rhs, err := other.Member(i)
			if err != nil {
				return nil, err
			}
			v, err := op(members[i].Value, rhs.Value)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", members[i].Name, err)
			}
			members[i].Value = v
		}
		return self.Derive(members)
	}
}

func negateMembers(self *Class) error {
	for i, m := range self.members {
		self.members[i].Value = negateValue(m.Value)
	}
	return nil
}

func zeroMembers(self *Class) error {
	for i, m := range self.members {
		self.members[i].Value = Zero(m.Type())
	}
	return nil
}

func traceClass(self *Class) error {
	parts := make([]string, len(self.members))
	for i, m := range self.members {
		parts[i] = m.Name + "=" + m.Value.String()
	}
	self.rt.log.Info("trace",
		slog.String("class", self.name),
		slog.String("id", self.id.String()),
		slog.String("members", strings.Join(parts, " ")),
	)
	return nil
}
