package klass

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

type classState int

const (
	stateConstructed classState = iota
	stateDestructing
	stateReleased
)

// Class is a live instance created by Runtime.Create. Accessors are nil-safe
// and degrade to zero values; mutators report ErrInvalidClass or
// ErrReleased instead.
type Class struct {
	rt        *Runtime
	id        uuid.UUID
	name      string
	ctor      *Function
	dtor      *Function
	members   []Member
	functions []Function
	footprint int
	state     classState
}

func (c *Class) check() error {
	if c == nil || c.rt == nil {
		return ErrInvalidClass
	}
	if c.state == stateReleased {
		return fmt.Errorf("class %q: %w", c.name, ErrReleased)
	}
	return nil
}

func (c *Class) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// ID identifies the instance for its lifetime; uuid.Nil for a nil class.
func (c *Class) ID() uuid.UUID {
	if c == nil {
		return uuid.Nil
	}
	return c.id
}

func (c *Class) Runtime() *Runtime {
	if c == nil {
		return nil
	}
	return c.rt
}

func (c *Class) Released() bool {
	return c == nil || c.state == stateReleased
}

func (c *Class) HasConstructor() bool {
	return c != nil && c.ctor != nil
}

func (c *Class) HasDestructor() bool {
	return c != nil && c.dtor != nil
}

// Constructor returns a copy of the installed constructor.
func (c *Class) Constructor() (Function, bool) {
	if !c.HasConstructor() {
		return Function{}, false
	}
	return *c.ctor, true
}

// Destructor returns a copy of the installed destructor.
func (c *Class) Destructor() (Function, bool) {
	if !c.HasDestructor() {
		return Function{}, false
	}
	return *c.dtor, true
}

func (c *Class) MemberCount() int {
	if c == nil {
		return 0
	}
	return len(c.members)
}

func (c *Class) FunctionCount() int {
	if c == nil {
		return 0
	}
	return len(c.functions)
}

func (c *Class) Member(index int) (Member, error) {
	if err := c.check(); err != nil {
		return Member{}, err
	}
	if index < 0 || index >= len(c.members) {
		return Member{}, &IndexError{Table: "member", Index: index, Count: len(c.members)}
	}
	return c.members[index], nil
}

func (c *Class) Function(index int) (Function, error) {
	if err := c.check(); err != nil {
		return Function{}, err
	}
	if index < 0 || index >= len(c.functions) {
		return Function{}, &IndexError{Table: "function", Index: index, Count: len(c.functions)}
	}
	return c.functions[index], nil
}

// Members returns a copy of the member table.
func (c *Class) Members() []Member {
	if c == nil {
		return nil
	}
	return slices.Clone(c.members)
}

// Functions returns a copy of the function table.
func (c *Class) Functions() []Function {
	if c == nil {
		return nil
	}
	return slices.Clone(c.functions)
}

// MemberIndex returns the index of the first member called name, or -1.
func (c *Class) MemberIndex(name string) int {
	if c == nil {
		return -1
	}
	return slices.IndexFunc(c.members, func(m Member) bool { return m.Name == name })
}

// FunctionIndex returns the index of the first function called name, or -1.
func (c *Class) FunctionIndex(name string) int {
	if c == nil {
		return -1
	}
	return slices.IndexFunc(c.functions, func(f Function) bool { return f.name == name })
}

// AppendMember adds m at the end of the member table and returns its index.
// On error the table is unchanged.
func (c *Class) AppendMember(m Member) (int, error) {
	if err := c.check(); err != nil {
		return -1, err
	}
	size := memberFootprint(m)
	if err := c.rt.charge(size); err != nil {
		return -1, fmt.Errorf("append member %q to %q: %w", m.Name, c.name, err)
	}
	c.members = append(c.members, m)
	c.footprint += size
	return len(c.members) - 1, nil
}

// AppendFunction adds f at the end of the function table and returns its
// index. On error the table is unchanged.
func (c *Class) AppendFunction(f Function) (int, error) {
	if err := c.check(); err != nil {
		return -1, err
	}
	size := functionFootprint(f)
	if err := c.rt.charge(size); err != nil {
		return -1, fmt.Errorf("append function %q to %q: %w", f.name, c.name, err)
	}
	c.functions = append(c.functions, f)
	c.footprint += size
	return len(c.functions) - 1, nil
}

// SetMember replaces the value at index. The slot keeps its type.
func (c *Class) SetMember(index int, v Value) error {
	if err := c.check(); err != nil {
		return err
	}
	if index < 0 || index >= len(c.members) {
		return &IndexError{Table: "member", Index: index, Count: len(c.members)}
	}
	slot := &c.members[index]
	if slot.Type() != v.Type() {
		return fmt.Errorf("set %s.%s: %w: slot is %s, value is %s", c.name, slot.Name, ErrTypeMismatch, slot.Type(), v.Type())
	}
	slot.Value = v
	return nil
}

// Derive creates a new instance through the same Runtime carrying this
// class's name, functions and destructor with the given members. The new
// instance has no constructor. Binary functions use it to build results.
func (c *Class) Derive(members []Member) (*Class, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.rt.Create(Descriptor{
		Name:       c.name,
		Destructor: c.dtor,
		Members:    members,
		Functions:  c.functions,
	})
}

// Destroy runs the destructor, then releases the member table, the function
// table and the instance. The instance is released even when the destructor
// fails. When the invocation depth leaves no room for the destructor,
// Destroy returns ErrInvokeDepth and the instance stays live. Calling
// Destroy again returns ErrReleased.
func (c *Class) Destroy() error {
	if err := c.check(); err != nil {
		return err
	}
	if c.state == stateDestructing {
		return fmt.Errorf("class %q: %w", c.name, ErrReleased)
	}
	// the destructor must be able to run; otherwise the instance stays live
	if limit := c.rt.config.MaxInvokeDepth; c.dtor != nil && c.rt.depth >= limit {
		return fmt.Errorf("destroy %q: %w (limit %d)", c.name, ErrInvokeDepth, limit)
	}
	c.state = stateDestructing

	var err error
	if c.dtor != nil {
		_, err = c.dispatch(c.dtor.withKind(KindDestructor), nil)
	}
	c.rt.log.Debug("class destroyed", c.logAttrs()...)
	c.release()
	if err != nil {
		return fmt.Errorf("destroy %q: %w", c.name, err)
	}
	return nil
}

func (c *Class) release() {
	c.members = nil
	c.functions = nil
	c.state = stateReleased
	c.rt.unregister(c)
	c.rt.refund(c.footprint)
	c.footprint = 0
}

func (c *Class) logAttrs() []any {
	return []any{
		slog.String("class", c.name),
		slog.String("id", c.id.String()),
	}
}
