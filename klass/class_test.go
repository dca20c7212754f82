package klass

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewRuntime(Config{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return rt
}

func mustCreate(t *testing.T, rt *Runtime, desc Descriptor) *Class {
	t.Helper()
	c, err := rt.Create(desc)
	if err != nil {
		t.Fatalf("create %q: %v", desc.Name, err)
	}
	return c
}

func vec2(x, y float32, functions ...Function) Descriptor {
	return Descriptor{
		Name: "Vec2",
		Members: []Member{
			NewMember("x", F32(x)),
			NewMember("y", F32(y)),
		},
		Functions: functions,
	}
}

func TestCreateWithMembers(t *testing.T) {
	rt := newTestRuntime(t)
	c := mustCreate(t, rt, vec2(1, 3))

	if c.Name() != "Vec2" {
		t.Fatalf("unexpected name %q", c.Name())
	}
	if c.MemberCount() != 2 {
		t.Fatalf("expected 2 members, got %d", c.MemberCount())
	}
	first, err := c.Member(0)
	if err != nil {
		t.Fatalf("member 0: %v", err)
	}
	if first.Name != "x" || first.Value.Float32() != 1 {
		t.Fatalf("unexpected member 0: %+v", first)
	}
	second, err := c.Member(1)
	if err != nil {
		t.Fatalf("member 1: %v", err)
	}
	if second.Value.Float32() != 3 {
		t.Fatalf("unexpected member 1 value %v", second.Value)
	}
	if c.ID() == uuid.Nil {
		t.Fatalf("expected an instance id")
	}
}

func TestCreateNameOnly(t *testing.T) {
	rt := newTestRuntime(t)
	c := mustCreate(t, rt, Descriptor{Name: "Empty"})

	if c.HasConstructor() || c.HasDestructor() {
		t.Fatalf("name-only class should have no lifecycle functions")
	}
	if c.MemberCount() != 0 || c.FunctionCount() != 0 {
		t.Fatalf("expected empty tables, got %d members %d functions", c.MemberCount(), c.FunctionCount())
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if rt.Live() != 0 {
		t.Fatalf("expected no live instances, got %d", rt.Live())
	}
}

func TestAppendMembersInOrder(t *testing.T) {
	rt := newTestRuntime(t)
	c := mustCreate(t, rt, Descriptor{Name: "Bag"})

	for i := range 5 {
		idx, err := c.AppendMember(NewMember(fmt.Sprintf("m%d", i), I32(int32(i))))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if idx != i {
			t.Fatalf("append %d returned index %d", i, idx)
		}
	}
	if c.MemberCount() != 5 {
		t.Fatalf("expected 5 members, got %d", c.MemberCount())
	}
	for i := range 5 {
		m, err := c.Member(i)
		if err != nil {
			t.Fatalf("member %d: %v", i, err)
		}
		if m.Name != fmt.Sprintf("m%d", i) || m.Value.Int32() != int32(i) {
			t.Fatalf("member %d out of order: %+v", i, m)
		}
	}
}

func TestAppendKeepsEarlierIndicesStable(t *testing.T) {
	rt := newTestRuntime(t)
	c := mustCreate(t, rt, vec2(1, 3))

	before := c.Members()
	added := NewMember("z", F64(9))
	if _, err := c.AppendMember(added); err != nil {
		t.Fatalf("append: %v", err)
	}
	if c.MemberCount() != len(before)+1 {
		t.Fatalf("count should grow by one, got %d", c.MemberCount())
	}
	last, _ := c.Member(c.MemberCount() - 1)
	if last != added {
		t.Fatalf("last member should be the appended one, got %+v", last)
	}
	for i, want := range before {
		got, _ := c.Member(i)
		if got != want {
			t.Fatalf("member %d moved: %+v != %+v", i, got, want)
		}
	}
}

func TestAppendFunction(t *testing.T) {
	rt := newTestRuntime(t)
	c := mustCreate(t, rt, Descriptor{Name: "F"})

	idx, err := c.AppendFunction(NewUnary("noop", func(*Class) error { return nil }))
	if err != nil {
		t.Fatalf("append function: %v", err)
	}
	if idx != 0 || c.FunctionCount() != 1 {
		t.Fatalf("unexpected index %d count %d", idx, c.FunctionCount())
	}
	fn, err := c.Function(0)
	if err != nil {
		t.Fatalf("function 0: %v", err)
	}
	if fn.Name() != "noop" || fn.Kind() != KindMember || !fn.HasUnary() || fn.HasBinary() {
		t.Fatalf("unexpected function %s", fn)
	}
	if c.FunctionIndex("noop") != 0 || c.FunctionIndex("missing") != -1 {
		t.Fatalf("unexpected function index lookup")
	}
}

func TestLookupsOutOfRange(t *testing.T) {
	rt := newTestRuntime(t)
	c := mustCreate(t, rt, vec2(1, 3))

	for _, idx := range []int{2, 10, -1} {
		m, err := c.Member(idx)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("member %d: expected out of range, got %v", idx, err)
		}
		if m != (Member{}) {
			t.Fatalf("member %d: expected zero sentinel, got %+v", idx, m)
		}
	}

	_, err := c.Function(0)
	var idxErr *IndexError
	if !errors.As(err, &idxErr) {
		t.Fatalf("expected *IndexError, got %v", err)
	}
	if idxErr.Table != "function" || idxErr.Index != 0 || idxErr.Count != 0 {
		t.Fatalf("unexpected index error %+v", idxErr)
	}

	if _, err := c.InvokeIndex(0, nil); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("invoke index: expected out of range, got %v", err)
	}
}

func TestNilClassDegrades(t *testing.T) {
	var c *Class

	if c.Name() != "" || c.MemberCount() != 0 || c.FunctionCount() != 0 {
		t.Fatalf("nil class accessors should return zero values")
	}
	if c.HasConstructor() || c.HasDestructor() {
		t.Fatalf("nil class has no lifecycle functions")
	}
	if c.ID() != uuid.Nil {
		t.Fatalf("nil class should have a nil id")
	}
	if _, err := c.Member(0); !errors.Is(err, ErrInvalidClass) {
		t.Fatalf("member: expected invalid class, got %v", err)
	}
	if _, err := c.AppendMember(NewMember("x", F32(1))); !errors.Is(err, ErrInvalidClass) {
		t.Fatalf("append: expected invalid class, got %v", err)
	}
	if err := c.Destroy(); !errors.Is(err, ErrInvalidClass) {
		t.Fatalf("destroy: expected invalid class, got %v", err)
	}

	var zero Class
	if _, err := zero.AppendFunction(Function{}); !errors.Is(err, ErrInvalidClass) {
		t.Fatalf("zero class should be invalid, got %v", err)
	}
}

func TestSetMemberKeepsSlotType(t *testing.T) {
	rt := newTestRuntime(t)
	c := mustCreate(t, rt, vec2(1, 3))

	if err := c.SetMember(0, F32(5)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if m, _ := c.Member(0); m.Value.Float32() != 5 {
		t.Fatalf("value not updated: %v", m.Value)
	}
	if err := c.SetMember(0, I32(5)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if m, _ := c.Member(0); m.Type() != TypeF32 || m.Value.Float32() != 5 {
		t.Fatalf("slot changed after rejected set: %+v", m)
	}
	if err := c.SetMember(2, F32(1)); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

func TestCreateCopiesDescriptorTables(t *testing.T) {
	rt := newTestRuntime(t)
	desc := vec2(1, 3)
	c := mustCreate(t, rt, desc)

	desc.Members[0].Value = F32(100)
	if m, _ := c.Member(0); m.Value.Float32() != 1 {
		t.Fatalf("instance shares storage with descriptor: %v", m.Value)
	}

	other := mustCreate(t, rt, desc)
	if err := other.SetMember(1, F32(-1)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if m, _ := c.Member(1); m.Value.Float32() != 3 {
		t.Fatalf("instances share storage: %v", m.Value)
	}
}

func TestDestroyTwiceReportsReleased(t *testing.T) {
	rt := newTestRuntime(t)
	calls := 0
	dtor := NewDestructor("bye", func(*Class) error {
		calls++
		return nil
	})
	c := mustCreate(t, rt, Descriptor{Name: "Once", Destructor: &dtor})

	if err := c.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := c.Destroy(); !errors.Is(err, ErrReleased) {
		t.Fatalf("second destroy: expected released, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("destructor ran %d times", calls)
	}
	if !c.Released() || c.MemberCount() != 0 {
		t.Fatalf("released instance should report empty tables")
	}
	if _, err := c.AppendMember(NewMember("x", F32(1))); !errors.Is(err, ErrReleased) {
		t.Fatalf("append after destroy: expected released, got %v", err)
	}
}
