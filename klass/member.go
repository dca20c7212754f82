package klass

// Member is a named, typed data slot. Its type is the tag of its Value.
type Member struct {
	Name  string
	Value Value
}

func NewMember(name string, value Value) Member {
	return Member{Name: name, Value: value}
}

func (m Member) Type() MemberType { return m.Value.Type() }
