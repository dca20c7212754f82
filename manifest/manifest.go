// Package manifest reads class declarations from TOML files and turns them
// into klass creation descriptors.
package manifest

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mgomes/klass/klass"
)

// Manifest is a parsed declarations file.
type Manifest struct {
	Classes []ClassDecl `toml:"class"`

	// Source is the file the manifest was read from (set at load time).
	Source string `toml:"-"`
}

// ClassDecl declares one class. Constructor, Destructor and Functions name
// entries of a klass.Library.
type ClassDecl struct {
	Name        string       `toml:"name"`
	Constructor string       `toml:"constructor"`
	Destructor  string       `toml:"destructor"`
	Functions   []string     `toml:"functions"`
	Members     []MemberDecl `toml:"member"`
}

// MemberDecl declares one member. Value may be a TOML integer or float.
type MemberDecl struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Value any    `toml:"value"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return Parse(data, abs)
}

// Parse decodes and validates manifest data. source is used in messages.
func Parse(data []byte, source string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", source, err)
	}
	m.Source = source
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", source, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	var errs []error
	seen := make(map[string]struct{})
	for i, decl := range m.Classes {
		if decl.Name == "" {
			errs = append(errs, fmt.Errorf("class %d: name must be non-empty", i+1))
			continue
		}
		if _, dup := seen[decl.Name]; dup {
			errs = append(errs, fmt.Errorf("class %q declared twice", decl.Name))
		}
		seen[decl.Name] = struct{}{}

		members := make(map[string]struct{})
		for j, md := range decl.Members {
			if md.Name == "" {
				errs = append(errs, fmt.Errorf("class %q member %d: name must be non-empty", decl.Name, j+1))
				continue
			}
			if _, dup := members[md.Name]; dup {
				errs = append(errs, fmt.Errorf("class %q: member %q declared twice", decl.Name, md.Name))
			}
			members[md.Name] = struct{}{}
			if _, err := md.value(); err != nil {
				errs = append(errs, fmt.Errorf("class %q member %q: %w", decl.Name, md.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Names returns the declared class names in file order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Classes))
	for i, decl := range m.Classes {
		names[i] = decl.Name
	}
	return names
}

// Lookup returns the declaration called name.
func (m *Manifest) Lookup(name string) (ClassDecl, bool) {
	for _, decl := range m.Classes {
		if decl.Name == name {
			return decl, true
		}
	}
	return ClassDecl{}, false
}

// Descriptor resolves the declaration called name against lib.
func (m *Manifest) Descriptor(name string, lib klass.Library) (klass.Descriptor, error) {
	decl, ok := m.Lookup(name)
	if !ok {
		return klass.Descriptor{}, fmt.Errorf("class %q is not declared in %s", name, m.Source)
	}
	return decl.Descriptor(lib)
}

// Descriptor resolves the declaration against lib. The constructor and
// destructor names may refer to any library function with a unary form.
func (d ClassDecl) Descriptor(lib klass.Library) (klass.Descriptor, error) {
	desc := klass.Descriptor{Name: d.Name}

	if d.Constructor != "" {
		fn, err := lib.Lookup(d.Constructor)
		if err != nil {
			return klass.Descriptor{}, fmt.Errorf("class %q constructor: %w", d.Name, err)
		}
		desc.Constructor = &fn
	}
	if d.Destructor != "" {
		fn, err := lib.Lookup(d.Destructor)
		if err != nil {
			return klass.Descriptor{}, fmt.Errorf("class %q destructor: %w", d.Name, err)
		}
		desc.Destructor = &fn
	}

	for _, name := range d.Functions {
		fn, err := lib.Lookup(name)
		if err != nil {
			return klass.Descriptor{}, fmt.Errorf("class %q: %w", d.Name, err)
		}
		desc.Functions = append(desc.Functions, fn)
	}

	for _, md := range d.Members {
		v, err := md.value()
		if err != nil {
			return klass.Descriptor{}, fmt.Errorf("class %q member %q: %w", d.Name, md.Name, err)
		}
		desc.Members = append(desc.Members, klass.NewMember(md.Name, v))
	}
	return desc, nil
}

func (md MemberDecl) value() (klass.Value, error) {
	typ, err := klass.ParseMemberType(md.Type)
	if err != nil {
		return klass.Value{}, err
	}
	if md.Value == nil {
		return klass.Zero(typ), nil
	}

	switch raw := md.Value.(type) {
	case int64:
		return intValue(typ, raw)
	case float64:
		return floatValue(typ, raw)
	default:
		return klass.Value{}, fmt.Errorf("value must be a number, got %T", md.Value)
	}
}

func intValue(typ klass.MemberType, raw int64) (klass.Value, error) {
	switch typ {
	case klass.TypeF32:
		return klass.F32(float32(raw)), nil
	case klass.TypeF64:
		return klass.F64(float64(raw)), nil
	case klass.TypeI32:
		if raw < math.MinInt32 || raw > math.MaxInt32 {
			return klass.Value{}, fmt.Errorf("%d out of range for i32", raw)
		}
		return klass.I32(int32(raw)), nil
	case klass.TypeU32:
		if raw < 0 || raw > math.MaxUint32 {
			return klass.Value{}, fmt.Errorf("%d out of range for u32", raw)
		}
		return klass.U32(uint32(raw)), nil
	default:
		return klass.Value{}, fmt.Errorf("unknown member type %s", typ)
	}
}

func floatValue(typ klass.MemberType, raw float64) (klass.Value, error) {
	switch typ {
	case klass.TypeF32:
		if !math.IsInf(raw, 0) && !math.IsNaN(raw) && math.Abs(raw) > math.MaxFloat32 {
			return klass.Value{}, fmt.Errorf("%g out of range for f32", raw)
		}
		return klass.F32(float32(raw)), nil
	case klass.TypeF64:
		return klass.F64(raw), nil
	default:
		return klass.Value{}, fmt.Errorf("%s member needs an integer value, got %g", typ, raw)
	}
}
