package main

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/mgomes/klass/klass"
	"github.com/mgomes/klass/manifest"
)

// resultVar receives binary call results that are not bound explicitly.
const resultVar = "_"

var sessionCommands = []string{"new", "member", "func", "set", "call", "dump", "destroy", "vars", "classes", "help"}

// Session holds the named instances of one interactive run. Commands are
// evaluated by Eval; log records produced meanwhile are buffered until
// DrainLogs.
type Session struct {
	rt       *klass.Runtime
	lib      klass.Library
	manifest *manifest.Manifest
	vars     map[string]*klass.Class
	logs     *bytes.Buffer
	closeLog func() error
}

func newSession(m *manifest.Manifest, opts *logOptions) (*Session, error) {
	logs := new(bytes.Buffer)
	logger, closeLog, err := opts.build(logs)
	if err != nil {
		return nil, err
	}
	rt, err := klass.NewRuntime(klass.Config{Logger: logger})
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	return &Session{
		rt:       rt,
		lib:      klass.StandardLibrary(),
		manifest: m,
		vars:     make(map[string]*klass.Class),
		logs:     logs,
		closeLog: closeLog,
	}, nil
}

// DrainLogs returns and clears the buffered log output.
func (s *Session) DrainLogs() string {
	out := s.logs.String()
	s.logs.Reset()
	return out
}

// Close destroys every instance still alive and closes the log file.
func (s *Session) Close() error {
	leaked, err := s.rt.Close()
	if leaked > 0 {
		s.rt.Config().Logger.Warn("destroyed live instances on exit", "count", leaked)
	}
	clear(s.vars)
	return errors.Join(err, s.closeLog())
}

// VarNames returns the bound variable names in sorted order.
func (s *Session) VarNames() []string {
	return slices.Sorted(maps.Keys(s.vars))
}

// Completions returns every word the session understands, for autocomplete.
func (s *Session) Completions() []string {
	words := slices.Clone(sessionCommands)
	words = append(words, s.lib.Names()...)
	words = append(words, s.VarNames()...)
	if s.manifest != nil {
		words = append(words, s.manifest.Names()...)
	}
	return words
}

func (s *Session) Eval(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		return sessionHelp, nil
	case "classes":
		return s.classes(), nil
	case "vars":
		return s.listVars(), nil
	case "new":
		if len(args) != 2 {
			return "", errors.New("usage: new VAR CLASS")
		}
		return s.newInstance(args[0], args[1])
	case "member":
		if len(args) != 4 {
			return "", errors.New("usage: member VAR NAME TYPE VALUE")
		}
		return s.appendMember(args[0], args[1], args[2], args[3])
	case "func":
		if len(args) != 2 {
			return "", errors.New("usage: func VAR FUNCTION")
		}
		return s.appendFunction(args[0], args[1])
	case "set":
		if len(args) != 3 {
			return "", errors.New("usage: set VAR MEMBER VALUE")
		}
		return s.setMember(args[0], args[1], args[2])
	case "call":
		return s.call(args)
	case "dump":
		if len(args) != 1 {
			return "", errors.New("usage: dump VAR")
		}
		return s.dump(args[0])
	case "destroy":
		if len(args) != 1 {
			return "", errors.New("usage: destroy VAR")
		}
		return s.destroy(args[0])
	default:
		return "", fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

const sessionHelp = `new VAR CLASS                 create an instance (declared or empty)
member VAR NAME TYPE VALUE    append a member (f32, f64, i32, u32)
func VAR FUNCTION             append a library function
set VAR MEMBER VALUE          update a member by name or index
call VAR FN [OTHER] [as OUT]  invoke by name or index; binary with OTHER
dump VAR                      list members and functions
destroy VAR                   run the destructor and release
vars                          list bound instances
classes                       list declared classes`

func (s *Session) lookup(name string) (*klass.Class, error) {
	c, ok := s.vars[name]
	if !ok {
		return nil, fmt.Errorf("undefined variable %q", name)
	}
	return c, nil
}

func (s *Session) bindable(name string) error {
	if !isValidIdentifier(name) {
		return fmt.Errorf("invalid variable name %q", name)
	}
	if _, taken := s.vars[name]; taken && name != resultVar {
		return fmt.Errorf("variable %q already bound; destroy it first", name)
	}
	return nil
}

// bind stores c under name and returns the line reporting it. Rebinding the
// result variable destroys the instance it held; a failing destructor there
// is noted on the line, since the new binding holds either way.
func (s *Session) bind(name string, c *klass.Class) string {
	line := name + " = " + describe(c)
	if prev, ok := s.vars[name]; ok {
		if err := prev.Destroy(); err != nil {
			line += fmt.Sprintf("\nnote: previous %s not destroyed cleanly: %v", name, err)
		}
	}
	s.vars[name] = c
	return line
}

func (s *Session) classes() string {
	if s.manifest == nil || len(s.manifest.Classes) == 0 {
		return "no classes declared"
	}
	return strings.Join(s.manifest.Names(), "\n")
}

func (s *Session) listVars() string {
	names := s.VarNames()
	if len(names) == 0 {
		return "no variables bound"
	}
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = name + " = " + describe(s.vars[name])
	}
	return strings.Join(lines, "\n")
}

func (s *Session) newInstance(name, class string) (string, error) {
	if err := s.bindable(name); err != nil {
		return "", err
	}
	desc := klass.Descriptor{Name: class}
	if s.manifest != nil {
		if decl, ok := s.manifest.Lookup(class); ok {
			resolved, err := decl.Descriptor(s.lib)
			if err != nil {
				return "", err
			}
			desc = resolved
		}
	}
	c, err := s.rt.Create(desc)
	if err != nil {
		return "", err
	}
	return s.bind(name, c), nil
}

func (s *Session) appendMember(name, member, typ, raw string) (string, error) {
	c, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	t, err := klass.ParseMemberType(typ)
	if err != nil {
		return "", err
	}
	v, err := klass.ParseValue(t, raw)
	if err != nil {
		return "", err
	}
	idx, err := c.AppendMember(klass.NewMember(member, v))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s appended at index %d", name, member, idx), nil
}

func (s *Session) appendFunction(name, fn string) (string, error) {
	c, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	f, err := s.lib.Lookup(fn)
	if err != nil {
		return "", err
	}
	idx, err := c.AppendFunction(f)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s appended at index %d", name, fn, idx), nil
}

func (s *Session) setMember(name, member, raw string) (string, error) {
	c, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	idx, err := resolveIndex(member, c.MemberIndex)
	if err != nil {
		return "", fmt.Errorf("%s has no member %q", name, member)
	}
	slot, err := c.Member(idx)
	if err != nil {
		return "", err
	}
	v, err := klass.ParseValue(slot.Type(), raw)
	if err != nil {
		return "", err
	}
	if err := c.SetMember(idx, v); err != nil {
		return "", err
	}
	return name + " = " + describe(c), nil
}

func (s *Session) call(args []string) (string, error) {
	const usage = "usage: call VAR FN [OTHER] [as OUT]"
	out := resultVar
	if n := len(args); n >= 2 && args[n-2] == "as" {
		out = args[n-1]
		args = args[:n-2]
	}
	if len(args) != 2 && len(args) != 3 {
		return "", errors.New(usage)
	}

	c, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	idx, err := resolveIndex(args[1], c.FunctionIndex)
	if err != nil {
		return "", fmt.Errorf("%s has no function %q", args[0], args[1])
	}

	if len(args) == 2 {
		if _, err := c.InvokeIndex(idx, nil); err != nil {
			return "", err
		}
		return args[0] + " = " + describe(c), nil
	}

	other, err := s.lookup(args[2])
	if err != nil {
		return "", err
	}
	if err := s.bindable(out); err != nil {
		return "", err
	}
	result, err := c.InvokeIndex(idx, other)
	if err != nil {
		return "", err
	}
	if result == nil {
		// lifecycle kinds ignore the second operand
		return args[0] + " = " + describe(c), nil
	}
	return s.bind(out, result), nil
}

func (s *Session) dump(name string) (string, error) {
	c, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := klass.Dump(&b, c); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Session) destroy(name string) (string, error) {
	c, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	delete(s.vars, name)
	if err := c.Destroy(); err != nil {
		return "", err
	}
	return name + " destroyed", nil
}

// resolveIndex reads tok as a table index, falling back to a name lookup.
func resolveIndex(tok string, byName func(string) int) (int, error) {
	if idx, err := strconv.Atoi(tok); err == nil {
		return idx, nil
	}
	if idx := byName(tok); idx >= 0 {
		return idx, nil
	}
	return -1, fmt.Errorf("no entry %q", tok)
}

func describe(c *klass.Class) string {
	parts := make([]string, 0, c.MemberCount())
	for _, m := range c.Members() {
		parts = append(parts, m.Name+"="+m.Value.String())
	}
	return fmt.Sprintf("%s {%s}", c.Name(), strings.Join(parts, " "))
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_') {
				return false
			}
		} else {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_') {
				return false
			}
		}
	}
	return true
}
