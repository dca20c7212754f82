package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mgomes/klass/klass"
	"github.com/mgomes/klass/manifest"
)

const sessionManifest = `
[[class]]
name = "Vec2"
destructor = "trace"
functions = ["add", "negate"]

[[class.member]]
name = "x"
type = "f32"
value = 1

[[class.member]]
name = "y"
type = "f32"
value = 3
`

func newTestSession(t *testing.T, src string) *Session {
	t.Helper()
	var m *manifest.Manifest
	if src != "" {
		parsed, err := manifest.Parse([]byte(src), "session.toml")
		if err != nil {
			t.Fatalf("parse manifest: %v", err)
		}
		m = parsed
	}
	s, err := newSession(m, &logOptions{level: "info"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustEval(t *testing.T, s *Session, line string) string {
	t.Helper()
	out, err := s.Eval(line)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return out
}

func TestSessionBinaryCall(t *testing.T) {
	s := newTestSession(t, sessionManifest)

	mustEval(t, s, "new a Vec2")
	mustEval(t, s, "new b Vec2")
	mustEval(t, s, "set b x 2")
	mustEval(t, s, "set b 1 4")

	out := mustEval(t, s, "call a add b as c")
	if out != "c = Vec2 {x=3 y=7}" {
		t.Fatalf("unexpected call output %q", out)
	}
	if got := describe(s.vars["a"]); got != "Vec2 {x=1 y=3}" {
		t.Fatalf("left operand changed: %s", got)
	}
	if got := describe(s.vars["b"]); got != "Vec2 {x=2 y=4}" {
		t.Fatalf("right operand changed: %s", got)
	}
	if s.rt.Live() != 3 {
		t.Fatalf("expected 3 live instances, got %d", s.rt.Live())
	}
}

func TestSessionResultVariableIsReplaced(t *testing.T) {
	s := newTestSession(t, sessionManifest)
	mustEval(t, s, "new a Vec2")
	mustEval(t, s, "new b Vec2")

	mustEval(t, s, "call a 0 b")
	first := s.vars[resultVar]
	mustEval(t, s, "call a add b")

	if !first.Released() {
		t.Fatalf("previous result should be destroyed when rebinding %s", resultVar)
	}
	if s.rt.Live() != 3 {
		t.Fatalf("expected 3 live instances, got %d", s.rt.Live())
	}
	if logs := s.DrainLogs(); !strings.Contains(logs, "msg=trace") {
		t.Fatalf("destroying the old result should run its destructor, logs: %q", logs)
	}
}

func TestSessionUnaryCallAndAppend(t *testing.T) {
	s := newTestSession(t, "")

	mustEval(t, s, "new p Point")
	mustEval(t, s, "member p x i32 5")
	if out := mustEval(t, s, "member p y u32 7"); out != "p.y appended at index 1" {
		t.Fatalf("unexpected append output %q", out)
	}
	mustEval(t, s, "func p negate")

	out := mustEval(t, s, "call p negate")
	if out != "p = Point {x=-5 y=4294967289}" {
		t.Fatalf("unexpected negate output %q", out)
	}
}

func TestSessionErrors(t *testing.T) {
	s := newTestSession(t, sessionManifest)
	mustEval(t, s, "new a Vec2")

	cases := []struct {
		line string
		want string
	}{
		{"bogus", "unknown command"},
		{"new a Vec2", "already bound"},
		{"new 1x Vec2", "invalid variable name"},
		{"dump nope", "undefined variable"},
		{"set a z 1", "has no member"},
		{"set a x one", "parse f32"},
		{"member a z f16 1", "unknown member type"},
		{"func a div", "unknown function"},
		{"call a missing", "has no function"},
		{"call a add", "no unary form"},
		{"call a 7", "out of range"},
		{"call", "usage"},
	}
	for _, tc := range cases {
		_, err := s.Eval(tc.line)
		if err == nil {
			t.Fatalf("%s: expected error", tc.line)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q, got %v", tc.line, tc.want, err)
		}
	}
}

func TestSessionDumpAndDestroy(t *testing.T) {
	s := newTestSession(t, sessionManifest)
	mustEval(t, s, "new a Vec2")

	out := mustEval(t, s, "dump a")
	if !strings.HasPrefix(out, "Class: Vec2\nDestructor: trace\nMembers: 2") {
		t.Fatalf("unexpected dump %q", out)
	}

	if out := mustEval(t, s, "destroy a"); out != "a destroyed" {
		t.Fatalf("unexpected destroy output %q", out)
	}
	if _, ok := s.vars["a"]; ok {
		t.Fatalf("destroyed variable still bound")
	}
	if s.rt.Live() != 0 {
		t.Fatalf("expected no live instances")
	}
	if logs := s.DrainLogs(); !strings.Contains(logs, `members="x=1 y=3"`) {
		t.Fatalf("destructor trace missing from logs: %q", logs)
	}
}

func TestSessionListings(t *testing.T) {
	s := newTestSession(t, sessionManifest)
	if out := mustEval(t, s, "classes"); out != "Vec2" {
		t.Fatalf("unexpected classes %q", out)
	}
	if out := mustEval(t, s, "vars"); out != "no variables bound" {
		t.Fatalf("unexpected vars %q", out)
	}
	mustEval(t, s, "new b Vec2")
	mustEval(t, s, "new a Vec2")
	if out := mustEval(t, s, "vars"); out != "a = Vec2 {x=1 y=3}\nb = Vec2 {x=1 y=3}" {
		t.Fatalf("unexpected vars %q", out)
	}

	empty := newTestSession(t, "")
	if out := mustEval(t, empty, "classes"); out != "no classes declared" {
		t.Fatalf("unexpected classes %q", out)
	}
}

func TestSessionCloseDestroysEverything(t *testing.T) {
	s, err := newSession(nil, &logOptions{level: "warn"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	mustEval(t, s, "new a A")
	mustEval(t, s, "new b B")

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.rt.Live() != 0 {
		t.Fatalf("close left %d live instances", s.rt.Live())
	}
	if logs := s.DrainLogs(); !strings.Contains(logs, "destroyed live instances on exit") || !strings.Contains(logs, "count=2") {
		t.Fatalf("expected leak warning, got %q", logs)
	}
}

func TestRunLines(t *testing.T) {
	s := newTestSession(t, sessionManifest)
	input := strings.Join([]string{
		"# build two vectors",
		"new a Vec2",
		"new b Vec2",
		"",
		"call a add b as c",
		"quit",
		"new never Vec2",
	}, "\n")

	var stdout, stderr bytes.Buffer
	if err := runLines(strings.NewReader(input), &stdout, &stderr, s); err != nil {
		t.Fatalf("runLines: %v", err)
	}
	want := "a = Vec2 {x=1 y=3}\nb = Vec2 {x=1 y=3}\nc = Vec2 {x=2 y=6}\n"
	if stdout.String() != want {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if _, ok := s.vars["never"]; ok {
		t.Fatalf("lines after quit should not run")
	}
}

func TestRunLinesReportsFailures(t *testing.T) {
	s := newTestSession(t, "")
	var stdout, stderr bytes.Buffer

	err := runLines(strings.NewReader("dump nope\nnew a A\n"), &stdout, &stderr, s)
	if err == nil || !strings.Contains(err.Error(), "1 command(s) failed") {
		t.Fatalf("expected failure count, got %v", err)
	}
	if !strings.Contains(stdout.String(), `error: undefined variable "nope"`) {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if _, ok := s.vars["a"]; !ok {
		t.Fatalf("commands after a failure should still run")
	}
}

func TestSessionCompletions(t *testing.T) {
	s := newTestSession(t, sessionManifest)
	mustEval(t, s, "new alpha Vec2")

	words := s.Completions()
	for _, want := range []string{"new", "negate", "alpha", "Vec2"} {
		found := false
		for _, w := range words {
			if w == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("completions missing %q: %v", want, words)
		}
	}
}

func TestNewSessionRejectsBadLevel(t *testing.T) {
	if _, err := newSession(nil, &logOptions{level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestSessionDestroyReportsDestructorError(t *testing.T) {
	s := newTestSession(t, "")
	mustEval(t, s, "new a A")
	boom := klass.NewDestructor("boom", func(*klass.Class) error { return errors.New("boom") })
	c, err := s.rt.Create(klass.Descriptor{Name: "B", Destructor: &boom})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.vars["b"] = c

	if _, err := s.Eval("destroy b"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected destructor error, got %v", err)
	}
	if _, ok := s.vars["b"]; ok || !c.Released() {
		t.Fatalf("instance should be unbound and released even when its destructor fails")
	}
}

func TestSessionRebindNotesDestructorError(t *testing.T) {
	s := newTestSession(t, "")
	boom := klass.NewDestructor("boom", func(*klass.Class) error { return errors.New("boom") })
	prev, err := s.rt.Create(klass.Descriptor{Name: "Old", Destructor: &boom})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.vars[resultVar] = prev

	out, err := s.Eval("new _ Fresh")
	if err != nil {
		t.Fatalf("rebinding should succeed, got %v", err)
	}
	if !strings.HasPrefix(out, "_ = Fresh {}") || !strings.Contains(out, "boom") {
		t.Fatalf("unexpected output %q", out)
	}
	if !prev.Released() || s.vars[resultVar].Name() != "Fresh" {
		t.Fatalf("new instance should be bound and the old one released")
	}
}
