package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/mgomes/klass/klass"
	"github.com/mgomes/klass/manifest"
)

type lintWarning struct {
	Class   string
	Message string
}

// checkCommand validates manifests and reports declarations that would fail
// or behave oddly at runtime.
func checkCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}

	paths := fs.Args()
	if len(paths) == 0 {
		return errors.New("klass check: manifest path required")
	}

	lib := klass.StandardLibrary()
	issues := 0
	for _, path := range paths {
		m, err := manifest.Load(path)
		if err != nil {
			return err
		}
		for _, warning := range lintManifest(m, lib) {
			issues++
			fmt.Fprintf(stdout, "%s: class %q: %s\n", m.Source, warning.Class, warning.Message)
		}
	}

	if issues == 0 {
		fmt.Fprintln(stdout, "No issues found")
		return nil
	}
	return fmt.Errorf("check found %d issue(s)", issues)
}

func lintManifest(m *manifest.Manifest, lib klass.Library) []lintWarning {
	warnings := make([]lintWarning, 0)
	for _, decl := range m.Classes {
		add := func(format string, args ...any) {
			warnings = append(warnings, lintWarning{
				Class:   decl.Name,
				Message: fmt.Sprintf(format, args...),
			})
		}

		lintLifecycle("constructor", decl.Constructor, lib, add)
		lintLifecycle("destructor", decl.Destructor, lib, add)

		seen := make(map[string]struct{})
		hasBinary := false
		for _, name := range decl.Functions {
			if _, dup := seen[name]; dup {
				add("function %q listed more than once", name)
			}
			seen[name] = struct{}{}
			fn, err := lib.Lookup(name)
			if err != nil {
				add("%v", err)
				continue
			}
			hasBinary = hasBinary || fn.HasBinary()
		}

		if hasBinary && len(decl.Members) == 0 {
			add("binary functions on a class without members always produce empty instances")
		}
		if len(decl.Members) == 0 && len(decl.Functions) == 0 && decl.Constructor == "" && decl.Destructor == "" {
			add("class declares nothing")
		}
	}
	return warnings
}

func lintLifecycle(role, name string, lib klass.Library, add func(string, ...any)) {
	if name == "" {
		return
	}
	fn, err := lib.Lookup(name)
	if err != nil {
		add("%s: %v", role, err)
		return
	}
	if !fn.HasUnary() {
		add("%s %q has no unary form and cannot run as a %s", role, name, role)
	}
}
