package klass

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable listing of c: its name, lifecycle functions,
// numbered members and numbered functions.
func Dump(w io.Writer, c *Class) error {
	if c == nil {
		return ErrInvalidClass
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Class: %s\n", c.Name())
	if ctor, ok := c.Constructor(); ok {
		fmt.Fprintf(&b, "Constructor: %s\n", ctor.Name())
	}
	if dtor, ok := c.Destructor(); ok {
		fmt.Fprintf(&b, "Destructor: %s\n", dtor.Name())
	}

	members := c.Members()
	fmt.Fprintf(&b, "Members: %d\n", len(members))
	for i, m := range members {
		fmt.Fprintf(&b, "%d.\tName: %s\n", i+1, m.Name)
		fmt.Fprintf(&b, "\tType: %s\n", m.Type())
		fmt.Fprintf(&b, "\tData: %s\n", m.Value)
	}

	functions := c.Functions()
	fmt.Fprintf(&b, "Functions: %d\n", len(functions))
	for i, f := range functions {
		fmt.Fprintf(&b, "%d.\tName: %s\n", i+1, f.Name())
		fmt.Fprintf(&b, "\tKind: %s (%s)\n", f.Kind(), f.forms())
	}

	_, err := io.WriteString(w, b.String())
	return err
}
