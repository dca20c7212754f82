package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/mgomes/klass/klass"
	"github.com/mgomes/klass/manifest"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:], os.Stdout, os.Stderr)
	case "repl":
		return replCommand(args[2:])
	case "check":
		return checkCommand(args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

// runCommand creates every class declared in a manifest (or just -class),
// dumps it and destroys it again.
func runCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	only := fs.String("class", "", "only instantiate this class")
	logOpts := registerLogFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("klass run: manifest path required")
	}

	logger, closeLog, err := logOpts.build(stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	m, err := manifest.Load(remaining[0])
	if err != nil {
		return err
	}
	rt, err := klass.NewRuntime(klass.Config{Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	names := m.Names()
	if *only != "" {
		names = []string{*only}
	}
	lib := klass.StandardLibrary()
	for i, name := range names {
		desc, err := m.Descriptor(name, lib)
		if err != nil {
			return err
		}
		c, err := rt.Create(desc)
		if err != nil {
			return fmt.Errorf("create failed: %w", err)
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		if err := klass.Dump(stdout, c); err != nil {
			return err
		}
		if err := c.Destroy(); err != nil {
			return fmt.Errorf("destroy failed: %w", err)
		}
	}
	return nil
}

// replCommand starts an interactive session: the full-screen REPL on a
// terminal, one command per line otherwise.
func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	manifestPath := fs.String("manifest", "", "load class declarations from this TOML file")
	logOpts := registerLogFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var m *manifest.Manifest
	if *manifestPath != "" {
		loaded, err := manifest.Load(*manifestPath)
		if err != nil {
			return err
		}
		m = loaded
	}

	session, err := newSession(m, logOpts)
	if err != nil {
		return err
	}
	defer func() {
		_ = session.Close()
		fmt.Fprint(os.Stderr, session.DrainLogs())
	}()

	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return runREPL(session)
	}
	return runLines(os.Stdin, os.Stdout, os.Stderr, session)
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s run [flags] <manifest.toml>\n", prog)
	fmt.Fprintf(os.Stderr, "       %s repl [flags]\n", prog)
	fmt.Fprintf(os.Stderr, "       %s check <manifest.toml>...\n", prog)
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -class string")
	fmt.Fprintln(os.Stderr, "    run: only instantiate this class")
	fmt.Fprintln(os.Stderr, "  -manifest string")
	fmt.Fprintln(os.Stderr, "    repl: load class declarations from this TOML file")
	fmt.Fprintln(os.Stderr, "  -log-level string")
	fmt.Fprintln(os.Stderr, "    debug, info, warn or error (default \"warn\")")
	fmt.Fprintln(os.Stderr, "  -log-file string")
	fmt.Fprintln(os.Stderr, "    also append JSON logs to this file")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
