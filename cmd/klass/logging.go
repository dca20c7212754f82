package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

type logOptions struct {
	level string
	file  string
}

func registerLogFlags(fs *flag.FlagSet) *logOptions {
	opts := &logOptions{}
	fs.StringVar(&opts.level, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.StringVar(&opts.file, "log-file", "", "also append JSON logs to this file")
	return opts
}

// build returns a logger writing text records at the configured level to w
// and, when a log file is set, every record as JSON to that file. The
// returned func closes the file.
func (o *logOptions) build(w io.Writer) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.level)); err != nil {
		return nil, nil, fmt.Errorf("invalid -log-level %q: %w", o.level, err)
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}
	closeFn := func() error { return nil }

	if o.file != "" {
		f, err := os.OpenFile(o.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closeFn = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}
