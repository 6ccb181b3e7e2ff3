// Package logger configures the process-wide slog logger for the CLI.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// Options selects the handler.
type Options struct {
	// Format is "text" (default) or "json".
	Format  string
	Verbose bool
}

// SetOutput sets the writer used by the next Setup. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// IsVerbose reports whether debug logging is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// Setup builds a logger from opts and installs it as slog.Default.
func Setup(opts Options) (*slog.Logger, error) {
	mu.Lock()
	defer mu.Unlock()
	verbose = opts.Verbose

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		h = slog.NewTextHandler(output, hopts)
	case "json":
		h = slog.NewJSONHandler(output, hopts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l, nil
}
