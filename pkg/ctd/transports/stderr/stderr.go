// Package stderr provides a transport that prints reports in human-readable
// format. Useful for development and for hosts without a collector.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ezmode-games/ctd/pkg/ctd"
)

// StderrTransportOption configures the stderr transport.
type StderrTransportOption func(*stderrTransportConfig)

type stderrTransportConfig struct {
	verbose bool
	w       io.Writer
}

// WithVerbose enables the stack trace and inventory in the output.
func WithVerbose() StderrTransportOption {
	return func(c *stderrTransportConfig) {
		c.verbose = true
	}
}

// WithWriter sends output to w instead of os.Stderr.
func WithWriter(w io.Writer) StderrTransportOption {
	return func(c *stderrTransportConfig) {
		c.w = w
	}
}

// stderrTransport writes reports in human-readable format.
type stderrTransport struct {
	mu      sync.Mutex
	verbose bool
	w       io.Writer
}

// NewStderrTransport creates a transport that writes to stderr.
func NewStderrTransport(opts ...StderrTransportOption) ctd.Transport {
	cfg := &stderrTransportConfig{w: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrTransport{
		verbose: cfg.verbose,
		w:       cfg.w,
	}
}

// Submit formats and outputs the report.
func (t *stderrTransport) Submit(ctx context.Context, report *ctd.CrashReport) (ctd.Receipt, error) {
	var b strings.Builder

	// Format: [CTD] <timestamp> CRASH <exception> in <module> (<game> <version>)
	timestamp := time.UnixMilli(report.CrashedAt).UTC().Format(time.RFC3339)
	parts := []string{fmt.Sprintf("[CTD] %s CRASH", timestamp)}
	if code := ctd.Deref(report.ExceptionCode); code != "" {
		parts = append(parts, code)
	}
	if mod := ctd.Deref(report.FaultingModule); mod != "" {
		parts = append(parts, fmt.Sprintf("in %s", mod))
	}
	parts = append(parts, fmt.Sprintf("(%s %s)", report.GameID, report.GameVersion))
	fmt.Fprintln(&b, strings.Join(parts, " "))

	if addr := ctd.Deref(report.ExceptionAddress); addr != "" {
		fmt.Fprintf(&b, "        Address: %s\n", addr)
	}
	if hash := ctd.Deref(report.CrashHash); hash != "" {
		fmt.Fprintf(&b, "        Crash hash: %s\n", hash)
	}
	fmt.Fprintf(&b, "        Plugins: %d (schema v%d)\n", report.PluginCount, report.SchemaVersion)
	if notes := ctd.Deref(report.Notes); notes != "" {
		fmt.Fprintf(&b, "        Notes: %s\n", notes)
	}

	if t.verbose {
		fmt.Fprintf(&b, "        Stack trace:\n")
		for _, line := range strings.Split(report.StackTrace, "\n") {
			fmt.Fprintf(&b, "          %s\n", line)
		}
		fmt.Fprintf(&b, "        Load order: %s\n", report.LoadOrderJSON)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return ctd.Receipt{}, err
	}
	return ctd.Receipt{}, nil
}

// Close is a no-op for the stderr transport.
func (t *stderrTransport) Close() error {
	return nil
}
