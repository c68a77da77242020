// Package noop provides a transport that discards all reports.
// Useful for testing and for disabling submission.
package noop

import (
	"context"

	"github.com/ezmode-games/ctd/pkg/ctd"
)

// noopTransport discards all reports.
type noopTransport struct{}

// NewNoopTransport creates a transport that discards all reports.
// Submit returns an empty receipt and nil.
func NewNoopTransport() ctd.Transport {
	return &noopTransport{}
}

// Submit discards the report.
func (t *noopTransport) Submit(ctx context.Context, report *ctd.CrashReport) (ctd.Receipt, error) {
	return ctd.Receipt{}, nil
}

// Close is a no-op and returns nil.
func (t *noopTransport) Close() error {
	return nil
}
