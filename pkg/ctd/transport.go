// transport.go defines the Transport interface for report destinations.

package ctd

import "context"

// Transport delivers a built report to the collector.
// Implementations must be safe for concurrent use.
type Transport interface {
	// Submit sends the report once. There is no retry: the caller is a
	// crashing process.
	Submit(ctx context.Context, report *CrashReport) (Receipt, error)

	// Close releases resources held by the transport.
	Close() error
}
