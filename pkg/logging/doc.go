// Package logging provides structured logging setup for ctd components.
//
// It wraps log/slog with JSON output to stderr, LOG_LEVEL based level
// selection, module/version context, and source location for debug logs.
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("ctd", version)
//	    slog.Info("starting", "integration", id)
//	}
//
// Library packages never configure logging themselves; they accept an
// optional *slog.Logger and fall back to slog.Default().
package logging
