// Package capture intercepts fatal exceptions in the host process and turns
// them into plain-data snapshots.
//
// Capture is split in two phases. The first runs inside the faulting context
// and only classifies the exception, looks up the faulting module and walks
// the stack into a fixed-size Snapshot. Everything else (symbolication,
// report building and transport) happens in the second phase, on a worker
// owned by the Submitter.
//
// The handler observes only: HandleException always returns ContinueSearch
// so the host's own exception chain still runs.
//
//	h := capture.NewHandler(dispatcher, capture.WithModules(mods))
//	if err := h.Register(host); err != nil && !errors.Is(err, capture.ErrAlreadyRegistered) {
//	    log.Printf("crash handler not installed: %v", err)
//	}
package capture
