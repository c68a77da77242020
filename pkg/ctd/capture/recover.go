// recover.go bridges fatal Go runtime panics into the capture pipeline.

package capture

import (
	"context"
	"runtime"
	"strings"
)

// Recover reports a fatal Go runtime panic, then re-panics with the same
// value. Panics that do not correspond to a fatal exception class are
// re-panicked without being reported.
//
// Use in defer at the top of a goroutine:
//
//	go func() {
//	    defer h.Recover()
//	    // code that might crash
//	}()
func (h *Handler) Recover() {
	r := recover()
	if r == nil {
		return
	}

	if code, ok := classifyPanic(r); ok && h.submitter != nil {
		var snap Snapshot
		snap.Code = code
		h.captureGo(&snap)
		if err := h.submitter.SubmitAsync(snap); err != nil {
			h.logger.Warn("crash submission not started", "error", err)
		} else if fl, ok := h.submitter.(Flusher); ok {
			ctx, cancel := context.WithTimeout(context.Background(), h.flushTimeout)
			if err := fl.Flush(ctx); err != nil {
				h.logger.Warn("crash submission did not finish before re-panic", "error", err)
			}
			cancel()
		}
	}

	panic(r)
}

// classifyPanic maps runtime errors to the exception class they stand for.
func classifyPanic(r any) (ExceptionCode, bool) {
	rerr, ok := r.(runtime.Error)
	if !ok {
		return 0, false
	}
	msg := rerr.Error()
	switch {
	case strings.Contains(msg, "nil pointer dereference"),
		strings.Contains(msg, "invalid memory address"):
		return AccessViolation, true
	case strings.Contains(msg, "integer divide by zero"):
		return IntegerDivideByZero, true
	}
	return 0, false
}

// captureGo walks the panicking goroutine's stack, skipping runtime frames
// and the bridge itself.
func (h *Handler) captureGo(snap *Snapshot) {
	var pcs [MaxFrames * 2]uintptr
	n := runtime.Callers(1, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	limit := h.maxFrames
	if limit <= 0 || limit > MaxFrames {
		limit = MaxFrames
	}
	for snap.n < limit {
		f, more := frames.Next()
		if !skipGoFrame(f.Function) && f.PC != 0 {
			snap.push(uint64(f.PC), h.modules)
		}
		if !more {
			break
		}
	}

	if snap.n > 0 {
		first := snap.frames[0]
		snap.Address = first.Address
		snap.FaultingModule = first.Module
	}
}

func skipGoFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") ||
		strings.HasSuffix(fn, ".(*Handler).Recover") ||
		strings.HasSuffix(fn, ".(*Handler).captureGo")
}
