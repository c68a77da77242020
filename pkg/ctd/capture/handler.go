// handler.go implements the Unregistered → Registered handler state machine
// and the in-context exception callback.

package capture

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ezmode-games/ctd/pkg/defaults"
	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// ErrAlreadyRegistered is returned by a second registration attempt. Nothing
// is installed when it is returned.
var ErrAlreadyRegistered = cerrors.New(cerrors.ErrCodeAlreadyRegistered, "crash handler already registered")

// Host installs exception callbacks in the host process.
type Host interface {
	AddExceptionHandler(fn func(*ExceptionRecord) Disposition) error
}

// HostFunc adapts a function to Host.
type HostFunc func(fn func(*ExceptionRecord) Disposition) error

// AddExceptionHandler calls f.
func (f HostFunc) AddExceptionHandler(fn func(*ExceptionRecord) Disposition) error {
	return f(fn)
}

// Submitter receives snapshots from the capture phase. SubmitAsync must
// return promptly and must not block on I/O.
type Submitter interface {
	SubmitAsync(snap Snapshot) error
}

// Flusher is implemented by submitters that can wait for in-flight work.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithModules sets the address-to-module map used during capture.
func WithModules(m ModuleMap) Option {
	return func(h *Handler) {
		h.modules = m
	}
}

// WithUnwinder sets the stack unwinder. Without one, only the faulting
// instruction is recorded.
func WithUnwinder(u Unwinder) Option {
	return func(h *Handler) {
		h.unwinder = u
	}
}

// WithMaxFrames lowers the walk depth below MaxFrames.
func WithMaxFrames(n int) Option {
	return func(h *Handler) {
		h.maxFrames = n
	}
}

// WithFlushTimeout bounds how long Recover waits for the submission.
func WithFlushTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.flushTimeout = d
	}
}

// WithLogger sets the logger used outside the in-context path.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// Handler captures fatal exceptions and hands snapshots to a Submitter.
type Handler struct {
	submitter    Submitter
	modules      ModuleMap
	unwinder     Unwinder
	maxFrames    int
	flushTimeout time.Duration
	logger       *slog.Logger

	registered atomic.Bool
}

// NewHandler creates an unregistered handler.
func NewHandler(submitter Submitter, opts ...Option) *Handler {
	h := &Handler{
		submitter:    submitter,
		maxFrames:    MaxFrames,
		flushTimeout: defaults.FlushTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registered reports whether Register succeeded.
func (h *Handler) Registered() bool {
	return h.registered.Load()
}

// Register installs the handler with host exactly once. A second call
// returns ErrAlreadyRegistered. If the host refuses, the handler returns to
// the unregistered state and the error has code REGISTRATION_FAILED.
func (h *Handler) Register(host Host) error {
	if !h.registered.CompareAndSwap(false, true) {
		return ErrAlreadyRegistered
	}
	if err := host.AddExceptionHandler(h.HandleException); err != nil {
		h.registered.Store(false)
		return cerrors.Wrap(cerrors.ErrCodeRegistrationFailed, "failed to install exception handler", err)
	}
	return nil
}

// HandleException is the callback run inside the faulting context. It never
// panics and always returns ContinueSearch. Non-fatal codes are declined
// without capture.
func (h *Handler) HandleException(rec *ExceptionRecord) (d Disposition) {
	d = ContinueSearch
	defer func() {
		_ = recover()
	}()

	if rec == nil || !rec.Code.IsFatal() {
		return d
	}

	var snap Snapshot
	h.capture(rec, &snap)
	if h.submitter != nil {
		_ = h.submitter.SubmitAsync(snap)
	}
	return d
}

// capture fills snap from rec. A failure part way through keeps the frames
// walked so far, or the faulting address when there are none.
func (h *Handler) capture(rec *ExceptionRecord, snap *Snapshot) {
	snap.Code = rec.Code
	snap.Address = rec.Address
	defer func() {
		if recover() != nil && snap.n == 0 {
			snap.frames[0] = Frame{Address: rec.Address, Offset: rec.Address}
			snap.n = 1
			snap.Synthetic = true
		}
	}()

	if h.modules != nil {
		if m, ok := h.modules.ModuleAt(rec.Address); ok {
			snap.FaultingModule = m.Name
		}
	}
	Walk(rec, h.unwinder, h.modules, h.maxFrames, snap)
}

// processRegistered guards the process-wide handler.
var processRegistered atomic.Bool

// Register installs one handler for the whole process. Only the first
// successful call installs anything; later calls return ErrAlreadyRegistered.
func Register(host Host, submitter Submitter, opts ...Option) (*Handler, error) {
	if !processRegistered.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRegistered
	}
	h := NewHandler(submitter, opts...)
	if err := h.Register(host); err != nil {
		processRegistered.Store(false)
		return nil, err
	}
	return h, nil
}
