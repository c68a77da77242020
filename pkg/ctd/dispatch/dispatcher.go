// Package dispatch hands captured crashes to a transport on a detached
// worker, allowing at most one submission in flight per process.
package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ezmode-games/ctd/pkg/ctd"
	"github.com/ezmode-games/ctd/pkg/ctd/capture"
	"github.com/ezmode-games/ctd/pkg/ctd/transports/noop"
	"github.com/ezmode-games/ctd/pkg/defaults"
	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// ErrSubmissionInProgress is returned by SubmitAsync when the snapshot was
// dropped because another submission is outstanding.
var ErrSubmissionInProgress = cerrors.New(cerrors.ErrCodeSubmissionInProgress, "crash submission already in progress")

// FrameResolver symbolizes captured frames inside the worker.
type FrameResolver interface {
	ResolveAll(frames []ctd.RawFrame) []ctd.ResolvedFrame
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTransport sets a transport shared by all submissions. It is closed by Close.
func WithTransport(t ctd.Transport) Option {
	return func(d *Dispatcher) {
		d.transport = t
	}
}

// WithTransportFactory creates a transport per submission, inside the
// worker. The transport is closed when the submission finishes.
func WithTransportFactory(f func() (ctd.Transport, error)) Option {
	return func(d *Dispatcher) {
		d.factory = f
	}
}

// WithInventoryCache sets the inventory source (default ctd.DefaultInventoryCache).
func WithInventoryCache(c *ctd.InventoryCache) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.cache = c
		}
	}
}

// WithMetadata sets the host metadata provider.
func WithMetadata(m ctd.MetadataProvider) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metadata = m
		}
	}
}

// WithResolver symbolizes frames before the report is built.
func WithResolver(r FrameResolver) Option {
	return func(d *Dispatcher) {
		d.resolver = r
	}
}

// WithScrubber redacts report fields before the report is built.
func WithScrubber(cfg ctd.ScrubberConfig) Option {
	return func(d *Dispatcher) {
		d.scrubber = ctd.NewScrubber(cfg)
	}
}

// WithTimeout bounds the transport call (default 30s).
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithLogger sets the logger for submission outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithNotes attaches free-form notes to every report.
func WithNotes(notes string) Option {
	return func(d *Dispatcher) {
		d.notes = notes
	}
}

// Dispatcher implements capture.Submitter. Failures are logged and never
// returned to the capture path.
type Dispatcher struct {
	integrationID string
	transport     ctd.Transport
	factory       func() (ctd.Transport, error)
	cache         *ctd.InventoryCache
	metadata      ctd.MetadataProvider
	resolver      FrameResolver
	scrubber      *ctd.Scrubber
	timeout       time.Duration
	logger        *slog.Logger
	notes         string

	inFlight atomic.Bool
	// done is closed when the most recent worker finishes.
	done atomic.Pointer[chan struct{}]
}

var _ capture.Submitter = (*Dispatcher)(nil)
var _ capture.Flusher = (*Dispatcher)(nil)

// New creates a dispatcher submitting reports for integrationID.
// Without a transport option, reports are discarded.
func New(integrationID string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		integrationID: integrationID,
		cache:         ctd.DefaultInventoryCache,
		metadata:      ctd.StaticMetadata{},
		timeout:       defaults.SubmissionTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.transport == nil && d.factory == nil {
		d.transport = noop.NewNoopTransport()
	}
	return d
}

// SubmitAsync starts a worker for snap and returns immediately. If a
// submission is already outstanding the snapshot is dropped with a warning
// and ErrSubmissionInProgress is returned.
func (d *Dispatcher) SubmitAsync(snap capture.Snapshot) error {
	if !d.inFlight.CompareAndSwap(false, true) {
		submissionsDropped.Inc()
		d.logger.Warn("crash submission already in progress, dropping", "exception", snap.Code.String())
		return ErrSubmissionInProgress
	}

	done := make(chan struct{})
	d.done.Store(&done)
	go d.run(snap, done)
	return nil
}

// InFlight reports whether a submission is outstanding.
func (d *Dispatcher) InFlight() bool {
	return d.inFlight.Load()
}

// Flush waits for the outstanding submission, if any.
func (d *Dispatcher) Flush(ctx context.Context) error {
	p := d.done.Load()
	if p == nil {
		return nil
	}
	select {
	case <-*p:
		return nil
	case <-ctx.Done():
		return cerrors.Wrap(cerrors.ErrCodeTimeout, "crash submission still in flight", ctx.Err())
	}
}

// Close waits up to the flush timeout for the outstanding submission, then
// closes the shared transport.
func (d *Dispatcher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaults.FlushTimeout)
	defer cancel()
	if err := d.Flush(ctx); err != nil {
		d.logger.Warn("closing with crash submission in flight", "error", err)
	}
	if d.transport != nil {
		return d.transport.Close()
	}
	return nil
}

// run is the detached worker. The guard is released on every path.
func (d *Dispatcher) run(snap capture.Snapshot, done chan struct{}) {
	start := time.Now()
	id := uuid.NewString()
	logger := d.logger.With("submission_id", id)
	outcome := outcomeTransport

	defer func() {
		if r := recover(); r != nil {
			logger.Error("crash submission panicked", "panic", r)
			outcome = outcomePanic
		}
		submissionsTotal.WithLabelValues(outcome).Inc()
		submissionDuration.Observe(time.Since(start).Seconds())
		d.inFlight.Store(false)
		close(done)
	}()

	report, err := d.buildReport(&snap)
	if err != nil {
		logger.Error("failed to build crash report", "error", err)
		outcome = outcomeInvalid
		return
	}

	transport := d.transport
	if d.factory != nil {
		transport, err = d.factory()
		if err != nil {
			logger.Error("failed to create transport", "error", err)
			return
		}
		defer func() {
			if err := transport.Close(); err != nil {
				logger.Debug("failed to close transport", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(ctd.WithSubmissionID(context.Background(), id), d.timeout)
	defer cancel()

	receipt, err := transport.Submit(ctx, report)
	if err != nil {
		logger.Error("crash report submission failed", "error", err)
		return
	}

	outcome = outcomeSuccess
	logger.Info("crash report submitted",
		"id", receipt.ID,
		"exception", snap.Code.String(),
		"crash_hash", ctd.Deref(report.CrashHash),
		"duration", time.Since(start))
}

// buildReport assembles the report for snap from the cached inventory and
// host metadata.
func (d *Dispatcher) buildReport(snap *capture.Snapshot) (*ctd.CrashReport, error) {
	rawTrace := snap.StackTrace()
	stack := rawTrace
	if d.resolver != nil {
		stack = ctd.FormatStackTrace(d.resolver.ResolveAll(snap.RawFrames()))
	}
	faulting := snap.FaultingModule
	notes := d.notes
	if d.scrubber != nil {
		stack = d.scrubber.ScrubStackTrace(stack)
		faulting = d.scrubber.ScrubModulePath(faulting)
		notes = d.scrubber.ScrubNotes(notes)
	}

	b := ctd.NewReportBuilder().
		GameID(d.integrationID).
		StackTrace(stack).
		ExceptionCode(snap.Code.Hex()).
		ExceptionAddress(snap.ExceptionAddress()).
		GameVersion(d.metadata.GameVersion()).
		Inventory(d.cache.GetOrEmpty()).
		CrashedNow()

	if hash := ctd.CrashHash(rawTrace); hash != "" {
		b.CrashHash(hash)
	}
	if faulting != "" {
		b.FaultingModule(faulting)
	}
	if v, ok := d.metadata.ExtenderVersion(); ok && v != "" {
		b.ScriptExtenderVersion(v)
	}
	if v, ok := d.metadata.OSVersion(); ok && v != "" {
		b.OSVersion(v)
	}
	if notes != "" {
		b.Notes(notes)
	}
	return b.Build()
}
