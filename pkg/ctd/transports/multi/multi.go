// Package multi provides a transport that fans out to multiple transports.
// All transports receive every report; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/ezmode-games/ctd/pkg/ctd"
)

// multiTransport fans out to multiple transports.
type multiTransport struct {
	transports []ctd.Transport
}

// NewMultiTransport creates a transport that submits to each of transports
// in order. Nil transports are skipped.
func NewMultiTransport(transports ...ctd.Transport) ctd.Transport {
	return &multiTransport{
		transports: lo.Filter(transports, func(t ctd.Transport, _ int) bool { return t != nil }),
	}
}

// Submit sends the report to all transports, even if some fail. The first
// non-empty receipt is returned. The error is non-nil only when no transport
// succeeded and joins every failure.
func (t *multiTransport) Submit(ctx context.Context, report *ctd.CrashReport) (ctd.Receipt, error) {
	var (
		receipt   ctd.Receipt
		succeeded bool
		errs      []error
	)
	for _, tr := range t.transports {
		r, err := tr.Submit(ctx, report)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !succeeded || (receipt.ID == "" && r.ID != "") {
			receipt = r
		}
		succeeded = true
	}
	if succeeded || len(t.transports) == 0 {
		return receipt, nil
	}
	return ctd.Receipt{}, errors.Join(errs...)
}

// Close calls Close on all transports, collecting any errors.
func (t *multiTransport) Close() error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
