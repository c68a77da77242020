// Package cxdb provides a transport that stores crash reports in cxdb as
// SystemMessage items.
package cxdb

import (
	"context"
	"fmt"
	"strconv"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/ezmode-games/ctd/pkg/ctd"
	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBTransportOption configures the cxdb transport.
type CXDBTransportOption func(*cxdbTransportConfig)

type cxdbTransportConfig struct {
	labels    []string
	clientTag string
	contextID *uint64
}

// WithLabels sets labels for the contexts created per crash.
func WithLabels(labels []string) CXDBTransportOption {
	return func(c *cxdbTransportConfig) {
		c.labels = labels
	}
}

// WithClientTag sets the client tag for created contexts.
func WithClientTag(tag string) CXDBTransportOption {
	return func(c *cxdbTransportConfig) {
		c.clientTag = tag
	}
}

// WithContextID appends every report to an existing context instead of
// creating one per crash.
func WithContextID(id uint64) CXDBTransportOption {
	return func(c *cxdbTransportConfig) {
		c.contextID = &id
	}
}

// cxdbTransport writes reports to cxdb.
type cxdbTransport struct {
	client    CXDBClient
	labels    []string
	clientTag string
	contextID *uint64
}

// NewCXDBTransport creates a transport that writes to cxdb.
func NewCXDBTransport(client CXDBClient, opts ...CXDBTransportOption) ctd.Transport {
	cfg := &cxdbTransportConfig{
		labels:    []string{"crash"},
		clientTag: "ctd",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbTransport{
		client:    client,
		labels:    cfg.labels,
		clientTag: cfg.clientTag,
		contextID: cfg.contextID,
	}
}

// Submit stores the report. The receipt ID is "<context>/<turn>".
func (t *cxdbTransport) Submit(ctx context.Context, report *ctd.CrashReport) (ctd.Receipt, error) {
	var contextID uint64
	created := false

	if t.contextID != nil {
		contextID = *t.contextID
	} else {
		head, err := t.client.CreateContext(ctx, 0)
		if err != nil {
			return ctd.Receipt{}, cerrors.Wrap(cerrors.ErrCodeTransport, "create crash context", err)
		}
		contextID = head.ContextID
		created = true
	}

	submissionID, _ := ctd.SubmissionIDFromContext(ctx)
	item, err := t.buildConversationItem(report, submissionID, created)
	if err != nil {
		return ctd.Receipt{}, err
	}

	// Encode to msgpack using the official cxdb encoder.
	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return ctd.Receipt{}, cerrors.Wrap(cerrors.ErrCodeInternal, "encode payload", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: submissionID,
	}

	res, err := t.client.AppendTurn(ctx, req)
	if err != nil {
		return ctd.Receipt{}, cerrors.Wrap(cerrors.ErrCodeTransport, "append turn", err)
	}

	return ctd.Receipt{
		ID: strconv.FormatUint(res.ContextID, 10) + "/" + strconv.FormatUint(res.TurnID, 10),
	}, nil
}

// buildConversationItem wraps the serialized report in a system error item.
func (t *cxdbTransport) buildConversationItem(report *ctd.CrashReport, id string, created bool) (*cxdtypes.ConversationItem, error) {
	content, err := report.JSON()
	if err != nil {
		return nil, err
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: report.CrashedAt,
		ID:        id,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   buildTitle(report),
			Content: string(content),
		},
	}

	// cxdb expects context metadata on the first turn.
	if created {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    append(append([]string{}, t.labels...), report.GameID),
			ClientTag: t.clientTag,
		}
	}
	return item, nil
}

// buildTitle renders "crash <code> in <module> (<game>)", at most 100 characters.
func buildTitle(report *ctd.CrashReport) string {
	title := "crash"
	if report.ExceptionCode != nil {
		title += " " + *report.ExceptionCode
	}
	if report.FaultingModule != nil {
		title += " in " + *report.FaultingModule
	}
	title = fmt.Sprintf("%s (%s)", title, report.GameID)

	if r := []rune(title); len(r) > 100 {
		title = string(r[:97]) + "..."
	}
	return title
}

// Close is a no-op for the cxdb transport.
func (t *cxdbTransport) Close() error {
	return nil
}
