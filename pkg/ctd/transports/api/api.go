// Package api provides a transport that posts reports to the collector's
// HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ezmode-games/ctd/pkg/ctd"
	"github.com/ezmode-games/ctd/pkg/defaults"
	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// DefaultCrashesPath is the collector endpoint for new reports.
const DefaultCrashesPath = "/crashes"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// APITransportOption configures the API transport.
type APITransportOption func(*apiTransportConfig)

type apiTransportConfig struct {
	apiKey      string
	crashesPath string
	timeout     time.Duration
	userAgent   string
	httpClient  *http.Client
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) APITransportOption {
	return func(c *apiTransportConfig) {
		c.apiKey = key
	}
}

// WithCrashesPath overrides the endpoint path (default "/crashes").
func WithCrashesPath(path string) APITransportOption {
	return func(c *apiTransportConfig) {
		if path != "" {
			c.crashesPath = path
		}
	}
}

// WithTimeout bounds each request (default 30s).
func WithTimeout(d time.Duration) APITransportOption {
	return func(c *apiTransportConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) APITransportOption {
	return func(c *apiTransportConfig) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) APITransportOption {
	return func(c *apiTransportConfig) {
		c.httpClient = hc
	}
}

// apiTransport posts reports with a resty client.
type apiTransport struct {
	client *resty.Client
	path   string
}

// NewAPITransport creates a transport posting to baseURL + crashes path.
func NewAPITransport(baseURL string, opts ...APITransportOption) ctd.Transport {
	cfg := &apiTransportConfig{
		crashesPath: DefaultCrashesPath,
		timeout:     defaults.HTTPClientTimeout,
		userAgent:   "ctd",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var client *resty.Client
	if cfg.httpClient != nil {
		client = resty.NewWithClient(cfg.httpClient)
	} else {
		client = resty.New()
	}
	client.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.userAgent)
	if cfg.apiKey != "" {
		client.SetAuthToken(cfg.apiKey)
	}

	path := cfg.crashesPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &apiTransport{client: client, path: path}
}

// Submit posts the report once and decodes the collector's receipt.
// Non-2xx responses are TRANSPORT errors; deadline failures are TIMEOUT errors.
func (t *apiTransport) Submit(ctx context.Context, report *ctd.CrashReport) (ctd.Receipt, error) {
	req := t.client.R().
		SetContext(ctx).
		SetBody(report)
	if id, ok := ctd.SubmissionIDFromContext(ctx); ok {
		req.SetHeader("Idempotency-Key", id)
	}

	resp, err := req.Post(t.path)
	if err != nil {
		if isTimeout(ctx, err) {
			return ctd.Receipt{}, cerrors.Wrap(cerrors.ErrCodeTimeout, "crash report submission timed out", err)
		}
		return ctd.Receipt{}, cerrors.Wrap(cerrors.ErrCodeTransport, "failed to submit crash report", err)
	}

	if !resp.IsSuccess() {
		body := string(resp.Body())
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return ctd.Receipt{}, cerrors.NewWithContext(cerrors.ErrCodeTransport, "collector rejected crash report",
			map[string]any{"status": resp.StatusCode(), "body": body})
	}

	var receipt ctd.Receipt
	if err := json.Unmarshal(resp.Body(), &receipt); err != nil {
		return ctd.Receipt{}, cerrors.Wrap(cerrors.ErrCodeTransport, "failed to decode receipt", err)
	}
	return receipt, nil
}

// Close releases idle connections.
func (t *apiTransport) Close() error {
	t.client.GetClient().CloseIdleConnections()
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
