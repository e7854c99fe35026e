package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Reply is the part of an HTTP response the protocol looks at.
type Reply struct {
	StatusCode int
	Body       string
}

// Sender delivers one encoded request body to the groove resource with the
// given HTTP method. A returned error means the exchange itself failed;
// any status code, including errors, is a Reply.
type Sender interface {
	Send(ctx context.Context, method string, body []byte) (Reply, error)
}

// Endpoint returns the groove resource address for a context:
// {base}/api/tools/{contextID}.
func Endpoint(baseURL, contextID string) string {
	// The context id is escaped so it always stays a single path segment.
	return strings.TrimRight(baseURL, "/") + "/api/tools/" + url.PathEscape(contextID)
}

// HTTPSenderConfig configures an HTTPSender.
type HTTPSenderConfig struct {
	// Endpoint is the full resource URL, usually built with Endpoint.
	Endpoint string
	// Client overrides the shared HTTP client.
	Client *http.Client
	// UserAgent is sent with every request when set.
	UserAgent string
}

// HTTPSender is the production Sender over net/http.
type HTTPSender struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

// NewHTTPSender creates an HTTP sender from cfg.
func NewHTTPSender(cfg HTTPSenderConfig) (*HTTPSender, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("reconcile: http sender endpoint is empty")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("reconcile: invalid endpoint %q: %w", endpoint, err)
	}
	client := cfg.Client
	if client == nil {
		client = sharedClient()
	}
	return &HTTPSender{
		endpoint:  endpoint,
		client:    client,
		userAgent: cfg.UserAgent,
	}, nil
}

// Send issues one JSON request against the groove resource.
func (s *HTTPSender) Send(ctx context.Context, method string, body []byte) (Reply, error) {
	if s == nil {
		return Reply{}, fmt.Errorf("reconcile: http sender is nil")
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("reconcile: build HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if s.userAgent != "" {
		httpReq.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("reconcile: HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("reconcile: read HTTP response: %w", err)
	}

	return Reply{StatusCode: resp.StatusCode, Body: string(respBody)}, nil
}

var _ Sender = (*HTTPSender)(nil)
