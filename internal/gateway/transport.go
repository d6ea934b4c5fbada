package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/config"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/version"
)

const maxResponseBytes = 32 << 20

// Request is one outbound call.
type Request struct {
	Method  string
	Path    string
	Body    map[string]any
	Query   url.Values
	Timeout time.Duration
}

// Response is a successful (< 400) remote reply with a JSON object body.
type Response struct {
	StatusCode int
	Body       map[string]any
}

// Sender issues outbound requests. Errors are always *RemoteError.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Transport talks to the Databricks REST API. Each Send is attempted once.
type Transport struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  *logrus.Entry
}

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		t.client = c
	}
}

// NewTransport builds a transport from the validated configuration.
func NewTransport(cfg *config.Config, logger *logrus.Entry, opts ...TransportOption) *Transport {
	t := &Transport{
		baseURL: strings.TrimRight(cfg.DatabricksHost, "/"),
		token:   cfg.DatabricksToken,
		timeout: cfg.RequestTimeout(),
		client:  &http.Client{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send issues req and classifies the outcome.
func (t *Transport) Send(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := t.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &RemoteError{Kind: FailureTransport, Message: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &RemoteError{Kind: FailureTransport, Message: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	t.logger.Debugf("%s %s", req.Method, target)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyNetError(ctx, err, timeout)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyNetError(ctx, err, timeout)
	}

	t.logger.Debugf("%s %s completed with status %d", req.Method, target, resp.StatusCode)

	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, raw)
	}

	parsed, err := decodeObject(raw)
	if err != nil {
		return nil, &RemoteError{
			Kind:       FailureInvalidResponse,
			Message:    fmt.Sprintf("Invalid JSON response from API: %v", err),
			StatusCode: resp.StatusCode,
			RawBody:    string(raw),
		}
	}
	return &Response{StatusCode: resp.StatusCode, Body: parsed}, nil
}

func apiError(status int, raw []byte) *RemoteError {
	message := fmt.Sprintf("Request failed with status %d", status)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		if m, ok := body["message"].(string); ok && strings.TrimSpace(m) != "" {
			message = m
		}
	}
	return &RemoteError{
		Kind:       FailureAPI,
		Message:    message,
		StatusCode: status,
		RawBody:    string(raw),
	}
}

// decodeObject parses a JSON object, keeping numbers exact.
func decodeObject(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("empty response body")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonType(v))
	}
	return obj, nil
}

func classifyNetError(ctx context.Context, err error, timeout time.Duration) *RemoteError {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &RemoteError{Kind: FailureTimeout, Message: fmt.Sprintf("Request timed out after %s", timeout)}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &RemoteError{Kind: FailureTimeout, Message: fmt.Sprintf("Request timed out: %v", err)}
	case errors.Is(err, context.Canceled):
		return &RemoteError{Kind: FailureTransport, Message: "Request cancelled"}
	default:
		return &RemoteError{Kind: FailureTransport, Message: fmt.Sprintf("HTTP error: %v", err)}
	}
}
