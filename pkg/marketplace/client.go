// Package marketplace is the HTTP client for the marketplace REST backend, the
// source of truth for payments, payouts and balances.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/pkg/auth"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

const (
	defaultTimeout         = 15 * time.Second
	responseBodyReadLimit  = 1 << 20
	errorBodyReadLimit     = 4 << 10
	genericBackendFailure  = "the marketplace backend could not complete the request"
	genericTransportFailed = "the marketplace backend is unreachable"
)

var errBaseURLRequired = errors.New("marketplace base url is required")

// Observer receives one call per upstream request.
type Observer func(endpoint string, statusCode int, elapsed time.Duration)

// Client talks to the marketplace backend on behalf of an explicit credential.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	observe    Observer
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the transport timeout; a timeout surfaces as a dependency failure.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent sent upstream.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(ua); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// WithObserver hooks request timing, typically into prometheus.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observe = observer
	}
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid marketplace base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		userAgent:  "escrowdesk",
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Amount renders a whole-cent decimal as a JSON number with two places.
// Callers reject sub-cent amounts before they get here.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.Round(2).StringFixed(2))
}

type failureBody struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   any    `json:"error"`
}

func (f failureBody) text() string {
	if msg := strings.TrimSpace(f.Message); msg != "" {
		return msg
	}
	switch v := f.Error.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}

// do sends one request and decodes a 2xx body into out. It never retries.
func (c *Client) do(ctx context.Context, cred auth.Credential, method, endpoint, path string, in, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "marketplace client not configured")
	}
	if cred.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode backend request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", cred.AuthorizationHeader())
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		// one key per attempt: a user-initiated resubmission gets a fresh key
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, 0, start)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, genericTransportFailed)
	}
	defer func() { _ = resp.Body.Close() }()
	c.record(endpoint, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return backendFailure(resp.StatusCode, raw)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, genericTransportFailed)
	}

	var envelope failureBody
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Success != nil && !*envelope.Success {
			return backendFailure(resp.StatusCode, raw)
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
	}
	return nil
}

func (c *Client) record(endpoint string, status int, start time.Time) {
	if c.observe == nil {
		return
	}
	c.observe(endpoint, status, c.now().Sub(start))
}

func backendFailure(status int, raw []byte) error {
	var parsed failureBody
	msg := ""
	if err := json.Unmarshal(raw, &parsed); err == nil {
		msg = parsed.text()
	}
	if msg == "" {
		msg = genericBackendFailure
	}
	code := pkgerrors.CodeDependency
	if status < 200 || status > 299 {
		code = pkgerrors.CodeForStatus(status)
	}
	return pkgerrors.Wrap(code, fmt.Errorf("backend status %d", status), msg).
		WithDetails(map[string]any{"upstreamStatus": status})
}
