package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/matzehuels/goenrichr/pkg/httputil"
	"github.com/matzehuels/goenrichr/pkg/observability"
)

// Client provides shared HTTP functionality for service API clients.
// It handles rate limiting, per-call timeouts, status mapping, and
// common request headers.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	headers map[string]string
	timeout time.Duration
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Tests pass
// httptest.Server.Client() here.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit sets the token bucket applied before every request.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Client with default headers.
// Headers are applied to all requests made through this client.
// Pass nil for headers if no default headers are needed.
func NewClient(headers map[string]string, opts ...Option) *Client {
	c := &Client{
		http:    NewHTTPClient(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		headers: headers,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	body, err := c.do(ctx, http.MethodGet, rawURL, nil, "", c.timeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", pathOf(rawURL), err)
	}
	return nil
}

// GetText performs an HTTP GET and returns the body as a string. A positive
// timeout overrides the client default for this call, which the export
// endpoint needs because large libraries take minutes to render.
func (c *Client) GetText(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	body, err := c.do(ctx, http.MethodGet, rawURL, nil, "", timeout)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PostMultipart sends fields as a multipart/form-data body and JSON-decodes
// the response into v. Fields are written in key order.
func (c *Client) PostMultipart(ctx context.Context, rawURL string, fields map[string]string, v any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	body, err := c.do(ctx, http.MethodPost, rawURL, buf.Bytes(), mw.FormDataContentType(), c.timeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", pathOf(rawURL), err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte, contentType string, timeout time.Duration) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if perr := parent.Err(); perr != nil {
			return nil, perr
		}
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: read %s: %v", ErrNetwork, path, err)}
	}
	return body, nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func pathOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path
	}
	return rawURL
}
