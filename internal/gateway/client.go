// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is where a locally running hub listens.
	DefaultBaseURL = "http://localhost:4000"

	// DefaultTimeout bounds non-streaming calls. Streams are bounded by
	// their context only.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries applies to idempotent GET calls. Chat requests are
	// never retried.
	DefaultMaxRetries = 2

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// MaxResponseSize caps non-streaming response bodies.
	MaxResponseSize = 10 * 1024 * 1024

	// maxErrorBody caps how much of an error body is read.
	maxErrorBody = 64 * 1024

	userAgent = "aihub-tui/1.0"

	// HeaderRequestID carries the request id to the gateway.
	HeaderRequestID = "X-Request-ID"
)

// sharedTransport pools connections across clients.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible model gateway.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	logger       *slog.Logger
}

// NewClient creates a client for the default base URL. An empty key is
// allowed; gateways without auth accept any bearer value.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Transport: sharedTransport, Timeout: DefaultTimeout},
		streamClient: &http.Client{Transport: sharedTransport},
		maxRetries:   DefaultMaxRetries,
		logger:       slog.New(slog.DiscardHandler),
	}
}

// WithBaseURL sets the gateway base URL.
func (c *Client) WithBaseURL(url string) *Client {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultBaseURL
	}
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithTimeout sets the timeout for non-streaming calls.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithRateLimit limits outbound requests to rps per second with the given
// burst. rps <= 0 removes the limit.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithMaxRetries sets the retry count for GET calls.
func (c *Client) WithMaxRetries(n int) *Client {
	if n < 0 {
		n = 0
	}
	c.maxRetries = n
	return c
}

// WithLogger sets the logger for request lines.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithHTTPClient replaces both underlying HTTP clients.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
		stream := *hc
		stream.Timeout = 0
		c.streamClient = &stream
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a display form of the key that reveals no part of it.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.KeyFingerprint())
}

// KeyFingerprint returns the first 8 hex characters of the key's SHA-256.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// wait blocks until the limiter admits a request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	return req, requestID, nil
}

// send performs one request and logs it. Headers and bodies are never
// logged.
func (c *Client) send(hc *http.Client, req *http.Request, requestID string) (*http.Response, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("gateway request failed",
			"method", req.Method, "path", req.URL.Path, "request_id", requestID,
			"duration", duration, "error", err)
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}

	c.logger.Debug("gateway request",
		"method", req.Method, "path", req.URL.Path, "request_id", requestID,
		"status", resp.StatusCode, "duration", duration)
	return resp, nil
}

// getJSON performs a GET with retries on transport errors and 5xx, then
// decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, header http.Header, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		err := c.getOnce(ctx, path, header, out)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) getOnce(ctx context.Context, path string, header http.Header, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	req, requestID, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.send(c.httpClient, req, requestID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, requestID)
	}

	body, err := readResponse(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

// readResponse reads a body up to MaxResponseSize.
func readResponse(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// isRetryable reports whether a GET should be tried again.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// calculateBackoff returns 500ms, 1s, 2s ... capped at 10s.
func calculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	return delay
}
