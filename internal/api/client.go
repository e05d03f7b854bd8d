// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mdelaney/nutri-tui/internal/session"
)

// Configuration constants for the nutrition service API.
const (
	// DefaultBaseURL is the base URL of a locally running service.
	DefaultBaseURL = "http://localhost:9000"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB

	// requestsPerSecond caps the outbound request rate so a tight poll
	// loop cannot hammer the service.
	requestsPerSecond = 10
)

// Envelope codes the service uses beyond plain HTTP statuses.
const (
	// CodeOK indicates the operation completed synchronously.
	CodeOK = 200

	// CodeDeferred indicates the reply will arrive later; data carries
	// a task_id to poll.
	CodeDeferred = 202

	// CodeUnauthorized mirrors HTTP 401 inside the envelope.
	CodeUnauthorized = 401

	// CodeSessionExpired is the service's custom invalid-token code.
	CodeSessionExpired = 999
)

// sharedHTTPClient pools connections for all service requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// Error variables for common service errors.
var (
	// ErrSessionExpired indicates the server invalidated the current
	// session token. The session has already been torn down when this
	// is returned.
	ErrSessionExpired = errors.New("session expired")

	// ErrNetwork indicates the request never produced a response
	// (connection refused, timeout, DNS failure).
	ErrNetwork = errors.New("network error")

	// ErrBadResponse indicates the server responded with a body the
	// client could not decode as an envelope.
	ErrBadResponse = errors.New("malformed server response")
)

// Error represents a non-success envelope from the service.
type Error struct {
	Code    int    // envelope code
	Message string // server-provided message
	Status  int    // HTTP status the envelope arrived with
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service error [%d] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("service error [%d] (HTTP %d)", e.Code, e.Status)
}

// Envelope is the uniform response shape of every service endpoint.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// decodeData unmarshals the envelope payload into v.
func (e *Envelope) decodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: envelope has no data", ErrBadResponse)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

// Client talks to the nutrition service on behalf of one session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a client bound to the given session. The session's
// token, when present, is attached to every request; a server-side
// invalidation tears the session down through it.
func NewClient(baseURL string, sess *session.Session, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: sharedHTTPClient,
		session:    sess,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		log:        log.With().Str("component", "api").Logger(),
	}
}

// WithTimeout sets the request timeout. The shared pooled transport is
// kept; only this client's deadline changes.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	client := *c.httpClient
	client.Timeout = timeout
	c.httpClient = &client
	return c
}

// WithHTTPClient substitutes the underlying HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one request and returns the decoded envelope.
//
// A body of nil sends no payload; anything else is JSON-encoded.
// Envelope codes 200 and 202 are returned to the caller; 401/999 (at
// either the HTTP or envelope level) expire the session and return
// ErrSessionExpired; everything else becomes an *Error.
func (c *Client) do(ctx context.Context, method, path string, body any) (*Envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	// Never log the token or bodies, only the request shape.
	if err != nil {
		c.log.Warn().Str("method", method).Str("path", path).
			Dur("duration", duration).Err(err).Msg("request failed")
		// A caller-canceled request is not a transport failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).
		Int("status", resp.StatusCode).Dur("duration", duration).Msg("request")

	raw, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// No envelope at all still counts as invalidation on HTTP 401.
		if c.expire(resp.StatusCode, 0, resp.Status) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	if c.expire(resp.StatusCode, env.Code, env.Message) {
		return nil, ErrSessionExpired
	}

	switch env.Code {
	case CodeOK, CodeDeferred:
		return &env, nil
	default:
		return nil, &Error{Code: env.Code, Message: env.Message, Status: resp.StatusCode}
	}
}

// expire reports whether the response signals session invalidation and
// tears the session down when it does. Invalidation only applies to an
// authenticated session: a 401 on a login attempt is a credential
// failure, not an expiry.
func (c *Client) expire(httpStatus, envelopeCode int, reason string) bool {
	invalid := httpStatus == http.StatusUnauthorized || httpStatus == CodeSessionExpired ||
		envelopeCode == CodeUnauthorized || envelopeCode == CodeSessionExpired
	if !invalid || !c.session.Authenticated() {
		return false
	}
	c.session.Expire(reason)
	return true
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeded %d bytes", ErrBadResponse, MaxResponseSize)
	}
	return body, nil
}
