// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/chatterm/internal/model"
)

// Configuration constants for the chat service API.
const (
	// DefaultBaseURL is the default service base URL.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all service requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// TokenSource supplies the current bearer token, or "" when the session is
// unauthenticated.
type TokenSource func() string

// =============================================================================
// CLIENT
// =============================================================================

// Client is the HTTP client for the chat service.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokenSource    TokenSource
	onUnauthorized func()
	limiter        *rate.Limiter
	logger         zerolog.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: sharedHTTPClient,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     log.Logger,
	}
}

// WithTokenSource sets the bearer-token supplier for authenticated calls.
func (c *Client) WithTokenSource(src TokenSource) *Client {
	c.tokenSource = src
	return c
}

// WithOnUnauthorized sets the hook fired whenever any call returns 401.
func (c *Client) WithOnUnauthorized(fn func()) *Client {
	c.onUnauthorized = fn
	return c
}

// WithHTTPClient sets a custom HTTP client (used by tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithTimeout sets the per-request timeout. The pooled transport is
// shared; only this client's deadline changes.
func (c *Client) WithTimeout(d time.Duration) *Client {
	hc := *c.httpClient
	hc.Timeout = d
	c.httpClient = &hc
	return c
}

// WithRateLimit caps the rate of chat submissions. Safe to call while
// requests are in flight; the limiter retunes in place.
func (c *Client) WithRateLimit(limit rate.Limit, burst int) *Client {
	c.limiter.SetLimit(limit)
	c.limiter.SetBurst(burst)
	return c
}

// WithLogger sets the logger for request/response events.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.logger = logger
	return c
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// Login exchanges credentials for an access token and user record.
func (c *Client) Login(ctx context.Context, username, password string) (*model.Credential, error) {
	var resp authResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login/", loginRequest{
		Username: username,
		Password: password,
	}, false, &resp)
	if err != nil {
		return nil, err
	}
	return &model.Credential{Token: resp.Access, User: resp.User}, nil
}

// Signup creates an account and returns the fresh credential.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*model.Credential, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup/", req, false, &resp); err != nil {
		return nil, err
	}
	return &model.Credential{Token: resp.Access, User: resp.User}, nil
}

// =============================================================================
// MODEL AND CHAT ENDPOINTS
// =============================================================================

// Models lists the available inference models. The endpoint is public.
func (c *Client) Models(ctx context.Context) ([]model.ModelDescriptor, error) {
	var resp modelsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/models/", nil, false, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// Chat submits a message to the given model and returns the reply content.
func (c *Client) Chat(ctx context.Context, message, modelID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var resp chatResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/chat/", chatRequest{
		Message: message,
		Model:   modelID,
	}, true, &resp)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// =============================================================================
// HISTORY ENDPOINTS
// =============================================================================

// History lists the committed history entries in server order.
func (c *Client) History(ctx context.Context) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/history/", nil, true, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteChat deletes one history entry by id.
func (c *Client) DeleteChat(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/chat/%d/", id)
	return c.doJSON(ctx, http.MethodDelete, path, nil, true, nil)
}

// Export fetches the bulk export payload. The raw response bytes are
// returned alongside the parsed form so the raw export format can stay
// byte-for-byte faithful to what the server sent.
func (c *Client) Export(ctx context.Context) (*ExportPayload, []byte, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/chat/export/", nil, true)
	if err != nil {
		return nil, nil, err
	}

	var payload ExportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("parse export payload: %w", err)
	}
	return &payload, raw, nil
}

// =============================================================================
// PROFILE ENDPOINTS
// =============================================================================

// Profile fetches the user profile and chat summary.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.doJSON(ctx, http.MethodGet, "/api/user/profile/", nil, true, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GenerateSummary asks the service to regenerate the profile summary.
func (c *Client) GenerateSummary(ctx context.Context) (*SummaryResponse, error) {
	var s SummaryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/user/profile/generate-summary/", struct{}{}, true, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateLanguage persists the language preference server-side.
func (c *Client) UpdateLanguage(ctx context.Context, language string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/user/language/", languageRequest{Language: language}, true, nil)
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// doJSON performs a request and unmarshals the response into out when out
// is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any, authed bool, out any) error {
	body, err := c.do(ctx, method, path, reqBody, authed)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response from %s: %w", path, err)
	}
	return nil
}

// do performs a single request and returns the response body. Transport
// errors are not retried; the engine surfaces them once and the user
// decides whether to try again.
func (c *Client) do(ctx context.Context, method, path string, reqBody any, authed bool) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, authed)

	c.logger.Debug().Str("method", method).Str("path", path).Msg("api request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: Clear Authorization header immediately after the request so
	// a logged request can never carry the token.
	req.Header.Del("Authorization")

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("api response")

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Global teardown: every 401 from the service, on any endpoint,
		// invalidates the session before the error reaches the caller.
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, fmt.Errorf("%w: %s", ErrAuthExpired, serverError(body))
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode, Message: serverError(body)}
	}

	return body, nil
}

// setHeaders sets the common request headers, attaching the bearer token
// for authenticated endpoints.
func (c *Client) setHeaders(req *http.Request, authed bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatterm/0.1.0")

	if authed && c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// serverError extracts the {"error": ...} envelope from an error body,
// returning "" when the body is not in that shape.
func serverError(body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		return apiErr.Error
	}
	return ""
}
