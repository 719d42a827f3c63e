// Package api is the authenticated client for the inventory backend.
//
// All outbound calls flow through one pipeline: Client.do attaches the
// current bearer credential from the session store, and recovers from an
// authorization failure at most once per call by exchanging the stored
// refresh token for a new access token and retrying the original request.
// Everything else passes through to the caller untouched.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

// DefaultBaseURL is the development backend address used when no base
// URL is configured.
const DefaultBaseURL = "http://localhost:3000"

// Client talks to the inventory backend REST API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client

	store   *session.Store
	logger  *slog.Logger
	metrics *Metrics

	// onInvalidated is called (once per irrecoverable auth failure) after
	// the session has been cleared. The application shell subscribes to
	// navigate back to the login view; the pipeline itself never
	// navigates.
	onInvalidated func()

	// refreshMu serializes token refreshes so a burst of 401s produces a
	// single refresh call instead of a storm.
	refreshMu sync.Mutex

	categories *resultCache[[]string]
}

// NewClient creates a backend client bound to the given session store.
// The base URL falls back to the STOCKDECK_API_BASE_URL environment
// variable and then to DefaultBaseURL.
func NewClient(store *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: envOrDefault("STOCKDECK_API_BASE_URL", DefaultBaseURL),
		timeout: parseDurationEnv("STOCKDECK_API_TIMEOUT", 15*time.Second),
		store:   store,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}
	c.categories = newResultCache[[]string](defaultCacheSize, defaultCacheTTL)

	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one pipeline-managed request: marshal, attach credential,
// send, and on a 401 run the single-shot refresh-and-retry recovery.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, result any) error {
	sess := c.store.Get()

	err := c.send(ctx, method, path, query, body, result, sess.AccessToken)
	if err == nil {
		return nil
	}

	// Only an HTTP 401 enters the recovery path. Transport failures and
	// every other status propagate untouched.
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}
	// The refresh endpoint's own 401 must not recurse.
	if path == "/auth/refresh" {
		return err
	}

	token, rerr := c.refreshAccessToken(ctx, sess.AccessToken)
	if rerr != nil {
		c.invalidate(err)
		return &SessionInvalidatedError{Cause: err}
	}

	// One retry with the new credential. Its outcome, including another
	// 401, is final.
	return c.send(ctx, method, path, query, body, result, token)
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token and updates the session store. Concurrent callers are
// serialized; a caller that lost the race reuses the winner's token
// instead of issuing a second refresh call.
//
// staleToken is the access token the failed request carried.
func (c *Client) refreshAccessToken(ctx context.Context, staleToken string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	sess := c.store.Get()

	// Another goroutine already refreshed while we waited on the lock.
	if sess.AccessToken != "" && sess.AccessToken != staleToken {
		c.metrics.countRefresh(refreshOutcomeCoalesced)
		return sess.AccessToken, nil
	}

	if sess.RefreshToken == "" {
		c.metrics.countRefresh(refreshOutcomeFailure)
		return "", fmt.Errorf("no refresh token")
	}

	var resp refreshResponse
	err := c.send(ctx, http.MethodPost, "/auth/refresh",
		nil, map[string]string{"refreshToken": sess.RefreshToken}, &resp, sess.AccessToken)
	if err != nil {
		c.metrics.countRefresh(refreshOutcomeFailure)
		return "", fmt.Errorf("refresh token exchange: %w", err)
	}
	if resp.AccessToken == "" {
		c.metrics.countRefresh(refreshOutcomeFailure)
		return "", fmt.Errorf("refresh response missing access token")
	}

	// The backend does not rotate the refresh token; carry it over.
	c.store.Set(session.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: sess.RefreshToken,
		User:         sess.User,
	})
	c.metrics.countRefresh(refreshOutcomeSuccess)
	c.logger.Debug("access token refreshed")
	return resp.AccessToken, nil
}

// invalidate clears the session and notifies the shell. Fire-and-forget
// from the pipeline's perspective.
func (c *Client) invalidate(cause error) {
	c.logger.Info("session invalidated", "cause", cause)
	c.store.Clear()
	c.categories.Clear()
	if c.onInvalidated != nil {
		c.onInvalidated()
	}
}

// send performs a single HTTP round trip with no recovery logic.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, result any, token string) error {
	target := strings.TrimRight(c.baseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observeRequest(method, "transport", time.Since(start).Seconds())
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.observeRequest(method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status:    resp.StatusCode,
			Message:   backendMessage(respBody),
			RequestID: requestID,
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// upload POSTs a pre-built body (e.g. multipart form data) with the
// same credential handling and single-shot 401 recovery as do. The body
// is a byte slice so the retry can resend it.
func (c *Client) upload(ctx context.Context, path, contentType string, body []byte, result any) error {
	sess := c.store.Get()

	err := c.sendRaw(ctx, path, contentType, body, result, sess.AccessToken)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	token, rerr := c.refreshAccessToken(ctx, sess.AccessToken)
	if rerr != nil {
		c.invalidate(err)
		return &SessionInvalidatedError{Cause: err}
	}
	return c.sendRaw(ctx, path, contentType, body, result, token)
}

// sendRaw performs one POST round trip with an opaque body.
func (c *Client) sendRaw(ctx context.Context, path, contentType string, body []byte, result any, token string) error {
	target := strings.TrimRight(c.baseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observeRequest(http.MethodPost, "transport", time.Since(start).Seconds())
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.metrics.observeRequest(http.MethodPost, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status:    resp.StatusCode,
			Message:   backendMessage(respBody),
			RequestID: requestID,
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// download streams a raw (non-JSON) response body to w, with the same
// credential handling and single-shot 401 recovery as do.
func (c *Client) download(ctx context.Context, path string, w io.Writer) error {
	sess := c.store.Get()

	err := c.stream(ctx, path, w, sess.AccessToken)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	token, rerr := c.refreshAccessToken(ctx, sess.AccessToken)
	if rerr != nil {
		c.invalidate(err)
		return &SessionInvalidatedError{Cause: err}
	}
	return c.stream(ctx, path, w, token)
}

// stream performs one GET round trip and copies the body to w.
func (c *Client) stream(ctx context.Context, path string, w io.Writer, token string) error {
	target := strings.TrimRight(c.baseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observeRequest(http.MethodGet, "transport", time.Since(start).Seconds())
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.metrics.observeRequest(http.MethodGet, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Status:    resp.StatusCode,
			Message:   backendMessage(respBody),
			RequestID: requestID,
		}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("stream response body: %w", err)
	}
	return nil
}

// backendMessage pulls the "message" field out of an error body when the
// backend sent structured JSON, falling back to the raw text.
func backendMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// Helper functions for env var parsing.

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}
