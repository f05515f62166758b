// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/offline"
	"github.com/jeranaias/flybuddy/internal/util"
)

// Configuration constants for the chat endpoint.
const (
	// DefaultBaseURL is the chat service used when none is configured.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout bounds a single chat request.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the sustained number of sends per second.
	DefaultRateLimit = rate.Limit(1)

	// DefaultBurst is the number of sends allowed back to back.
	DefaultBurst = 1

	// MaxResponseSize caps the size of a decoded response body.
	MaxResponseSize = 4 * 1024 * 1024

	// Endpoint paths.
	chatPath     = "/api/chat"
	healthPath   = "/api/health"
	feedbackPath = "/api/feedback"

	userAgent = "flybuddy/1.0"

	// maxErrorBody caps, in runes, a plain-text error body kept in a RemoteError.
	maxErrorBody = 200
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTimeout is returned when the request deadline elapses before a reply.
	ErrTimeout = errors.New("chat request timed out")

	// ErrOffline is returned when offline mode blocks the configured endpoint.
	ErrOffline = errors.New("chat endpoint blocked by offline mode")

	// ErrEmptyReply is returned when a 2xx response carries no message text.
	ErrEmptyReply = errors.New("reply has no message")
)

// RemoteError is a non-2xx response from the chat service.
type RemoteError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat service error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("chat service error (HTTP %d): %s", e.Status, e.Message)
}

// NetworkError is a transport failure other than a timeout: the request
// could not be sent or the response could not be read or decoded.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("chat %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsTransportFailure reports whether err is one of the failures for which a
// fallback reply should be shown.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	var remote *RemoteError
	var network *NetworkError
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrOffline) ||
		errors.As(err, &remote) ||
		errors.As(err, &network)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the body posted to the chat endpoint.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// Reply is a decoded chat response.
type Reply struct {
	Message        string
	Data           *model.TravelData
	Suggestions    []string
	ProcessingTime float64
}

// wireReply accepts both "message" and the older "response" field.
type wireReply struct {
	Message        string            `json:"message"`
	Response       string            `json:"response"`
	Data           *model.TravelData `json:"data"`
	Suggestions    []string          `json:"suggestions"`
	ProcessingTime float64           `json:"processing_time"`
	Metadata       *ReplyMetadata    `json:"metadata,omitempty"`
}

// ReplyMetadata is the optional metadata block of a chat response.
type ReplyMetadata struct {
	Timestamp      string  `json:"timestamp"`
	ProcessingTime float64 `json:"processing_time"`
	BackendType    string  `json:"backend_type"`
}

// HealthStatus is the body returned by the health endpoint.
type HealthStatus struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	BackendAvailable bool   `json:"backend_available"`
	Environment      string `json:"environment"`
}

// Healthy reports whether the service declared itself healthy.
func (h *HealthStatus) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

// Feedback is posted when the user likes or unlikes a reply.
type Feedback struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Liked          bool   `json:"liked"`
	Content        string `json:"content,omitempty"`
}

// apiErrorResponse covers the error bodies the service produces.
type apiErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat service. It is safe for concurrent use and its
// endpoint, timeout and language may be changed while in use.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	timeout    time.Duration
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: DefaultTimeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(DefaultRateLimit, DefaultBurst),
		log:     zap.NewNop(),
	}
}

// WithBaseURL sets the service base URL.
func (c *Client) WithBaseURL(url string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithTimeout sets the per-request timeout. Non-positive values restore the
// default.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
	return c
}

// WithLanguage sets the Accept-Language sent with chat requests.
func (c *Client) WithLanguage(lang model.Language) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.language = string(lang)
	return c
}

// WithRateLimit replaces the send limiter.
func (c *Client) WithRateLimit(limit rate.Limit, burst int) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(limit, burst)
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = hc
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(log *zap.Logger) *Client {
	if log == nil {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log.Named("transport")
	return c
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// snapshot returns the settings used for one request.
func (c *Client) snapshot() (baseURL string, timeout time.Duration, lang string, limiter *rate.Limiter, log *zap.Logger) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL, c.timeout, c.language, c.limiter, c.log
}

// =============================================================================
// CHAT
// =============================================================================

// Send posts message to the chat endpoint and waits for the reply.
// conversationID may be empty. Exactly one request is made.
func (c *Client) Send(ctx context.Context, message, conversationID string) (*Reply, error) {
	baseURL, timeout, lang, limiter, log := c.snapshot()

	if err := c.checkEndpoint(baseURL); err != nil {
		return nil, err
	}
	if err := limiter.Wait(ctx); err != nil {
		return nil, classify(ctx, ctx, err)
	}

	reqBody := ChatRequest{
		Message:        message,
		ConversationID: conversationID,
		Timestamp:      model.Millis(time.Now()),
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &NetworkError{Op: "encode", Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, baseURL+chatPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &NetworkError{Op: "send", Err: err}
	}
	setHeaders(req, lang)

	start := time.Now()
	body, status, err := c.do(req)
	duration := time.Since(start)
	if err != nil {
		err = classify(ctx, reqCtx, err)
		log.Warn("chat request failed",
			zap.Duration("duration", duration), zap.Duration("timeout", timeout), zap.Error(err))
		return nil, err
	}
	log.Debug("chat response",
		zap.Int("status", status), zap.Duration("duration", duration), zap.Int("bytes", len(body)))

	if status < 200 || status > 299 {
		return nil, remoteError(status, body)
	}
	return decodeReply(body)
}

// decodeReply parses a successful chat response body.
func decodeReply(body []byte) (*Reply, error) {
	var wire wireReply
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &NetworkError{Op: "decode", Err: err}
	}
	text := wire.Message
	if text == "" {
		text = wire.Response
	}
	if strings.TrimSpace(text) == "" {
		return nil, &NetworkError{Op: "decode", Err: ErrEmptyReply}
	}

	reply := &Reply{
		Message:        text,
		Suggestions:    wire.Suggestions,
		ProcessingTime: wire.ProcessingTime,
	}
	if reply.ProcessingTime == 0 && wire.Metadata != nil {
		reply.ProcessingTime = wire.Metadata.ProcessingTime
	}
	// Keep data only when there is something to display or a thread id.
	if wire.Data != nil && (!wire.Data.IsEmpty() || wire.Data.ThreadID != "") {
		reply.Data = wire.Data
	}
	return reply, nil
}

// =============================================================================
// HEALTH AND FEEDBACK
// =============================================================================

// Health queries the service health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	baseURL, timeout, lang, _, _ := c.snapshot()
	if err := c.checkEndpoint(baseURL); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+healthPath, nil)
	if err != nil {
		return nil, &NetworkError{Op: "health", Err: err}
	}
	setHeaders(req, lang)

	body, status, err := c.do(req)
	if err != nil {
		return nil, classify(ctx, reqCtx, err)
	}
	if status != http.StatusOK {
		return nil, remoteError(status, body)
	}

	var health HealthStatus
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, &NetworkError{Op: "decode", Err: err}
	}
	return &health, nil
}

// SendFeedback posts a like or unlike for a reply.
func (c *Client) SendFeedback(ctx context.Context, fb Feedback) error {
	baseURL, timeout, lang, _, log := c.snapshot()
	if err := c.checkEndpoint(baseURL); err != nil {
		return err
	}

	bodyBytes, err := json.Marshal(fb)
	if err != nil {
		return &NetworkError{Op: "encode", Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, baseURL+feedbackPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return &NetworkError{Op: "feedback", Err: err}
	}
	setHeaders(req, lang)

	body, status, err := c.do(req)
	if err != nil {
		return classify(ctx, reqCtx, err)
	}
	if status < 200 || status > 299 {
		return remoteError(status, body)
	}
	log.Debug("feedback sent", zap.String("message_id", fb.MessageID), zap.Bool("liked", fb.Liked))
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) checkEndpoint(baseURL string) error {
	err := offline.ValidateURL(baseURL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, offline.ErrNonLocalhost):
		return fmt.Errorf("%w: %s", ErrOffline, baseURL)
	default:
		return &NetworkError{Op: "send", Err: fmt.Errorf("%s: %w", baseURL, err)}
	}
}

// do performs req and reads the body with a size limit.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	c.mu.RLock()
	hc := c.httpClient
	c.mu.RUnlock()

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// classify maps a failed round trip to ErrTimeout, the caller's context
// error or a NetworkError.
func classify(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("chat request canceled: %w", parent.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return &NetworkError{Op: "request", Err: err}
}

// remoteError builds a RemoteError from a non-2xx body.
func remoteError(status int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			return &RemoteError{Status: status, Message: apiErr.Error}
		}
		if apiErr.Message != "" {
			return &RemoteError{Status: status, Message: apiErr.Message}
		}
	}
	msg := util.TruncateRunes(strings.TrimSpace(string(body)), maxErrorBody)
	return &RemoteError{Status: status, Message: msg}
}

func setHeaders(req *http.Request, lang string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
}
