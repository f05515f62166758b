// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:5000"

	// MaxRequestBodySize is the maximum size for a request body (64KB).
	MaxRequestBodySize = 64 * 1024

	// MaxMessageLength is the maximum accepted chat message length in runes.
	MaxMessageLength = 4000

	// Version is the mock server version.
	Version = "1.0.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures the mock server.
type Options struct {
	// Addr is the listen address.
	Addr string
	// Environment is reported by the health endpoint.
	Environment string
	// AllowedOrigins lists CORS origins; empty allows any.
	AllowedOrigins []string
	// Latency delays every chat reply.
	Latency time.Duration
}

// Stats counts requests served.
type Stats struct {
	ChatRequests     int64 `json:"chat_requests"`
	FeedbackReceived int64 `json:"feedback_received"`
	Rejected         int64 `json:"rejected"`
}

// Server is the mock chat service.
type Server struct {
	opts   Options
	logger *zap.Logger
	router chi.Router

	mu     sync.Mutex
	rng    *rand.Rand
	server *http.Server

	chats    atomic.Int64
	feedback atomic.Int64
	rejected atomic.Int64

	now func() time.Time
}

// New creates a mock server.
func New(opts Options, logger *zap.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Environment == "" {
		opts.Environment = "development"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		opts:   opts,
		logger: logger,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:    time.Now,
	}
	s.setupRoutes()
	return s
}

// WithRand replaces the suggestion source, for deterministic tests.
func (s *Server) WithRand(rng *rand.Rand) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// Stats returns request counters.
func (s *Server) Stats() Stats {
	return Stats{
		ChatRequests:     s.chats.Load(),
		FeedbackReceived: s.feedback.Load(),
		Rejected:         s.rejected.Load(),
	}
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))
	r.Use(SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/chat", s.handleChat)
		r.Post("/feedback", s.handleFeedback)
		r.Get("/stats", s.handleStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.router = r
}

// ============================================================================
// CHAT
// ============================================================================

// ChatRequest is the chat endpoint request body.
type ChatRequest struct {
	Message        *string `json:"message"`
	ConversationID string  `json:"conversation_id,omitempty"`
	// Timestamp is the client send time in epoch milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// ChatResponse is the chat endpoint response body.
type ChatResponse struct {
	Message     string            `json:"message"`
	Type        ReplyType         `json:"type"`
	Data        *model.TravelData `json:"data,omitempty"`
	Suggestions []string          `json:"suggestions"`
	Metadata    ResponseMetadata  `json:"metadata"`
}

// ResponseMetadata describes how a reply was produced.
type ResponseMetadata struct {
	Timestamp      string  `json:"timestamp"`
	ProcessingTime float64 `json:"processing_time"`
	BackendType    string  `json:"backend_type"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.rejected.Add(1)
		s.logger.Debug("invalid chat request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == nil {
		s.rejected.Add(1)
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	message := strings.TrimSpace(*req.Message)
	if message == "" {
		s.rejected.Add(1)
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	if util.RuneLen(message) > MaxMessageLength {
		s.rejected.Add(1)
		writeError(w, http.StatusRequestEntityTooLarge, "Message is too long")
		return
	}

	s.chats.Add(1)
	start := time.Now()
	s.logger.Info("processing message",
		zap.String("preview", util.TruncateRunes(message, 100)),
		zap.String("conversation_id", req.ConversationID),
		zap.Int64("sent_at", req.Timestamp),
	)

	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return
		}
	}

	reply := MockReply(message)
	s.mu.Lock()
	suggestions := Suggestions(reply.Type, s.rng)
	s.mu.Unlock()

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	resp := ChatResponse{
		Message:     reply.Message,
		Type:        reply.Type,
		Data:        reply.Data,
		Suggestions: suggestions,
		Metadata: ResponseMetadata{
			Timestamp:      s.now().Format(time.RFC3339),
			ProcessingTime: elapsed,
			BackendType:    "mock",
		},
	}
	s.logger.Debug("response generated",
		zap.String("type", string(reply.Type)),
		zap.Float64("processing_ms", elapsed),
	)
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// HEALTH
// ============================================================================

// HealthResponse is the health endpoint response body.
type HealthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	BackendAvailable bool   `json:"backend_available"`
	Environment      string `json:"environment"`
	Version          string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "healthy",
		Timestamp:        s.now().Format(time.RFC3339),
		BackendAvailable: false,
		Environment:      s.opts.Environment,
		Version:          Version,
	})
}

// ============================================================================
// FEEDBACK
// ============================================================================

// FeedbackRequest is the feedback endpoint request body.
type FeedbackRequest struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Liked          *bool  `json:"liked"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	Rating         *int   `json:"rating"`
}

// FeedbackResponse acknowledges feedback.
type FeedbackResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.rejected.Add(1)
		writeError(w, http.StatusBadRequest, "Failed to submit feedback")
		return
	}
	s.feedback.Add(1)

	fields := []zap.Field{
		zap.String("conversation_id", req.ConversationID),
		zap.String("message_id", req.MessageID),
	}
	if req.Liked != nil {
		fields = append(fields, zap.Bool("liked", *req.Liked))
	}
	if req.Type != "" {
		fields = append(fields, zap.String("type", req.Type))
	}
	if req.Rating != nil {
		fields = append(fields, zap.Int("rating", *req.Rating))
	}
	if text := req.Message + req.Content; text != "" {
		fields = append(fields, zap.String("preview", util.TruncateRunes(text, 100)))
	}
	s.logger.Info("feedback received", fields...)

	writeJSON(w, http.StatusOK, FeedbackResponse{
		Success:   true,
		Message:   "Thank you for your feedback!",
		Timestamp: s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("server started",
		zap.String("addr", ln.Addr().String()),
		zap.String("environment", s.opts.Environment),
		zap.String("version", Version),
	)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	stats := s.Stats()
	s.logger.Info("server shutting down",
		zap.Int64("chat_requests", stats.ChatRequests),
		zap.Int64("feedback_received", stats.FeedbackReceived),
	)
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeBody decodes a bounded JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
