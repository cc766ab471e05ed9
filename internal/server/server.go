// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/interview-coach/internal/chat"
	"github.com/jeranaias/interview-coach/internal/config"
	"github.com/jeranaias/interview-coach/internal/prompts"
	"github.com/jeranaias/interview-coach/internal/ratelimit"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultMaxBodyBytes caps the chat request body (1 MiB).
	DefaultMaxBodyBytes = 1 << 20

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Orchestrator *chat.Orchestrator

	// Limiter, when set, is used to report X-RateLimit-* headers. It should
	// be the same limiter the orchestrator charges.
	Limiter *ratelimit.FixedWindow

	Server config.ServerConfig

	// Identifier is the rate-limit identifier strategy (ip, session, random).
	Identifier string

	Logger *slog.Logger
}

// Server is the HTTP front end for the chat orchestrator.
type Server struct {
	orch     *chat.Orchestrator
	limiter  *ratelimit.FixedWindow
	cfg      config.ServerConfig
	logger   *slog.Logger
	resolver *ClientIPResolver
	identify IdentifierFunc
	stats    *Stats
	router   *http.ServeMux
	handler  http.Handler

	mu     sync.Mutex
	server *http.Server
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Orchestrator == nil {
		return nil, errors.New("server: orchestrator is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Server.MaxBodyBytes <= 0 {
		opts.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	resolver, err := NewClientIPResolver(opts.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	identify, err := NewIdentifier(opts.Identifier, resolver)
	if err != nil {
		return nil, err
	}

	s := &Server{
		orch:     opts.Orchestrator,
		limiter:  opts.Limiter,
		cfg:      opts.Server,
		logger:   opts.Logger,
		resolver: resolver,
		identify: identify,
		stats:    NewStats(),
		router:   http.NewServeMux(),
	}
	s.setupRoutes()
	s.handler = s.buildHandler()
	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Stats returns the server's request counters.
func (s *Server) Stats() *Stats {
	return s.stats
}

func (s *Server) buildHandler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(s.logger),
		RequestIDMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger, s.resolver),
		CORSMiddleware(&CORSConfig{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Session-Id"},
			MaxAge:         86400,
		}),
	}
	if s.cfg.GlobalRPS > 0 {
		middlewares = append(middlewares,
			ThrottleMiddleware(rate.NewLimiter(rate.Limit(s.cfg.GlobalRPS), s.cfg.GlobalBurst), s.logger))
	}
	return Chain(middlewares...)(s.router)
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("GET /api/models", s.handleModels)
	s.router.HandleFunc("GET /api/prompts", s.handlePrompts)

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the failure body of every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleChat handles POST /api/chat. The request is charged to the limiter
// before the body is read, so malformed bodies use up budget too.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	identifier := s.identify(r)
	if err := s.orch.Admit(identifier); err != nil {
		s.setRateLimitHeaders(w, identifier)
		s.writeChatError(w, identifier, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	// Omitted settings fall back to the UI defaults.
	req := chat.Request{Settings: s.defaultSettings()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.setRateLimitHeaders(w, identifier)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.stats.RecordMalformed()
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", tooLarge.Limit))
			return
		}
		s.logger.Debug("invalid_request_body", "error", err)
		s.stats.RecordMalformed()
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	reply, err := s.orch.Process(r.Context(), identifier, req)
	s.setRateLimitHeaders(w, identifier)
	if err != nil {
		s.writeChatError(w, identifier, err)
		return
	}

	s.stats.RecordCompletion(reply.PromptTokens, reply.CompletionTokens)
	s.writeJSON(w, http.StatusOK, ChatResponse{Message: reply.Message})
}

func (s *Server) writeChatError(w http.ResponseWriter, identifier string, err error) {
	var chatErr *chat.Error
	if !errors.As(err, &chatErr) {
		chatErr = &chat.Error{Kind: chat.KindProviderError, Err: err}
	}
	if chatErr.Kind == chat.KindRateLimited {
		s.setRetryAfter(w, identifier)
	}
	s.stats.RecordError(chatErr.Kind)
	s.writeError(w, chatErr.StatusCode(), chatErr.Message())
}

func (s *Server) defaultSettings() chat.ModelSettings {
	settings := chat.DefaultSettings()
	if models := s.orch.Models(); len(models) > 0 {
		settings.Model = models[0]
	}
	return settings
}

func (s *Server) setRateLimitHeaders(w http.ResponseWriter, identifier string) {
	if s.limiter == nil {
		return
	}
	limit, _ := s.limiter.Limits()
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(s.limiter.Remaining(identifier)))
}

func (s *Server) setRetryAfter(w http.ResponseWriter, identifier string) {
	if s.limiter == nil {
		return
	}
	entry, ok := s.limiter.Get(identifier)
	if !ok {
		return
	}
	_, window := s.limiter.Limits()
	wait := time.Until(entry.WindowStart.Add(window))
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

// ============================================================================
// MODELS / PROMPTS HANDLERS
// ============================================================================

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Provider string             `json:"provider"`
	Models   []string           `json:"models"`
	Defaults chat.ModelSettings `json:"defaults"`
}

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ModelsResponse{
		Provider: s.orch.ProviderName(),
		Models:   s.orch.Models(),
		Defaults: s.defaultSettings(),
	})
}

// PromptsResponse is the body of GET /api/prompts.
type PromptsResponse struct {
	Templates         []prompts.Template `json:"templates"`
	Sections          []prompts.Section  `json:"sections"`
	Evaluation        string             `json:"evaluation"`
	EvaluationRequest string             `json:"evaluationRequest"`
	DefaultTemplate   string             `json:"defaultTemplate"`
	DefaultSection    string             `json:"defaultSection"`
}

// handlePrompts handles GET /api/prompts.
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, PromptsResponse{
		Templates:         prompts.Templates,
		Sections:          prompts.Sections,
		Evaluation:        prompts.Evaluation,
		EvaluationRequest: prompts.EvaluationRequest,
		DefaultTemplate:   prompts.DefaultTemplateID,
		DefaultSection:    prompts.DefaultSectionID,
	})
}

// ============================================================================
// HEALTH / STATS HANDLERS
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Provider      string `json:"provider"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		Provider:      s.orch.ProviderName(),
		UptimeSeconds: int64(s.stats.Uptime().Seconds()),
	})
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.stats.Snapshot()
	if s.limiter != nil {
		snap.TrackedIdentifiers = s.limiter.Len()
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

func (s *Server) httpServer() *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		s.server = &http.Server{
			Addr:         s.cfg.Addr,
			Handler:      s.handler,
			ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  120 * time.Second,
		}
	}
	return s.server
}

// ListenAndServe listens on the configured address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	srv := s.httpServer()
	s.logger.Info("server_start", "addr", srv.Addr, "version", Version, "provider", s.orch.ProviderName())
	return srv.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	srv := s.httpServer()
	s.logger.Info("server_start", "addr", l.Addr().String(), "version", Version, "provider", s.orch.ProviderName())
	return srv.Serve(l)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	snap := s.stats.Snapshot()
	s.logger.Info("server_shutdown", "total_requests", snap.TotalRequests, "completed", snap.Completed)
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response_write_failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
