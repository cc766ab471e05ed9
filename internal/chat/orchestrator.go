// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs one interview-practice chat request through the input
// gates and relays it to the model provider.
//
// Every request passes, in order and each as a hard gate, through: the rate
// limiter, request shape checks, the validator over the system prompt and
// every message, the moderator over the same texts, then the sanitizer. Only
// sanitized text reaches the provider. The first failure ends the request
// with an *Error.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jeranaias/interview-coach/internal/cloud"
	"github.com/jeranaias/interview-coach/internal/ratelimit"
	"github.com/jeranaias/interview-coach/internal/security"
	"github.com/jeranaias/interview-coach/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultProviderTimeout bounds the provider call.
	DefaultProviderTimeout = 60 * time.Second

	// DefaultMaxMessages caps the transcript length.
	DefaultMaxMessages = 100

	// DefaultMaxTokensLimit is the largest maxTokens a request may ask for.
	DefaultMaxTokensLimit = 4000
)

// Settings bounds, matching the UI sliders.
const (
	minTemperature = 0.0
	maxTemperature = 2.0
	minTopP        = 0.0
	maxTopP        = 1.0
	minPenalty     = -2.0
	maxPenalty     = 2.0
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Options configures an Orchestrator. Limiter and Provider are required.
type Options struct {
	Limiter  ratelimit.Limiter
	Provider cloud.Provider

	// Validate and Moderate default to security.Validate and security.Moderate.
	Validate security.CheckFunc
	Moderate security.CheckFunc

	// Timeout bounds the provider call. Zero selects DefaultProviderTimeout.
	Timeout time.Duration

	// Models is the set of accepted model names. Empty accepts any non-empty name.
	Models []string

	MaxMessages    int
	MaxTokensLimit int

	Logger *slog.Logger
}

// Orchestrator handles chat requests. It is safe for concurrent use.
type Orchestrator struct {
	limiter  ratelimit.Limiter
	provider cloud.Provider
	validate security.CheckFunc
	moderate security.CheckFunc
	timeout  time.Duration
	logger   *slog.Logger

	maxMessages    int
	maxTokensLimit int

	// mu protects models.
	mu     sync.RWMutex
	models []string
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Limiter == nil {
		return nil, errors.New("chat: limiter is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("chat: provider is required")
	}

	o := &Orchestrator{
		limiter:        opts.Limiter,
		provider:       opts.Provider,
		validate:       opts.Validate,
		moderate:       opts.Moderate,
		timeout:        opts.Timeout,
		logger:         opts.Logger,
		maxMessages:    opts.MaxMessages,
		maxTokensLimit: opts.MaxTokensLimit,
		models:         slices.Clone(opts.Models),
	}
	if o.validate == nil {
		o.validate = security.Validate
	}
	if o.moderate == nil {
		o.moderate = security.Moderate
	}
	if o.timeout <= 0 {
		o.timeout = DefaultProviderTimeout
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.maxMessages <= 0 {
		o.maxMessages = DefaultMaxMessages
	}
	if o.maxTokensLimit <= 0 {
		o.maxTokensLimit = DefaultMaxTokensLimit
	}
	return o, nil
}

// Models returns the accepted model names.
func (o *Orchestrator) Models() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.models)
}

// SetModels replaces the accepted model names.
func (o *Orchestrator) SetModels(models []string) {
	o.mu.Lock()
	o.models = slices.Clone(models)
	o.mu.Unlock()
}

// ProviderName returns the name of the configured provider.
func (o *Orchestrator) ProviderName() string {
	return o.provider.Name()
}

// Handle runs req for the caller identified by identifier and returns the
// first completion. Failures are always *Error.
//
// The limiter only bounds real clients if identifier is stable across their
// requests.
func (o *Orchestrator) Handle(ctx context.Context, identifier string, req Request) (*Reply, error) {
	if err := o.Admit(identifier); err != nil {
		return nil, err
	}
	return o.Process(ctx, identifier, req)
}

// Admit charges one request to identifier and returns a KindRateLimited
// *Error once its window is used up. Callers that must read a request body
// call Admit before reading it, then Process.
func (o *Orchestrator) Admit(identifier string) error {
	if !o.limiter.Allow(identifier) {
		o.logger.Warn("rate_limit_exceeded", "identifier", identifier)
		return rateLimited()
	}
	return nil
}

// Process runs every step of Handle after the rate limit.
func (o *Orchestrator) Process(ctx context.Context, identifier string, req Request) (*Reply, error) {
	// 1. Shape and validation
	if reason := o.checkShape(req); reason != "" {
		o.logger.Info("input_rejected", "identifier", identifier, "reason", reason)
		return nil, invalidInput(reason)
	}

	texts := collectTexts(req)
	for _, text := range texts {
		if res := o.validate(text); !res.Valid {
			o.logger.Info("input_rejected",
				"identifier", identifier,
				"code", res.Code.String(),
				"reason", res.Reason,
			)
			return nil, invalidInput(res.Reason)
		}
	}

	// 2. Moderation
	for _, text := range texts {
		if res := o.moderate(text); !res.Valid {
			o.logger.Info("moderation_rejected", "identifier", identifier, "reason", res.Reason)
			return nil, moderationRejected(res.Reason)
		}
	}

	// 3. Sanitize
	messages := make([]cloud.Message, 0, len(req.Messages)+1)
	messages = append(messages, cloud.NewSystemMessage(security.Sanitize(req.SystemPrompt)))
	for _, m := range req.Messages {
		messages = append(messages, cloud.Message{Role: m.Role, Content: security.Sanitize(m.Content)})
	}

	// 4. Provider call
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.provider.Chat(callCtx, cloud.ChatRequest{
		Model:            req.Settings.Model,
		Messages:         messages,
		Temperature:      req.Settings.Temperature,
		MaxTokens:        req.Settings.MaxTokens,
		TopP:             req.Settings.TopP,
		FrequencyPenalty: req.Settings.FrequencyPenalty,
		PresencePenalty:  req.Settings.PresencePenalty,
	})

	// 5. Provider failure
	if err != nil {
		o.logger.Error("provider_error",
			"provider", o.provider.Name(),
			"model", req.Settings.Model,
			"duration", time.Since(start),
			"error", util.TruncateRunes(err.Error(), 500),
		)
		return nil, providerError(fmt.Errorf("%s chat: %w", o.provider.Name(), err))
	}

	// 6. Relay
	o.logger.Info("chat_complete",
		"provider", o.provider.Name(),
		"model", resp.Model,
		"messages", len(messages),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
		"duration", time.Since(start),
	)
	return &Reply{
		Message:          resp.Content,
		Model:            resp.Model,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	}, nil
}

// checkShape returns a reason if the request is structurally unusable.
func (o *Orchestrator) checkShape(req Request) string {
	if len(req.Messages) == 0 {
		return "At least one message is required"
	}
	if len(req.Messages) > o.maxMessages {
		return fmt.Sprintf("Too many messages (max %d)", o.maxMessages)
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Sprintf("Unsupported message role %q", util.TruncateRunes(m.Role, 20))
		}
	}

	s := req.Settings
	if s.Model == "" {
		return "Model is required"
	}
	if models := o.Models(); len(models) > 0 && !slices.Contains(models, s.Model) {
		return fmt.Sprintf("Model %q is not supported", util.TruncateRunes(s.Model, 40))
	}
	if s.Temperature < minTemperature || s.Temperature > maxTemperature {
		return "Temperature must be between 0 and 2"
	}
	if s.TopP < minTopP || s.TopP > maxTopP {
		return "Top P must be between 0 and 1"
	}
	if s.FrequencyPenalty < minPenalty || s.FrequencyPenalty > maxPenalty {
		return "Frequency penalty must be between -2 and 2"
	}
	if s.PresencePenalty < minPenalty || s.PresencePenalty > maxPenalty {
		return "Presence penalty must be between -2 and 2"
	}
	if s.MaxTokens < 1 || s.MaxTokens > o.maxTokensLimit {
		return fmt.Sprintf("Max tokens must be between 1 and %d", o.maxTokensLimit)
	}
	return ""
}

// collectTexts returns the system prompt followed by every message content.
func collectTexts(req Request) []string {
	texts := make([]string, 0, len(req.Messages)+1)
	texts = append(texts, req.SystemPrompt)
	for _, m := range req.Messages {
		texts = append(texts, m.Content)
	}
	return texts
}
