// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jeranaias/interview-coach/internal/chat"
	"github.com/jeranaias/interview-coach/internal/cloud"
	"github.com/jeranaias/interview-coach/internal/config"
	"github.com/jeranaias/interview-coach/internal/ratelimit"
	"github.com/jeranaias/interview-coach/internal/security"
)

// gates are the local input checks, usable without a provider.
type gates struct {
	validator *security.Validator
	moderator *security.Moderator
}

func newGates(cfg *config.Config) (*gates, error) {
	moderator, err := security.NewModerator(cfg.Moderation.Normalize, cfg.Moderation.ExtraPatterns)
	if err != nil {
		return nil, configError(err)
	}
	return &gates{
		validator: security.NewValidator(cfg.Validation.MaxLength, cfg.Validation.Normalize),
		moderator: moderator,
	}, nil
}

// stack is the fully wired request pipeline.
type stack struct {
	*gates
	cfg     *config.Config
	logger  *slog.Logger
	limiter *ratelimit.FixedWindow
	orch    *chat.Orchestrator
}

// newProvider is replaced in tests.
var newProvider = func(ctx context.Context, cfg *config.Config) (cloud.Provider, error) {
	return cloud.New(ctx, cfg.Provider.Name, cloud.Options{
		APIKey:  cfg.APIKey(),
		BaseURL: cfg.Provider.BaseURL,
		Timeout: cfg.ProviderTimeout(),
	})
}

func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error) {
	g, err := newGates(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, configError(fmt.Errorf("provider %s: %w", cfg.Provider.Name, err))
	}

	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window())
	orch, err := chat.NewOrchestrator(chat.Options{
		Limiter:        limiter,
		Provider:       provider,
		Validate:       g.validator.Validate,
		Moderate:       g.moderator.Moderate,
		Timeout:        cfg.ProviderTimeout(),
		Models:         cfg.Provider.Models,
		MaxMessages:    cfg.Provider.MaxMessages,
		MaxTokensLimit: cfg.Provider.MaxTokensLimit,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &stack{
		gates:   g,
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
		orch:    orch,
	}, nil
}

// apply hot-swaps the settings that can change without a restart: rate
// limits, extra moderation patterns and the model list. Other changes are
// logged and take effect on the next start.
func (s *stack) apply(next *config.Config) {
	prev := s.cfg

	s.limiter.SetLimits(next.RateLimit.Limit, next.RateLimit.Window())
	if err := s.moderator.SetExtraPatterns(next.Moderation.ExtraPatterns); err != nil {
		s.logger.Warn("config_reload_failed", "field", "moderation.extra_patterns", "error", err)
	}
	s.orch.SetModels(next.Provider.Models)

	var restart []string
	if prev.Server.Addr != next.Server.Addr {
		restart = append(restart, "server.addr")
	}
	if prev.Provider.Name != next.Provider.Name || prev.APIKey() != next.APIKey() || prev.Provider.BaseURL != next.Provider.BaseURL {
		restart = append(restart, "provider")
	}
	if prev.Validation != next.Validation {
		restart = append(restart, "validation")
	}
	if prev.RateLimit.Identifier != next.RateLimit.Identifier {
		restart = append(restart, "rate_limit.identifier")
	}
	if !slices.Equal(prev.Server.CORSOrigins, next.Server.CORSOrigins) || !slices.Equal(prev.Server.TrustedProxies, next.Server.TrustedProxies) {
		restart = append(restart, "server")
	}

	s.cfg = next
	s.logger.Info("config_reloaded",
		"rate_limit", next.RateLimit.Limit,
		"window_ms", next.RateLimit.WindowMs,
		"extra_patterns", s.moderator.ExtraPatternCount(),
		"models", len(next.Provider.Models),
	)
	if len(restart) > 0 {
		s.logger.Warn("config_restart_required", "fields", restart)
	}
}
