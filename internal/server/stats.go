// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"sync/atomic"
	"time"

	"github.com/jeranaias/interview-coach/internal/chat"
)

// Stats tracks chat request outcomes. Safe for concurrent use.
type Stats struct {
	start time.Time

	totalRequests      atomic.Int64
	completed          atomic.Int64
	rateLimited        atomic.Int64
	invalidInput       atomic.Int64
	moderationRejected atomic.Int64
	providerErrors     atomic.Int64
	malformed          atomic.Int64
	promptTokens       atomic.Int64
	completionTokens   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats, served by GET /stats.
type StatsSnapshot struct {
	TotalRequests      int64     `json:"total_requests"`
	Completed          int64     `json:"completed"`
	RateLimited        int64     `json:"rate_limited"`
	InvalidInput       int64     `json:"invalid_input"`
	ModerationRejected int64     `json:"moderation_rejected"`
	ProviderErrors     int64     `json:"provider_errors"`
	MalformedRequests  int64     `json:"malformed_requests"`
	PromptTokens       int64     `json:"prompt_tokens"`
	CompletionTokens   int64     `json:"completion_tokens"`
	TrackedIdentifiers int       `json:"tracked_identifiers"`
	StartTime          time.Time `json:"start_time"`
	UptimeSeconds      int64     `json:"uptime_seconds"`
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

// RecordCompletion records a successful chat with its token usage.
func (s *Stats) RecordCompletion(promptTokens, completionTokens int) {
	s.totalRequests.Add(1)
	s.completed.Add(1)
	s.promptTokens.Add(int64(promptTokens))
	s.completionTokens.Add(int64(completionTokens))
}

// RecordError records a failed chat by kind.
func (s *Stats) RecordError(kind chat.Kind) {
	s.totalRequests.Add(1)
	switch kind {
	case chat.KindRateLimited:
		s.rateLimited.Add(1)
	case chat.KindInvalidInput:
		s.invalidInput.Add(1)
	case chat.KindModerationRejected:
		s.moderationRejected.Add(1)
	default:
		s.providerErrors.Add(1)
	}
}

// RecordMalformed records a body that could not be decoded.
func (s *Stats) RecordMalformed() {
	s.totalRequests.Add(1)
	s.malformed.Add(1)
}

// Uptime returns the time since the stats were created.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.start)
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalRequests:      s.totalRequests.Load(),
		Completed:          s.completed.Load(),
		RateLimited:        s.rateLimited.Load(),
		InvalidInput:       s.invalidInput.Load(),
		ModerationRejected: s.moderationRejected.Load(),
		ProviderErrors:     s.providerErrors.Load(),
		MalformedRequests:  s.malformed.Load(),
		PromptTokens:       s.promptTokens.Load(),
		CompletionTokens:   s.completionTokens.Load(),
		StartTime:          s.start,
		UptimeSeconds:      int64(s.Uptime().Seconds()),
	}
}
