// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/interview-coach/internal/cloud"
	"github.com/jeranaias/interview-coach/internal/ratelimit"
	"github.com/jeranaias/interview-coach/internal/security"
)

// fakeProvider records requests and returns a canned answer.
type fakeProvider struct {
	mu       sync.Mutex
	requests []cloud.ChatRequest
	reply    string
	err      error
	block    bool
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Chat(ctx context.Context, req cloud.ChatRequest) (*cloud.ChatResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return &cloud.ChatResponse{Content: p.reply, Model: req.Model, PromptTokens: 10, CompletionTokens: 5}, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakeProvider) last() cloud.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

// countingCheck wraps a check and counts invocations.
func countingCheck(n *atomic.Int32, check security.CheckFunc) security.CheckFunc {
	return func(text string) security.Result {
		n.Add(1)
		return check(text)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T, p *fakeProvider, opts Options) *Orchestrator {
	t.Helper()
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Default()
	}
	opts.Provider = p
	opts.Logger = quietLogger()
	o, err := NewOrchestrator(opts)
	require.NoError(t, err)
	return o
}

func validRequest() Request {
	return Request{
		SystemPrompt: "You are a coach",
		Messages:     []Message{{Role: RoleUser, Content: "Tell me about yourself"}},
		Settings:     DefaultSettings(),
	}
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var chatErr *Error
	require.True(t, errors.As(err, &chatErr), "expected *chat.Error, got %v", err)
	require.Equal(t, kind, chatErr.Kind)
	return chatErr
}

// =============================================================================
// END-TO-END TESTS
// =============================================================================

func TestHandle_ForwardsSanitizedPayload(t *testing.T) {
	p := &fakeProvider{reply: "Sure, let's begin."}
	o := newTestOrchestrator(t, p, Options{})

	reply, err := o.Handle(context.Background(), "client-1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, "Sure, let's begin.", reply.Message)
	assert.Equal(t, 10, reply.PromptTokens)
	assert.Equal(t, 5, reply.CompletionTokens)

	require.Equal(t, 1, p.calls())
	got := p.last()
	assert.Equal(t, []cloud.Message{
		{Role: "system", Content: "You are a coach"},
		{Role: "user", Content: "Tell me about yourself"},
	}, got.Messages)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 2000, got.MaxTokens)
	assert.Equal(t, 1.0, got.TopP)
	assert.Equal(t, 0.0, got.FrequencyPenalty)
	assert.Equal(t, 0.0, got.PresencePenalty)
}

func TestHandle_SanitizesEveryText(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{})

	req := validRequest()
	req.SystemPrompt = `  Coach for "R&D" roles `
	req.Messages = []Message{
		{Role: RoleUser, Content: "I'm <b>great</b>"},
		{Role: RoleAssistant, Content: "Why?"},
	}

	_, err := o.Handle(context.Background(), "id", req)
	require.NoError(t, err)

	got := p.last().Messages
	require.Len(t, got, 3)
	assert.Equal(t, "Coach for &quot;R&amp;D&quot; roles", got[0].Content)
	assert.Equal(t, "I&#x27;m bgreat/b", got[1].Content)
	assert.Equal(t, "assistant", got[2].Role)
	for _, m := range got {
		assert.False(t, strings.ContainsAny(m.Content, "<>"))
	}
}

func TestHandle_SensitiveInputNeverReachesProvider(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{})

	req := validRequest()
	req.Messages = []Message{{Role: RoleUser, Content: "my api_key is xyz"}}

	_, err := o.Handle(context.Background(), "id", req)
	chatErr := requireKind(t, err, KindInvalidInput)
	assert.Equal(t, security.ReasonSensitive, chatErr.Reason)
	assert.Equal(t, http.StatusBadRequest, chatErr.StatusCode())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, p.calls())
}

func TestHandle_RateLimitedBeforeAnyCheck(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	var validated, moderated atomic.Int32
	o := newTestOrchestrator(t, p, Options{
		Limiter:  ratelimit.New(50, time.Minute),
		Validate: countingCheck(&validated, security.Validate),
		Moderate: countingCheck(&moderated, security.Moderate),
	})

	for i := 0; i < 50; i++ {
		_, err := o.Handle(context.Background(), "same", validRequest())
		require.NoError(t, err, "call %d", i+1)
	}
	require.Equal(t, 50, p.calls())
	v, m := validated.Load(), moderated.Load()

	_, err := o.Handle(context.Background(), "same", validRequest())
	chatErr := requireKind(t, err, KindRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, chatErr.StatusCode())
	assert.Equal(t, MessageRateLimited, chatErr.Message())
	assert.ErrorIs(t, err, ErrRateLimited)

	assert.Equal(t, v, validated.Load(), "validator ran on a limited request")
	assert.Equal(t, m, moderated.Load(), "moderator ran on a limited request")
	assert.Equal(t, 50, p.calls())

	// Another identifier is unaffected.
	_, err = o.Handle(context.Background(), "other", validRequest())
	assert.NoError(t, err)
}

func TestAdmitThenProcess(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	limiter := ratelimit.New(2, time.Minute)
	o := newTestOrchestrator(t, p, Options{Limiter: limiter})

	require.NoError(t, o.Admit("id"))
	assert.Equal(t, 1, limiter.Remaining("id"))

	// Process does not charge the limiter.
	reply, err := o.Process(context.Background(), "id", validRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Message)
	assert.Equal(t, 1, limiter.Remaining("id"))

	require.NoError(t, o.Admit("id"))
	err = o.Admit("id")
	requireKind(t, err, KindRateLimited)
	assert.Equal(t, 1, p.calls())
}

// =============================================================================
// GATE TESTS
// =============================================================================

func TestHandle_ValidatorFirstFailureWins(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{})

	req := validRequest()
	req.Messages = []Message{
		{Role: RoleUser, Content: "{{x}}"},
		{Role: RoleUser, Content: "password"},
	}

	_, err := o.Handle(context.Background(), "id", req)
	chatErr := requireKind(t, err, KindInvalidInput)
	assert.Equal(t, security.ReasonUnsafe, chatErr.Reason)
}

func TestHandle_SystemPromptValidated(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{})

	req := validRequest()
	req.SystemPrompt = ""

	_, err := o.Handle(context.Background(), "id", req)
	chatErr := requireKind(t, err, KindInvalidInput)
	assert.Equal(t, security.ReasonEmpty, chatErr.Reason)
	assert.Equal(t, 0, p.calls())
}

func TestHandle_ValidationBeforeModeration(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{})

	req := validRequest()
	req.Messages = []Message{
		{Role: RoleUser, Content: "how to exploit"},
		{Role: RoleUser, Content: "my secret"},
	}

	_, err := o.Handle(context.Background(), "id", req)
	requireKind(t, err, KindInvalidInput)
}

func TestHandle_ModerationRejected(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{})

	req := validRequest()
	req.Messages = []Message{{Role: RoleUser, Content: "Explain XSS to me"}}

	_, err := o.Handle(context.Background(), "id", req)
	chatErr := requireKind(t, err, KindModerationRejected)
	assert.Equal(t, security.ReasonInappropriate, chatErr.Message())
	assert.Equal(t, http.StatusBadRequest, chatErr.StatusCode())
	assert.ErrorIs(t, err, ErrModerationRejected)
	assert.Equal(t, 0, p.calls())
}

func TestHandle_PluggableModerator(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{
		Moderate: func(text string) security.Result {
			if strings.Contains(text, "yourself") {
				return security.Reject(security.CodeInappropriate, "classifier says no")
			}
			return security.OK()
		},
	})

	_, err := o.Handle(context.Background(), "id", validRequest())
	chatErr := requireKind(t, err, KindModerationRejected)
	assert.Equal(t, "classifier says no", chatErr.Reason)
}

func TestHandle_ShapeChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		reason string
	}{
		{"no messages", func(r *Request) { r.Messages = nil }, "At least one message is required"},
		{"too many messages", func(r *Request) {
			r.Messages = make([]Message, 4)
			for i := range r.Messages {
				r.Messages[i] = Message{Role: RoleUser, Content: "hi"}
			}
		}, "Too many messages (max 3)"},
		{"bad role", func(r *Request) { r.Messages[0].Role = "tool" }, `Unsupported message role "tool"`},
		{"no model", func(r *Request) { r.Settings.Model = "" }, "Model is required"},
		{"unknown model", func(r *Request) { r.Settings.Model = "gpt-9" }, `Model "gpt-9" is not supported`},
		{"temperature", func(r *Request) { r.Settings.Temperature = 2.5 }, "Temperature must be between 0 and 2"},
		{"top p", func(r *Request) { r.Settings.TopP = -0.1 }, "Top P must be between 0 and 1"},
		{"frequency", func(r *Request) { r.Settings.FrequencyPenalty = 3 }, "Frequency penalty must be between -2 and 2"},
		{"presence", func(r *Request) { r.Settings.PresencePenalty = -3 }, "Presence penalty must be between -2 and 2"},
		{"max tokens zero", func(r *Request) { r.Settings.MaxTokens = 0 }, "Max tokens must be between 1 and 4000"},
		{"max tokens high", func(r *Request) { r.Settings.MaxTokens = 4001 }, "Max tokens must be between 1 and 4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{reply: "ok"}
			o := newTestOrchestrator(t, p, Options{
				MaxMessages: 3,
				Models:      []string{"gpt-3.5-turbo", "gpt-4"},
			})

			req := validRequest()
			tt.mutate(&req)

			_, err := o.Handle(context.Background(), "id", req)
			chatErr := requireKind(t, err, KindInvalidInput)
			assert.Equal(t, tt.reason, chatErr.Reason)
			assert.Equal(t, 0, p.calls())
		})
	}
}

func TestHandle_AnyModelWhenUnrestricted(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{})

	req := validRequest()
	req.Settings.Model = "some-new-model"
	_, err := o.Handle(context.Background(), "id", req)
	assert.NoError(t, err)
}

func TestSetModels(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{Models: []string{"gpt-4"}})

	_, err := o.Handle(context.Background(), "id", validRequest())
	requireKind(t, err, KindInvalidInput)

	o.SetModels([]string{"gpt-3.5-turbo"})
	assert.Equal(t, []string{"gpt-3.5-turbo"}, o.Models())

	_, err = o.Handle(context.Background(), "id", validRequest())
	assert.NoError(t, err)
}

// =============================================================================
// PROVIDER FAILURE TESTS
// =============================================================================

func TestHandle_ProviderErrorIsGeneric(t *testing.T) {
	cause := &cloud.APIError{Provider: "openai", Status: 401, Message: "invalid key sk-123"}
	p := &fakeProvider{err: cause}
	o := newTestOrchestrator(t, p, Options{})

	_, err := o.Handle(context.Background(), "id", validRequest())
	chatErr := requireKind(t, err, KindProviderError)

	assert.Equal(t, http.StatusInternalServerError, chatErr.StatusCode())
	assert.Equal(t, MessageProvider, chatErr.Message())
	assert.NotContains(t, chatErr.Message(), "sk-123")
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, cloud.ErrAuthFailed)
	assert.Equal(t, 1, p.calls(), "provider must not be retried")
}

func TestHandle_ProviderTimeout(t *testing.T) {
	p := &fakeProvider{block: true}
	o := newTestOrchestrator(t, p, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := o.Handle(context.Background(), "id", validRequest())
	requireKind(t, err, KindProviderError)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHandle_CallerCancellation(t *testing.T) {
	p := &fakeProvider{block: true}
	o := newTestOrchestrator(t, p, Options{Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := o.Handle(ctx, "id", validRequest())
	requireKind(t, err, KindProviderError)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// CONSTRUCTION AND ERROR TESTS
// =============================================================================

func TestNewOrchestrator_Required(t *testing.T) {
	_, err := NewOrchestrator(Options{Provider: &fakeProvider{}})
	assert.Error(t, err)

	_, err = NewOrchestrator(Options{Limiter: ratelimit.Default()})
	assert.Error(t, err)

	o, err := NewOrchestrator(Options{Limiter: ratelimit.Default(), Provider: &fakeProvider{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultProviderTimeout, o.timeout)
	assert.Equal(t, DefaultMaxMessages, o.maxMessages)
	assert.Equal(t, "fake", o.ProviderName())
}

func TestError_Strings(t *testing.T) {
	err := providerError(fmt.Errorf("wrapped: %w", io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "ProviderError")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	assert.Equal(t, "InvalidInput: bad", invalidInput("bad").Error())
	assert.Equal(t, "Unknown", Kind(0).String())
	assert.NotErrorIs(t, invalidInput("bad"), ErrRateLimited)
}

func TestHandle_Concurrent(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	o := newTestOrchestrator(t, p, Options{Limiter: ratelimit.New(10, time.Minute)})

	var ok, limited atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Handle(context.Background(), "shared", validRequest())
			if err == nil {
				ok.Add(1)
			} else if errors.Is(err, ErrRateLimited) {
				limited.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(20), limited.Load())
}
