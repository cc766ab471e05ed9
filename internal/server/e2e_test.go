// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/interview-coach/internal/chat"
	"github.com/jeranaias/interview-coach/internal/cloud"
	"github.com/jeranaias/interview-coach/internal/config"
	"github.com/jeranaias/interview-coach/internal/ratelimit"
	"github.com/jeranaias/interview-coach/internal/security"
)

// fakeOpenAI serves /v1/chat/completions and records the decoded payloads.
func fakeOpenAI(t *testing.T, status int, payloads chan<- map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil && payloads != nil {
			payloads <- payload
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "Incorrect API key provided: sk-leak", "type": "invalid_request_error"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion",
			"created": 1,
			"model":   payload["model"],
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Why do you want this role?"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 20, "completion_tokens": 6, "total_tokens": 26},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newOpenAIStack(t *testing.T, baseURL string) *Server {
	t.Helper()
	provider, err := cloud.New(context.Background(), cloud.ProviderOpenAI, cloud.Options{
		APIKey:  "sk-test",
		BaseURL: baseURL + "/v1",
	})
	require.NoError(t, err)

	moderator, err := security.NewModerator(true, nil)
	require.NoError(t, err)
	limiter := ratelimit.Default()

	orch, err := chat.NewOrchestrator(chat.Options{
		Limiter:  limiter,
		Provider: provider,
		Validate: security.NewValidator(security.DefaultMaxLength, true).Validate,
		Moderate: moderator.Moderate,
		Models:   cloud.DefaultModels[cloud.ProviderOpenAI],
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	srv, err := New(Options{
		Orchestrator: orch,
		Limiter:      limiter,
		Server:       config.Default().Server,
		Identifier:   config.IdentifierIP,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)
	return srv
}

func TestEndToEnd_OpenAI(t *testing.T) {
	payloads := make(chan map[string]any, 1)
	upstream := fakeOpenAI(t, http.StatusOK, payloads)
	srv := newOpenAIStack(t, upstream.URL)

	body := `{
		"messages": [{"role": "user", "content": "I led a team & shipped <b>fast</b>"}],
		"systemPrompt": "You are an interviewer.",
		"settings": {"model": "gpt-4", "temperature": 0.2, "maxTokens": 500, "topP": 0.9, "frequencyPenalty": 0.5, "presencePenalty": -0.5}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Why do you want this role?", gjson.Get(rec.Body.String(), "message").String())

	payload := <-payloads
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	sent := string(raw)

	assert.Equal(t, "gpt-4", gjson.Get(sent, "model").String())
	assert.Equal(t, int64(500), gjson.Get(sent, "max_tokens").Int())
	assert.InDelta(t, 0.9, gjson.Get(sent, "top_p").Float(), 1e-9)
	assert.InDelta(t, -0.5, gjson.Get(sent, "presence_penalty").Float(), 1e-9)
	assert.Equal(t, "system", gjson.Get(sent, "messages.0.role").String())
	assert.Equal(t, "You are an interviewer.", gjson.Get(sent, "messages.0.content").String())
	assert.Equal(t, "I led a team &amp; shipped bfast/b", gjson.Get(sent, "messages.1.content").String())

	snap := srv.Stats().Snapshot()
	assert.Equal(t, int64(20), snap.PromptTokens)
	assert.Equal(t, int64(6), snap.CompletionTokens)
}

func TestEndToEnd_OpenAIAuthFailureIsGeneric(t *testing.T) {
	upstream := fakeOpenAI(t, http.StatusUnauthorized, nil)
	srv := newOpenAIStack(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"hello"}],"systemPrompt":"Interview me."}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, chat.MessageProvider, gjson.Get(rec.Body.String(), "error").String())
	assert.NotContains(t, rec.Body.String(), "sk-leak")
}
