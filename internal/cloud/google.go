// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

type googleModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var newGoogleClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// GoogleProvider sends chat completions to the Gemini API.
type GoogleProvider struct {
	models googleModelsClient
}

// NewGoogleProvider creates a Gemini provider.
func NewGoogleProvider(ctx context.Context, opts Options) (*GoogleProvider, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("google: %w", ErrNotConfigured)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.httpClient(),
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := newGoogleClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}

	slog.Debug("google_provider_ready")
	return &GoogleProvider{models: client.Models}, nil
}

// Name returns "google".
func (p *GoogleProvider) Name() string { return ProviderGoogle }

// Chat sends one generate-content request. System messages become the
// system instruction; assistant turns are sent with the model role.
func (p *GoogleProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	contents, cfg, err := buildGoogleRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{Provider: ProviderGoogle, Status: apiErr.Code, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("google request: %w", err)
	}

	text := extractVisibleText(resp)
	if text == "" {
		return nil, fmt.Errorf("google: %w", ErrEmptyResponse)
	}

	out := &ChatResponse{Content: text, Model: req.Model}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func buildGoogleRequest(req ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, nil, fmt.Errorf("model is required")
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	var systemParts []string

	for _, msg := range req.Messages {
		switch strings.ToLower(strings.TrimSpace(msg.Role)) {
		case RoleSystem:
			if content := strings.TrimSpace(msg.Content); content != "" {
				systemParts = append(systemParts, content)
			}
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedRole, msg.Role)
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("at least one user or assistant message is required")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Temperature)),
		TopP:             genai.Ptr(float32(req.TopP)),
		FrequencyPenalty: genai.Ptr(float32(req.FrequencyPenalty)),
		PresencePenalty:  genai.Ptr(float32(req.PresencePenalty)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(systemParts) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}

	return contents, cfg, nil
}

func extractVisibleText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

var _ Provider = (*GoogleProvider)(nil)
