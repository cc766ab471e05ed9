// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIURL is the base URL for the OpenAI API.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIProvider sends chat completions to the OpenAI API.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates an OpenAI provider. The SDK's automatic retries
// are disabled.
func NewOpenAIProvider(opts Options) (*OpenAIProvider, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(opts.httpClient()),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{client: client}, nil
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Chat sends one chat completion request and returns the first choice.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params, err := buildOpenAIParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	return &ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func buildOpenAIParams(req ChatRequest) (openai.ChatCompletionNewParams, error) {
	if strings.TrimSpace(req.Model) == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("messages are required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		param, err := toOpenAIMessage(msg)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, param)
	}

	params := openai.ChatCompletionNewParams{
		Model:            openai.ChatModel(req.Model),
		Messages:         messages,
		Temperature:      openai.Float(req.Temperature),
		TopP:             openai.Float(req.TopP),
		FrequencyPenalty: openai.Float(req.FrequencyPenalty),
		PresencePenalty:  openai.Float(req.PresencePenalty),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params, nil
}

func toOpenAIMessage(msg Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch strings.ToLower(strings.TrimSpace(msg.Role)) {
	case RoleSystem:
		return openai.SystemMessage(msg.Content), nil
	case RoleUser:
		return openai.UserMessage(msg.Content), nil
	case RoleAssistant:
		return openai.AssistantMessage(msg.Content), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: %s", ErrUnsupportedRole, msg.Role)
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: ProviderOpenAI, Status: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return fmt.Errorf("openai request: %w", err)
}

var _ Provider = (*OpenAIProvider)(nil)
