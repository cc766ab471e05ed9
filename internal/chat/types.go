// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// Role names accepted in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelSettings are the per-request model parameters chosen in the UI.
type ModelSettings struct {
	Model            string  `json:"model"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"maxTokens"`
	TopP             float64 `json:"topP"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
}

// DefaultSettings returns the settings the UI starts with.
func DefaultSettings() ModelSettings {
	return ModelSettings{
		Model:            "gpt-3.5-turbo",
		Temperature:      0.7,
		MaxTokens:        2000,
		TopP:             1,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}
}

// Request is the body of a chat call.
type Request struct {
	Messages     []Message     `json:"messages"`
	SystemPrompt string        `json:"systemPrompt"`
	Settings     ModelSettings `json:"settings"`
}

// Reply is a successful completion.
type Reply struct {
	Message          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}
