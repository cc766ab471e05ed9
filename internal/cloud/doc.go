// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud relays chat completions to hosted language-model APIs.
//
// # Key Types
//
//   - Provider: the outbound chat-completion interface
//   - OpenAIProvider: OpenAI chat completions (github.com/openai/openai-go/v3)
//   - GoogleProvider: Gemini generate-content (google.golang.org/genai)
//   - APIError: a non-2xx answer from a provider, classified by status
//
// # Usage
//
//	p, err := cloud.New(ctx, cloud.ProviderOpenAI, cloud.Options{APIKey: key})
//	resp, err := p.Chat(ctx, cloud.ChatRequest{
//	    Model:    "gpt-3.5-turbo",
//	    Messages: []cloud.Message{cloud.NewSystemMessage(sys), cloud.NewUserMessage("Hello")},
//	})
//
// Requests are single, non-streaming and never retried. Callers bound them
// with the context.
package cloud
