// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// DefaultModels lists the chat models offered for each provider.
var DefaultModels = map[string][]string{
	ProviderOpenAI: {"gpt-3.5-turbo", "gpt-4", "gpt-4-turbo-preview"},
	ProviderGoogle: {"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
}

// Names returns the provider names New understands.
func Names() []string {
	return []string{ProviderOpenAI, ProviderGoogle}
}

// New creates the named provider.
func New(ctx context.Context, name string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderOpenAI:
		return NewOpenAIProvider(opts)
	case ProviderGoogle:
		return NewGoogleProvider(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
