// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// Client-facing messages for errors that carry no reason of their own.
const (
	MessageRateLimited = "Too many requests. Please try again later."
	MessageProvider    = "There was an error processing your request"
)

// Error variables for errors.Is checks against *Error.
var (
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidInput       = errors.New("invalid input")
	ErrModerationRejected = errors.New("moderation rejected")
	ErrProvider           = errors.New("provider error")
)

// Kind classifies an orchestration failure.
type Kind int

const (
	KindRateLimited Kind = iota + 1
	KindInvalidInput
	KindModerationRejected
	KindProviderError
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "RateLimited"
	case KindInvalidInput:
		return "InvalidInput"
	case KindModerationRejected:
		return "ModerationRejected"
	case KindProviderError:
		return "ProviderError"
	default:
		return "Unknown"
	}
}

// Error is a terminal failure of one chat request.
type Error struct {
	Kind   Kind
	Reason string

	// Err is the underlying cause. Only set for KindProviderError and never
	// shown to the client.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrModerationRejected:
		return e.Kind == KindModerationRejected
	case ErrProvider:
		return e.Kind == KindProviderError
	}
	return false
}

// StatusCode returns the HTTP status for the error's kind.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalidInput, KindModerationRejected:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show the client.
func (e *Error) Message() string {
	switch e.Kind {
	case KindRateLimited:
		return MessageRateLimited
	case KindProviderError:
		return MessageProvider
	default:
		return e.Reason
	}
}

func rateLimited() *Error {
	return &Error{Kind: KindRateLimited, Reason: MessageRateLimited}
}

func invalidInput(reason string) *Error {
	return &Error{Kind: KindInvalidInput, Reason: reason}
}

func moderationRejected(reason string) *Error {
	return &Error{Kind: KindModerationRejected, Reason: reason}
}

func providerError(err error) *Error {
	return &Error{Kind: KindProviderError, Reason: MessageProvider, Err: err}
}
