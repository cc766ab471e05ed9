// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

// Code identifies why a check rejected its input.
type Code int

const (
	// CodeOK means the input passed the check.
	CodeOK Code = iota

	// CodeEmptyInput means the input was empty after trimming whitespace.
	CodeEmptyInput

	// CodeTooLong means the input exceeded the maximum length.
	CodeTooLong

	// CodeUnsafePattern means the input matched a structural-injection signature.
	CodeUnsafePattern

	// CodeSensitiveData means the input looked like it carried credentials.
	CodeSensitiveData

	// CodeInappropriate means the input matched the moderation denylist.
	CodeInappropriate
)

// String returns the name of the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeEmptyInput:
		return "EmptyInput"
	case CodeTooLong:
		return "TooLong"
	case CodeUnsafePattern:
		return "UnsafePattern"
	case CodeSensitiveData:
		return "SensitiveDataSuspected"
	case CodeInappropriate:
		return "InappropriateContent"
	default:
		return "Unknown"
	}
}

// Result is the outcome of a single check. It is produced fresh per call.
type Result struct {
	Valid  bool
	Code   Code
	Reason string
}

// OK returns a passing Result.
func OK() Result {
	return Result{Valid: true, Code: CodeOK}
}

// Reject returns a failing Result with the given code and reason.
func Reject(code Code, reason string) Result {
	return Result{Valid: false, Code: code, Reason: reason}
}

// CheckFunc is a text check. Validator.Validate and Moderator.Moderate both
// satisfy it.
type CheckFunc func(text string) Result
