// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DefaultMaxLength is the maximum input length, counted by Length.
const DefaultMaxLength = 2000

// Rejection reasons returned to the client.
const (
	ReasonEmpty     = "Input cannot be empty"
	ReasonUnsafe    = "Input contains potentially unsafe content"
	ReasonSensitive = "Input may contain sensitive information"
)

// =============================================================================
// PATTERNS
// =============================================================================

// unsafePatterns match template interpolation, script tags, and URI schemes or
// event handler names that execute code when rendered.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\{\{.*\}\}`),               // handlebars-style
	regexp.MustCompile(`\{%.*%\}`),                 // liquid/jinja-style
	regexp.MustCompile(`\$\{.*\}`),                 // template literal
	regexp.MustCompile(`(?i)<script.*>.*</script>`), // script tags
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)onclick`),
	regexp.MustCompile(`(?i)onload`),
	regexp.MustCompile(`(?i)onerror`),
}

// sensitivePatterns match keywords that suggest the user is pasting credentials.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)api[_-]?key`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)credential`),
	regexp.MustCompile(`(?i)ssh[_-]?key`),
	regexp.MustCompile(`(?i)private[_-]?key`),
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator rejects input by length, emptiness, and unsafe or sensitive patterns.
// A Validator is immutable and safe for concurrent use.
type Validator struct {
	maxLength int
	normalize bool
}

// NewValidator creates a Validator. A maxLength <= 0 selects DefaultMaxLength.
// When normalize is true the pattern checks run against the NFKC form of the
// input, so full-width and other compatibility characters cannot dodge them.
func NewValidator(maxLength int, normalize bool) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Validator{maxLength: maxLength, normalize: normalize}
}

// MaxLength returns the configured maximum length.
func (v *Validator) MaxLength() int {
	return v.maxLength
}

// Validate runs the checks in order and returns the first failure.
func (v *Validator) Validate(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Reject(CodeEmptyInput, ReasonEmpty)
	}
	if Length(text) > v.maxLength {
		return Reject(CodeTooLong, fmt.Sprintf("Input is too long (max %d characters)", v.maxLength))
	}

	subject := text
	if v.normalize {
		subject = norm.NFKC.String(text)
	}

	if matchAny(unsafePatterns, subject) {
		return Reject(CodeUnsafePattern, ReasonUnsafe)
	}
	if matchAny(sensitivePatterns, subject) {
		return Reject(CodeSensitiveData, ReasonSensitive)
	}

	return OK()
}

var defaultValidator = NewValidator(DefaultMaxLength, false)

// Validate checks text with the default validator (2000 characters, no
// normalization).
func Validate(text string) Result {
	return defaultValidator.Validate(text)
}

// Length counts text in UTF-16 code units, the unit browsers use for string
// length. Characters outside the Basic Multilingual Plane count as two.
func Length(text string) int {
	n := 0
	for _, r := range text {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
