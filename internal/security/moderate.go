// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"fmt"
	"regexp"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// ReasonInappropriate is returned when moderation rejects input.
const ReasonInappropriate = "Input contains inappropriate content"

// inappropriatePatterns is the built-in moderation denylist.
var inappropriatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(hack|exploit|attack|vulnerability)\b`),
	regexp.MustCompile(`(?i)\b(sql injection|xss|csrf)\b`),
}

// Moderator rejects input containing disallowed topics. The built-in
// denylist is fixed; extra patterns can be swapped at runtime.
type Moderator struct {
	normalize bool

	// mu protects extra.
	mu    sync.RWMutex
	extra []*regexp.Regexp
}

// NewModerator creates a Moderator with optional extra patterns. Extra
// patterns are compiled case-insensitive.
func NewModerator(normalize bool, extra []string) (*Moderator, error) {
	m := &Moderator{normalize: normalize}
	if err := m.SetExtraPatterns(extra); err != nil {
		return nil, err
	}
	return m, nil
}

// SetExtraPatterns replaces the extra patterns. On a compile error the
// current set is kept.
func (m *Moderator) SetExtraPatterns(patterns []string) error {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return fmt.Errorf("invalid moderation pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	m.mu.Lock()
	m.extra = compiled
	m.mu.Unlock()
	return nil
}

// ExtraPatternCount returns the number of extra patterns in use.
func (m *Moderator) ExtraPatternCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.extra)
}

// Moderate returns a failing Result if text matches the denylist.
func (m *Moderator) Moderate(text string) Result {
	subject := text
	if m.normalize {
		subject = norm.NFKC.String(text)
	}

	if matchAny(inappropriatePatterns, subject) {
		return Reject(CodeInappropriate, ReasonInappropriate)
	}

	m.mu.RLock()
	extra := m.extra
	m.mu.RUnlock()

	if matchAny(extra, subject) {
		return Reject(CodeInappropriate, ReasonInappropriate)
	}
	return OK()
}

// Moderate checks text against the built-in denylist only.
func Moderate(text string) Result {
	if matchAny(inappropriatePatterns, text) {
		return Reject(CodeInappropriate, ReasonInappropriate)
	}
	return OK()
}
