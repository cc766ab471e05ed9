// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompts holds the canned interviewer prompts and composes the
// system prompt sent with each chat request.
//
// A system prompt is a Template, followed by the focus of the selected
// Section, followed by the job description when one is given.
package prompts

import (
	"errors"
	"fmt"
	"strings"
)

// Default template and section IDs.
const (
	DefaultTemplateID = "zero-shot"
	DefaultSectionID  = "full"
)

var (
	// ErrUnknownTemplate indicates no template has the requested ID.
	ErrUnknownTemplate = errors.New("unknown prompt template")

	// ErrUnknownSection indicates no section has the requested ID.
	ErrUnknownSection = errors.New("unknown interview section")
)

// Template is a canned interviewer system prompt.
type Template struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// Section narrows the interview to one phase.
type Section struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// FindTemplate returns the template with the given ID.
func FindTemplate(id string) (Template, error) {
	for _, t := range Templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
}

// FindSection returns the section with the given ID.
func FindSection(id string) (Section, error) {
	for _, s := range Sections {
		if s.ID == id {
			return s, nil
		}
	}
	return Section{}, fmt.Errorf("%w: %q", ErrUnknownSection, id)
}

// Compose appends the section focus and, if non-blank, the job description
// to base.
func Compose(base string, section Section, jobDescription string) string {
	var sb strings.Builder
	sb.WriteString(base)
	fmt.Fprintf(&sb, "\n\nCurrent Interview Focus: %s\n%s", section.Label, section.Prompt)

	if strings.TrimSpace(jobDescription) != "" {
		fmt.Fprintf(&sb, "\n\nJob Description for this interview:\n\"\"\"\n%s\n\"\"\"\n\n%s", jobDescription, jobDescriptionGuidance)
	}
	return sb.String()
}

// Build looks up a template and section by ID and composes them. Empty IDs
// select the defaults.
func Build(templateID, sectionID, jobDescription string) (string, error) {
	if templateID == "" {
		templateID = DefaultTemplateID
	}
	if sectionID == "" {
		sectionID = DefaultSectionID
	}

	tmpl, err := FindTemplate(templateID)
	if err != nil {
		return "", err
	}
	section, err := FindSection(sectionID)
	if err != nil {
		return "", err
	}
	return Compose(tmpl.Prompt, section, jobDescription), nil
}

// Tip returns the user turn that asks how to answer an interviewer question.
func Tip(question string) string {
	return fmt.Sprintf("How to best approach and answer this question: \"%s\"?", question)
}
