// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/interview-coach/internal/security"
)

// CheckReport is the outcome of running text through the input gates.
type CheckReport struct {
	Valid     bool   `json:"valid"`
	Stage     string `json:"stage,omitempty"`
	Code      string `json:"code"`
	Reason    string `json:"reason,omitempty"`
	Sanitized string `json:"sanitized,omitempty"`
}

func (g *gates) check(text string) CheckReport {
	if res := g.validator.Validate(text); !res.Valid {
		return CheckReport{Stage: "validation", Code: res.Code.String(), Reason: res.Reason}
	}
	if res := g.moderator.Moderate(text); !res.Valid {
		return CheckReport{Stage: "moderation", Code: res.Code.String(), Reason: res.Reason}
	}
	return CheckReport{Valid: true, Code: security.CodeOK.String(), Sanitized: security.Sanitize(text)}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [text]",
		Short: "Run text through the validator, moderator and sanitizer",
		Long: `Check runs text through the same gates as a chat request, without
contacting the provider. Text is taken from the arguments or, if none are
given, from stdin. Exits with status 4 when the text is rejected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			g, err := newGates(cfg)
			if err != nil {
				return err
			}

			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			report := g.check(text)
			out := cmd.OutOrStdout()
			if a.jsonOutput {
				resp := NewJSONResponse("check", report)
				if !report.Valid {
					resp = NewJSONErrorResponse("check", report.Reason, report)
				}
				if err := resp.Print(out); err != nil {
					return err
				}
			} else if report.Valid {
				fmt.Fprintln(out, "OK")
				fmt.Fprintln(out, report.Sanitized)
			} else {
				fmt.Fprintf(out, "REJECTED (%s, %s): %s\n", report.Stage, report.Code, report.Reason)
			}

			if !report.Valid {
				return &ExitError{Code: ExitRejected, Err: errors.New(report.Reason)}
			}
			return nil
		},
	}
}

// errNoInput is returned when there are no args and stdin is a terminal.
var errNoInput = errors.New("no input: pass text or pipe stdin")

// inputText joins args, or reads stdin when there are none. An interactive
// stdin is refused instead of blocking until EOF.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if isStdinTerminal(in) {
		return "", &ExitError{Code: ExitUsageError, Err: errNoInput}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
