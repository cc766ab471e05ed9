// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jeranaias/interview-coach/internal/prompts"
	"github.com/jeranaias/interview-coach/internal/security"
)

// promptFlags select the system prompt for prompt and ask.
type promptFlags struct {
	template string
	section  string
	job      string
	jobFile  string
}

func (f *promptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.template, "template", "t", prompts.DefaultTemplateID, "Prompt template ID")
	cmd.Flags().StringVarP(&f.section, "section", "s", prompts.DefaultSectionID, "Interview section ID")
	cmd.Flags().StringVar(&f.job, "job", "", "Job description text")
	cmd.Flags().StringVar(&f.jobFile, "job-file", "", "Read the job description from a file")
	cmd.MarkFlagsMutuallyExclusive("job", "job-file")
}

func (f *promptFlags) build() (string, error) {
	job := f.job
	if f.jobFile != "" {
		data, err := os.ReadFile(f.jobFile)
		if err != nil {
			return "", fmt.Errorf("failed to read job description: %w", err)
		}
		job = string(data)
	}
	system, err := prompts.Build(f.template, f.section, job)
	if err != nil {
		return "", &ExitError{Code: ExitUsageError, Err: err}
	}
	return system, nil
}

func newPromptCmd(a *app) *cobra.Command {
	var flags promptFlags

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print a composed interviewer system prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := flags.build()
			if err != nil {
				return err
			}
			if cfg, err := a.loadConfig(); err == nil {
				if n := security.Length(system); n > cfg.Validation.MaxLength {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: prompt is %d characters, validation.max_length is %d; the server will reject it\n",
						n, cfg.Validation.MaxLength)
				}
			}
			if a.jsonOutput {
				return NewJSONResponse("prompt", map[string]string{"systemPrompt": system}).Print(cmd.OutOrStdout())
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), system)
			return err
		},
	}
	flags.register(cmd)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List prompt templates and interview sections",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.jsonOutput {
					return NewJSONResponse("prompt list", map[string]any{
						"templates": prompts.Templates,
						"sections":  prompts.Sections,
					}).Print(cmd.OutOrStdout())
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TEMPLATE\tLABEL")
				for _, t := range prompts.Templates {
					fmt.Fprintf(tw, "%s\t%s\n", t.ID, t.Label)
				}
				fmt.Fprintln(tw, "\nSECTION\tLABEL")
				for _, s := range prompts.Sections {
					fmt.Fprintf(tw, "%s\t%s\n", s.ID, s.Label)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "tip <question>",
			Short: "Print the message that asks how to answer a question",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), prompts.Tip(strings.Join(args, " ")))
				return err
			},
		},
		&cobra.Command{
			Use:   "evaluation",
			Short: "Print the evaluation system prompt",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), prompts.Evaluation)
				return err
			},
		},
	)
	return cmd
}
