// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/interview-coach/internal/chat"
	"github.com/jeranaias/interview-coach/internal/logging"
	"github.com/jeranaias/interview-coach/internal/prompts"
)

// askIdentifier is the limiter key for local ask invocations.
const askIdentifier = "cli"

func newAskCmd(a *app) *cobra.Command {
	var (
		flags    promptFlags
		model    string
		tip      bool
		evaluate bool
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message through the request pipeline",
		Long: `Ask sends a single user message to the configured provider using the
same rate limiting, validation, moderation and sanitization as the server.
The message is taken from the arguments or stdin.

With --tip the message is treated as an interviewer question and the coach
is asked how to answer it. With --evaluate the message is the transcript to
review and the evaluation prompt replaces the interviewer prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger, closer, err := logging.Init(cfg.Logging)
			if err != nil {
				logger.Warn("log_file_unavailable", "error", err)
			}
			defer closer.Close()

			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			req := chat.Request{Settings: chat.DefaultSettings()}
			if len(cfg.Provider.Models) > 0 {
				req.Settings.Model = cfg.Provider.Models[0]
			}
			if model != "" {
				req.Settings.Model = model
			}

			switch {
			case evaluate:
				req.SystemPrompt = prompts.Evaluation
				req.Messages = []chat.Message{
					{Role: chat.RoleUser, Content: text},
					{Role: chat.RoleUser, Content: prompts.EvaluationRequest},
				}
			default:
				if req.SystemPrompt, err = flags.build(); err != nil {
					return err
				}
				if tip {
					text = prompts.Tip(text)
				}
				req.Messages = []chat.Message{{Role: chat.RoleUser, Content: text}}
			}

			st, err := buildStack(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.limiter.Close()

			reply, err := st.orch.Handle(cmd.Context(), askIdentifier, req)
			if err != nil {
				var chatErr *chat.Error
				if errors.As(err, &chatErr) && chatErr.Kind != chat.KindProviderError {
					err = &ExitError{Code: ExitRejected, Err: errors.New(chatErr.Message())}
				}
				if a.jsonOutput {
					NewJSONErrorResponse("ask", err.Error(), nil).Print(cmd.OutOrStdout())
				}
				return err
			}

			if a.jsonOutput {
				return NewJSONResponse("ask", map[string]any{
					"message":           reply.Message,
					"model":             reply.Model,
					"prompt_tokens":     reply.PromptTokens,
					"completion_tokens": reply.CompletionTokens,
				}).Print(cmd.OutOrStdout())
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model (default: first configured model)")
	cmd.Flags().BoolVar(&tip, "tip", false, "Ask how to answer the given interviewer question")
	cmd.Flags().BoolVar(&evaluate, "evaluate", false, "Evaluate the given transcript")
	cmd.MarkFlagsMutuallyExclusive("tip", "evaluate")
	return cmd
}
