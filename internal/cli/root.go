// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jeranaias/interview-coach/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app holds state shared by all commands.
type app struct {
	configPath string
	jsonOutput bool
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, configError(err)
	}
	return cfg, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "interview-coach",
		Short: "Interview practice chat relay",
		Long: `interview-coach relays interview practice conversations to an LLM
provider after rate limiting, validating, moderating and sanitizing them.

Examples:
  interview-coach serve                       Run the HTTP relay on :3000
  interview-coach check "my password is x"    Test text against the input gates
  interview-coach prompt --section technical  Print a composed system prompt
  interview-coach ask "I'm ready to start"    Send one message to the provider
  interview-coach config init                 Write a default config file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default ~/.interview-coach/config.toml)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print JSON output")

	root.AddCommand(
		newServeCmd(a),
		newAskCmd(a),
		newCheckCmd(a),
		newPromptCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		return ExitCode(err)
	}
	return ExitSuccess
}
