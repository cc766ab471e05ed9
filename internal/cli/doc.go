// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interview-coach command line.
//
// # Commands
//
//   - serve: run the HTTP relay
//   - ask: send one message through the full request pipeline
//   - check: run the validator, moderator and sanitizer on text locally
//   - prompt: print composed interviewer prompts, tips and the evaluation prompt
//   - config: init, show and validate the configuration file
//   - version: print build information
//
// Commands that print structured data accept --json and emit a JSONResponse
// envelope on stdout.
package cli
