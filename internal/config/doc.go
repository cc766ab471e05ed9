// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates the interview-coach configuration.
//
// # Key Types
//
//   - Config: all settings, one struct per TOML table
//   - ValidateErrors: every problem found by Validate, not just the first
//   - Watcher: reloads the file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OPENAI_API_KEY, GOOGLE_API_KEY, COACH_*)
//   - ~/.interview-coach/config.toml, or the path given with --config
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window())
package config
