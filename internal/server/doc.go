// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the chat orchestrator over HTTP.
//
// # Endpoints
//
//   - POST /api/chat    - Validate, moderate and relay a conversation
//   - GET  /api/models  - Supported model names and default settings
//   - GET  /api/prompts - Interviewer templates, sections and the evaluation prompt
//   - GET  /health      - Health check
//   - GET  /stats       - Request counters
//
// Chat responses are {"message": "..."} on success and {"error": "..."}
// otherwise, with 429 for rate limiting, 400 for rejected input, 413 for an
// oversized body and 500 for provider failures.
//
// # Rate Limit Identifiers
//
// Each chat request is charged to an identifier chosen by the configured
// strategy: the client IP (forwarded headers are trusted only from
// TrustedProxies), the X-Session-Id header, or a random UUID per request.
// The charge happens before the body is read, so a malformed or oversized
// body still counts against the caller.
//
// # Usage
//
//	srv, err := server.New(server.Options{
//		Orchestrator: orch,
//		Limiter:      limiter,
//		Server:       cfg.Server,
//		Identifier:   cfg.RateLimit.Identifier,
//	})
//	if err != nil {
//		return err
//	}
//	go srv.ListenAndServe()
//	defer srv.Shutdown(ctx)
package server
