// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security implements the input gates applied to every chat request
// before it is relayed to a language-model provider.
//
// # Gates
//
//   - Validator: rejects empty or oversized input, structural injection
//     signatures and text that looks like it carries credentials
//   - Moderator: rejects attack/exploit terminology (denylist heuristic)
//   - Sanitize: strips angle brackets and escapes quotes and ampersands
//
// Validator and Moderator both produce a Result and can be passed around as
// CheckFunc values, so a stronger classifier can replace either one without
// touching the caller.
//
// # Limitations
//
// Moderation is a keyword denylist, not a content-safety classifier.
// Sanitize output is safe for an HTML text node only; it is not safe for
// attribute or script contexts.
//
// # Usage
//
//	v := security.NewValidator(security.DefaultMaxLength, true)
//	if res := v.Validate(text); !res.Valid {
//		return res.Reason
//	}
//	clean := security.Sanitize(text)
package security
