// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import "strings"

// sanitizer deletes angle brackets and escapes the remaining markup-significant
// characters. strings.Replacer substitutes in a single pass, so the "&" in an
// inserted "&quot;" is never escaped a second time.
var sanitizer = strings.NewReplacer(
	"<", "",
	">", "",
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// Sanitize neutralizes markup in text and trims surrounding whitespace.
//
// Angle brackets are removed, not escaped. The result is safe inside an HTML
// text node but not inside an attribute or script. Sanitize is not idempotent:
// running it twice escapes the ampersands it introduced.
func Sanitize(text string) string {
	return strings.TrimSpace(sanitizer.Replace(text))
}
