// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the service packages.
//
//   - TruncateRunes: UTF-8 safe truncation for log fields and error reasons
//   - AtomicWriteFile: crash-safe file writes, used when writing config files
package util
