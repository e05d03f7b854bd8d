// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the nutri client:
// atomic file writes, rune-safe truncation, and input normalization.
package util
