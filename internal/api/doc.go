// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the nutrition service.
//
// Every endpoint responds with the same envelope shape: a code, a
// human-readable message, and an optional data payload. The client
// decodes the envelope once, inspects the code for session
// invalidation (HTTP 401 or envelope code 401/999 both count), and
// hands typed payloads to callers. On invalidation it tears down the
// active session exactly once and returns ErrSessionExpired.
package api
