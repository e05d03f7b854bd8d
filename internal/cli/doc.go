// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface of nutri:
// argument parsing, the line-oriented chat REPL, authentication
// prompts, and the food-log reporting commands.
package cli
