// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the Bubble Tea interface for nutri.
//
// The application has two views: a login form and the coaching chat.
// Which one is active follows the session: a logged-in event switches
// to the chat, a logout or server-side expiry switches back to the
// login form. Session events arrive through a channel pumped into the
// program as messages, so view switching happens on the normal update
// path.
package ui
