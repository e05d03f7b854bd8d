// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates the asynchronous coaching conversation.
//
// Three pieces cooperate. Store holds the transcript in memory and
// mirrors it best-effort to local storage and to the server through a
// single background worker, so persistence never blocks or fails a
// send. Poller watches
// a deferred server task at a fixed cadence under one shared attempt
// budget; still-running answers and transient network failures consume
// the same budget. Orchestrator ties them together: it admits one
// exchange at a time, appends the user message optimistically, and
// settles the exchange through either the synchronous reply or the
// poller.
package chat
