// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persistent client-side state store for nutri.
//
// The store is a small sqlite-backed key/value table at ~/.nutri/state.db and
// plays the role a browser's localStorage plays for a web client: it holds
// the session credential, the cached user record, and the cached chat
// history between runs. The credential is encrypted at rest, see Crypter.
package storage
