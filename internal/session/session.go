// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the authenticated session for a nutri process.
//
// The session is an explicit object handed to the transport client rather
// than a hidden global: the bearer credential lives here (backed by the
// persistent store), and invalidation is delivered to subscribers as an
// event instead of a side effect buried in an interceptor. One session is
// active per process; the transport client is the only component that
// tears it down on a server-signalled expiry.
package session

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mdelaney/nutri-tui/internal/model"
	"github.com/mdelaney/nutri-tui/internal/storage"
)

// EventKind classifies session lifecycle events.
type EventKind int

const (
	// EventLoggedIn fires after Begin establishes a credential.
	EventLoggedIn EventKind = iota
	// EventLoggedOut fires after a user-initiated End.
	EventLoggedOut
	// EventExpired fires after a server-signalled invalidation tears the
	// session down. The UI reacts by returning to the login screen.
	EventExpired
)

// Event is delivered to subscribers on session transitions.
type Event struct {
	Kind   EventKind
	Reason string
}

// Session holds the credential and cached user for the active session.
type Session struct {
	mu        sync.Mutex
	token     string
	user      model.User
	hasUser   bool
	listeners []func(Event)

	store *storage.Store
	log   zerolog.Logger
}

// New restores the session from the persistent store. A missing or
// undecryptable credential yields an unauthenticated session, not an error.
func New(store *storage.Store, log zerolog.Logger) *Session {
	s := &Session{store: store, log: log}

	token, err := store.GetSecret(storage.KeyToken)
	if err == nil {
		s.token = token
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Msg("stored credential unreadable, starting unauthenticated")
	}

	if raw, err := store.Get(storage.KeyUser); err == nil {
		var u model.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			s.user = u
			s.hasUser = true
		}
	}

	return s
}

// Subscribe registers a listener for session events. Listeners are invoked
// synchronously in subscription order.
func (s *Session) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Token returns the current bearer credential, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether a credential is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// User returns the cached user record, if any.
func (s *Session) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.hasUser
}

// Begin establishes a new authenticated session and persists it.
func (s *Session) Begin(token string, user model.User) error {
	if err := s.store.SetSecret(storage.KeyToken, token); err != nil {
		return err
	}
	if raw, err := json.Marshal(user); err == nil {
		if err := s.store.Set(storage.KeyUser, string(raw)); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache user record")
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.hasUser = true
	listeners := append([]func(Event){}, s.listeners...)
	s.mu.Unlock()

	emit(listeners, Event{Kind: EventLoggedIn})
	return nil
}

// End tears the session down on user request (logout).
func (s *Session) End() {
	s.claimTeardown()
	s.clearStored()
	s.mu.Lock()
	listeners := append([]func(Event){}, s.listeners...)
	s.mu.Unlock()
	s.log.Info().Str("reason", "logged out").Msg("session torn down")
	emit(listeners, Event{Kind: EventLoggedOut, Reason: "logged out"})
}

// Expire tears the session down after a server-signalled invalidation.
// A burst of in-flight requests failing together produces exactly one
// event: the first caller to claim the held state tears down, the rest
// are no-ops.
func (s *Session) Expire(reason string) {
	if !s.claimTeardown() {
		return
	}
	s.clearStored()
	s.mu.Lock()
	listeners := append([]func(Event){}, s.listeners...)
	s.mu.Unlock()
	s.log.Info().Str("reason", reason).Msg("session torn down")
	emit(listeners, Event{Kind: EventExpired, Reason: reason})
}

// claimTeardown clears the in-memory session state in one critical
// section and reports whether a session was actually held. Observing
// and clearing atomically is what makes concurrent Expire calls settle
// on a single winner.
func (s *Session) claimTeardown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := s.token != "" || s.hasUser
	s.token = ""
	s.user = model.User{}
	s.hasUser = false
	return held
}

// clearStored removes all user-scoped keys from persistent storage.
func (s *Session) clearStored() {
	for _, key := range []string{storage.KeyToken, storage.KeyUser, storage.KeyChatHistory} {
		if err := s.store.Delete(key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("teardown: failed to clear stored value")
		}
	}
}

func emit(listeners []func(Event), ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}
