// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mdelaney/nutri-tui/internal/model"
	"github.com/mdelaney/nutri-tui/internal/storage"
)

// Remote mirrors the transcript on the server so another client sees
// the same conversation.
type Remote interface {
	ChatHistory(ctx context.Context) ([]model.Message, error)
	SaveChatHistory(ctx context.Context, history []model.Message) error
}

// Store keeps the conversation transcript. The in-memory slice is the
// source of truth; local storage and the server copy are best-effort
// mirrors. Writes go through one background worker and always persist
// the full sequence, so a mirror never holds a partial interleaving of
// two appends.
type Store struct {
	mu          sync.Mutex
	messages    []model.Message
	dirty       bool
	remoteDirty bool

	store  *storage.Store
	remote Remote
	log    zerolog.Logger

	wake chan struct{}
	done chan struct{}

	// persistFailures counts writes the worker could not complete.
	// Failures are logged and counted, never surfaced to the sender.
	persistFailures int
}

// NewStore loads any persisted transcript and starts the persist
// worker. A missing or unreadable stored transcript degrades to an
// empty conversation.
func NewStore(st *storage.Store, log zerolog.Logger) *Store {
	s := &Store{
		store: st,
		log:   log.With().Str("component", "chat.store").Logger(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	s.messages = s.load()
	go s.worker()
	return s
}

// WithRemote enables mirroring the transcript to the server.
func (s *Store) WithRemote(r Remote) *Store {
	s.mu.Lock()
	s.remote = r
	s.mu.Unlock()
	return s
}

// Sync replaces the local transcript wholesale with the server's copy.
// Failure keeps the local mirror: the transcript is a convenience, not
// a requirement for sending new messages.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.Lock()
	remote := s.remote
	s.mu.Unlock()
	if remote == nil {
		return nil
	}

	msgs, err := remote.ChatHistory(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not fetch server transcript")
		return err
	}

	s.mu.Lock()
	s.messages = msgs
	s.dirty = true // refresh the local mirror, the server already has this state
	s.mu.Unlock()
	s.signal()
	return nil
}

// load reads the persisted transcript, failing soft to empty.
func (s *Store) load() []model.Message {
	raw, err := s.store.Get(storage.KeyChatHistory)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Msg("could not read stored transcript, starting empty")
		}
		return nil
	}
	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.log.Warn().Err(err).Msg("stored transcript is corrupt, starting empty")
		return nil
	}
	return msgs
}

// Messages returns a copy of the current transcript.
func (s *Store) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the current transcript length.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Append adds a message and queues a persist of the full sequence.
func (s *Store) Append(msg model.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.dirty = true
	s.remoteDirty = true
	s.mu.Unlock()
	s.signal()
}

// Reset drops the in-memory transcript without touching storage. The
// stored key is owned by the session teardown, which deletes it when
// credentials are cleared.
func (s *Store) Reset() {
	s.mu.Lock()
	s.messages = nil
	s.dirty = false
	s.remoteDirty = false
	s.mu.Unlock()
}

// Clear empties the local transcript and persists the empty sequence
// locally. Clearing the server copy is the caller's job, through
// the dedicated delete endpoint.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.dirty = true
	s.remoteDirty = false
	s.mu.Unlock()
	s.signal()
}

// PersistFailures reports how many background writes have failed.
func (s *Store) PersistFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistFailures
}

// Close flushes any pending write and stops the worker.
func (s *Store) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	s.signal()
	close(s.wake)
	<-s.done
}

func (s *Store) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// worker persists the newest full transcript each time it wakes.
// Coalescing on the dirty flag keeps writes serialized and means a
// burst of appends costs one write.
func (s *Store) worker() {
	defer close(s.done)
	for range s.wake {
		s.flush()
	}
	s.flush()
}

func (s *Store) flush() {
	s.mu.Lock()
	if !s.dirty && !s.remoteDirty {
		s.mu.Unlock()
		return
	}
	local, toRemote := s.dirty, s.remoteDirty
	s.dirty = false
	s.remoteDirty = false
	snapshot := make([]model.Message, len(s.messages))
	copy(snapshot, s.messages)
	remote := s.remote
	s.mu.Unlock()

	if local {
		encoded, err := json.Marshal(snapshot)
		if err == nil {
			err = s.store.Set(storage.KeyChatHistory, string(encoded))
		}
		if err != nil {
			s.mu.Lock()
			s.persistFailures++
			s.mu.Unlock()
			s.log.Warn().Err(err).Int("messages", len(snapshot)).Msg("transcript persist failed")
		}
	}

	if toRemote && remote != nil {
		if err := remote.SaveChatHistory(context.Background(), snapshot); err != nil {
			s.mu.Lock()
			s.persistFailures++
			s.mu.Unlock()
			s.log.Warn().Err(err).Int("messages", len(snapshot)).Msg("server transcript persist failed")
		}
	}
}
