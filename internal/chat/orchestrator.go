// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/mdelaney/nutri-tui/internal/model"
	"github.com/mdelaney/nutri-tui/internal/util"
)

// Errors returned by Orchestrator.Send for exchanges that never
// reached the server.
var (
	// ErrIgnored marks a send that was dropped on admission: the text
	// was empty after normalization, or another exchange is in flight.
	// Callers treat it as a quiet no-op, not a failure to display.
	ErrIgnored = errors.New("message ignored")

	// ErrTimedOut marks a deferred reply that never arrived within the
	// polling budget.
	ErrTimedOut = errors.New("reply timed out")
)

// Orchestrator runs one chat exchange at a time against the service.
type Orchestrator struct {
	client Service
	store  *Store
	poller *Poller
	log    zerolog.Logger

	inFlight atomic.Bool
}

// NewOrchestrator wires the orchestrator to its transcript store and
// poller.
func NewOrchestrator(client Service, store *Store, poller *Poller, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		store:  store,
		poller: poller,
		log:    log.With().Str("component", "chat").Logger(),
	}
}

// Busy reports whether an exchange is currently in flight.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load()
}

// Send submits one user message and blocks until the exchange settles.
//
// The user message is appended to the transcript immediately; the
// request carries the history as it stood before that append, since
// the server expects the new message separately from the prior
// conversation. A synchronous reply is appended on return. A deferred
// reply is polled for; only a resolved poll appends anything. On any
// failure the transcript keeps the user message and gains nothing
// else.
func (o *Orchestrator) Send(ctx context.Context, text string) (string, error) {
	text = util.NormalizeInput(text)
	if text == "" {
		return "", ErrIgnored
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return "", ErrIgnored
	}
	defer o.inFlight.Store(false)

	history := o.store.Messages()
	o.store.Append(model.NewUserMessage(text))

	out, err := o.client.SendChat(ctx, text, history)
	if err != nil {
		o.log.Warn().Err(err).Msg("send failed")
		return "", err
	}

	reply := out.Reply
	if out.Deferred {
		o.log.Debug().Str("task_id", out.TaskID).Msg("reply deferred")
		result := o.poller.Poll(ctx, out.TaskID)
		switch result.Outcome {
		case PollResolved:
			reply = result.Reply
		case PollTimedOut:
			return "", ErrTimedOut
		default:
			return "", fmt.Errorf("deferred reply: %w", result.Err)
		}
	}

	o.store.Append(model.NewAssistantMessage(reply))
	return reply, nil
}
