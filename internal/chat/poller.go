// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mdelaney/nutri-tui/internal/api"
	"github.com/mdelaney/nutri-tui/internal/model"
)

// Service is the slice of the API client the chat subsystem needs.
type Service interface {
	SendChat(ctx context.Context, message string, history []model.Message) (api.ChatOutcome, error)
	ChatTask(ctx context.Context, taskID string) (api.TaskStatus, error)
}

// Default polling parameters: one check per second, thirty attempts,
// so a deferred reply gets about half a minute to materialize.
const (
	DefaultPollInterval = time.Second
	DefaultPollBudget   = 30
)

// PollOutcome is the terminal state of watching one deferred task.
type PollOutcome int

const (
	// PollResolved means the task produced its reply.
	PollResolved PollOutcome = iota
	// PollFailed means a non-retryable error ended the watch early.
	PollFailed
	// PollTimedOut means the attempt budget ran out with no reply.
	PollTimedOut
)

// String returns the outcome name for logs.
func (o PollOutcome) String() string {
	switch o {
	case PollResolved:
		return "resolved"
	case PollFailed:
		return "failed"
	case PollTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// PollResult reports how a watch ended.
type PollResult struct {
	Outcome PollOutcome
	Reply   string // set when Outcome is PollResolved
	Err     error  // set when Outcome is PollFailed
}

// Poller watches deferred chat tasks.
type Poller struct {
	client   Service
	interval time.Duration
	budget   int
	log      zerolog.Logger
}

// NewPoller creates a poller with the default cadence and budget.
func NewPoller(client Service, log zerolog.Logger) *Poller {
	return &Poller{
		client:   client,
		interval: DefaultPollInterval,
		budget:   DefaultPollBudget,
		log:      log.With().Str("component", "chat.poller").Logger(),
	}
}

// WithInterval sets the delay between checks.
func (p *Poller) WithInterval(d time.Duration) *Poller {
	p.interval = d
	return p
}

// WithBudget sets the total number of checks before giving up.
func (p *Poller) WithBudget(n int) *Poller {
	p.budget = n
	return p
}

// Poll watches taskID until it resolves, fails, or the budget runs
// out. Every check consumes one unit of the budget whether the task
// was still running or the check itself failed on the network, so a
// flaky connection cannot extend the watch. Cancellation is honored
// between attempts: an in-flight HTTP check is never abandoned
// half-way, but no new one starts after ctx is done.
func (p *Poller) Poll(ctx context.Context, taskID string) PollResult {
	log := p.log.With().Str("task_id", taskID).Logger()

	for attempt := 1; attempt <= p.budget; attempt++ {
		select {
		case <-ctx.Done():
			log.Debug().Int("attempt", attempt).Msg("poll canceled")
			return PollResult{Outcome: PollFailed, Err: ctx.Err()}
		case <-time.After(p.interval):
		}

		status, err := p.client.ChatTask(ctx, taskID)
		switch {
		case err == nil && status.Done:
			log.Debug().Int("attempts", attempt).Msg("task resolved")
			return PollResult{Outcome: PollResolved, Reply: status.Reply}
		case err == nil:
			// Still running. The attempt is spent.
		case errors.Is(err, api.ErrNetwork):
			// Transient. Spends budget like any other attempt.
			log.Debug().Int("attempt", attempt).Err(err).Msg("poll attempt failed")
		default:
			// Session expiry, service errors, cancellation mid-check.
			log.Warn().Int("attempt", attempt).Err(err).Msg("poll aborted")
			return PollResult{Outcome: PollFailed, Err: err}
		}
	}

	log.Warn().Int("budget", p.budget).Msg("task never resolved")
	return PollResult{Outcome: PollTimedOut}
}
