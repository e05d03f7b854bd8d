// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/mdelaney/nutri-tui/internal/api"
	"github.com/mdelaney/nutri-tui/internal/chat"
	"github.com/mdelaney/nutri-tui/internal/config"
	"github.com/mdelaney/nutri-tui/internal/session"
	"github.com/mdelaney/nutri-tui/internal/ui/styles"
)

// viewKind selects the active view.
type viewKind int

const (
	viewLogin viewKind = iota
	viewChat
)

// sessionEventMsg wraps a session event for the update loop.
type sessionEventMsg session.Event

// transcriptSyncedMsg reports that the server transcript was fetched.
type transcriptSyncedMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	theme  *styles.Theme
	client *api.Client
	sess   *session.Session
	store  *chat.Store
	orch   *chat.Orchestrator
	cfg    *config.Config
	log    zerolog.Logger

	events chan session.Event
	view   viewKind
	login  loginModel
	chat   chatModel

	width  int
	height int
}

// NewApp builds the root model and subscribes it to session events.
func NewApp(cfg *config.Config, client *api.Client, sess *session.Session,
	store *chat.Store, orch *chat.Orchestrator, log zerolog.Logger) *App {

	theme := styles.NewTheme()
	a := &App{
		theme:  theme,
		client: client,
		sess:   sess,
		store:  store,
		orch:   orch,
		cfg:    cfg,
		log:    log.With().Str("component", "ui").Logger(),
		events: make(chan session.Event, 8),
		login:  newLoginModel(theme, client),
		chat:   newChatModel(theme, cfg, client, sess, store, orch),
	}
	if sess.Authenticated() {
		a.view = viewChat
	}
	sess.Subscribe(func(ev session.Event) {
		select {
		case a.events <- ev:
		default:
			// A full queue means the program is gone; drop.
		}
	})
	return a
}

// waitForSessionEvent blocks on the event channel as a command.
func waitForSessionEvent(events chan session.Event) tea.Cmd {
	return func() tea.Msg {
		return sessionEventMsg(<-events)
	}
}

// syncTranscript fetches the server transcript off the update loop.
func (a *App) syncTranscript() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		// Failure keeps the local mirror; nothing to surface.
		_ = store.Sync(context.Background())
		return transcriptSyncedMsg{}
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForSessionEvent(a.events)}
	if a.view == viewChat {
		cmds = append(cmds, a.chat.init(), a.syncTranscript())
	} else {
		cmds = append(cmds, a.login.init())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.login.resize(msg.Width, msg.Height)
		a.chat.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case sessionEventMsg:
		return a.onSessionEvent(session.Event(msg))

	case transcriptSyncedMsg:
		a.chat.reloadTranscript()
		return a, nil
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.update(msg)
	case viewChat:
		a.chat, cmd = a.chat.update(msg)
	}
	return a, cmd
}

// onSessionEvent switches views to follow the session state.
func (a *App) onSessionEvent(ev session.Event) (tea.Model, tea.Cmd) {
	rearm := waitForSessionEvent(a.events)
	switch ev.Kind {
	case session.EventLoggedIn:
		a.log.Info().Msg("switching to chat view")
		a.view = viewChat
		a.chat.reloadTranscript()
		return a, tea.Batch(rearm, a.chat.init(), a.syncTranscript())

	case session.EventLoggedOut, session.EventExpired:
		a.log.Info().Str("reason", ev.Reason).Msg("switching to login view")
		a.store.Reset()
		a.view = viewLogin
		a.login = newLoginModel(a.theme, a.client)
		a.login.resize(a.width, a.height)
		if ev.Kind == session.EventExpired {
			a.login.notice = "Session expired, please log in again."
		}
		return a, tea.Batch(rearm, a.login.init())
	}
	return a, rearm
}

// View implements tea.Model.
func (a *App) View() string {
	switch a.view {
	case viewChat:
		return a.chat.view()
	default:
		return a.login.view()
	}
}
