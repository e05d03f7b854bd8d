// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/mdelaney/nutri-tui/internal/api"
	"github.com/mdelaney/nutri-tui/internal/chat"
	"github.com/mdelaney/nutri-tui/internal/config"
	"github.com/mdelaney/nutri-tui/internal/model"
	"github.com/mdelaney/nutri-tui/internal/session"
	"github.com/mdelaney/nutri-tui/internal/ui/styles"
	"github.com/mdelaney/nutri-tui/internal/util"
)

// sendDoneMsg reports a settled chat exchange.
type sendDoneMsg struct {
	err error
}

// clearedMsg reports the outcome of clearing the server transcript.
type clearedMsg struct {
	err error
}

// chatModel is the coaching conversation view.
type chatModel struct {
	theme  *styles.Theme
	cfg    *config.Config
	client *api.Client
	sess   *session.Session
	store  *chat.Store
	orch   *chat.Orchestrator

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	sending bool
	cancel  context.CancelFunc
	errText string

	width  int
	height int
	ready  bool
}

func newChatModel(theme *styles.Theme, cfg *config.Config, client *api.Client,
	sess *session.Session, store *chat.Store, orch *chat.Orchestrator) chatModel {

	input := textinput.New()
	input.Placeholder = "Ask your coach anything..."
	input.CharLimit = 2000
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = theme.Spinner

	return chatModel{
		theme:  theme,
		cfg:    cfg,
		client: client,
		sess:   sess,
		store:  store,
		orch:   orch,
		input:  input,
		spin:   spin,
	}
}

func (m chatModel) init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) resize(width, height int) {
	m.width, m.height = width, height
	headerHeight := 3
	footerHeight := 4
	vpHeight := height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6

	if m.cfg.UI.Markdown {
		wrap := width - 4
		if wrap < 20 {
			wrap = 20
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err == nil {
			m.renderer = r
		}
	}
	m.reloadTranscript()
}

// reloadTranscript re-renders the viewport from the store.
func (m *chatModel) reloadTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m chatModel) update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.sending && m.cancel != nil {
				m.cancel()
			}
			return m, nil

		case "enter":
			if m.sending {
				return m, nil
			}
			text := m.input.Value()
			if cmd, handled := m.handleCommand(text); handled {
				m.input.SetValue("")
				return m, cmd
			}
			if util.NormalizeInput(text) == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.errText = ""
			m.sending = true
			ctx, cancel := context.WithCancel(context.Background())
			m.cancel = cancel
			return m, tea.Batch(m.spin.Tick, m.send(ctx, text))
		}

	case sendDoneMsg:
		m.sending = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.err != nil && !errors.Is(msg.err, chat.ErrIgnored) {
			m.errText = sendErrorText(msg.err)
		}
		m.reloadTranscript()
		return m, nil

	case clearedMsg:
		if msg.err != nil {
			m.errText = "Could not clear the server transcript."
		}
		m.reloadTranscript()
		return m, nil

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		// The transcript already holds the optimistic user message;
		// keep the viewport current while the reply is pending.
		m.reloadTranscript()
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleCommand intercepts slash commands before they reach the coach.
func (m *chatModel) handleCommand(text string) (tea.Cmd, bool) {
	switch strings.TrimSpace(text) {
	case "/clear":
		m.store.Clear()
		client := m.client
		return func() tea.Msg {
			return clearedMsg{err: client.ClearChatHistory(context.Background())}
		}, true
	case "/logout":
		// The session event switches the app back to the login view.
		m.sess.End()
		return nil, true
	case "/quit":
		return tea.Quit, true
	default:
		return nil, false
	}
}

// send runs the exchange off the update loop.
func (m chatModel) send(ctx context.Context, text string) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		_, err := orch.Send(ctx, text)
		return sendDoneMsg{err: err}
	}
}

// sendErrorText maps an exchange failure to display text.
func sendErrorText(err error) string {
	switch {
	case errors.Is(err, chat.ErrTimedOut):
		return "The coach took too long to answer. Try again."
	case errors.Is(err, api.ErrSessionExpired):
		return "Session expired."
	case errors.Is(err, api.ErrNetwork):
		return "Could not reach the server."
	case errors.Is(err, context.Canceled):
		return "Canceled."
	default:
		return err.Error()
	}
}

// renderTranscript formats the stored conversation for the viewport.
func (m *chatModel) renderTranscript() string {
	msgs := m.store.Messages()
	if len(msgs) == 0 {
		return m.theme.Help.Render("No messages yet. Ask about your meals, goals, or progress.")
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m *chatModel) renderMessage(msg model.Message) string {
	label := m.theme.UserLabel.Render(msg.Role.DisplayName())
	body := m.theme.UserText.Render(msg.Content)
	if msg.Role == model.RoleAssistant {
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		body = m.renderAssistant(msg.Content)
	}
	return label + "\n" + body + "\n"
}

// renderAssistant renders coach replies as markdown when enabled,
// falling back to plain text if rendering fails.
func (m *chatModel) renderAssistant(content string) string {
	if m.renderer == nil {
		return m.theme.AssistantText.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return m.theme.AssistantText.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m chatModel) view() string {
	if !m.ready {
		return "loading..."
	}

	header := m.theme.Header.Render("nutri · coaching chat")

	var input string
	if m.sending {
		input = m.spin.View() + " " + m.theme.Warning.Render("waiting for the coach (esc to cancel)")
	} else {
		input = m.theme.InputPrompt.Render("> ") + m.input.View()
	}

	status := m.statusBar()

	var footer string
	if m.errText != "" {
		footer = m.theme.Error.Render(m.errText) + "\n" + input + "\n" + status
	} else {
		footer = input + "\n" + status
	}

	return header + "\n" + m.viewport.View() + "\n" + footer
}

func (m chatModel) statusBar() string {
	left := fmt.Sprintf("%d messages", m.store.Len())
	if n := m.store.PersistFailures(); n > 0 {
		left += fmt.Sprintf(" · %d unsaved", n)
	}
	right := util.TruncateWidth(m.client.BaseURL(), 40)
	help := "/clear reset · /logout · /quit"
	bar := left + " · " + help + " · " + right
	if m.width > 0 {
		bar = util.TruncateWidth(bar, m.width-2)
	}
	return m.theme.StatusBar.Render(bar)
}
