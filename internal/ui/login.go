// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mdelaney/nutri-tui/internal/api"
	"github.com/mdelaney/nutri-tui/internal/ui/styles"
)

const (
	fieldUsername = 0
	fieldPassword = 1
)

// loginResultMsg reports the outcome of a login or register attempt.
type loginResultMsg struct {
	registered bool
	err        error
}

// loginModel is the credential form. It handles both login and
// registration; tab switches fields, ctrl+r toggles the mode.
type loginModel struct {
	theme  *styles.Theme
	client *api.Client

	inputs      [2]textinput.Model
	focus       int
	registering bool
	busy        bool
	errText     string
	notice      string

	width  int
	height int
}

func newLoginModel(theme *styles.Theme, client *api.Client) loginModel {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return loginModel{
		theme:  theme,
		client: client,
		inputs: [2]textinput.Model{username, password},
	}
}

func (m loginModel) init() tea.Cmd {
	return textinput.Blink
}

func (m *loginModel) resize(width, height int) {
	m.width, m.height = width, height
}

func (m loginModel) update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			m.focus = (m.focus + 1) % len(m.inputs)
			for i := range m.inputs {
				if i == m.focus {
					m.inputs[i].Focus()
				} else {
					m.inputs[i].Blur()
				}
			}
			return m, nil

		case "ctrl+r":
			m.registering = !m.registering
			m.errText = ""
			return m, nil

		case "enter":
			username := strings.TrimSpace(m.inputs[fieldUsername].Value())
			password := m.inputs[fieldPassword].Value()
			if username == "" || password == "" {
				m.errText = "Username and password are required."
				return m, nil
			}
			m.busy = true
			m.errText = ""
			return m, m.submit(username, password)
		}

	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = loginErrorText(msg.err)
			return m, nil
		}
		if msg.registered {
			m.registering = false
			m.notice = "Account created, log in to continue."
			m.inputs[fieldPassword].SetValue("")
		}
		// A successful login switches views through the session event.
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// submit runs the login or register call off the update loop.
func (m loginModel) submit(username, password string) tea.Cmd {
	client := m.client
	registering := m.registering
	return func() tea.Msg {
		creds := api.Credentials{Username: username, Password: password}
		if registering {
			return loginResultMsg{registered: true, err: client.Register(context.Background(), creds)}
		}
		_, err := client.Login(context.Background(), creds)
		return loginResultMsg{err: err}
	}
}

// loginErrorText maps an error to something worth showing on the form.
func loginErrorText(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, api.ErrNetwork) {
		return "Could not reach the server. Is it running?"
	}
	return err.Error()
}

func (m loginModel) view() string {
	title := "nutri"
	if m.registering {
		title += " · create account"
	} else {
		title += " · log in"
	}

	var b strings.Builder
	b.WriteString(m.theme.Header.Render(title))
	b.WriteString("\n\n")
	if m.notice != "" {
		b.WriteString(m.theme.Warning.Render(m.notice))
		b.WriteString("\n\n")
	}
	b.WriteString(m.theme.FormLabel.Render("Username"))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldUsername].View())
	b.WriteString("\n\n")
	b.WriteString(m.theme.FormLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldPassword].View())
	b.WriteString("\n\n")

	switch {
	case m.busy:
		b.WriteString(m.theme.Warning.Render("Signing in..."))
	case m.errText != "":
		b.WriteString(m.theme.Error.Render(m.errText))
	}
	b.WriteString("\n\n")
	b.WriteString(m.theme.Help.Render("enter submit · tab switch field · ctrl+r toggle register · ctrl+c quit"))

	form := b.String()
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
	}
	return form
}
