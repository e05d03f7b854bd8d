// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mdelaney/nutri-tui/internal/ui/styles"
)

// Styles for CLI output, shared across command handlers.
var (
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(styles.Teal)
	coachStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.Green)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.Rose)
	warningStyle = lipgloss.NewStyle().Foreground(styles.Amber)
	successStyle = lipgloss.NewStyle().Foreground(styles.Green)
	labelStyle   = lipgloss.NewStyle().Foreground(styles.TextSecondary)
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.TextPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(styles.TextMuted)
)
