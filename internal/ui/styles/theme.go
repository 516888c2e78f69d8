// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds every style used by the chat view.
type Theme struct {
	Mode         string
	IsDark       bool
	ColorProfile termenv.Profile

	// Header and status
	Header      lipgloss.Style
	StatusBar   lipgloss.Style
	StatusOK    lipgloss.Style
	StatusError lipgloss.Style

	// Message blocks
	UserLabel      lipgloss.Style
	UserBlock      lipgloss.Style
	AssistantLabel lipgloss.Style
	AssistantBlock lipgloss.Style
	SystemBlock    lipgloss.Style
	Typing         lipgloss.Style

	// Sidebar
	Sidebar      lipgloss.Style
	SidebarTitle lipgloss.Style
	SidebarItem  lipgloss.Style
	PersonaOn    lipgloss.Style
	PersonaOff   lipgloss.Style
	Locked       lipgloss.Style

	// Input
	Input        lipgloss.Style
	InputFocused lipgloss.Style
	Hint         lipgloss.Style
	Confirm      lipgloss.Style
}

// NewTheme builds a theme for mode. Unknown modes behave like ModeAuto.
func NewTheme(mode string) *Theme {
	mode = strings.ToLower(strings.TrimSpace(mode))

	var isDark bool
	switch mode {
	case ModeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ModeLight:
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		Mode:         mode,
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Brand).
		Background(SurfaceDim).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusOK = lipgloss.NewStyle().Foreground(Success).Bold(true)
	t.StatusError = lipgloss.NewStyle().Foreground(Danger).Bold(true)

	t.UserLabel = lipgloss.NewStyle().Foreground(UserBorder).Bold(true)
	t.UserBlock = lipgloss.NewStyle().
		Foreground(UserFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBorder).
		Padding(0, 1)

	t.AssistantLabel = lipgloss.NewStyle().Foreground(AssistantBorder).Bold(true)
	t.AssistantBlock = lipgloss.NewStyle().
		Foreground(AssistantFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBorder).
		Padding(0, 1)

	t.SystemBlock = lipgloss.NewStyle().
		Foreground(SystemFg).
		Italic(true).
		Padding(0, 1)

	t.Typing = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Border).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextSecondary)
	t.PersonaOn = lipgloss.NewStyle().Foreground(Success).Bold(true)
	t.PersonaOff = lipgloss.NewStyle().Foreground(TextMuted)
	t.Locked = lipgloss.NewStyle().Foreground(Warning)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Border)
	t.InputFocused = t.Input.BorderForeground(Accent)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted)
	t.Confirm = lipgloss.NewStyle().Foreground(Danger).Bold(true)
}
