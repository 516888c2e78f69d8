// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/personachat/internal/util"
)

const (
	headerHeight = 1
	statusHeight = 1
	inputBorder  = 2
	sidebarWidth = 28
	minPaneWidth = 20
)

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderSidebar())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// refresh recomputes the layout and re-renders the conversation into the
// viewport, keeping the scroll position.
func (m *Model) refresh() {
	if !m.ready {
		return
	}

	paneWidth := m.width
	if m.sidebarVisible() {
		paneWidth -= sidebarWidth
	}
	if paneWidth < minPaneWidth {
		paneWidth = minPaneWidth
	}

	m.input.SetWidth(max(m.width-inputBorder, 1))
	m.view.ResizeInput(&m.input)

	paneHeight := m.height - headerHeight - statusHeight - m.input.Height() - inputBorder
	if paneHeight < 1 {
		paneHeight = 1
	}

	m.viewport.Width = paneWidth
	m.viewport.Height = paneHeight
	m.viewport.SetContent(m.view.Render(paneWidth))
}

func (m Model) sidebarVisible() bool {
	return m.s.sidebarOpen && m.width >= sidebarWidth+minPaneWidth
}

func (m Model) renderHeader() string {
	title := "personachat"
	if id := m.sessionID(); id != "" {
		title += " · " + util.TruncateCells(id, max(m.width/3, 8))
	}
	return m.theme.Header.Width(m.width).Render(title)
}

func (m Model) renderSidebar() string {
	t := m.theme
	inner := sidebarWidth - 3 // border + padding

	persona := t.PersonaOff.Render("off")
	locked := false
	if m.persona != nil {
		st := m.persona.State()
		if st.Enabled {
			persona = t.PersonaOn.Render("on")
		}
		locked = st.Locked
	}
	if locked {
		persona += " " + t.Locked.Render("(locked)")
	}

	model := m.s.selectedModel
	if model == "" {
		model = "default"
	}
	model = util.TruncateCells(model, inner)
	if m.s.disableModelSelect {
		model += "\n" + t.Locked.Render("(fixed)")
	}

	lines := []string{
		t.SidebarTitle.Render("Session"),
		t.SidebarItem.Render(util.TruncateCells(m.sessionID(), inner)),
		"",
		t.SidebarTitle.Render("Persona"),
		persona,
		"",
		t.SidebarTitle.Render("Model"),
		model,
		"",
		t.SidebarTitle.Render("Shortcuts"),
		t.SidebarItem.Render("C-b  sidebar"),
		t.SidebarItem.Render("C-p  persona"),
		t.SidebarItem.Render("C-x  clear chats"),
	}
	return t.Sidebar.
		Width(sidebarWidth - 1).
		Height(m.viewport.Height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderInput() string {
	if m.s.confirmingClear {
		prompt := m.theme.Confirm.Render("Are you sure you want to delete all your chat sessions? This cannot be undone. (y/N)")
		return m.theme.Input.Width(max(m.width-inputBorder, 1)).Render(prompt)
	}
	style := m.theme.Input
	if m.input.Focused() {
		style = m.theme.InputFocused
	}
	return style.Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	plain := "● " + m.s.conn.String()
	status := plain
	switch m.s.conn {
	case ConnOpen:
		status = m.theme.StatusOK.Render(plain)
	case ConnDisconnected, ConnReconnecting:
		status = m.theme.StatusError.Render(plain)
	}
	room := m.width - 2 - util.CellWidth(plain) - 2
	hint := util.TruncateCells(m.keys.HelpLine(), room)
	return m.theme.StatusBar.Width(m.width).Render(status + "  " + hint)
}

func (m Model) sessionID() string {
	if m.ch == nil {
		return ""
	}
	return m.ch.SessionID()
}
