// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/personachat/internal/channel"
	"github.com/jeranaias/personachat/internal/events"
	"github.com/jeranaias/personachat/internal/persona"
	"github.com/jeranaias/personachat/internal/protocol"
	"github.com/jeranaias/personachat/internal/ui/styles"
	"github.com/jeranaias/personachat/internal/util"
	"github.com/jeranaias/personachat/internal/view"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Channel is the socket the model drives. *channel.Channel implements it.
type Channel interface {
	Connect(ctx context.Context)
	Send(payload any) error
	Close() error
	Events() <-chan channel.Event
	SessionID() string
}

// Navigator leaves the chat for another location.
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string) error

// Navigate calls f(url).
func (f NavigatorFunc) Navigate(url string) error { return f(url) }

// Options configures New.
type Options struct {
	Context   context.Context
	Channel   Channel
	Bus       *events.Bus
	Persona   *persona.Toggle
	Navigator Navigator
	Theme     *styles.Theme
	Logger    zerolog.Logger

	HomeURL           string
	HasSidebar        bool
	SidebarOpen       bool
	SidebarBreakpoint int
	MaxInputHeight    int
}

// =============================================================================
// MODEL
// =============================================================================

// ConnState is the connection status shown in the sidebar and status bar.
type ConnState int

const (
	ConnConnecting ConnState = iota
	ConnOpen
	ConnReconnecting
	ConnDisconnected
)

func (s ConnState) String() string {
	switch s {
	case ConnOpen:
		return "connected"
	case ConnReconnecting:
		return "reconnecting"
	case ConnDisconnected:
		return "disconnected"
	default:
		return "connecting"
	}
}

// session is the state shared by every copy of the Model and by bus
// handlers.
type session struct {
	hasConnectedMessage bool
	conn                ConnState
	sidebarOpen         bool
	selectedModel       string
	disableModelSelect  bool
	confirmingClear     bool
	navigatedTo         string
	unsubscribe         []func()
}

// Model is the root chat model.
type Model struct {
	ctx     context.Context
	ch      Channel
	bus     *events.Bus
	persona *persona.Toggle
	nav     Navigator
	theme   *styles.Theme
	logger  zerolog.Logger
	keys    KeyMap

	view     *view.View
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	homeURL string
	width   int
	height  int
	ready   bool

	s *session
}

// New creates the root model and subscribes it to chat-error notices.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ModeAuto)
	}
	if opts.Navigator == nil {
		opts.Navigator = NavigatorFunc(func(string) error { return nil })
	}

	s := &session{}
	logger := opts.Logger.With().Str("component", "chat").Logger()

	v := view.New(view.Options{
		HasSidebar:      opts.HasSidebar,
		SidebarOpen:     opts.SidebarOpen,
		Breakpoint:      opts.SidebarBreakpoint,
		MaxInputHeight:  opts.MaxInputHeight,
		OnSidebarToggle: func(open bool) { s.sidebarOpen = open },
		Theme:           opts.Theme,
		Logger:          opts.Logger,
	})
	s.sidebarOpen = v.SidebarOpen()

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.KeyMap.InsertNewline = keys.Newline
	ta.FocusedStyle.CursorLine = ta.FocusedStyle.Base
	ta.Focus()
	v.ResizeInput(&ta)

	sp := spinner.New(spinner.WithSpinner(spinner.Points))
	sp.Style = opts.Theme.Typing

	m := Model{
		ctx:      opts.Context,
		ch:       opts.Channel,
		bus:      opts.Bus,
		persona:  opts.Persona,
		nav:      opts.Navigator,
		theme:    opts.Theme,
		logger:   logger,
		keys:     keys,
		view:     v,
		input:    ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		homeURL:  opts.HomeURL,
		s:        s,
	}

	s.unsubscribe = append(s.unsubscribe, m.bus.Subscribe(events.TopicChatError, func(ev events.Event) {
		if msg, ok := ev.Payload.(string); ok {
			v.AddSystemMessage(view.Text(msg))
		}
	}))
	return m
}

// Init connects the channel and starts listening for its events.
func (m Model) Init() tea.Cmd {
	m.logger.Info().Msg("initializing chat")
	m.ch.Connect(m.ctx)
	m.view.ScrollToBottom()
	m.view.FocusInput()
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.waitForEvent(),
		ScrollToBottomCmd(),
		FocusInputCmd(),
	)
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)

	case ChannelEventMsg:
		m.handleChannelEvent(msg.Event)
		cmds = append(cmds, m.waitForEvent())

	case ScrollToBottomMsg:
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case FocusInputMsg:
		cmds = append(cmds, m.input.Focus())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.view.SetTypingFrame(m.spinner.View())
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.deferred()...)
	m.refresh()
	return m, tea.Batch(cmds...)
}

// deferred turns the view's pending scroll and focus requests into
// commands.
func (m *Model) deferred() []tea.Cmd {
	var cmds []tea.Cmd
	if m.view.TakeScroll() {
		cmds = append(cmds, ScrollToBottomCmd())
	}
	if m.view.TakeFocus() {
		cmds = append(cmds, FocusInputCmd())
	}
	return cmds
}

func (m Model) waitForEvent() tea.Cmd {
	if m.ch == nil {
		return nil
	}
	events, ctx := m.ch.Events(), m.ctx
	return func() tea.Msg {
		select {
		case ev := <-events:
			return ChannelEventMsg{Event: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.view.HandleResize(msg.Width)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.s.confirmingClear {
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()

	case key.Matches(msg, m.keys.Submit):
		m.submit()
		return m, nil

	case key.Matches(msg, m.keys.Sidebar):
		m.ToggleSidebar()
		return m, nil

	case key.Matches(msg, m.keys.Persona):
		m.TogglePersona()
		return m, nil

	case key.Matches(msg, m.keys.ClearAll):
		m.ClearAllChats()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.view.ResizeInput(&m.input)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.s.confirmingClear = false
	if key.Matches(msg, m.keys.Quit) {
		return m, m.quit()
	}
	if strings.EqualFold(msg.String(), "y") {
		m.logger.Info().Str("url", m.homeURL).Msg("clearing all chats")
		if err := m.nav.Navigate(m.homeURL); err != nil {
			m.logger.Error().Err(err).Msg("navigation failed")
			m.notice("Could not open " + m.homeURL + ".")
			return m, nil
		}
		m.s.navigatedTo = m.homeURL
		return m, m.quit()
	}
	m.notice("Clear all chats cancelled.")
	return m, nil
}

func (m *Model) quit() tea.Cmd {
	for _, u := range m.s.unsubscribe {
		u()
	}
	m.s.unsubscribe = nil
	if m.ch != nil {
		if err := m.ch.Close(); err != nil {
			m.logger.Debug().Err(err).Msg("close channel")
		}
	}
	return tea.Quit
}

// =============================================================================
// ACTIONS
// =============================================================================

// submit handles Enter: slash commands first, then SendMessage.
func (m *Model) submit() {
	raw := strings.TrimSpace(m.input.Value())
	if name, ok := strings.CutPrefix(raw, "/model"); ok && (name == "" || name[0] == ' ') {
		m.resetInput()
		name = strings.TrimSpace(name)
		switch {
		case m.s.disableModelSelect:
			m.notice("Model selection is disabled for this session.")
		case name == "":
			m.notice("Usage: /model NAME")
		default:
			m.SelectModel(name)
		}
		return
	}
	m.SendMessage()
}

// SendMessage sends the input box content. Whitespace-only input is
// dropped without sending.
func (m *Model) SendMessage() {
	message := util.EscapeHTML(strings.TrimSpace(m.input.Value()))
	if message == "" {
		return
	}

	m.view.AddUserMessage(view.Text(message))
	m.view.ShowTypingIndicator()
	if err := m.ch.Send(protocol.ChatMessage{Message: message}); err != nil {
		m.logger.Debug().Err(err).Msg("message not sent")
	}
	m.resetInput()
	m.view.ScrollToBottom()
}

// SelectModel asks the server to switch models. An empty name does
// nothing.
func (m *Model) SelectModel(model string) {
	if model == "" {
		return
	}
	m.s.selectedModel = model
	if err := m.ch.Send(protocol.NewSelectModel(model)); err != nil {
		m.logger.Debug().Err(err).Msg("model selection not sent")
		return
	}
	m.logger.Info().Str("model", model).Msg("model selected")
}

// ToggleSidebar flips the sidebar and returns its visibility.
func (m *Model) ToggleSidebar() bool {
	open := m.view.ToggleSidebar()
	m.s.sidebarOpen = open
	return open
}

// TogglePersona requests the opposite of the current persona state.
func (m *Model) TogglePersona() {
	requested := true
	if m.persona != nil {
		requested = !m.persona.Enabled()
	}
	m.bus.Publish(events.TopicUpdatePersona, requested)
}

// ClearAllChats asks for confirmation before leaving for the home URL.
func (m *Model) ClearAllChats() {
	m.s.confirmingClear = true
}

func (m *Model) resetInput() {
	m.input.Reset()
	m.view.ResizeInput(&m.input)
}

func (m *Model) notice(text string) {
	m.view.AddSystemMessage(view.Text(text))
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ConversationView returns the conversation view.
func (m Model) ConversationView() *view.View { return m.view }

// SelectedModel returns the last requested or confirmed model.
func (m Model) SelectedModel() string { return m.s.selectedModel }

// ModelSelectDisabled reports whether the server disabled model selection.
func (m Model) ModelSelectDisabled() bool { return m.s.disableModelSelect }

// SidebarOpen mirrors the view's sidebar flag.
func (m Model) SidebarOpen() bool { return m.s.sidebarOpen }

// Confirming reports whether the clear-all confirmation is showing.
func (m Model) Confirming() bool { return m.s.confirmingClear }

// NavigatedTo returns the URL chosen by a confirmed clear-all, if any.
func (m Model) NavigatedTo() string { return m.s.navigatedTo }

// Conn returns the connection status.
func (m Model) Conn() ConnState { return m.s.conn }

// SetInput replaces the input box content.
func (m *Model) SetInput(s string) {
	m.input.SetValue(s)
	m.view.ResizeInput(&m.input)
}

// InputValue returns the input box content.
func (m Model) InputValue() string { return m.input.Value() }
