// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/personachat/internal/ui/styles"
)

const (
	// DefaultBreakpoint is the terminal width (columns) at which the sidebar
	// auto-opens.
	DefaultBreakpoint = 100

	// DefaultMaxInputHeight caps the input box height in rows.
	DefaultMaxInputHeight = 200
)

// Text is plain text. Control sequences are stripped when it is displayed.
type Text string

// Fragment is trusted, pre-rendered server content. It is never escaped.
type Fragment string

// Kind identifies a block in the conversation.
type Kind int

const (
	KindUser Kind = iota + 1
	KindSystem
	KindAssistant
	KindTyping
)

// String returns the block kind name.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindSystem:
		return "system"
	case KindAssistant:
		return "assistant"
	case KindTyping:
		return "typing"
	default:
		return "unknown"
	}
}

// Block is one rendered element of the conversation.
type Block struct {
	ID      string
	Kind    Kind
	Content string

	// Trusted is set for assistant content built from fragments.
	Trusted bool
}

// Options configures a View.
type Options struct {
	// HasSidebar reports whether a sidebar exists at all.
	HasSidebar bool

	// SidebarOpen is the initial visibility.
	SidebarOpen bool

	// Breakpoint is the width at or above which a resize opens the sidebar.
	Breakpoint int

	// MaxInputHeight caps ResizeInput.
	MaxInputHeight int

	// OnSidebarToggle is called with the new visibility after every change.
	OnSidebarToggle func(open bool)

	Theme  *styles.Theme
	Logger zerolog.Logger
}

// View is the conversation display state. It is not safe for concurrent
// use; the UI loop owns it.
type View struct {
	opts   Options
	logger zerolog.Logger
	theme  *styles.Theme

	blocks    []Block
	streaming string // ID of the open assistant block
	typing    string // ID of the typing indicator block

	sidebarOpen bool

	pendingScroll bool
	pendingFocus  bool
	typingFrame   string
}

// New creates an empty View.
func New(opts Options) *View {
	if opts.Breakpoint <= 0 {
		opts.Breakpoint = DefaultBreakpoint
	}
	if opts.MaxInputHeight <= 0 {
		opts.MaxInputHeight = DefaultMaxInputHeight
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ModeAuto)
	}
	if opts.OnSidebarToggle == nil {
		opts.OnSidebarToggle = func(bool) {}
	}

	return &View{
		opts:        opts,
		logger:      opts.Logger.With().Str("component", "view").Logger(),
		theme:       opts.Theme,
		sidebarOpen: opts.SidebarOpen && opts.HasSidebar,
		typingFrame: "...",
	}
}

// =============================================================================
// MESSAGE BLOCKS
// =============================================================================

// AddUserMessage appends a user block and requests a scroll.
func (v *View) AddUserMessage(text Text) {
	v.append(KindUser, string(text), false)
	v.ScrollToBottom()
}

// AddSystemMessage appends a system notice and requests a scroll.
func (v *View) AddSystemMessage(text Text) {
	v.append(KindSystem, string(text), false)
	v.ScrollToBottom()
}

// ShowTypingIndicator appends the typing indicator. An indicator already on
// screen is replaced so at most one exists.
func (v *View) ShowTypingIndicator() {
	v.removeTyping()
	v.typing = v.append(KindTyping, "", false).ID
	v.ScrollToBottom()
}

// ClearTypingIndicator removes the typing indicator. It is a no-op when none
// is shown.
func (v *View) ClearTypingIndicator() {
	v.removeTyping()
}

// CreateAssistantMessage opens a new streaming assistant block. A block that
// is still open stays in the conversation as a static message.
func (v *View) CreateAssistantMessage() {
	if v.streaming != "" {
		v.logger.Debug().Str("id", v.streaming).Msg("replacing open assistant message")
	}
	v.streaming = v.append(KindAssistant, "", true).ID
	v.ScrollToBottom()
}

// AppendAssistantMessage concatenates frag onto the open assistant block.
// Without an open block it does nothing.
func (v *View) AppendAssistantMessage(frag Fragment) {
	if v.streaming == "" {
		v.logger.Debug().Msg("chunk without open assistant message")
		return
	}
	if i := v.index(v.streaming); i >= 0 {
		v.blocks[i].Content += string(frag)
		v.ScrollToBottom()
	}
}

// FinalizeAssistantMessage closes the streaming block. The block remains in
// the conversation.
func (v *View) FinalizeAssistantMessage() {
	v.streaming = ""
}

func (v *View) append(kind Kind, content string, trusted bool) Block {
	b := Block{
		ID:      uuid.NewString(),
		Kind:    kind,
		Content: content,
		Trusted: trusted,
	}
	v.blocks = append(v.blocks, b)
	return b
}

func (v *View) removeTyping() {
	if v.typing == "" {
		return
	}
	if i := v.index(v.typing); i >= 0 {
		v.blocks = append(v.blocks[:i], v.blocks[i+1:]...)
	}
	v.typing = ""
}

func (v *View) index(id string) int {
	for i := len(v.blocks) - 1; i >= 0; i-- {
		if v.blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// DEFERRED REQUESTS
// =============================================================================

// ScrollToBottom requests a scroll once the next render has settled. The
// owner collects the request with TakeScroll.
func (v *View) ScrollToBottom() {
	v.pendingScroll = true
}

// TakeScroll reports and clears a pending scroll request.
func (v *View) TakeScroll() bool {
	p := v.pendingScroll
	v.pendingScroll = false
	return p
}

// FocusInput requests input focus on the next update.
func (v *View) FocusInput() {
	v.pendingFocus = true
}

// TakeFocus reports and clears a pending focus request.
func (v *View) TakeFocus() bool {
	p := v.pendingFocus
	v.pendingFocus = false
	return p
}

// =============================================================================
// INPUT
// =============================================================================

// ResizeInput shrinks the input to one row, then grows it to fit its content
// up to the configured maximum.
func (v *View) ResizeInput(in *textarea.Model) {
	if in == nil {
		return
	}
	in.MaxHeight = v.opts.MaxInputHeight
	in.SetHeight(1)
	rows := 0
	for _, line := range strings.Split(in.Value(), "\n") {
		rows += wrappedRows(line, in.Width())
	}
	in.SetHeight(max(1, min(rows, v.opts.MaxInputHeight)))
}

// MaxInputHeight returns the input height cap.
func (v *View) MaxInputHeight() int {
	return v.opts.MaxInputHeight
}

// =============================================================================
// SIDEBAR
// =============================================================================

// ToggleSidebar flips the sidebar and returns the new visibility. Without a
// sidebar it logs a warning and returns the unchanged state.
func (v *View) ToggleSidebar() bool {
	if !v.opts.HasSidebar {
		v.logger.Warn().Msg("sidebar element not found")
		return v.sidebarOpen
	}
	v.setSidebar(!v.sidebarOpen)
	return v.sidebarOpen
}

// OpenSidebar shows the sidebar.
func (v *View) OpenSidebar() {
	v.setSidebar(true)
}

// CloseSidebar hides the sidebar.
func (v *View) CloseSidebar() {
	v.setSidebar(false)
}

// HandleResize opens the sidebar when width reaches the breakpoint and the
// sidebar is closed. It never closes it.
func (v *View) HandleResize(width int) {
	if width >= v.opts.Breakpoint && !v.sidebarOpen {
		v.setSidebar(true)
	}
}

func (v *View) setSidebar(open bool) {
	if !v.opts.HasSidebar {
		return
	}
	if v.sidebarOpen == open {
		return
	}
	v.sidebarOpen = open
	v.opts.OnSidebarToggle(open)
}

// =============================================================================
// QUERIES
// =============================================================================

// Blocks returns a copy of the conversation blocks in display order.
func (v *View) Blocks() []Block {
	out := make([]Block, len(v.blocks))
	copy(out, v.blocks)
	return out
}

// Streaming reports whether an assistant block is open.
func (v *View) Streaming() bool {
	return v.streaming != ""
}

// TypingVisible reports whether the typing indicator is shown.
func (v *View) TypingVisible() bool {
	return v.typing != ""
}

// SidebarOpen reports sidebar visibility.
func (v *View) SidebarOpen() bool {
	return v.sidebarOpen
}

// HasSidebar reports whether a sidebar exists.
func (v *View) HasSidebar() bool {
	return v.opts.HasSidebar
}

// SetTypingFrame sets the indicator text for the current animation frame.
func (v *View) SetTypingFrame(frame string) {
	v.typingFrame = frame
}
