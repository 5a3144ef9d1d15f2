// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ifinspire/aigent/internal/config"
	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/ui/components"
	"github.com/ifinspire/aigent/internal/ui/styles"
)

// =============================================================================
// SESSION INTERFACE
// =============================================================================

// Session is the part of *session.Controller the TUI drives.
type Session interface {
	State() session.State
	Subscribe() (<-chan session.State, func())

	Init(ctx context.Context) error
	RefreshDashboard(ctx context.Context)
	Warmup(ctx context.Context) error
	RefreshConversations(ctx context.Context) ([]model.ConversationSummary, error)
	SelectConversation(ctx context.Context, id string) error
	NewChat()
	DeleteConversation(ctx context.Context, id string) error
	EstimateDraft(draft string) ctxwin.Usage
	SendMessage(ctx context.Context, text string) error
	SaveSettings(ctx context.Context, in model.SettingsInput) (model.ContextSettings, error)
	StartBaseline(ctx context.Context, enforceMaxResponseTokens bool) error
	DisposeBaseline()
	ExportAll(ctx context.Context) (*kernel.ExportEnvelope, error)

	Notify(level session.ToastLevel, text string)
	DismissToast(id string)
}

var _ Session = (*session.Controller)(nil)

// =============================================================================
// FOCUS AND PANELS
// =============================================================================

// Focus is where key input goes when no panel is open.
type Focus int

const (
	FocusInput Focus = iota
	FocusSidebar
)

// Panel is an overlay that replaces the message area.
type Panel int

const (
	PanelNone Panel = iota
	PanelSettings
	PanelBaseline
	PanelTelemetry
	PanelHelp
)

// sidebarWidth is the conversation list width on wide terminals.
const sidebarWidth = 32

// inputLines is the draft textarea height.
const inputLines = 3

// toastTickInterval is how often expired toasts are swept.
const toastTickInterval = 500 * time.Millisecond

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures a Model.
type Options struct {
	Config *config.Config
	// ConfigPath is watched for live ui.* changes. Empty disables watching.
	ConfigPath string
	Logger     *slog.Logger
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	sess  Session
	cfg   *config.Config
	log   *slog.Logger
	theme *styles.Theme
	keys  KeyMap

	// Latest controller state and its subscription.
	state       session.State
	states      <-chan session.State
	unsubscribe func()

	// Config reloads from the watcher.
	cfgPath  string
	reloaded chan *config.Config

	ctx    context.Context
	cancel context.CancelFunc

	// Dimensions
	width  int
	height int
	ready  bool

	focus Focus
	panel Panel

	// confirmDelete holds a conversation awaiting y/n.
	confirmDelete string

	// Widgets
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	// Components
	header     *components.Header
	contextBar *components.ContextBar
	statusBar  *components.StatusBar
	sidebar    *components.ConversationList
	renderer   *components.MessageRenderer
	settings   *components.SettingsForm
	bench      *components.BenchmarkView

	// Follow the newest message unless the user scrolled away.
	follow       bool
	lastActive   string
	lastMsgCount int
}

// New creates a chat model over sess and subscribes to its state.
func New(sess Session, opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	states, unsubscribe := sess.Subscribe()

	m := Model{
		sess:        sess,
		cfg:         cfg,
		log:         logger.With("component", "tui"),
		keys:        DefaultKeyMap(),
		state:       sess.State(),
		states:      states,
		unsubscribe: unsubscribe,
		cfgPath:     opts.ConfigPath,
		reloaded:    make(chan *config.Config, 1),
		ctx:         ctx,
		cancel:      cancel,
		width:       80,
		height:      24,
		follow:      true,
	}

	m.input = newInput()
	m.viewport = viewport.New(80, 10)
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}))

	m.applyTheme(cfg.UI.Theme)
	m.applyState(m.state)
	return m
}

func newInput() textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message, or /help"
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(inputLines)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.Focus()
	return ta
}

// applyTheme rebuilds the theme and every component that holds it.
func (m *Model) applyTheme(mode string) {
	m.theme = styles.NewThemeFor(mode)
	m.spinner.Style = m.theme.Spinner
	m.input.FocusedStyle.Placeholder = m.theme.InputPlaceholder
	m.input.BlurredStyle.Placeholder = m.theme.InputPlaceholder

	m.header = components.NewHeader(m.theme)
	m.contextBar = components.NewContextBar(m.theme)
	m.statusBar = components.NewStatusBar(m.theme)
	m.sidebar = components.NewConversationList(m.theme)
	m.renderer = components.NewMessageRenderer(m.theme, m.width)
	m.renderer.SetOptions(components.RenderOptions{
		Markdown:      m.cfg.UI.Markdown,
		ShowReasoning: m.cfg.UI.ShowReasoning,
	})
	m.settings = components.NewSettingsForm(m.theme, m.state.Settings)
	m.bench = components.NewBenchmarkView(m.theme, m.width, m.height)

	m.header.KernelURL = m.cfg.Kernel.BaseURL
	m.sidebar.SetFocused(m.focus == FocusSidebar)
	m.statusBar.SetShortcuts(m.shortcuts())
}

// Init starts the session and the background listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForState(m.states),
		m.initCmd(),
		textarea.Blink,
		m.spinner.Tick,
		toastTick(),
	}
	if m.cfgPath != "" {
		cmds = append(cmds, m.watchConfigCmd(), waitForConfig(m.reloaded))
	}
	return tea.Batch(cmds...)
}

// Close cancels in-flight calls and drops the subscription.
func (m Model) Close() {
	m.cancel()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// =============================================================================
// STATE
// =============================================================================

// applyState pushes a controller state into the components.
func (m *Model) applyState(st session.State) {
	m.state = st

	m.header.SetState(st)
	m.contextBar.SetUsage(st.Usage, st.Projection, st.ValidationError)
	m.statusBar.SetTelemetry(st.Telemetry)
	m.statusBar.SetProcessing(st.Processing)
	m.statusBar.SetBaseline(st.Baseline.Phase)
	m.sidebar.SetItems(st.Conversations, st.ActiveID)
	if m.panel != PanelSettings {
		m.settings.Reset(st.Settings)
	}

	if st.ActiveID != m.lastActive || len(st.Messages) != m.lastMsgCount {
		m.follow = true
	}
	m.lastActive = st.ActiveID
	m.lastMsgCount = len(st.Messages)

	m.layout()
	m.refreshViewport()
}

// State returns the last state the model rendered.
func (m Model) State() session.State {
	return m.state
}

// FocusMode returns the current focus.
func (m Model) FocusMode() Focus {
	return m.focus
}

// OpenPanel returns the open panel.
func (m Model) OpenPanel() Panel {
	return m.panel
}

// Draft returns the textarea contents.
func (m Model) Draft() string {
	return m.input.Value()
}

// pendingHere reports whether a send for the visible conversation is in flight.
func (m Model) pendingHere() bool {
	return m.state.Processing && m.state.PendingOrigin == m.state.ActiveID
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes every component from the window and the current state.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)
	mode := m.theme.GetLayoutMode()

	mainWidth := m.width
	if mode.ShowSidebar() {
		mainWidth -= sidebarWidth
	} else if m.focus == FocusSidebar {
		m.setFocus(FocusInput)
	}

	m.header.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.contextBar.SetWidth(mainWidth)
	m.settings.SetWidth(mainWidth)

	if mode == styles.LayoutNarrow {
		m.statusBar.SetContext(m.contextBar.RenderCompact())
	} else {
		m.statusBar.SetContext("")
	}

	frame := m.theme.InputContainer.GetHorizontalFrameSize()
	m.input.SetWidth(max(10, mainWidth-frame))

	headerH := lipgloss.Height(m.header.View())
	statusH := lipgloss.Height(m.statusBar.View())
	inputH := inputLines + m.theme.InputContainer.GetVerticalFrameSize()
	bodyH := max(3, m.height-headerH-statusH-inputH-m.contextBarHeight())

	m.sidebar.SetSize(sidebarWidth, bodyH+inputH+m.contextBarHeight())
	m.viewport.Width = mainWidth
	m.viewport.Height = bodyH
	m.renderer.SetWidth(mainWidth)
	m.bench.SetSize(mainWidth, bodyH)
}

func (m Model) contextBarHeight() int {
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return 0
	}
	return m.contextBar.Height()
}

// refreshViewport re-renders the message list.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// setFocus moves key input between the textarea and the sidebar.
func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.sidebar.SetFocused(f == FocusSidebar)
	if f == FocusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.statusBar.SetShortcuts(m.shortcuts())
}

// openPanel shows p over the message area. PanelNone closes it.
func (m *Model) openPanel(p Panel) {
	m.panel = p
	m.confirmDelete = ""
	if p == PanelSettings {
		m.settings.Reset(m.state.Settings)
	}
	if p == PanelNone {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.statusBar.SetShortcuts(m.shortcuts())
}

// shortcuts returns the status bar hints for the current focus.
func (m Model) shortcuts() []components.Shortcut {
	bindings := m.keys.ShortHelp()
	switch {
	case m.panel == PanelSettings:
		return []components.Shortcut{{Key: "Enter", Desc: "save"}, {Key: "Tab", Desc: "next field"}, {Key: "Esc", Desc: "close"}}
	case m.panel == PanelBaseline:
		return []components.Shortcut{{Key: "s", Desc: "start"}, {Key: "x", Desc: "stop following"}, {Key: "Esc", Desc: "close"}}
	case m.panel != PanelNone:
		return []components.Shortcut{{Key: "Esc", Desc: "close"}}
	case m.focus == FocusSidebar:
		bindings = m.keys.SidebarHelp()
	}
	out := make([]components.Shortcut, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, components.Shortcut{Key: h.Key, Desc: h.Desc})
	}
	return out
}
