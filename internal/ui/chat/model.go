// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/playground"
	"github.com/jeranaias/aihub-tui/internal/ui/components"
	"github.com/jeranaias/aihub-tui/internal/ui/styles"
)

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	headerHeight = 1
	statusHeight = 1
	// infoHeight is the row between transcript and composer that shows the
	// progress bar while a reply streams.
	infoHeight = 1

	composerLines = 3
	// composer border (2) + counter line (1)
	inputChrome = 3

	// settingsWidth is the settings pane width in the wide layout.
	settingsWidth = 42

	// editorLines is the height of the settings pane text editors.
	editorLines = 6
)

// =============================================================================
// TYPES
// =============================================================================

// Gateway is what the playground needs from the gateway client.
// *gateway.Client implements it.
type Gateway interface {
	playground.Streamer
	Catalog(ctx context.Context) ([]model.ModelInfo, error)
}

// ConnectFunc builds a gateway client from configuration. It is used to
// replace the client after a configuration reload.
type ConnectFunc func(cfg *config.Config) Gateway

// focusArea is the part of the screen receiving key presses.
type focusArea int

const (
	focusComposer focusArea = iota
	focusSettings
)

// Options configures a Model.
type Options struct {
	// Config is the starting configuration. Nil means config.Default().
	Config *config.Config

	// Gateway serves chat completions and the model catalog.
	Gateway Gateway

	// Connect rebuilds the gateway on configuration reload. Optional.
	Connect ConnectFunc

	// Theme defaults to styles.NewTheme().
	Theme *styles.Theme

	Logger *slog.Logger

	// Context bounds every request started from the view.
	Context context.Context

	// Dispatcher routes orchestrator events. Without it events are applied
	// inline, which is only safe when nothing else touches the model.
	Dispatcher playground.Dispatcher

	// Settings replaces the generation settings built from Config.
	Settings *genconfig.Manager
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the playground view.
type Model struct {
	cfg     *config.Config
	orch    *playground.Orchestrator
	gw      Gateway
	connect ConnectFunc
	ctx     context.Context
	logger  *slog.Logger

	theme       *styles.Theme
	keys        KeyMap
	help        help.Model
	viewport    viewport.Model
	composer    textarea.Model
	spinner     spinner.Model
	progress    progress.Model
	toasts      *components.ToastManager
	highlighter *components.Highlighter
	markdown    *markdownRenderer

	settings *settingsPane

	models    []model.ModelInfo
	modelsErr error

	focus        focusArea
	showHelp     bool
	toastTicking bool

	width  int
	height int
	ready  bool
}

// New creates the playground view and the orchestrator behind it.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	manager := opts.Settings
	if manager == nil {
		manager = settingsFromConfig(cfg, logger)
	}

	machine := conversation.New(manager.SystemPrompt(), cfg.Playground.Greeting)

	orchOpts := []playground.Option{
		playground.WithLogger(logger),
		playground.WithMaxMalformedFrames(cfg.Playground.MaxMalformedFrames),
		playground.WithProgressInterval(cfg.Playground.ProgressInterval.Duration),
	}
	if opts.Dispatcher != nil {
		orchOpts = append(orchOpts, playground.WithDispatcher(opts.Dispatcher))
	}
	var streamer playground.Streamer
	if opts.Gateway != nil {
		streamer = opts.Gateway
	}
	orch := playground.New(machine, manager, streamer, orchOpts...)

	composer := textarea.New()
	composer.Placeholder = "Type a message..."
	composer.ShowLineNumbers = false
	composer.Prompt = ""
	composer.CharLimit = 0
	composer.SetHeight(composerLines)
	composer.KeyMap.InsertNewline = DefaultKeyMap().Newline
	composer.FocusedStyle.CursorLine = lipgloss.NewStyle()
	composer.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Spinner),
	)

	return Model{
		cfg:         cfg,
		orch:        orch,
		gw:          opts.Gateway,
		connect:     opts.Connect,
		ctx:         ctx,
		logger:      logger,
		theme:       theme,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		viewport:    viewport.New(80, 20),
		composer:    composer,
		spinner:     sp,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		toasts:      components.NewToastManager(),
		highlighter: components.NewHighlighterForTheme(theme),
		markdown:    newMarkdownRenderer(theme.GlamourStyle(cfg.UI.GlamourStyle)),
		settings:    newSettingsPane(manager),
	}
}

// settingsFromConfig builds the starting generation settings.
func settingsFromConfig(cfg *config.Config, logger *slog.Logger) *genconfig.Manager {
	manager := genconfig.NewManager()
	if cfg.Playground.Preset != "" {
		if _, err := manager.ApplyPreset(cfg.Playground.Preset); err != nil {
			logger.Warn("ignoring unknown preset", "preset", cfg.Playground.Preset)
		}
	}
	if cfg.Playground.SystemPrompt != "" {
		manager.SetSystemPrompt(cfg.Playground.SystemPrompt)
	}
	manager.SetModel(cfg.Playground.Model)
	return manager
}

// Init starts loading the model catalog.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, loadModelsCmd(m.ctx, m.gw))
}

// Orchestrator returns the orchestrator driven by the view.
func (m Model) Orchestrator() *playground.Orchestrator {
	return m.orch
}

// Models returns the loaded model catalog.
func (m Model) Models() []model.ModelInfo {
	return m.models
}

// Config returns the configuration currently in effect.
func (m Model) Config() *config.Config {
	return m.cfg
}

// Toasts returns the visible notifications.
func (m Model) Toasts() []components.Toast {
	return m.toasts.Toasts()
}

// =============================================================================
// LAYOUT
// =============================================================================

// wide reports whether the settings pane sits beside the transcript.
func (m Model) wide() bool {
	return m.theme.GetLayoutMode() == styles.LayoutWide
}

// transcriptWidth is the width available to the transcript viewport.
func (m Model) transcriptWidth() int {
	if m.wide() {
		return max(20, m.width-settingsWidth)
	}
	return max(20, m.width)
}

// bodyHeight is the height between the header and the composer.
func (m Model) bodyHeight() int {
	return max(1, m.height-headerHeight-infoHeight-composerLines-inputChrome-statusHeight)
}

// handleResize recomputes component sizes after a window change.
func (m *Model) handleResize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = m.bodyHeight()
	m.composer.SetWidth(max(10, width-4))
	m.progress.Width = max(10, width/3)
	m.help.Width = width

	paneWidth := settingsWidth
	if !m.wide() {
		paneWidth = width
	}
	m.settings.resize(paneWidth-4, editorLines)

	m.ready = true
	m.refreshTranscript()
}

// refreshTranscript re-renders the conversation into the viewport. It
// follows the tail when the view was already at the bottom.
func (m *Model) refreshTranscript() {
	follow := m.viewport.AtBottom() || m.orch.Active()
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	if follow {
		m.viewport.GotoBottom()
	}
}
