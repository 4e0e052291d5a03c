// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/playground"
	"github.com/jeranaias/aihub-tui/internal/ui/components"
	"github.com/jeranaias/aihub-tui/internal/ui/styles"
	"github.com/jeranaias/aihub-tui/internal/util"
)

// tokenWarning is the composer estimate above which the counter turns amber.
const tokenWarning = 4000

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the playground.
// Layout: header (1) + body + info row (1) + composer + status bar (1).
// The body takes whatever height the other rows leave.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.renderHeader()
	info := m.renderInfo()
	input := m.renderInput()
	status := m.renderStatusBar()

	available := m.height - lipgloss.Height(header) - lipgloss.Height(info) -
		lipgloss.Height(input) - lipgloss.Height(status)
	body := m.renderBody(max(1, available))

	return lipgloss.JoinVertical(lipgloss.Left, header, body, info, input, status)
}

// renderBody renders the transcript, the settings pane or both.
func (m Model) renderBody(height int) string {
	if m.showHelp {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(height).
			MaxHeight(height).
			Padding(1, 2).
			Render(m.help.FullHelpView(m.keys.FullHelp()))
	}

	if m.wide() {
		transcript := m.renderTranscriptPane(m.width-settingsWidth, height)
		pane := m.renderSettings(settingsWidth, height)
		return lipgloss.JoinHorizontal(lipgloss.Top, transcript, pane)
	}
	if m.focus == focusSettings {
		return m.renderSettings(m.width, height)
	}
	return m.renderTranscriptPane(m.width, height)
}

// renderTranscriptPane renders the viewport with the toast stack above it.
func (m Model) renderTranscriptPane(width, height int) string {
	toasts := ""
	if m.toasts.HasToasts() {
		toasts = lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Right).
			Render(components.RenderToastStack(m.toasts.Toasts(), width))
	}
	toastHeight := 0
	if toasts != "" {
		toastHeight = lipgloss.Height(toasts)
	}

	vp := m.viewport
	atBottom := vp.AtBottom()
	vp.Width = width
	vp.Height = max(1, height-toastHeight)
	if atBottom {
		vp.GotoBottom()
	}

	view := lipgloss.NewStyle().
		Width(width).
		Height(vp.Height).
		MaxHeight(vp.Height).
		Render(vp.View())
	if toasts == "" {
		return view
	}
	return lipgloss.JoinVertical(lipgloss.Left, toasts, view)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders every message of the conversation.
func (m Model) renderTranscript(width int) string {
	snap := m.orch.Machine().Snapshot()
	width = max(20, width)

	parts := make([]string, 0, len(snap.Messages))
	for i, msg := range snap.Messages {
		last := i == len(snap.Messages)-1
		switch msg.Role {
		case model.RoleSystem:
			parts = append(parts, m.renderSystem(msg, width))
		case model.RoleUser:
			parts = append(parts, m.renderUser(msg, width))
		case model.RoleAssistant:
			failed := last && snap.LastError != ""
			parts = append(parts, m.renderAssistant(msg, width, failed))
		}
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderSystem(msg model.Message, width int) string {
	line := util.TruncateWidth("System: "+util.FirstLine(msg.Content), width-2)
	return m.theme.SystemNote.Render(line)
}

func (m Model) renderUser(msg model.Message, width int) string {
	label := m.theme.UserLabel.Render(msg.Role.DisplayName()) + " " +
		m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	body := m.theme.UserBubble.Width(width - 2).Render(msg.Content)
	return label + "\n" + body
}

// renderAssistant renders a reply. A failed reply shows the error part in
// the error style below whatever text arrived first.
func (m Model) renderAssistant(msg model.Message, width int, failed bool) string {
	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName()) + " " +
		m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	contentWidth := m.wrapWidth(width - 2)

	if msg.Streaming {
		if msg.Content == "" {
			return label + "\n" + m.theme.AssistantBody.Render(m.spinner.View()+" Thinking...")
		}
		body := lipgloss.NewStyle().Width(contentWidth).Render(msg.Content)
		return label + "\n" + m.theme.AssistantBody.Render(body+" "+m.spinner.View())
	}

	content, errPart := msg.Content, ""
	if failed {
		if idx := strings.LastIndex(content, conversation.ErrorPrefix); idx >= 0 {
			content, errPart = strings.TrimRight(content[:idx], "\n"), content[idx:]
		}
	}

	var blocks []string
	if content != "" {
		blocks = append(blocks, m.theme.AssistantBody.Render(m.renderMarkdown(content, contentWidth)))
	}
	if errPart != "" {
		blocks = append(blocks, m.theme.ErrorBody.Width(contentWidth).Render(errPart))
	}
	if msg.Stats != nil && errPart == "" {
		blocks = append(blocks, m.theme.StatsLabel.Render(msg.Stats.Format()))
	}
	return label + "\n" + strings.Join(blocks, "\n")
}

// renderMarkdown renders content with glamour when markdown is enabled.
func (m Model) renderMarkdown(content string, width int) string {
	if m.cfg.UI.Markdown {
		if out, ok := m.markdown.render(content, width); ok {
			return out
		}
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

// wrapWidth caps width at the configured word wrap.
func (m Model) wrapWidth(width int) int {
	if ww := m.cfg.UI.WordWrap; ww > 0 && ww < width {
		width = ww
	}
	return max(10, width)
}

// =============================================================================
// HEADER
// =============================================================================

// renderHeader renders the title bar with the model and session state.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("aihub")

	modelID := m.settings.manager.Model()
	modelText := "no model selected"
	if modelID != "" {
		modelText = modelID + " " + m.theme.ModelProvider.Render("("+m.providerOf(modelID)+")")
	}
	left := title + m.theme.HeaderSubtitle.Render(" | ") + modelText
	right := m.renderState()

	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.
		Width(m.width).
		MaxWidth(m.width).
		Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderState() string {
	snap := m.orch.Machine().Snapshot()
	switch snap.State {
	case conversation.StateSending:
		return m.theme.StatusBusy.Render(m.spinner.View() + " Sending")
	case conversation.StateStreaming:
		return m.theme.StatusBusy.Render(m.spinner.View() + " Streaming")
	}
	if snap.LastError != "" {
		return m.theme.StatusFailed.Render(styles.StatusIndicators.Error + " Failed")
	}
	return m.theme.StatusIdle.Render(styles.StatusIndicators.Success + " Ready")
}

// providerOf looks the model up in the catalog, falling back to inference
// from the id.
func (m Model) providerOf(id string) string {
	for _, info := range m.models {
		if info.ID == id && info.Provider != "" {
			return info.Provider
		}
	}
	return model.InferProvider(id, "")
}

// =============================================================================
// INFO ROW
// =============================================================================

// renderInfo shows the progress bar while a reply streams, otherwise the
// statistics of the last reply.
func (m Model) renderInfo() string {
	style := lipgloss.NewStyle().Width(m.width).MaxWidth(m.width).Padding(0, 1)

	sess, ok := m.orch.Session()
	if !ok {
		if m.modelsErr != nil {
			return style.Render(m.theme.StatusFailed.Render("models unavailable: " + m.modelsErr.Error()))
		}
		return style.Render("")
	}

	if !sess.Status.Terminal() {
		bar := m.progress.ViewAs(sess.Progress / 100)
		return style.Render(bar + " " + m.theme.StatsLabel.Render(fmt.Sprintf("%3.0f%%", sess.Progress)))
	}

	line := m.theme.StatsLabel.Render("last reply: "+sess.Status.String()) + " "
	if sess.Stats != nil && sess.Status == playground.StatusDone {
		line += m.theme.StatsValue.Render(sess.Stats.Format())
	}
	return style.Render(line)
}

// =============================================================================
// INPUT AREA
// =============================================================================

// renderInput renders the composer and its counter.
func (m Model) renderInput() string {
	container := m.theme.InputContainer
	if m.focus == focusComposer {
		container = m.theme.InputFocused
	}
	box := container.Width(m.width - 2).Render(m.composer.View())

	value := m.composer.Value()
	tokens := model.EstimateTokens(value)
	counterStyle := m.theme.CharCount
	if tokens > tokenWarning {
		counterStyle = m.theme.CharCountWarning
	}
	counter := counterStyle.Render(fmt.Sprintf("%d chars | ~%d tokens", utf8.RuneCountInString(value), tokens))
	counter = lipgloss.NewStyle().Width(m.width).Align(lipgloss.Right).PaddingRight(1).Render(counter)

	return box + "\n" + counter
}

// =============================================================================
// STATUS BAR
// =============================================================================

// renderStatusBar renders short help on the left and the active generation
// settings on the right.
func (m Model) renderStatusBar() string {
	settings := m.settings.manager.Snapshot()
	preset := settings.Preset
	if preset == "" {
		preset = "custom"
	}
	right := m.theme.StatsLabel.Render("preset ") + m.theme.StatsValue.Render(preset) +
		m.theme.StatsLabel.Render("  temp ") + m.theme.StatsValue.Render(fmt.Sprintf("%.2f", settings.Params.Temperature))

	left := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Drop the help before the settings.
		left, gap = "", max(1, m.width-2-lipgloss.Width(right))
	}
	return m.theme.StatusBar.
		Width(m.width).
		MaxWidth(m.width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// SETTINGS PANE
// =============================================================================

// renderSettings renders the settings pane in a box of the given size.
func (m Model) renderSettings(width, height int) string {
	pane := m.theme.Pane
	if m.focus == focusSettings {
		pane = m.theme.PaneFocused
	}
	inner := max(10, width-4)

	lines := []string{m.theme.PaneTitle.Render("Settings")}
	for f := settingsField(0); f < fieldCount; f++ {
		lines = append(lines, m.renderFieldLabel(f), m.renderFieldValue(f, inner), "")
	}
	lines = append(lines, m.theme.ShortcutDesc.Render("Enter edit | left/right change"),
		m.theme.ShortcutDesc.Render("C-s apply | C-r new chat"))

	return pane.
		Width(width - 2).
		Height(max(1, height-2)).
		MaxHeight(height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderFieldLabel(f settingsField) string {
	if m.focus == focusSettings && m.settings.field == f {
		return m.theme.FieldSelected.Render(" " + f.label() + " ")
	}
	return m.theme.FieldLabel.Render(f.label())
}

func (m Model) renderFieldValue(f settingsField, width int) string {
	manager := m.settings.manager
	switch f {
	case fieldModel:
		id := manager.Model()
		switch {
		case id != "":
			return m.theme.FieldValue.Render("< "+util.TruncateWidth(id, width-16)+" >") + " " +
				m.theme.ModelProvider.Render(m.providerOf(id))
		case len(m.models) == 0 && m.modelsErr == nil:
			return m.theme.StatsLabel.Render("loading...")
		default:
			return m.theme.StatsLabel.Render("none")
		}

	case fieldPreset:
		if p, err := genconfig.LookupPreset(manager.Preset()); err == nil {
			return m.theme.FieldValue.Render("< "+p.Name+" >") + " " + m.theme.StatsLabel.Render(p.Description)
		}
		return m.theme.FieldValue.Render("< custom >")

	case fieldTemperature:
		return m.theme.FieldValue.Render(fmt.Sprintf("%.2f", manager.Params().Temperature))

	case fieldSystemPrompt:
		if m.settings.editing && m.settings.field == f {
			return m.settings.prompt.View()
		}
		return m.theme.SystemNote.Width(width).MaxHeight(editorLines).Render(manager.SystemPrompt())

	case fieldParams:
		var view string
		if m.settings.editing && m.settings.field == f {
			view = m.settings.params.View()
		} else {
			view = lipgloss.NewStyle().MaxHeight(editorLines).Render(m.highlighter.HighlightJSON(manager.Text()))
		}
		if errText := manager.Error(); errText != "" {
			view += "\n" + m.theme.EditorError.Width(width).Render(styles.StatusIndicators.Error+" "+errText)
		}
		return view
	}
	return ""
}
