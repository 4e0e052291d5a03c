// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/export"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/playground"
	"github.com/jeranaias/aihub-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles every message. All orchestrator events arrive here, so
// the conversation only changes on this goroutine.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case EventMsg:
		return m.handleEvent(msg.Event)

	case ModelsLoadedMsg:
		return m.handleModels(msg)

	case ConfigReloadedMsg:
		return m.handleReload(msg)

	case exportDoneMsg:
		if msg.Err != nil {
			cmd := m.notify(components.ToastKindError, "Export failed: "+msg.Err.Error())
			return m, cmd
		}
		cmd := m.notify(components.ToastKindSuccess, "Exported to "+msg.Path)
		return m, cmd

	case spinner.TickMsg:
		if !m.orch.Active() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshTranscript()
		return m, cmd

	case components.ToastTickMsg:
		if m.toasts.Sweep() {
			m.refreshTranscript()
		}
		if !m.toasts.HasToasts() {
			m.toastTicking = false
			return m, nil
		}
		return m, components.ToastTickCmd()
	}

	// Cursor blink and other textarea messages.
	return m.updateEditors(msg)
}

// updateEditors forwards msg to whichever text area has focus.
func (m Model) updateEditors(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.focus == focusSettings {
		if m.settings.editing {
			return m, m.settings.update(msg)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.orch.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		return m.handleEscape()

	case key.Matches(msg, m.keys.Reset):
		return m.resetConversation()

	case key.Matches(msg, m.keys.Apply):
		return m.applySettings()

	case key.Matches(msg, m.keys.Copy):
		cmd := m.copyLastReply()
		return m, cmd

	case key.Matches(msg, m.keys.CopyAll):
		cmd := m.copyConversation()
		return m, cmd

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd("markdown")

	case key.Matches(msg, m.keys.ExportJSON):
		return m, m.exportCmd("json")

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		return m.toggleFocus()
	}

	if m.showHelp {
		return m, nil
	}
	if m.focus == focusSettings {
		return m.handleSettingsKey(msg)
	}
	return m.handleComposerKey(msg)
}

// handleEscape stops a streaming reply first, then closes an editor, then
// returns focus to the composer.
func (m Model) handleEscape() (tea.Model, tea.Cmd) {
	switch {
	case m.orch.Active():
		m.orch.Cancel()
		return m, nil
	case m.showHelp:
		m.showHelp = false
		return m, nil
	case m.settings.editing:
		m.settings.stopEdit()
		return m, nil
	case m.focus == focusSettings:
		return m.toggleFocus()
	}
	return m, nil
}

func (m Model) toggleFocus() (tea.Model, tea.Cmd) {
	if m.focus == focusComposer {
		m.focus = focusSettings
		m.composer.Blur()
		return m, nil
	}
	if m.settings.editing {
		m.settings.stopEdit()
	}
	m.focus = focusComposer
	cmd := m.composer.Focus()
	return m, cmd
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.send()

	case key.Matches(msg, m.keys.Example):
		prompt, err := playground.Example(exampleIndex(msg.String()))
		if err != nil {
			return m, nil
		}
		m.composer.SetValue(prompt)
		m.composer.CursorEnd()
		return m, nil
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.settings.editing {
		return m, m.settings.update(msg)
	}

	switch {
	case key.Matches(msg, m.keys.FieldUp):
		m.settings.move(-1)
	case key.Matches(msg, m.keys.FieldDown):
		m.settings.move(1)
	case key.Matches(msg, m.keys.Edit):
		return m, m.settings.startEdit()
	case key.Matches(msg, m.keys.Decrease):
		return m.adjustSetting(-1)
	case key.Matches(msg, m.keys.Increase):
		return m.adjustSetting(1)
	}
	return m, nil
}

func (m Model) adjustSetting(delta int) (tea.Model, tea.Cmd) {
	notice, err := m.settings.adjust(delta, m.models)
	if err != nil {
		cmd := m.notify(components.ToastKindWarning, err.Error())
		return m, cmd
	}
	if notice == "" {
		return m, nil
	}
	cmd := m.notify(components.ToastKindStatus, notice)
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

// send starts a completion for the composer text. Blank input is ignored.
func (m Model) send() (tea.Model, tea.Cmd) {
	_, err := m.orch.Send(m.ctx, m.composer.Value())
	switch {
	case errors.Is(err, conversation.ErrEmptyInput):
		return m, nil
	case errors.Is(err, conversation.ErrBusy):
		cmd := m.notify(components.ToastKindWarning, "Wait for the current reply or press Esc to stop it")
		return m, cmd
	case errors.Is(err, playground.ErrNoModel):
		cmd := m.notify(components.ToastKindError, "Select a model in the settings pane first")
		return m, cmd
	case err != nil:
		cmd := m.notify(components.ToastKindError, err.Error())
		return m, cmd
	}

	m.composer.Reset()
	m.viewport.GotoBottom()
	m.refreshTranscript()
	return m, m.spinner.Tick
}

func (m Model) resetConversation() (tea.Model, tea.Cmd) {
	m.orch.Reset()
	m.refreshTranscript()
	m.viewport.GotoTop()
	cmd := m.notify(components.ToastKindSuccess, "Started a new conversation")
	return m, cmd
}

func (m Model) applySettings() (tea.Model, tea.Cmd) {
	if errText := m.settings.manager.Error(); errText != "" {
		cmd := m.notify(components.ToastKindWarning, "Parameters not applied: "+errText)
		return m, cmd
	}
	m.orch.ApplySettings()
	m.refreshTranscript()
	cmd := m.notify(components.ToastKindSuccess, "Settings applied")
	return m, cmd
}

// transcript snapshots the conversation for copy and export.
func (m Model) transcript() *model.Transcript {
	snap := m.orch.Machine().Snapshot()
	settings := m.settings.manager.Snapshot()
	t := model.NewTranscript(settings.Model, snap.Messages)
	t.Params = settings.Params.Fields()
	return t
}

func (m *Model) copyLastReply() tea.Cmd {
	if err := export.CopyLastReply(m.transcript()); err != nil {
		return m.notify(components.ToastKindError, err.Error())
	}
	return m.notify(components.ToastKindSuccess, "Copied last reply")
}

func (m *Model) copyConversation() tea.Cmd {
	if err := export.CopyTranscript(m.transcript()); err != nil {
		return m.notify(components.ToastKindError, err.Error())
	}
	return m.notify(components.ToastKindSuccess, "Copied conversation")
}

// exportCmd writes the transcript to the configured export directory off
// the Update goroutine.
func (m Model) exportCmd(format string) tea.Cmd {
	t := m.transcript()
	opts := export.DefaultOptions()
	return func() tea.Msg {
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return exportDoneMsg{Err: err}
		}
		path, err := export.ExportToFile(t, exporter, opts)
		return exportDoneMsg{Path: path, Err: err}
	}
}

// notify shows a toast and makes sure the sweep tick is running.
func (m *Model) notify(kind components.ToastKind, message string) tea.Cmd {
	m.toasts.Add(kind, message)
	if m.toastTicking {
		return nil
	}
	m.toastTicking = true
	return components.ToastTickCmd()
}

// =============================================================================
// ORCHESTRATOR EVENTS
// =============================================================================

func (m Model) handleEvent(ev playground.Event) (tea.Model, tea.Cmd) {
	m.orch.Apply(ev)
	m.refreshTranscript()

	if !ev.Kind.Terminal() {
		return m, nil
	}

	// Only the live session reports its outcome.
	sess, ok := m.orch.Session()
	if !ok || sess.Token != ev.Token {
		return m, nil
	}

	var cmds []tea.Cmd
	switch sess.Status {
	case playground.StatusErrored:
		cmds = append(cmds, m.notify(components.ToastKindError, "Request failed: "+errorText(sess.Err)))
	case playground.StatusCancelled:
		cmds = append(cmds, m.notify(components.ToastKindStatus, "Stopped"))
	}
	if sess.Malformed > 0 {
		cmds = append(cmds, m.notify(components.ToastKindWarning,
			fmt.Sprintf("Skipped %d malformed stream frame(s)", sess.Malformed)))
	}
	return m, tea.Batch(cmds...)
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// =============================================================================
// GATEWAY AND CONFIG
// =============================================================================

func (m Model) handleModels(msg ModelsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.modelsErr = msg.Err
		m.logger.Warn("model catalog unavailable", "error", msg.Err)
		cmd := m.notify(components.ToastKindError, "Could not load models: "+msg.Err.Error())
		return m, cmd
	}
	m.models = msg.Models
	m.modelsErr = nil

	if m.settings.manager.Model() == "" && len(m.models) > 0 {
		m.settings.manager.SetModel(m.models[0].ID)
	}
	return m, nil
}

// handleReload applies a reloaded configuration. The gateway and malformed
// budget affect later sends; rendering options apply at once. The
// conversation and pending settings are left alone.
func (m Model) handleReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.logger.Warn("config reload failed", "error", msg.Err)
		cmd := m.notify(components.ToastKindError, "Config reload failed: "+msg.Err.Error())
		return m, cmd
	}
	cfg := msg.Config
	if cfg == nil {
		return m, nil
	}

	var cmds []tea.Cmd
	if m.connect != nil && gatewayChanged(m.cfg, cfg) {
		m.gw = m.connect(cfg)
		m.orch.SetClient(m.gw)
		cmds = append(cmds, loadModelsCmd(m.ctx, m.gw))
	}
	m.orch.SetMaxMalformedFrames(cfg.Playground.MaxMalformedFrames)
	m.markdown.setStyle(m.theme.GlamourStyle(cfg.UI.GlamourStyle))
	m.cfg = cfg
	m.refreshTranscript()

	m.logger.Info("config reloaded")
	cmds = append(cmds, m.notify(components.ToastKindSuccess, "Configuration reloaded"))
	return m, tea.Batch(cmds...)
}

func gatewayChanged(old, cur *config.Config) bool {
	return old.Gateway != cur.Gateway
}
