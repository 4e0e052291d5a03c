// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// SETTINGS FIELDS
// =============================================================================

type settingsField int

const (
	fieldModel settingsField = iota
	fieldPreset
	fieldTemperature
	fieldSystemPrompt
	fieldParams
	fieldCount
)

func (f settingsField) label() string {
	switch f {
	case fieldModel:
		return "Model"
	case fieldPreset:
		return "Preset"
	case fieldTemperature:
		return "Temperature"
	case fieldSystemPrompt:
		return "System prompt"
	case fieldParams:
		return "Parameters (JSON)"
	}
	return ""
}

// editable reports whether Enter opens a text editor for the field.
func (f settingsField) editable() bool {
	return f == fieldSystemPrompt || f == fieldParams
}

var errNoModels = errors.New("no models loaded")

// temperatureStep is the change applied by one left/right press.
const temperatureStep = 0.1

// =============================================================================
// SETTINGS PANE
// =============================================================================

// settingsPane edits the pending generation settings. Edits go straight to
// the manager; the system prompt reaches the conversation only when the
// settings are applied or the conversation is reset.
type settingsPane struct {
	manager *genconfig.Manager
	field   settingsField
	editing bool
	invalid bool // params editor text failed to parse

	prompt textarea.Model
	params textarea.Model
}

func newSettingsPane(manager *genconfig.Manager) *settingsPane {
	p := &settingsPane{
		manager: manager,
		prompt:  newEditor("System prompt"),
		params:  newEditor(`{"temperature": 0.7}`),
	}
	p.sync()
	return p
}

func newEditor(placeholder string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.Blur()
	return ta
}

func (p *settingsPane) resize(width, lines int) {
	width = max(10, width)
	p.prompt.SetWidth(width)
	p.prompt.SetHeight(lines)
	p.params.SetWidth(width)
	p.params.SetHeight(lines)
}

// sync copies the manager's system prompt and parameter text into the
// editors.
func (p *settingsPane) sync() {
	p.prompt.SetValue(p.manager.SystemPrompt())
	p.params.SetValue(p.manager.Text())
	p.invalid = p.manager.Error() != ""
}

// move selects the previous or next field.
func (p *settingsPane) move(delta int) {
	n := int(fieldCount)
	p.field = settingsField(((int(p.field)+delta)%n + n) % n)
}

// startEdit focuses the editor of the selected field.
func (p *settingsPane) startEdit() tea.Cmd {
	if !p.field.editable() {
		return nil
	}
	p.editing = true
	if p.field == fieldParams {
		return p.params.Focus()
	}
	return p.prompt.Focus()
}

// stopEdit leaves the editor. Parameter text that parses is replaced by its
// canonical form; text that does not is kept with its error showing.
func (p *settingsPane) stopEdit() {
	p.editing = false
	p.prompt.Blur()
	p.params.Blur()
	p.prompt.SetValue(p.manager.SystemPrompt())
	if !p.invalid {
		p.params.SetValue(p.manager.Text())
	}
}

// update forwards a message to the active editor and pushes the edited
// text into the manager.
func (p *settingsPane) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch p.field {
	case fieldParams:
		before := p.params.Value()
		p.params, cmd = p.params.Update(msg)
		if after := p.params.Value(); after != before {
			p.invalid = p.manager.SetFromText(after) != nil
		}
	case fieldSystemPrompt:
		before := p.prompt.Value()
		p.prompt, cmd = p.prompt.Update(msg)
		if after := p.prompt.Value(); after != before {
			p.manager.SetSystemPrompt(after)
		}
	}
	return cmd
}

// adjust applies a left/right press to the selected field and returns a
// notice for the user, or "".
func (p *settingsPane) adjust(delta int, models []model.ModelInfo) (string, error) {
	switch p.field {
	case fieldModel:
		if len(models) == 0 {
			return "", errNoModels
		}
		id := cycleModel(models, p.manager.Model(), delta)
		p.manager.SetModel(id)
		return "Model: " + id, nil

	case fieldPreset:
		key := cyclePreset(p.manager.Preset(), delta)
		preset, err := p.manager.ApplyPreset(key)
		if err != nil {
			return "", err
		}
		p.sync()
		return fmt.Sprintf("Preset: %s (temperature %.1f)", preset.Name, preset.Temperature), nil

	case fieldTemperature:
		if _, err := p.manager.NudgeTemperature(float64(delta) * temperatureStep); err != nil {
			return "", err
		}
		p.params.SetValue(p.manager.Text())
		p.invalid = false
		return "", nil
	}
	return "", nil
}

// cycleModel returns the id delta steps away from current. An unknown
// current id starts from the first model.
func cycleModel(models []model.ModelInfo, current string, delta int) string {
	idx := slices.IndexFunc(models, func(m model.ModelInfo) bool { return m.ID == current })
	if idx < 0 {
		return models[0].ID
	}
	n := len(models)
	return models[((idx+delta)%n+n)%n].ID
}

// cyclePreset returns the preset key delta steps away from current. After
// hand edits (no preset) it starts from the first preset.
func cyclePreset(current string, delta int) string {
	keys := genconfig.PresetKeys()
	idx := slices.Index(keys, current)
	if idx < 0 {
		return keys[0]
	}
	n := len(keys)
	return keys[((idx+delta)%n+n)%n]
}
