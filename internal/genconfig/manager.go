// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package genconfig

import (
	"errors"
	"math"
	"strings"
	"sync"

	"github.com/jeranaias/aihub-tui/internal/conversation"
)

// Settings is a detached view of everything a request needs besides the
// conversation itself.
type Settings struct {
	Model        string
	Params       Params
	SystemPrompt string
	Preset       string
}

// Manager holds the generation parameters and their text form. The text
// the user is editing is kept verbatim when it fails to parse, and the
// last valid parameters stay in effect.
type Manager struct {
	mu           sync.RWMutex
	params       Params
	text         string
	parseErr     string
	model        string
	systemPrompt string
	preset       string
}

// NewManager returns a manager holding the balanced preset.
func NewManager() *Manager {
	p, _ := LookupPreset(DefaultPreset)
	m := &Manager{
		systemPrompt: p.SystemPrompt,
		preset:       p.Key,
	}
	if err := m.commit(p.Params()); err != nil {
		m.parseErr = err.Error()
	}
	return m
}

// commit installs next and its canonical text. The caller holds mu.
func (m *Manager) commit(next Params) error {
	text, err := Serialize(next)
	if err != nil {
		return err
	}
	m.params = next
	m.text = text
	m.parseErr = ""
	return nil
}

// SetFromText parses text. On success the parameters are replaced and the
// text is re-serialized to canonical form; the preset label survives only
// when the parameters did not change. On failure the text is kept as typed,
// the error string is set and the previous parameters remain.
func (m *Manager) SetFromText(text string) error {
	params, err := Parse(text)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.text = text
		m.parseErr = err.Error()
		return err
	}
	changed := !params.Equal(m.params)
	if err := m.commit(params); err != nil {
		m.text = text
		m.parseErr = err.Error()
		return err
	}
	if changed {
		m.preset = ""
	}
	return nil
}

// SetField updates one parameter. The change only applies when the result
// still validates; the text form is regenerated either way it succeeds.
func (m *Manager) SetField(name string, value any) error {
	name = strings.TrimSpace(name)
	v, ok := normalizeValue(value)
	if !ok {
		return &ParseError{Field: name, Message: "must be a number, boolean or string"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.params.Clone()
	if name == FieldTemperature {
		f, isNum := v.(float64)
		if !isNum {
			return &ParseError{Field: name, Message: "must be a number"}
		}
		next.Temperature = f
	} else {
		if next.Extra == nil {
			next.Extra = make(map[string]any)
		}
		next.Extra[name] = v
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if err := m.commit(next); err != nil {
		return err
	}
	m.preset = ""
	return nil
}

// RemoveField drops an extra parameter. Temperature cannot be removed.
func (m *Manager) RemoveField(name string) error {
	if name == FieldTemperature {
		return &ParseError{Field: name, Message: "is required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.params.Extra[name]; !ok {
		return nil
	}
	next := m.params.Clone()
	delete(next.Extra, name)
	if len(next.Extra) == 0 {
		next.Extra = nil
	}
	return m.commit(next)
}

// NudgeTemperature moves the temperature by delta, clamped to [0, 1] and
// rounded to two decimals.
func (m *Manager) NudgeTemperature(delta float64) (float64, error) {
	m.mu.RLock()
	cur := m.params.Temperature
	m.mu.RUnlock()

	next := math.Round((cur+delta)*100) / 100
	next = math.Max(MinTemperature, math.Min(MaxTemperature, next))
	if err := m.SetField(FieldTemperature, next); err != nil {
		return cur, err
	}
	return next, nil
}

// ApplyPreset replaces the parameters and system prompt with the preset's.
func (m *Manager) ApplyPreset(key string) (Preset, error) {
	p, err := LookupPreset(key)
	if err != nil {
		return Preset{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.commit(p.Params()); err != nil {
		return Preset{}, err
	}
	m.systemPrompt = p.SystemPrompt
	m.preset = p.Key
	return p, nil
}

// SetModel selects the model id sent with each request.
func (m *Manager) SetModel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = strings.TrimSpace(id)
}

// Model returns the selected model id, or "".
func (m *Manager) Model() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model
}

// SetSystemPrompt stores the system prompt. Blank text selects the default.
func (m *Manager) SetSystemPrompt(text string) {
	if strings.TrimSpace(text) == "" {
		text = conversation.DefaultSystemPrompt
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systemPrompt = text
}

// SystemPrompt returns the stored system prompt.
func (m *Manager) SystemPrompt() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.systemPrompt
}

// Params returns a copy of the active parameters.
func (m *Manager) Params() Params {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.Clone()
}

// Text returns the editable text form.
func (m *Manager) Text() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text
}

// Error returns the last parse error message, or "".
func (m *Manager) Error() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// Preset returns the key of the last applied preset. Any later edit clears it.
func (m *Manager) Preset() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preset
}

// Snapshot returns the settings for one request.
func (m *Manager) Snapshot() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Settings{
		Model:        m.model,
		Params:       m.params.Clone(),
		SystemPrompt: m.systemPrompt,
		Preset:       m.preset,
	}
}

// IsParseError reports whether err came from this package's validation.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
