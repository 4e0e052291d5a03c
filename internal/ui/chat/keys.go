// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings for the playground.
type KeyMap struct {
	Submit   key.Binding
	Newline  key.Binding
	Cancel   key.Binding
	Focus    key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	Reset      key.Binding
	Apply      key.Binding
	Copy       key.Binding
	CopyAll    key.Binding
	Export     key.Binding
	ExportJSON key.Binding
	Example    key.Binding

	// Settings pane
	FieldUp   key.Binding
	FieldDown key.Binding
	Decrease  key.Binding
	Increase  key.Binding
	Edit      key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("M-Enter", "newline"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop / back"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "settings"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "new chat"),
		),
		Apply: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "apply settings"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy reply"),
		),
		CopyAll: key.NewBinding(
			key.WithKeys("alt+c"),
			key.WithHelp("M-c", "copy chat"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "export markdown"),
		),
		ExportJSON: key.NewBinding(
			key.WithKeys("alt+x"),
			key.WithHelp("M-x", "export json"),
		),
		Example: key.NewBinding(
			key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4"),
			key.WithHelp("M-1..4", "example prompt"),
		),
		FieldUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous field"),
		),
		FieldDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next field"),
		),
		Decrease: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("left/h", "previous / lower"),
		),
		Increase: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("right/l", "next / higher"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "edit field"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.Focus, k.Reset, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the help overlay, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Composer
		{k.Submit, k.Newline, k.Example, k.Cancel},
		// Conversation
		{k.Reset, k.Apply, k.Copy, k.CopyAll, k.Export, k.ExportJSON},
		// Settings
		{k.Focus, k.FieldUp, k.FieldDown, k.Decrease, k.Increase, k.Edit},
		// View
		{k.PageUp, k.PageDown, k.Help, k.Quit},
	}
}

// exampleIndex maps an Example key press to a 1-based prompt number.
func exampleIndex(s string) int {
	switch s {
	case "alt+1":
		return 1
	case "alt+2":
		return 2
	case "alt+3":
		return 3
	case "alt+4":
		return 4
	}
	return 0
}
