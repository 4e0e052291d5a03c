// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/aihub-tui/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast (cyan)
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast (rose)
	ToastKindError
	// ToastKindWarning is a warning toast (amber)
	ToastKindWarning
	// ToastKindSuccess is a success toast (emerald)
	ToastKindSuccess
)

// Auto-dismiss durations per kind. Errors stay longer to be read.
const (
	DefaultToastDuration = 3 * time.Second
	WarningToastDuration = 5 * time.Second
	ErrorToastDuration   = 6 * time.Second
)

// ToastTickInterval is how often expired toasts are swept.
const ToastTickInterval = 200 * time.Millisecond

// Toast is a non-blocking notification shown in the corner.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired reports whether the toast should be dismissed at now.
func (t Toast) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

func durationFor(kind ToastKind) time.Duration {
	switch kind {
	case ToastKindError:
		return ErrorToastDuration
	case ToastKindWarning:
		return WarningToastDuration
	default:
		return DefaultToastDuration
	}
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager holds the visible toasts. It is owned by the Bubble Tea
// model and touched only from Update, so it needs no locking.
type ToastManager struct {
	toasts    []Toast
	nextID    int
	maxToasts int
	now       func() time.Time
}

// NewToastManager creates a new toast manager.
func NewToastManager() *ToastManager {
	return &ToastManager{
		nextID:    1,
		maxToasts: 3,
		now:       time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (m *ToastManager) SetClock(now func() time.Time) {
	m.now = now
}

// Add shows a toast and returns its ID. The oldest toast is dropped when
// the stack is full.
func (m *ToastManager) Add(kind ToastKind, message string) int {
	toast := Toast{
		ID:        m.nextID,
		Message:   message,
		Kind:      kind,
		CreatedAt: m.now(),
		Duration:  durationFor(kind),
	}
	m.nextID++

	m.toasts = append(m.toasts, toast)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[len(m.toasts)-m.maxToasts:]
	}
	return toast.ID
}

// Success adds a success toast.
func (m *ToastManager) Success(message string) int { return m.Add(ToastKindSuccess, message) }

// Error adds an error toast.
func (m *ToastManager) Error(message string) int { return m.Add(ToastKindError, message) }

// Warning adds a warning toast.
func (m *ToastManager) Warning(message string) int { return m.Add(ToastKindWarning, message) }

// Status adds an informational toast.
func (m *ToastManager) Status(message string) int { return m.Add(ToastKindStatus, message) }

// Remove dismisses a toast by ID.
func (m *ToastManager) Remove(id int) {
	for i, toast := range m.toasts {
		if toast.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Sweep drops expired toasts and reports whether any remain.
func (m *ToastManager) Sweep() bool {
	now := m.now()
	active := m.toasts[:0]
	for _, toast := range m.toasts {
		if !toast.IsExpired(now) {
			active = append(active, toast)
		}
	}
	m.toasts = active
	return len(m.toasts) > 0
}

// Toasts returns a copy of the visible toasts, oldest first.
func (m *ToastManager) Toasts() []Toast {
	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// HasToasts reports whether any toast is visible.
func (m *ToastManager) HasToasts() bool {
	return len(m.toasts) > 0
}

// Clear removes all toasts.
func (m *ToastManager) Clear() {
	m.toasts = nil
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// ToastTickMsg is sent periodically to sweep expired toasts.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd schedules the next sweep.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(ToastTickInterval, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// RenderToast renders a single toast no wider than width.
func RenderToast(toast Toast, width int) string {
	maxWidth := 50
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch toast.Kind {
	case ToastKindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case ToastKindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case ToastKindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	iconStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	body := wordwrap.String(toast.Message, maxWidth-len(icon)-5)
	content := iconStyle.Render(icon) + " " + lipgloss.NewStyle().Foreground(styles.TextPrimary).Render(body)

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(content)
}

// RenderToastStack renders toasts stacked vertically, newest at the bottom.
func RenderToastStack(toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, len(toasts))
	for i, toast := range toasts {
		rendered[i] = RenderToast(toast, width)
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}
