// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable pieces of the playground TUI:
// auto-dismissing toasts and chroma-based syntax highlighting used by the
// generation-config editor.
package components
