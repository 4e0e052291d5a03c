// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the CLI and the TUI: crash-safe
// file writes and width-aware string truncation.
//
//	label := util.TruncateWidth(modelID, 24)
//	err := util.AtomicWriteFile(path, data, 0o600)
package util
