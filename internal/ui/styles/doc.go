// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the aihub playground.

Colors use Lip Gloss AdaptiveColor so one palette serves light and dark
terminals. Theme bundles the derived styles and the terminal capabilities
detected with termenv, which also decide the glamour and chroma styles:

	theme := styles.NewTheme()
	renderer, _ := glamour.NewTermRenderer(glamour.WithStandardStyle(theme.GlamourStyle("auto")))

Status colors always travel with an ASCII indicator ([OK], [X], [!], [i]).
*/
package styles
