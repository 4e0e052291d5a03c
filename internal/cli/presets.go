// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/genconfig"
)

// HandlePresets prints the generation presets.
func HandlePresets(w io.Writer, args Args) error {
	presets := genconfig.Presets()

	if args.JSON {
		data := make([]PresetData, len(presets))
		for i, p := range presets {
			data[i] = PresetData{
				Key:          p.Key,
				Name:         p.Name,
				Description:  p.Description,
				Temperature:  p.Temperature,
				SystemPrompt: p.SystemPrompt,
			}
		}
		return NewJSONResponse("presets", data).Write(w)
	}

	width := GetTerminalWidth() - 2
	for _, p := range presets {
		fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(p.Key), DimStyle.Render(fmt.Sprintf("(temperature %.1f)", p.Temperature)))
		fmt.Fprintln(w, indent(WrapText(p.Description, width)))
		fmt.Fprintln(w, DimStyle.Render(indent(WrapText("System prompt: "+p.SystemPrompt, width))))
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, DimStyle.Render("Use --preset NAME or set playground.preset in the config file."))
	return nil
}

func indent(text string) string {
	return "  " + strings.ReplaceAll(text, "\n", "\n  ")
}
