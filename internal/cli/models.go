// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - The "aihub models" command.
//
// Lists the gateway's models with the provider inferred from the cost
// map or the model id, and the context size and price when known.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/logging"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/util"
)

const (
	maxIDColumn = 48
	providerCol = 14
	contextCol  = 14
)

// HandleModels runs "aihub models".
func HandleModels(ctx context.Context, args Args) error {
	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := OpenLogger(cfg, args, logging.ModeCLI)
	if err != nil {
		return err
	}
	defer closeLog()

	return runModels(ctx, cfg, args, Connect(cfg, logger), os.Stdout)
}

func runModels(ctx context.Context, cfg *config.Config, args Args, catalog Catalog, w io.Writer) error {
	if timeout := cfg.Gateway.Timeout.Duration; timeout > 0 {
		// The catalog is two requests.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*timeout)
		defer cancel()
	}

	models, err := catalog.Catalog(ctx)
	if err != nil {
		return NewCommandError("models", "list", "could not reach the gateway at "+cfg.Gateway.URL, err)
	}

	if args.JSON {
		return NewJSONResponse("models", ModelsData{
			Gateway: cfg.Gateway.URL,
			Count:   len(models),
			Models:  models,
		}).Write(w)
	}

	if len(models) == 0 {
		fmt.Fprintln(w, DimStyle.Render("The gateway reported no models."))
		return nil
	}
	writeModelsTable(w, models, cfg.Playground.Model)
	return nil
}

// writeModelsTable prints one aligned row per model. The configured
// model is marked with "*".
func writeModelsTable(w io.Writer, models []model.ModelInfo, current string) {
	idWidth := len("MODEL")
	for _, m := range models {
		idWidth = max(idWidth, util.StringWidth(m.ID))
	}
	idWidth = min(idWidth, maxIDColumn)

	header := "  " + util.PadRight("MODEL", idWidth) + "  " +
		util.PadRight("PROVIDER", providerCol) + "  " +
		util.PadRight("CONTEXT", contextCol) + "  COST"
	fmt.Fprintln(w, TitleStyle.Render(header))

	for _, m := range models {
		marker := "  "
		if m.ID == current {
			marker = "* "
		}
		provider := m.Provider
		if provider == "" {
			provider = model.InferProvider(m.ID, "")
		}
		row := marker + util.PadRight(m.ID, idWidth) + "  " +
			util.PadRight(provider, providerCol) + "  " +
			util.PadRight(m.ContextString(), contextCol) + "  " +
			m.CostString()
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d model(s)", len(models))))
}
