// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The "aihub config" command.
//
//   aihub config [show]       Print the effective configuration
//   aihub config path         Print the config file location
//   aihub config init         Write a config file with the defaults
//   aihub config init --force Overwrite an existing file

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/aihub-tui/internal/config"
)

// HandleConfig runs "aihub config".
func HandleConfig(w io.Writer, args Args) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "path":
		fmt.Fprintln(w, path)
		return nil
	case "init":
		return initConfig(w, path, args.Force)
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	if err := ApplyOverrides(cfg, args); err != nil {
		return err
	}
	return showConfig(w, cfg, path, args.JSON)
}

func showConfig(w io.Writer, cfg *config.Config, path string, jsonMode bool) error {
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if jsonMode {
		settings := make(map[string]string, len(config.Keys()))
		for _, k := range config.Keys() {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			settings[k] = v
		}
		return NewJSONResponse("config", ConfigData{Path: path, Exists: exists, Settings: settings}).Write(w)
	}

	note := ""
	if !exists {
		note = " (not found, showing defaults; run 'aihub config init')"
	}
	fmt.Fprintln(w, DimStyle.Render("# "+path+note))
	fmt.Fprint(w, cfg.String())
	return nil
}

// initConfig writes the default configuration to path.
func initConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return NewCommandError("config", "init", path+" already exists (use --force to overwrite)", nil)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewCommandError("config", "init", "could not check "+path, err)
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return NewCommandError("config", "init", "could not write "+path, err)
	}
	fmt.Fprintf(w, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
	return nil
}
