// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - The "aihub chat" REPL.
//
// Command: chat
// Short:   Interactive chat session with line editing and history
//
// Interactive commands:
//   /help, /h             Show commands
//   /reset, /clear        Start a new conversation
//   /preset [name]        Show or apply a preset
//   /temp [value]         Show or set the temperature
//   /system [text]        Show or replace the system prompt
//   /model [name]         Show or switch the model
//   /params [json]        Show or replace the generation parameters
//   /export [format]      Write the conversation to a file (markdown, json, text)
//   /quit, /q, /exit      Leave
//   Ctrl+C                Stop the reply being streamed
//   Ctrl+D                Leave

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/export"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/logging"
	"github.com/jeranaias/aihub-tui/internal/playground"
	"github.com/jeranaias/aihub-tui/internal/util"
)

// historyFile is the REPL history, inside the config directory.
const historyFile = "chat_history"

// errQuit ends the REPL loop.
var errQuit = errors.New("quit")

// =============================================================================
// LINE EDITOR
// =============================================================================

// lineEditor wraps liner with a persistent history file.
type lineEditor struct {
	line *liner.State
	path string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{line: line, path: filepath.Join(dir, historyFile)}
	if f, err := os.Open(e.path); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return e
}

func (e *lineEditor) prompt(p string) (string, error) {
	input, err := e.line.Prompt(p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// close saves the history with owner-only permissions.
func (e *lineEditor) close() {
	defer e.line.Close()
	if err := os.MkdirAll(filepath.Dir(e.path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(e.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = e.line.WriteHistory(f)
}

// chatCommands are completed on Tab.
var chatCommands = []string{
	"/help", "/reset", "/preset", "/temp", "/system", "/model", "/params", "/unset", "/export", "/quit",
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range chatCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession is the REPL state apart from the line editor.
type chatSession struct {
	runner  *runner
	catalog Catalog
	out     io.Writer
	status  io.Writer
	quiet   bool

	// apiKey is the masked key shown in the welcome banner.
	apiKey string

	// exportDir is where /export writes.
	exportDir string
	turns     int
}

// HandleChat runs "aihub chat".
func HandleChat(ctx context.Context, args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}
	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := OpenLogger(cfg, args, logging.ModeCLI)
	if err != nil {
		return err
	}
	defer closeLog()

	settings, err := NewSettings(cfg, args)
	if err != nil {
		return err
	}
	client := Connect(cfg, logger)
	if !client.IsConfigured() {
		logger.Warn("no API key configured, the gateway may reject requests")
	}
	if err := resolveModel(ctx, settings, client); err != nil {
		return err
	}

	s := &chatSession{
		runner:    newRunner(cfg, settings, client, logger),
		catalog:   client,
		apiKey:    client.APIKeyMasked(),
		out:       os.Stdout,
		status:    os.Stderr,
		quiet:     args.Quiet,
		exportDir: ".",
	}
	defer s.runner.close()

	editor := newLineEditor()
	defer editor.close()

	s.printWelcome()
	for {
		input, err := editor.prompt("aihub> ")
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed terminal.
			fmt.Fprintln(s.out)
			s.printSummary()
			return nil
		}
		if err := s.handleLine(ctx, input); err != nil {
			if errors.Is(err, errQuit) {
				s.printSummary()
				return nil
			}
			fmt.Fprintf(s.status, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// handleLine runs one line of input: a slash command or a message.
func (s *chatSession) handleLine(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return nil
	case strings.HasPrefix(input, "/"):
		return s.handleCommand(ctx, input)
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return errQuit
	}
	return s.send(ctx, input)
}

// send streams one reply. Ctrl+C while streaming stops the reply and keeps
// the REPL running.
func (s *chatSession) send(ctx context.Context, text string) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprint(s.out, AssistantStyle.Render("assistant> "))
	var last string
	sess, err := s.runner.turn(turnCtx, text, func(fragment string) {
		fmt.Fprint(s.out, fragment)
		last = fragment
	})
	if err != nil {
		fmt.Fprintln(s.out)
		if errors.Is(err, conversation.ErrEmptyInput) {
			return nil
		}
		return err
	}
	if !strings.HasSuffix(last, "\n") {
		fmt.Fprintln(s.out)
	}
	s.turns++

	switch sess.Status {
	case playground.StatusErrored:
		return fmt.Errorf("request failed: %w", sess.Err)
	case playground.StatusCancelled:
		fmt.Fprintln(s.status, WarningStyle.Render("[Stopped]"))
		return nil
	}
	if !s.quiet {
		if sess.Malformed > 0 {
			fmt.Fprintln(s.status, WarningStyle.Render(fmt.Sprintf("Skipped %d malformed stream frame(s)", sess.Malformed)))
		}
		if sess.Stats != nil {
			fmt.Fprintln(s.status, DimStyle.Render(sess.Stats.Format()))
		}
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (s *chatSession) handleCommand(ctx context.Context, input string) error {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	settings := s.runner.orch.Settings()

	switch strings.ToLower(name) {
	case "/help", "/h", "/?":
		s.printHelp()

	case "/quit", "/q", "/exit":
		return errQuit

	case "/reset", "/clear", "/c":
		s.runner.orch.Reset()
		s.turns = 0
		s.notice("Started a new conversation")

	case "/preset":
		if rest == "" {
			s.printPresets(settings.Preset())
			return nil
		}
		p, err := settings.ApplyPreset(rest)
		if err != nil {
			return err
		}
		s.runner.orch.ApplySettings()
		s.notice(fmt.Sprintf("Preset %s applied (temperature %.2f)", p.Name, p.Temperature))

	case "/temp", "/temperature":
		if rest == "" {
			fmt.Fprintf(s.out, "temperature %.2f\n", settings.Params().Temperature)
			return nil
		}
		t, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return NewValidationError("temperature", rest, "must be a number")
		}
		if err := settings.SetField(genconfig.FieldTemperature, t); err != nil {
			return err
		}
		s.notice(fmt.Sprintf("Temperature set to %.2f", t))

	case "/system":
		if rest == "" {
			fmt.Fprintln(s.out, settings.SystemPrompt())
			return nil
		}
		settings.SetSystemPrompt(rest)
		s.runner.orch.ApplySettings()
		s.notice("System prompt applied")

	case "/model":
		if rest == "" {
			return s.printModels(ctx, settings.Model())
		}
		settings.SetModel(rest)
		s.notice("Model set to " + rest)

	case "/params":
		if rest == "" {
			fmt.Fprintln(s.out, settings.Text())
			return nil
		}
		if err := settings.SetFromText(rest); err != nil {
			return err
		}
		s.notice("Parameters updated")

	case "/unset":
		if rest == "" {
			return NewValidationError("parameter", rest, "name required")
		}
		if err := settings.RemoveField(rest); err != nil {
			return err
		}
		s.notice("Removed " + rest)

	case "/export":
		return s.export(rest)

	default:
		return fmt.Errorf("unknown command %s (try /help)", name)
	}
	return nil
}

func (s *chatSession) export(format string) error {
	if format == "" {
		format = "markdown"
	}
	opts := export.DefaultOptions()
	opts.OutputDir = s.exportDir
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}
	path, err := export.ExportToFile(s.runner.transcript(), exporter, opts)
	if err != nil {
		return err
	}
	s.notice("Exported to " + path)
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (s *chatSession) notice(msg string) {
	fmt.Fprintln(s.out, SuccessStyle.Render("[OK]")+" "+msg)
}

func (s *chatSession) printWelcome() {
	if s.quiet {
		return
	}
	settings := s.runner.orch.Settings()
	fmt.Fprintln(s.out, TitleStyle.Render("aihub chat"))
	fmt.Fprintln(s.out, RenderKeyValue("Model:", settings.Model()))
	preset := settings.Preset()
	if preset == "" {
		preset = "custom"
	}
	fmt.Fprintln(s.out, RenderKeyValue("Preset:", preset))
	if s.apiKey != "" {
		fmt.Fprintln(s.out, RenderKeyValue("API key:", s.apiKey))
	}
	fmt.Fprintln(s.out, DimStyle.Render("Type /help for commands, Ctrl+D to leave."))
	fmt.Fprintln(s.out, RenderSeparator())

	snap := s.runner.orch.Machine().Snapshot()
	if len(snap.Messages) > 1 {
		fmt.Fprintln(s.out, AssistantStyle.Render("assistant> ")+snap.Messages[1].Content)
	}
}

func (s *chatSession) printHelp() {
	lines := [][2]string{
		{"/reset", "Start a new conversation"},
		{"/preset [name]", "Show or apply a preset"},
		{"/temp [value]", "Show or set the temperature (0 to 1)"},
		{"/system [text]", "Show or replace the system prompt"},
		{"/model [name]", "Show models or switch model"},
		{"/params [json]", "Show or replace generation parameters"},
		{"/unset <name>", "Remove one generation parameter"},
		{"/export [format]", "Export the conversation (markdown, json, text)"},
		{"/quit", "Leave"},
	}
	for _, l := range lines {
		fmt.Fprintln(s.out, RenderKeyValue(l[0], l[1]))
	}
}

func (s *chatSession) printPresets(current string) {
	for _, p := range genconfig.Presets() {
		marker := "  "
		if p.Key == current {
			marker = "* "
		}
		fmt.Fprintf(s.out, "%s%s %s\n", marker, LabelStyle.Render(p.Key), DimStyle.Render(p.Description))
	}
}

func (s *chatSession) printModels(ctx context.Context, current string) error {
	fmt.Fprintln(s.out, RenderKeyValue("Current model:", current))
	if s.catalog == nil {
		return nil
	}
	models, err := s.catalog.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	for _, m := range models {
		marker := "  "
		if m.ID == current {
			marker = "* "
		}
		fmt.Fprintf(s.out, "%s%s %s\n", marker, util.PadRight(m.ID, 40), DimStyle.Render(m.Provider))
	}
	return nil
}

func (s *chatSession) printSummary() {
	if s.quiet {
		return
	}
	fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("%d message(s) this session.", s.turns)))
}
