// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - The "aihub ask" command.
//
// Command: ask
// Short:   Stream one completion to stdout
//
// Examples:
//   aihub ask "What is the capital of France?"
//   aihub ask --model gpt-4o --temperature 0.2 "Review this function"
//   git diff | aihub ask "Write a commit message for this diff"
//   aihub ask --example 1 --json
//
// The reply streams to stdout as it arrives. On a terminal with markdown
// enabled it is rendered with glamour once complete instead. Statistics
// go to stderr unless --quiet.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/logging"
	"github.com/jeranaias/aihub-tui/internal/playground"
	"github.com/jeranaias/aihub-tui/internal/ui/styles"
)

// maxStdinPrompt bounds a prompt read from a pipe.
const maxStdinPrompt = 1 << 20

// AskClient is what ask needs from the gateway.
type AskClient interface {
	playground.Streamer
	Catalog
}

// askOptions are the inputs of runAsk.
type askOptions struct {
	Config *config.Config
	Args   Args
	Client AskClient
	Logger *slog.Logger

	Out    io.Writer
	Status io.Writer

	// Markdown renders the finished reply instead of streaming it.
	Markdown bool
	Width    int
}

// HandleAsk runs "aihub ask".
func HandleAsk(ctx context.Context, args Args) error {
	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := OpenLogger(cfg, args, logging.ModeCLI)
	if err != nil {
		return err
	}
	defer closeLog()

	prompt, err := askPrompt(args, os.Stdin, IsTTY())
	if err != nil {
		return err
	}

	return runAsk(ctx, askOptions{
		Config:   cfg,
		Args:     args,
		Client:   Connect(cfg, logger),
		Logger:   logger,
		Out:      os.Stdout,
		Status:   os.Stderr,
		Markdown: cfg.UI.Markdown && IsStdoutTTY() && !args.JSON,
		Width:    GetTerminalWidth(),
	}, prompt)
}

// askPrompt picks the prompt from --example, the arguments or stdin.
func askPrompt(args Args, stdin io.Reader, stdinIsTTY bool) (string, error) {
	if args.Example != 0 {
		if args.Query != "" {
			return "", NewValidationError("prompt", args.Query, "give either a prompt or --example, not both")
		}
		p, err := playground.Example(args.Example)
		if err != nil {
			return "", NewValidationError("example", fmt.Sprint(args.Example), err.Error())
		}
		return p, nil
	}
	if args.Query != "" {
		return args.Query, nil
	}
	if !stdinIsTTY && stdin != nil {
		data, err := io.ReadAll(io.LimitReader(stdin, maxStdinPrompt))
		if err != nil {
			return "", fmt.Errorf("reading prompt from stdin: %w", err)
		}
		if p := strings.TrimSpace(string(data)); p != "" {
			return p, nil
		}
	}
	return "", ErrMissingArgument("prompt", `aihub ask "your question"`)
}

func runAsk(ctx context.Context, opts askOptions, prompt string) error {
	args := opts.Args
	settings, err := NewSettings(opts.Config, args)
	if err != nil {
		return err
	}
	if err := resolveModel(ctx, settings, opts.Client); err != nil {
		return err
	}

	r := newRunner(opts.Config, settings, opts.Client, opts.Logger)
	defer r.close()

	live := !opts.Markdown && !args.JSON
	if !live && !args.Quiet && !args.JSON {
		fmt.Fprintln(opts.Status, DimStyle.Render("Thinking... ("+settings.Model()+")"))
	}

	var wrote strings.Builder
	sess, err := r.turn(ctx, prompt, func(fragment string) {
		if live {
			fmt.Fprint(opts.Out, fragment)
			wrote.WriteString(fragment)
		}
	})
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyInput) {
			return ErrMissingArgument("prompt", `aihub ask "your question"`)
		}
		return err
	}
	if live && wrote.Len() > 0 && !strings.HasSuffix(wrote.String(), "\n") {
		fmt.Fprintln(opts.Out)
	}

	switch sess.Status {
	case playground.StatusErrored:
		return fmt.Errorf("request failed: %w", sess.Err)
	case playground.StatusCancelled:
		return context.Canceled
	}

	if args.JSON {
		return NewJSONResponse("ask", AskData{
			Model:     sess.Model,
			Prompt:    prompt,
			Content:   sess.Text,
			Status:    sess.Status.String(),
			Malformed: sess.Malformed,
			Stats:     sess.Stats,
		}).Write(opts.Out)
	}

	if opts.Markdown {
		fmt.Fprintln(opts.Out, renderMarkdown(sess.Text, opts.Config.UI.GlamourStyle, opts.Width))
	}
	if !args.Quiet {
		if sess.Malformed > 0 {
			fmt.Fprintln(opts.Status, WarningStyle.Render(fmt.Sprintf("Skipped %d malformed stream frame(s)", sess.Malformed)))
		}
		if sess.Stats != nil {
			fmt.Fprintln(opts.Status, DimStyle.Render(sess.Stats.Format()))
		}
	}
	return nil
}

// renderMarkdown renders text with glamour, falling back to the text
// itself when no renderer can be built.
func renderMarkdown(text, style string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.NewTheme().GlamourStyle(style)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
