// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information, set at build time with -ldflags.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdModels
	CmdConfig
	CmdPresets
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdModels:
		return "models"
	case CmdConfig:
		return "config"
	case CmdPresets:
		return "presets"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	}
	return "unknown"
}

// Args holds parsed command-line arguments.
type Args struct {
	// Global overrides
	Model       string
	URL         string
	APIKey      string
	Preset      string
	System      string
	Params      string // JSON object of generation parameters
	Temperature *float64

	// Output
	JSON    bool
	Verbose bool
	Quiet   bool

	// Command-specific
	Query      string
	Example    int // 1-based example prompt for ask, 0 for none
	Subcommand string
	Force      bool

	// Raw holds the arguments after the command name.
	Raw []string
}

const usageText = `aihub - streaming chat playground for an LLM gateway

Usage:
  aihub                         Start the playground TUI (default)
  aihub ask [flags] "prompt"    Stream one completion to stdout
  aihub chat [flags]            Interactive REPL
  aihub models [--json]         List gateway models
  aihub config [show|path|init] Show or initialise the config file
  aihub presets [--json]        List generation presets
  aihub version [--json]        Show version information
  aihub help                    Show this help

Global flags:
  -m, --model NAME          Model to use (overrides config)
      --url URL             Gateway base URL
      --api-key KEY         Gateway API key (prefer AIHUB_API_KEY)
      --preset NAME         Generation preset: balanced, creative, precise
  -t, --temperature VALUE   Sampling temperature, 0 to 1
      --system TEXT         System prompt
      --params JSON         Generation parameters, e.g. '{"top_p":0.9}'
      --json                Machine-readable output
  -v, --verbose             Debug logging to stderr
  -q, --quiet               Only print the reply

Ask flags:
      --example N           Send example prompt N (1-4)

Config flags:
      --force               Overwrite an existing file on init

Chat commands:
  /reset  /preset [name]  /temp [value]  /system [text]
  /model [name]  /params [json]  /export [markdown|json]  /help  /quit

Environment:
  AIHUB_URL, AIHUB_API_KEY, AIHUB_MODEL, AIHUB_LOG_LEVEL, AIHUB_CONFIG

Examples:
  aihub ask "Explain quantum computing in simple terms"
  echo "Summarize this" | aihub ask --model gpt-4o
  aihub ask --example 2 --preset creative
  aihub models --json

Version: %s
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv without the program name. The returned Args are
// usable for output settings even when err is not nil.
func ParseArgs(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if len(remaining) == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch name {
	case "tui":
		return CmdTUI, args, nil
	case "ask":
		err := parseAskArgs(&args, remaining)
		return CmdAsk, args, err
	case "chat":
		return CmdChat, args, nil
	case "models", "model", "ls":
		return CmdModels, args, nil
	case "config":
		err := parseConfigArgs(&args, remaining)
		return CmdConfig, args, err
	case "presets", "preset":
		return CmdPresets, args, nil
	case "version", "--version":
		return CmdVersion, args, nil
	case "help", "-h", "--help":
		return CmdHelp, args, nil
	}
	return CmdHelp, args, ErrUnknownCommand(name)
}

// valueFlags maps each global value flag to the Args field it sets.
var valueFlags = map[string]func(*Args, string) error{
	"--model":   func(a *Args, v string) error { a.Model = v; return nil },
	"-m":        func(a *Args, v string) error { a.Model = v; return nil },
	"--url":     func(a *Args, v string) error { a.URL = v; return nil },
	"--api-key": func(a *Args, v string) error { a.APIKey = v; return nil },
	"--preset":  func(a *Args, v string) error { a.Preset = strings.ToLower(v); return nil },
	"--system":  func(a *Args, v string) error { a.System = v; return nil },
	"--params":  func(a *Args, v string) error { a.Params = v; return nil },
	"--temperature": func(a *Args, v string) error {
		t, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return &ValidationError{Field: "temperature", Value: v, Reason: "must be a number", Example: "--temperature 0.7"}
		}
		a.Temperature = &t
		return nil
	},
}

func init() {
	valueFlags["-t"] = valueFlags["--temperature"]
}

// parseGlobalFlags removes global flags from argv wherever they appear.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var (
		remaining []string
		args      Args
	)

	for i := 0; i < len(argv); i++ {
		arg := argv[i]

		if arg == "--" {
			remaining = append(remaining, argv[i:]...)
			break
		}

		switch arg {
		case "--json":
			args.JSON = true
			continue
		case "-v", "--verbose":
			args.Verbose = true
			continue
		case "-q", "--quiet":
			args.Quiet = true
			continue
		}

		if set, ok := valueFlags[arg]; ok {
			if i+1 >= len(argv) {
				return nil, args, ErrMissingArgument(strings.TrimLeft(arg, "-"), arg+" VALUE")
			}
			i++
			if err := set(&args, argv[i]); err != nil {
				return nil, args, err
			}
			continue
		}
		if k, v, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(k, "--") {
			if set, known := valueFlags[k]; known {
				if err := set(&args, v); err != nil {
					return nil, args, err
				}
				continue
			}
		}

		remaining = append(remaining, arg)
	}
	return remaining, args, nil
}

// parseAskArgs reads --example and joins the positionals into the query.
func parseAskArgs(args *Args, remaining []string) error {
	p := NewArgParser(remaining)
	if p.HasFlag("example") {
		n, err := p.FlagInt("example")
		if err != nil {
			return &ValidationError{Field: "example", Value: p.Flag("example"), Reason: "must be a number", Example: "aihub ask --example 1"}
		}
		args.Example = n
	}
	args.Query = strings.TrimSpace(strings.Join(p.PositionalFrom(0), " "))
	return nil
}

// parseConfigArgs reads the config subcommand. The default is "show".
func parseConfigArgs(args *Args, remaining []string) error {
	p := NewArgParser(remaining, "force")
	args.Force = p.BoolFlag("force")
	args.Subcommand = strings.ToLower(p.Subcommand())
	switch args.Subcommand {
	case "":
		args.Subcommand = "show"
	case "show", "path", "init":
	default:
		return &ValidationError{Field: "config subcommand", Value: args.Subcommand, Reason: "must be show, path or init"}
	}
	return nil
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// HandleVersion prints version information.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	fmt.Fprintf(w, "aihub version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	return nil
}

// HandleHelp prints usage.
func HandleHelp(w io.Writer) error {
	PrintUsage(w)
	return nil
}

// Exit reports err for cmd and terminates the process with its exit code.
func Exit(cmd Command, args Args, err error) {
	if err == nil {
		os.Exit(ExitSuccess)
	}
	out := io.Writer(os.Stderr)
	if args.JSON {
		out = os.Stdout
	}
	DisplayError(out, cmd.String(), err, args.JSON)
	os.Exit(GetExitCode(err))
}
