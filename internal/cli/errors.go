// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for aihub commands.
//
// Command handlers always return errors; main prints them once and exits
// with the code GetExitCode picks.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/gateway"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8

	// ExitInterrupted follows the shell convention for SIGINT.
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a failed command with context.
type CommandError struct {
	Command string // e.g. "models"
	Action  string // e.g. "list"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError is bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError is a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("no %s found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewCommandError creates a command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationError creates a validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(name, usage string) error {
	return &ValidationError{Field: name, Reason: "required argument missing", Example: usage}
}

// ErrUnknownCommand reports a command name nothing handles.
func ErrUnknownCommand(name string) error {
	return &ValidationError{Field: "command", Value: name, Reason: "unknown command", Example: "aihub help"}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode picks the exit code for err. Typed errors are checked first,
// then the message is searched for a category.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	if genconfig.IsParseError(err) {
		return ExitUsageError
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ExitNotFoundError
	}
	var cfgErrs config.ValidateErrors
	if errors.As(err, &cfgErrs) {
		return ExitConfigError
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}
	if errors.Is(err, gateway.ErrAuthFailed) {
		return ExitAuthError
	}
	if errors.Is(err, gateway.ErrModelNotFound) {
		return ExitNotFoundError
	}
	var transportErr *gateway.TransportError
	if errors.As(err, &transportErr) {
		return ExitNetworkError
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "config"):
		return ExitConfigError
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"):
		return ExitAuthError
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return ExitTimeoutError
	case strings.Contains(msg, "connection"), strings.Contains(msg, "dial"),
		strings.Contains(msg, "unreachable"), strings.Contains(msg, "network"):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON error response in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
}
