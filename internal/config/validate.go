// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jeranaias/aihub-tui/internal/genconfig"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the dotted names of the invalid settings.
func (e ValidateErrors) Fields() []string {
	out := make([]string, len(e))
	for i, err := range e {
		out[i] = err.Field
	}
	return out
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report TOML key names instead of Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("toml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the configuration and returns ValidateErrors listing
// every invalid setting, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	if c.Gateway.Timeout.Duration < 0 {
		errs = append(errs, ValidationError{Field: "gateway.timeout", Message: "must not be negative"})
	}
	if c.Gateway.Timeout.Duration > 10*time.Minute {
		errs = append(errs, ValidationError{Field: "gateway.timeout", Message: "must be at most 10m"})
	}
	if c.Gateway.RateLimit > 0 && c.Gateway.Burst < 1 {
		errs = append(errs, ValidationError{Field: "gateway.burst", Message: "must be at least 1 when rate_limit is set"})
	}
	if c.Playground.ProgressInterval.Duration < 10*time.Millisecond {
		errs = append(errs, ValidationError{Field: "playground.progress_interval", Message: "must be at least 10ms"})
	}
	if c.Playground.Preset != "" {
		if _, err := genconfig.LookupPreset(c.Playground.Preset); err != nil {
			errs = append(errs, ValidationError{
				Field:   "playground.preset",
				Message: fmt.Sprintf("unknown preset '%s', must be one of: %s", c.Playground.Preset, strings.Join(genconfig.PresetKeys(), ", ")),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// fieldPath turns "Config.gateway.url" into "gateway.url".
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("invalid URL '%v'", fe.Value())
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return fmt.Sprintf("invalid value '%v', must be one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}
