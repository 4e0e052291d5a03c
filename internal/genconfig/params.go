// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package genconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTemperature matches the balanced preset.
	DefaultTemperature = 0.7

	// MinTemperature and MaxTemperature bound the temperature field.
	MinTemperature = 0.0
	MaxTemperature = 1.0

	// FieldTemperature is the JSON name of the temperature field.
	FieldTemperature = "temperature"
)

// reservedFields are set by the request itself and may not be overridden
// by generation parameters.
var reservedFields = map[string]bool{
	"model":    true,
	"messages": true,
	"stream":   true,
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidJSON is wrapped by ParseError for text that is not a JSON object.
var ErrInvalidJSON = errors.New("invalid JSON format")

// ParseError reports why a textual or structural update was rejected.
type ParseError struct {
	Field   string // empty for syntax errors
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch {
	case e.Field == "" && e.Err != nil:
		return fmt.Sprintf("Invalid JSON format: %s", e.Message)
	case e.Field == "":
		return e.Message
	default:
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// =============================================================================
// VALIDATOR
// =============================================================================

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// =============================================================================
// PARAMS
// =============================================================================

// Params is the set of generation parameters sent with each request.
// Extra values are float64, bool or string.
type Params struct {
	Temperature float64 `validate:"gte=0,lte=1"`
	Extra       map[string]any
}

// Clone returns a copy that shares no map with p.
func (p Params) Clone() Params {
	out := Params{Temperature: p.Temperature}
	if len(p.Extra) > 0 {
		out.Extra = maps.Clone(p.Extra)
	}
	return out
}

// Equal reports whether two parameter sets are the same.
func (p Params) Equal(o Params) bool {
	return p.Temperature == o.Temperature && len(p.Extra) == len(o.Extra) && maps.Equal(p.Extra, o.Extra)
}

// Fields flattens the parameters into request body fields.
func (p Params) Fields() map[string]any {
	out := make(map[string]any, len(p.Extra)+1)
	maps.Copy(out, p.Extra)
	out[FieldTemperature] = p.Temperature
	return out
}

// Validate checks ranges, reserved names and value kinds.
func (p Params) Validate() error {
	if !isFinite(p.Temperature) {
		return &ParseError{Field: FieldTemperature, Message: "must be a finite number"}
	}
	if err := getValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Temperature" {
			return &ParseError{Field: FieldTemperature, Message: "must be between 0 and 1", Err: err}
		}
		return &ParseError{Message: err.Error(), Err: err}
	}
	for _, key := range slices.Sorted(maps.Keys(p.Extra)) {
		if err := validateExtra(key, p.Extra[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateExtra(key string, value any) error {
	if err := getValidator().Var(key, "required,printascii,max=64"); err != nil {
		return &ParseError{Field: key, Message: "invalid parameter name", Err: err}
	}
	if key == FieldTemperature {
		return &ParseError{Field: key, Message: "must not appear in extra parameters"}
	}
	if reservedFields[key] {
		return &ParseError{Field: key, Message: "is set by the request and cannot be overridden"}
	}
	switch v := value.(type) {
	case float64:
		if !isFinite(v) {
			return &ParseError{Field: key, Message: "must be a finite number"}
		}
		return nil
	case bool, string:
		return nil
	case nil:
		return &ParseError{Field: key, Message: "must not be null"}
	default:
		return &ParseError{Field: key, Message: "must be a number, boolean or string"}
	}
}

// MarshalJSON writes temperature first and the extras in key order, so the
// text form is canonical.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value any) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	if err := write(FieldTemperature, p.Temperature); err != nil {
		return nil, err
	}
	for _, key := range slices.Sorted(maps.Keys(p.Extra)) {
		buf.WriteByte(',')
		if err := write(key, p.Extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses and validates a params object.
func (p *Params) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Serialize returns the canonical, indented text form.
func Serialize(p Params) (string, error) {
	compact, err := p.MarshalJSON()
	if err != nil {
		return "", &ParseError{Message: "parameters cannot be written as JSON", Err: err}
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return "", &ParseError{Message: "parameters cannot be written as JSON", Err: err}
	}
	return out.String(), nil
}

// Parse reads the text form. It accepts any JSON object whose fields pass
// Validate; temperature is required.
func Parse(text string) (Params, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Params{}, &ParseError{Message: syntaxMessage(err), Err: fmt.Errorf("%w: %v", ErrInvalidJSON, err)}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Params{}, &ParseError{Message: "unexpected data after the object", Err: ErrInvalidJSON}
	}
	if raw == nil {
		return Params{}, &ParseError{Message: "expected an object", Err: ErrInvalidJSON}
	}

	tempValue, ok := raw[FieldTemperature]
	if !ok {
		return Params{}, &ParseError{Field: FieldTemperature, Message: "is required"}
	}
	temp, ok := tempValue.(float64)
	if !ok {
		return Params{}, &ParseError{Field: FieldTemperature, Message: "must be a number"}
	}
	delete(raw, FieldTemperature)

	p := Params{Temperature: temp}
	if len(raw) > 0 {
		p.Extra = raw
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func syntaxMessage(err error) string {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return fmt.Sprintf("%s (offset %d)", syn.Error(), syn.Offset)
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		return "expected an object"
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "unexpected end of input"
	}
	return err.Error()
}

// normalizeValue converts the scalar kinds callers commonly pass into the
// kinds Parse produces.
func normalizeValue(value any) (any, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case bool, string:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return nil, false
	}
}
