// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Sentinel errors. An *APIError matches the one for its status via errors.Is.
var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRateLimited   = errors.New("rate limited")
	ErrModelNotFound = errors.New("model not found")
	ErrNoModel       = errors.New("no model selected")
	ErrNoMessages    = errors.New("request has no messages")
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

// Error implements the error interface. The Status is always included so
// the message shown to the user names it.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP error %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is maps HTTP statuses onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrModelNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// TransportError is a failure below HTTP: DNS, connect, TLS, reset.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// apiErrorBody covers the OpenAI and LiteLLM error envelopes.
type apiErrorBody struct {
	Error  json.RawMessage `json:"error"`
	Detail any             `json:"detail"`
}

type apiErrorObject struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// newAPIError reads a bounded amount of the body and builds an APIError.
func newAPIError(resp *http.Response, requestID string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, RequestID: requestID}
	apiErr.Code, apiErr.Message = parseErrorBody(body)
	return apiErr
}

func parseErrorBody(body []byte) (code, message string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", ""
	}

	var env apiErrorBody
	if err := json.Unmarshal(body, &env); err != nil {
		return "", truncate(trimmed, 200)
	}

	if len(env.Error) > 0 {
		var obj apiErrorObject
		if err := json.Unmarshal(env.Error, &obj); err == nil && obj.Message != "" {
			if obj.Code != nil {
				code = fmt.Sprint(obj.Code)
			} else {
				code = obj.Type
			}
			return code, obj.Message
		}
		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil {
			return "", s
		}
	}
	if env.Detail != nil {
		return "", truncate(fmt.Sprint(env.Detail), 200)
	}
	return "", truncate(trimmed, 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
