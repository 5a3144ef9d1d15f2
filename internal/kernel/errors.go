// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kernel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeHTTP
	ErrTypeNotFound
	ErrTypeInvalidResponse
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeHTTP:
		return "http"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the kernel client.
//
// For HTTP failures Message is the server's detail text (or the status text
// when the body carried none) and StatusCode is set.
type ClientError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrConfirmationRequired is returned by DeleteAllData when confirm is false.
// The request is never sent in that case.
var ErrConfirmationRequired = errors.New("Confirmation required")

// ErrEmptyResponse marks a call that needed a value but got an empty (204 or
// blank) response. Client methods return nil instead; callers that cannot
// proceed without a value report this.
var ErrEmptyResponse = errors.New("kernel returned an empty response")

// IsNotFound reports whether err is a 404 from the kernel.
func IsNotFound(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeNotFound
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeTimeout
}

// IsUnavailable reports whether the kernel could not be reached at all.
func IsUnavailable(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Type == ErrTypeConnection || ce.Type == ErrTypeTimeout
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

// httpError builds the error for a non-2xx response.
func httpError(status int, body []byte) *ClientError {
	errType := ErrTypeHTTP
	if status == http.StatusNotFound {
		errType = ErrTypeNotFound
	}
	msg := detailMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "request failed"
	}
	return &ClientError{Type: errType, StatusCode: status, Message: msg}
}

// detailMessage extracts "detail" from an error body. A string is used as-is;
// a list of validation issues is flattened to their messages.
func detailMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var issues []validationIssue
	if err := json.Unmarshal(eb.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg != "" {
				msgs = append(msgs, issue.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
