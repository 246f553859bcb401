// Package sdkerr defines the tagged error type surfaced by every SDK
// operation. Callers branch on the Code rather than on error identity.
package sdkerr

import (
	"errors"
	"fmt"
)

// Code identifies the failure class of an SDK error.
type Code string

const (
	CodeNotInitialized       Code = "NOT_INITIALIZED"
	CodeAlreadyInitialized   Code = "ALREADY_INITIALIZED"
	CodeInvalidConfiguration Code = "INVALID_CONFIGURATION"
	CodeNetworkError         Code = "NETWORK_ERROR"
	CodeInvalidResponse      Code = "INVALID_RESPONSE"
	CodeDecodingError        Code = "DECODING_ERROR"
	CodeInvalidEventData     Code = "INVALID_EVENT_DATA"
	CodeInvalidDeepLinkURL   Code = "INVALID_DEEP_LINK_URL"
	CodeMissingAPIKey        Code = "MISSING_API_KEY"
)

// Error carries a failure code, an optional HTTP status and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	// Status is the HTTP status for INVALID_RESPONSE errors, zero otherwise.
	Status int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// InvalidResponse creates an INVALID_RESPONSE error carrying the HTTP
// status and the server-supplied message, when one could be parsed.
func InvalidResponse(status int, message string) *Error {
	if message == "" {
		message = "request rejected by server"
	}
	return &Error{Code: CodeInvalidResponse, Message: message, Status: status}
}

// IsCode reports whether err is (or wraps) an SDK error with the given code.
func IsCode(err error, code Code) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}
