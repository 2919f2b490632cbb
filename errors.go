package tgbot

import (
	"errors"
	"fmt"
)

// TransportError reports a failure to perform a request: connection or TLS
// failures, timeouts, and non-2xx HTTP responses. The long poller recovers
// from it via backoff-and-retry; other callers see it immediately.
type TransportError struct {
	// StatusCode is set when the server answered outside 2xx.
	StatusCode int
	// Body preserves the response body for diagnostics.
	Body []byte
	Err  error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error: unexpected status code %d", e.StatusCode)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a malformed response envelope, result payload or
// update object.
type DecodeError struct {
	Msg string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("decode error: %s", e.Msg)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError is a well-formed failure reported by the Bot API (ok=false).
// It is always surfaced to the caller and never retried by this package.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telegram API error [%d]: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("telegram API error: %s", e.Description)
}

// Sentinel errors for client construction and configuration.
var (
	ErrBotTokenRequired = errors.New("bot token is required")
	ErrInvalidBotToken  = errors.New("invalid bot token format")
	ErrInvalidProxyURL  = errors.New("invalid proxy URL")
)

// Sentinel errors for the long poller runtime.
var (
	ErrPollerAlreadyRunning = errors.New("long poller is already running")
	ErrMaxErrorsExceeded    = errors.New("max consecutive fetch errors exceeded")
)
