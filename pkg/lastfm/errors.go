package lastfm

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a Last.fm API error.
//
// The Error type provides structured error information including
// the Last.fm error code and message. It implements error, and
// provides additional methods for retry logic.
type Error struct {
	Code    int    // Last.fm error code
	Message string // Error message from Last.fm
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Is checks if the target error is a Last.fm error with the same code.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary returns true if the error is temporary and the request
// should be retried.
//
// The following Last.fm error codes are considered temporary:
//   - 11: Service Offline - temporarily unavailable
//   - 16: There was a temporary error processing your request
//   - 29: Rate limit exceeded
//
// Every other code means the request itself is invalid.
func (e *Error) Temporary() bool {
	switch e.Code {
	case ErrCodeServiceOffline, ErrCodeTempUnavailable, ErrCodeRateLimitExceeded:
		return true
	default:
		return false
	}
}

// Common Last.fm error codes.
const (
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeInvalidSignature     = 13
	ErrCodeTempUnavailable      = 16
	ErrCodeSuspendedAPIKey      = 26
	ErrCodeRateLimitExceeded    = 29
)

// Predefined errors for common cases.
var (
	// ErrMissingCredential is returned when the API key cannot be found in
	// the environment.
	ErrMissingCredential = errors.New("lastfm: " + APIKeyEnv + " is not set")

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("lastfm: invalid configuration")

	// ErrEndOfHistory is returned by HistoryStream.Next once every record
	// has been yielded.
	ErrEndOfHistory = errors.New("lastfm: end of history")

	// ErrStreamClosed is returned by HistoryStream.Next after Close.
	ErrStreamClosed = errors.New("lastfm: history stream closed")
)

// MissingFieldError is returned when a required field is absent from a
// response, or present with the wrong type.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("lastfm: missing field %q", e.Field)
}

// MalformedFieldError is returned when a field is present but has a shape
// that cannot be decoded.
type MalformedFieldError struct {
	Field  string
	Reason string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("lastfm: malformed field %q: %s", e.Field, e.Reason)
}

// InvalidTimestampError is returned when a play timestamp cannot be
// converted to a time.
type InvalidTimestampError struct {
	Value string
	Err   error
}

func (e *InvalidTimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lastfm: invalid timestamp %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("lastfm: invalid timestamp %q", e.Value)
}

func (e *InvalidTimestampError) Unwrap() error {
	return e.Err
}

// MalformedPageError is returned when a response body cannot be decoded
// into a page or an API error. It is never retried.
type MalformedPageError struct {
	Err error
}

func (e *MalformedPageError) Error() string {
	return fmt.Sprintf("lastfm: malformed page: %v", e.Err)
}

func (e *MalformedPageError) Unwrap() error {
	return e.Err
}

// TransportError is returned when the HTTP exchange itself fails: the
// request could not be sent, the body could not be read, or the server
// answered with an unexpected status and no API error body.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lastfm: http status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("lastfm: http request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the request may succeed if repeated.
func (e *TransportError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429
}

// TooManyRetriesError is returned when the retry strategy gives up. It
// carries every error seen across the attempts, oldest first.
type TooManyRetriesError struct {
	Errors []error
}

func (e *TooManyRetriesError) Error() string {
	if len(e.Errors) == 0 {
		return "lastfm: too many retries"
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("lastfm: too many retries (%d errors): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap allows errors.Is and errors.As to inspect every attempt's error.
func (e *TooManyRetriesError) Unwrap() []error {
	return e.Errors
}

// isRetryableError determines if an error should trigger a retry.
//
// This is used internally by the transport layer to implement
// the retry loop.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var lastfmErr *Error
	if errors.As(err, &lastfmErr) {
		return lastfmErr.Temporary()
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Temporary()
	}

	return false
}
