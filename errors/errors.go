package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

type Code int

const (
	// Validation indicates an invalid query or document
	Validation Code = http.StatusBadRequest
	// NotFound indicates a missing document or view
	NotFound Code = http.StatusNotFound
	// Conflict indicates a write against a stale revision
	Conflict Code = http.StatusConflict
	// FetchFailed indicates a document could not be materialized for a row
	FetchFailed Code = http.StatusFailedDependency
	// Cancelled indicates the caller abandoned the operation
	Cancelled Code = 499
	Internal  Code = http.StatusInternalServerError
	// Unavailable indicates an index snapshot could not be opened
	Unavailable Code = http.StatusServiceUnavailable
)

// Error is a custom error
type Error struct {
	Code     Code     `json:"code"`
	Messages []string `json:"messages"`
	Err      error    `json:"err,omitempty"`
}

// Error returns the Error as a json string
func (e *Error) Error() string {
	if e.Code == 0 {
		e.Code = http.StatusOK
	}
	bits, _ := json.Marshal(e.RemoveError().withCause(e.Err))
	return string(bits)
}

func (e *Error) withCause(err error) any {
	if err == nil {
		return e
	}
	return struct {
		*Error
		Cause string `json:"err"`
	}{Error: e, Cause: err.Error()}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// RemoveError removes the error from the Error and leaves it's messages and code
func (e *Error) RemoveError() *Error {
	return &Error{
		Code:     e.Code,
		Messages: e.Messages,
		Err:      nil,
	}
}

// New creates a new error with the given code and formatted message
func New(code Code, msg string, args ...any) error {
	return &Error{
		Code:     code,
		Messages: []string{fmt.Sprintf(msg, args...)},
	}
}

// Extract extracts the custom Error from the given error
func Extract(err error) *Error {
	var e *Error
	if !stderrors.As(err, &e) {
		return &Error{
			Code:     0,
			Messages: nil,
			Err:      err,
		}
	}
	return e
}

// Is reports whether the error carries the given code
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return Extract(err).Code == code
}

// Wrap wraps the given error and returns a new one. Wrapping a nil error returns nil.
func Wrap(err error, code Code, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if ok {
		if msg != "" {
			e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
		}
		if code > 0 {
			e.Code = code
		}
		return e
	}
	e = &Error{
		Code: code,
		Err:  err,
	}
	if msg != "" {
		e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
	}
	return e
}
