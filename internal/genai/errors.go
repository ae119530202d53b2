package genai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies generation failures.
type ErrorKind string

const (
	KindRateLimited       ErrorKind = "rate_limited"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindFailed            ErrorKind = "failed"
)

// Error is returned for every failed generation request.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrEmptyResponse     = &Error{Kind: KindEmptyResponse}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrFailed            = &Error{Kind: KindFailed}
)

func (e *Error) Error() string {
	msg := "genai: " + string(e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" when err is not a generation error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
