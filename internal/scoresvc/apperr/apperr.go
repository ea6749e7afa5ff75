package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary and for retry decisions.
type Kind int

const (
	// Validation is malformed or out-of-range input. Never retried.
	Validation Kind = iota + 1
	// NotFound means a referenced user/round/answer does not exist.
	NotFound
	// Conflict is a state-transition no-op, e.g. closing a closed round.
	Conflict
	// Transient is an infrastructure failure, safe to retry at the caller.
	Transient
	// Fatal is a violated invariant. Not retried, indicates a bug.
	Fatal
)

type Error struct {
	kind Kind
	msg  string
	err  error
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// KindOf returns the kind of err. Errors that never got classified are
// treated as transient infrastructure failures.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return Transient
}

func IsNotFound(err error) bool { return KindOf(err) == NotFound }

func IsConflict(err error) bool { return KindOf(err) == Conflict }

// HTTPStatus maps an error to the response code used by the handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Transient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
