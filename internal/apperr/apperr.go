package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindConfig
	KindModel
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindConfig:
		return "config"
	case KindModel:
		return "model"
	case KindNotImplemented:
		return "not implemented"
	default:
		return "internal"
	}
}

// Error carries a user-facing message plus the operation that failed.
// Op is for logs only and never part of Error().
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, op string, err error, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func InvalidInput(op string, err error, message string) *Error {
	return newErr(KindInvalidInput, op, err, message)
}

func NotFound(op string, err error, message string) *Error {
	return newErr(KindNotFound, op, err, message)
}

func Config(op string, err error, message string) *Error {
	return newErr(KindConfig, op, err, message)
}

func Model(op string, err error, message string) *Error {
	return newErr(KindModel, op, err, message)
}

func NotImplemented(op string, message string) *Error {
	return newErr(KindNotImplemented, op, nil, message)
}

func Internal(op string, err error, message string) *Error {
	return newErr(KindInternal, op, err, message)
}

// KindOf reports the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// OpOf returns the failing operation, or "" when err carries none.
func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindConfig:
		return 2
	case KindNotFound:
		return 3
	case KindInvalidInput:
		return 4
	default:
		return 1
	}
}
