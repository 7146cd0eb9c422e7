package comms

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCallCapReached  = errors.New("call limit reached for lead")
)

// ErrorKind says which side of the gateway failed.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindProvider    ErrorKind = "provider"
	KindPersistence ErrorKind = "persistence"
	KindCapacity    ErrorKind = "capacity"
)

// Error is returned by every Service operation.
//
// SID is set when the provider accepted the request before a later step failed,
// so the caller can reconcile the record by hand.
type Error struct {
	Kind ErrorKind
	Op   string
	SID  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func invalid(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)}
}

func providerErr(op string, err error) error {
	return &Error{Kind: KindProvider, Op: op, Err: err}
}

func persistenceErr(op, sid string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, SID: sid, Err: err}
}
