package git

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure that leaves the repository core.
type ErrorKind int

const (
	// KindEngine is any failure reported by the underlying git engine.
	KindEngine ErrorKind = iota
	// KindNotFound means a path, ref, commit, or remote does not exist.
	KindNotFound
	// KindInvalidData means the caller supplied input that cannot be used.
	KindInvalidData
	// KindNoRepository means an operation was issued with no repository open.
	KindNoRepository
	// KindAlreadyExists means a repository, branch, or remote is already present.
	KindAlreadyExists
	// KindNotUTF8 means file content is not valid UTF-8 text.
	KindNotUTF8
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidData:
		return "invalid data"
	case KindNoRepository:
		return "no repository open"
	case KindAlreadyExists:
		return "already exists"
	case KindNotUTF8:
		return "not valid UTF-8"
	default:
		return "git error"
	}
}

// Sentinels for errors.Is matching. Any *Error of the same kind matches.
var (
	ErrEngine        = &Error{Kind: KindEngine}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrInvalidData   = &Error{Kind: KindInvalidData}
	ErrNoRepository  = &Error{Kind: KindNoRepository}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrNotUTF8       = &Error{Kind: KindNotUTF8}
)

// Error is the single error type surfaced by the repository core. Subject is
// the offending path, ref, or remote; Err carries the underlying cause.
type Error struct {
	Kind    ErrorKind
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Subject != "" {
		msg += ": " + e.Subject
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindEngine.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindEngine
}

// NewError builds an *Error for failures detected outside this package.
func NewError(kind ErrorKind, subject string, cause error) *Error {
	return newError(kind, subject, cause)
}

func newError(kind ErrorKind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: cause}
}

func notFound(subject string) *Error {
	return &Error{Kind: KindNotFound, Subject: subject}
}

func invalidData(subject, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidData, Subject: subject, Err: fmt.Errorf(format, args...)}
}

// engineError wraps err as a KindEngine error unless it already carries a kind.
func engineError(subject string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindEngine, Subject: subject, Err: err}
}
