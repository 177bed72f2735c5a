// Package fault defines the error taxonomy shared by every tier of the
// catalog cluster. Errors are wrapped with fmt.Errorf("%w: ...") and tested
// with errors.Is against the sentinels below.
package fault

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUnreachable   = errors.New("peer unreachable")
	ErrPrecondition  = errors.New("precondition failed")
	ErrTimeout       = errors.New("timed out")
	ErrProtocol      = errors.New("protocol error")
)

var kinds = []struct {
	name string
	err  error
}{
	{"not_found", ErrNotFound},
	{"already_exists", ErrAlreadyExists},
	{"validation", ErrValidation},
	{"unreachable", ErrUnreachable},
	{"precondition", ErrPrecondition},
	{"timeout", ErrTimeout},
	{"protocol", ErrProtocol},
}

// Kind returns the taxonomy name of err, or "internal" when err does not
// wrap any of the sentinels.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// FromKind rebuilds an error received from a peer so that errors.Is keeps
// working across the process boundary.
func FromKind(kind, msg string) error {
	for _, k := range kinds {
		if k.name == kind {
			if msg == "" || msg == k.err.Error() {
				return k.err
			}
			return &remoteError{kind: k.err, msg: msg}
		}
	}
	return errors.New(msg)
}

type remoteError struct {
	kind error
	msg  string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.kind }

// Reply renders err as the error-shaped reply string sent to clients.
func Reply(err error) string {
	return "Error: " + err.Error()
}

// IsReply reports whether a status string returned to a client is an error.
func IsReply(s string) bool {
	return strings.HasPrefix(s, "Error: ")
}
