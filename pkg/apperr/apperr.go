package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that transports can map it to a status code or an error frame.
type Kind string

const (
	Unauthorized      Kind = "unauthorized"
	NotFound          Kind = "not_found"
	Validation        Kind = "validation_error"
	Persistence       Kind = "persistence_error"
	Generation        Kind = "generation_error"
	RemoteUnavailable Kind = "remote_unavailable"
	Embedding         Kind = "embedding_error"
	RateLimited       Kind = "rate_limited"
	InvalidPayload    Kind = "invalid_payload"
	Internal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string // e.g. "orchestrator.persist_user_turn"
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone: errors.Is(err, &apperr.Error{Kind: apperr.NotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in the chain, or Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HasKind reports whether any *Error in the chain carries kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// Reason is the machine-readable token for err: always one of the Kind values.
func Reason(err error) string {
	return string(KindOf(err))
}

// Message is the short human-readable text for err. It falls back to the kind
// when the outermost error carries no message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return string(KindOf(err))
}
