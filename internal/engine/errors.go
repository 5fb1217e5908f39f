package engine

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound  ErrorKind = "not_found"
	KindForbidden ErrorKind = "forbidden"
	KindConflict  ErrorKind = "conflict"
	KindInvariant ErrorKind = "invariant"
)

// Reason distinguishes conflicts the caller must present differently.
type Reason string

const (
	ReasonPasswordRequired Reason = "password_required"
	ReasonWrongPassword    Reason = "wrong_password"
	ReasonRoomFull         Reason = "room_full"
	ReasonNotVoiceRoom     Reason = "not_voice_room"
	ReasonNotInLobby       Reason = "not_in_lobby"
)

type Error struct {
	Kind    ErrorKind `json:"kind"`
	Reason  Reason    `json:"reason,omitempty"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(reason Reason, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func NewInvariantError(format string, args ...any) *Error {
	return &Error{Kind: KindInvariant, Message: fmt.Sprintf(format, args...)}
}

func kindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

func IsForbidden(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindForbidden
}

func IsConflict(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConflict
}

// ConflictReason returns the reason code of a conflict error, or "".
func ConflictReason(err error) Reason {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindConflict {
		return e.Reason
	}
	return ""
}
