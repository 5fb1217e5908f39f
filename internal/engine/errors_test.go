package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	notFound := NewNotFoundError("room %q not found", "room-1")
	assert.True(t, IsNotFound(notFound), "expected not found predicate to match")
	assert.False(t, IsForbidden(notFound), "expected forbidden predicate not to match")

	forbidden := NewForbiddenError("nope")
	assert.True(t, IsForbidden(forbidden), "expected forbidden predicate to match")

	conflict := NewConflictError(ReasonRoomFull, "room %q is full", "room-1")
	assert.True(t, IsConflict(conflict), "expected conflict predicate to match")
	assert.Equal(t, ReasonRoomFull, ConflictReason(conflict), "expected reason to be surfaced")

	// predicates see through wrapping
	wrapped := fmt.Errorf("join lobby: %w", conflict)
	assert.True(t, IsConflict(wrapped), "expected predicate to unwrap")
	assert.Equal(t, ReasonRoomFull, ConflictReason(wrapped), "expected reason through wrapping")

	assert.False(t, IsConflict(errors.New("plain error")), "expected plain errors not to match")
	assert.Equal(t, Reason(""), ConflictReason(errors.New("plain error")), "expected no reason on plain errors")
	assert.Equal(t, Reason(""), ConflictReason(notFound), "expected no reason on non-conflict errors")
}

func TestErrorMessage(t *testing.T) {
	err := NewConflictError(ReasonWrongPassword, "wrong password for room %q", "room-103")
	assert.Contains(t, err.Error(), "wrong_password", "expected reason in the message")
	assert.Contains(t, err.Error(), "room-103", "expected formatted args in the message")
}
