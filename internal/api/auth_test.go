package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   string
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), "user-1"),
			userId:   "user-1",
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %q", tc.userId)
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := hashPassword("password123")
	assert.NoError(t, err, "expected no error hashing password")
	assert.NotEqual(t, "password123", hash, "expected hash to differ from plaintext")

	assert.True(t, verifyPassword(hash, "password123"), "expected correct password to verify")
	assert.False(t, verifyPassword(hash, "wrong"), "expected wrong password to fail")
}

func TestJwtRoundTrip(t *testing.T) {
	app := &LobbyApp{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession("user-1", time.Hour)
	assert.NoError(t, err, "expected no error creating token")

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected no error extracting user id")
	assert.Equal(t, "user-1", userId, "expected user id to round trip")
}

func TestJwtWrongKey(t *testing.T) {
	app := &LobbyApp{signingKey: []byte("test-signing-key")}
	other := &LobbyApp{signingKey: []byte("different-key")}

	token, err := app.createJwtForSession("user-1", time.Hour)
	assert.NoError(t, err, "expected no error creating token")

	_, err = other.extractUserIdFromToken(token)
	assert.Error(t, err, "expected verification to fail with the wrong key")
}

func TestJwtExpired(t *testing.T) {
	app := &LobbyApp{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession("user-1", -time.Hour)
	assert.NoError(t, err, "expected no error creating token")

	_, err = app.extractUserIdFromToken(token)
	assert.Error(t, err, "expected verification to fail for an expired token")
}
