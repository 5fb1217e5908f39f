package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestMemLobbyRepositorySeed(t *testing.T) {
	db := NewMemLobbyRepository()

	users, err := db.ListAccounts()
	assert.NoError(t, err, "expected no error listing accounts")
	assert.Len(t, users, 4, "expected the seeded accounts")

	rooms, err := db.ListRooms()
	assert.NoError(t, err, "expected no error listing rooms")
	assert.Len(t, rooms, 5, "expected the seeded rooms")

	u, err := db.GetAccountById("user-2")
	assert.NoError(t, err, "expected no error fetching seeded account")
	assert.Equal(t, "Phoenix", u.Username, "expected the seeded username")
	assert.True(t, u.Premium, "expected the seeded premium flag")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(seedPassword)), "expected the seed password to verify")

	r, err := db.GetRoomById("room-103")
	assert.NoError(t, err, "expected no error fetching seeded room")
	assert.Equal(t, seedPassword, r.Password, "expected the seeded room password")
}

func TestMemLobbyRepositoryAccounts(t *testing.T) {
	db := NewMemLobbyRepository()

	created, err := db.CreateAccount(CreateAccountParams{
		Id:            "user-9",
		Username:      "Nova",
		Discriminator: "7777",
		EmailAddress:  "nova@example.com",
		PasswordHash:  "hash",
	})
	assert.NoError(t, err, "expected no error creating account")
	assert.Equal(t, "online", created.Status, "expected new accounts to start online")

	byEmail, err := db.GetAccountByEmail("NOVA@example.com")
	assert.NoError(t, err, "expected email lookup to be case-insensitive")
	assert.Equal(t, "user-9", byEmail.Id, "expected the created account")

	byName, err := db.GetAccountByUsername("nova")
	assert.NoError(t, err, "expected username lookup to be case-insensitive")
	assert.Equal(t, "user-9", byName.Id, "expected the created account")

	updated, err := db.UpdateAccount(UpdateAccountParams{
		UserId:   "user-9",
		Username: "NovaPrime",
		Status:   "idle",
	})
	assert.NoError(t, err, "expected no error updating account")
	assert.Equal(t, "NovaPrime", updated.Username, "expected username updated")

	err = db.DeactivateAccount("user-9")
	assert.NoError(t, err, "expected no error deactivating account")
	u, err := db.GetAccountById("user-9")
	assert.NoError(t, err, "expected deactivated account to remain readable")
	assert.True(t, u.Deactivated, "expected deactivated flag set")
	assert.Equal(t, "offline", u.Status, "expected deactivated account to go offline")

	_, err = db.GetAccountById("no-such-user")
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected no-rows sentinel for unknown account")

	err = db.DeactivateAccount("no-such-user")
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected no-rows sentinel for unknown account")
}

func TestMemLobbyRepositoryRooms(t *testing.T) {
	db := NewMemLobbyRepository()

	created, err := db.CreateRoom(CreateRoomParams{
		Id:      "room-201",
		Kind:    "voice",
		Name:    "Raid Night",
		OwnerId: "user-1",
	})
	assert.NoError(t, err, "expected no error creating room")
	assert.Equal(t, "user-1", created.OwnerId, "expected owner recorded")

	got, err := db.GetRoomById("room-201")
	assert.NoError(t, err, "expected no error fetching room")
	assert.Equal(t, "Raid Night", got.Name, "expected the created room")

	err = db.DeleteRoom("room-201")
	assert.NoError(t, err, "expected no error deleting room")

	_, err = db.GetRoomById("room-201")
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected no-rows sentinel after delete")

	err = db.DeleteRoom("room-201")
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected no-rows sentinel deleting twice")
}
