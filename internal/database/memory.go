package database

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MemLobbyRepository is an in-memory repository seeded with demo accounts
// and rooms so the server can run without a database.
type MemLobbyRepository struct {
	mu       sync.RWMutex
	accounts map[string]User
	rooms    map[string]Room
}

const seedPassword = "password123"

func NewMemLobbyRepository() *MemLobbyRepository {
	repo := &MemLobbyRepository{
		accounts: make(map[string]User),
		rooms:    make(map[string]Room),
	}
	repo.seed()
	return repo
}

func (db *MemLobbyRepository) seed() {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		panic("seed password hash: " + err.Error())
	}

	now := time.Now().UTC()
	seedUsers := []User{
		{Id: "user-1", Username: "Vortex", Discriminator: "1234", Status: "online", Bio: "Just a gamer trying to find my way.", FavoriteTags: []string{"Apex Legends", "Valheim"}},
		{Id: "user-2", Username: "Phoenix", Discriminator: "5678", Status: "online", Bio: "Competitive FPS player.", FavoriteTags: []string{"Valorant"}, Premium: true},
		{Id: "user-3", Username: "Luna", Discriminator: "9012", Status: "online", Bio: "Loves cozy and survival games.", FavoriteTags: []string{"Stardew Valley", "Valheim"}},
		{Id: "user-4", Username: "Rogue", Discriminator: "3456", Status: "idle", Bio: "Stealth game enthusiast."},
	}
	for _, u := range seedUsers {
		u.EmailAddress = strings.ToLower(u.Username) + "@example.com"
		u.PasswordHash = string(hash)
		u.CreatedAt = now
		u.UpdatedAt = now
		db.accounts[u.Id] = u
	}

	seedRooms := []Room{
		{Id: "room-1", Kind: "text", Name: "general"},
		{Id: "room-2", Kind: "text", Name: "random"},
		{Id: "room-101", Kind: "voice", Name: "Lobby", Topic: "General chit-chat"},
		{Id: "room-102", Kind: "voice", Name: "Apex Legends", Topic: "Ranked Grind", GameTag: "Apex Legends"},
		{Id: "room-103", Kind: "voice", Name: "Valheim", Topic: "Building & Exploring", Password: seedPassword, GameTag: "Valheim"},
	}
	for _, r := range seedRooms {
		r.CreatedAt = now
		r.UpdatedAt = now
		db.rooms[r.Id] = r
	}
}

func (db *MemLobbyRepository) Ping() error { return nil }

func (db *MemLobbyRepository) CreateAccount(params CreateAccountParams) (User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	u := User{
		Id:            params.Id,
		Username:      params.Username,
		Discriminator: params.Discriminator,
		EmailAddress:  params.EmailAddress,
		PasswordHash:  params.PasswordHash,
		AvatarUrl:     params.AvatarUrl,
		Status:        "online",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	db.accounts[u.Id] = u

	return u, nil
}

func (db *MemLobbyRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.accounts[params.UserId]
	if !ok {
		return User{}, sql.ErrNoRows
	}

	u.Username = params.Username
	u.AvatarUrl = params.AvatarUrl
	u.Bio = params.Bio
	u.FavoriteTags = params.FavoriteTags
	u.Status = params.Status
	u.UpdatedAt = time.Now().UTC()
	db.accounts[u.Id] = u

	return u, nil
}

func (db *MemLobbyRepository) DeactivateAccount(userId string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.accounts[userId]
	if !ok {
		return sql.ErrNoRows
	}

	u.Deactivated = true
	u.Status = "offline"
	u.UpdatedAt = time.Now().UTC()
	db.accounts[userId] = u

	return nil
}

func (db *MemLobbyRepository) GetAccountById(userId string) (User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	u, ok := db.accounts[userId]
	if !ok {
		return User{}, sql.ErrNoRows
	}

	return u, nil
}

func (db *MemLobbyRepository) GetAccountByEmail(email string) (User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.accounts {
		if strings.EqualFold(u.EmailAddress, email) {
			return u, nil
		}
	}

	return User{}, sql.ErrNoRows
}

func (db *MemLobbyRepository) GetAccountByUsername(username string) (User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.accounts {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}

	return User{}, sql.ErrNoRows
}

func (db *MemLobbyRepository) ListAccounts() ([]User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	users := make([]User, 0, len(db.accounts))
	for _, u := range db.accounts {
		users = append(users, u)
	}

	return users, nil
}

func (db *MemLobbyRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	r := Room{
		Id:          params.Id,
		Kind:        params.Kind,
		Name:        params.Name,
		Topic:       params.Topic,
		OwnerId:     params.OwnerId,
		Password:    params.Password,
		MemberLimit: params.MemberLimit,
		GameTag:     params.GameTag,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	db.rooms[r.Id] = r

	return r, nil
}

func (db *MemLobbyRepository) GetRoomById(roomId string) (Room, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	r, ok := db.rooms[roomId]
	if !ok {
		return Room{}, sql.ErrNoRows
	}

	return r, nil
}

func (db *MemLobbyRepository) ListRooms() ([]Room, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rooms := make([]Room, 0, len(db.rooms))
	for _, r := range db.rooms {
		rooms = append(rooms, r)
	}

	return rooms, nil
}

func (db *MemLobbyRepository) DeleteRoom(roomId string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.rooms[roomId]; !ok {
		return sql.ErrNoRows
	}
	delete(db.rooms, roomId)

	return nil
}
