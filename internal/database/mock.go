package database

import (
	"github.com/stretchr/testify/mock"
)

type MockLobbyRepository struct {
	mock.Mock
}

func (m *MockLobbyRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockLobbyRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockLobbyRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockLobbyRepository) DeactivateAccount(userId string) error {
	args := m.Called(userId)
	return args.Error(0)
}

func (m *MockLobbyRepository) GetAccountById(userId string) (User, error) {
	args := m.Called(userId)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockLobbyRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockLobbyRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockLobbyRepository) ListAccounts() ([]User, error) {
	args := m.Called()
	return args.Get(0).([]User), args.Error(1)
}

func (m *MockLobbyRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockLobbyRepository) GetRoomById(roomId string) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockLobbyRepository) ListRooms() ([]Room, error) {
	args := m.Called()
	return args.Get(0).([]Room), args.Error(1)
}

func (m *MockLobbyRepository) DeleteRoom(roomId string) error {
	args := m.Called(roomId)
	return args.Error(0)
}
