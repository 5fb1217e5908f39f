package database

type LobbyRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	DeactivateAccount(userId string) error
	GetAccountById(userId string) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetAccountByUsername(username string) (User, error)
	ListAccounts() ([]User, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomById(roomId string) (Room, error)
	ListRooms() ([]Room, error)
	DeleteRoom(roomId string) error
}
