package database

import "time"

type User struct {
	Id            string
	Username      string
	Discriminator string
	EmailAddress  string
	PasswordHash  string
	AvatarUrl     string
	Status        string
	Bio           string
	FavoriteTags  []string
	Premium       bool
	Deactivated   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Room struct {
	Id                 string
	Kind               string
	Name               string
	Topic              string
	OwnerId            string
	Password           string
	MemberLimit        int
	StreamPermRequired bool
	GameTag            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type CreateAccountParams struct {
	Id            string
	Username      string
	Discriminator string
	EmailAddress  string
	PasswordHash  string
	AvatarUrl     string
}

type UpdateAccountParams struct {
	UserId       string
	Username     string
	AvatarUrl    string
	Bio          string
	FavoriteTags []string
	Status       string
}

type CreateRoomParams struct {
	Id          string
	Kind        string
	Name        string
	Topic       string
	OwnerId     string
	Password    string
	MemberLimit int
	GameTag     string
}
