package types

import (
	"time"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusIdle    UserStatus = "idle"
	StatusDnd     UserStatus = "dnd"
	StatusOffline UserStatus = "offline"
)

type User struct {
	Id            string     `json:"id"`
	Username      string     `json:"username"`
	Discriminator string     `json:"discriminator"`
	AvatarUrl     string     `json:"avatar_url,omitempty"`
	Status        UserStatus `json:"status"`
	Bio           string     `json:"bio,omitempty"`
	FavoriteTags  []string   `json:"favorite_tags,omitempty"`
	Premium       bool       `json:"premium,omitempty"`
	Deactivated   bool       `json:"deactivated,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
}

type RoomKind string

const (
	RoomText  RoomKind = "text"
	RoomVoice RoomKind = "voice"
)

type Room struct {
	Id                 string    `json:"id"`
	Kind               RoomKind  `json:"kind"`
	Name               string    `json:"name"`
	Topic              string    `json:"topic,omitempty"`
	OwnerId            string    `json:"owner_id,omitempty"`
	Password           string    `json:"-"`
	Protected          bool      `json:"protected,omitempty"`
	MemberLimit        int       `json:"member_limit,omitempty"`
	StreamPermRequired bool      `json:"stream_perm_required,omitempty"`
	GameTag            string    `json:"game_tag,omitempty"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
)

type Attachment struct {
	Url  string         `json:"url"`
	Kind AttachmentKind `json:"kind"`
	Name string         `json:"name,omitempty"`
}

// Reaction holds the set of users who applied one emoji to a message.
type Reaction struct {
	Emoji   string   `json:"emoji"`
	UserIds []string `json:"user_ids"`
}

// ReplyRef is a reply target resolved at read time. NotFound is set when
// the target message has since been deleted.
type ReplyRef struct {
	MessageId string `json:"message_id"`
	AuthorId  string `json:"author_id,omitempty"`
	Preview   string `json:"preview,omitempty"`
	NotFound  bool   `json:"not_found,omitempty"`
}

type Message struct {
	Id         string      `json:"id"`
	SeqId      int         `json:"seq_id"`
	RoomId     string      `json:"room_id"`
	AuthorId   string      `json:"author_id"`
	Author     *User       `json:"author,omitempty"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	ReplyTo    *ReplyRef   `json:"reply_to,omitempty"`
	Reactions  []Reaction  `json:"reactions,omitempty"`
	Edited     bool        `json:"edited,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationLobbyInvite    NotificationType = "lobby_invite"
	NotificationLfgJoinRequest NotificationType = "lfg_join_request"
	NotificationMention        NotificationType = "mention"
)

// NotificationData carries the type-specific payload of a notification.
type NotificationData struct {
	RoomId    string `json:"room_id,omitempty"`
	RoomName  string `json:"room_name,omitempty"`
	PostId    string `json:"post_id,omitempty"`
	PostTitle string `json:"post_title,omitempty"`
	MessageId string `json:"message_id,omitempty"`
}

type Notification struct {
	Id          string           `json:"id"`
	Type        NotificationType `json:"type"`
	SenderId    string           `json:"sender_id"`
	RecipientId string           `json:"recipient_id"`
	Read        bool             `json:"read"`
	Data        NotificationData `json:"data,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Occupant is one user's entry in a voice lobby.
type Occupant struct {
	UserId      string    `json:"user_id"`
	Nickname    string    `json:"nickname,omitempty"`
	ServerMuted bool      `json:"server_muted,omitempty"`
	Muted       bool      `json:"muted,omitempty"`
	Deafened    bool      `json:"deafened,omitempty"`
	CameraOn    bool      `json:"camera_on,omitempty"`
	Streaming   bool      `json:"streaming,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}
