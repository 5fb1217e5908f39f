package api

import (
	"net/http"
	"time"

	"github.com/npezzotti/go-lobby/internal/engine"
	"github.com/npezzotti/go-lobby/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the tagged union a websocket client sends. Exactly one
// of the pointer fields is expected to be set.
type ClientMessage struct {
	BaseMessage
	Publish       *Publish       `json:"publish,omitempty"`
	Edit          *Edit          `json:"edit,omitempty"`
	Delete        *Delete        `json:"delete,omitempty"`
	React         *React         `json:"react,omitempty"`
	Join          *Join          `json:"join,omitempty"`
	Leave         *Leave         `json:"leave,omitempty"`
	Kick          *Kick          `json:"kick,omitempty"`
	ServerMute    *ServerMute    `json:"server_mute,omitempty"`
	Media         *Media         `json:"media,omitempty"`
	Nickname      *Nickname      `json:"nickname,omitempty"`
	Invite        *Invite        `json:"invite,omitempty"`
	FriendRequest *FriendRequest `json:"friend_request,omitempty"`
	LfgRequest    *LfgRequest    `json:"lfg_request,omitempty"`
	Resolve       *Resolve       `json:"resolve,omitempty"`
	MarkRead      *MarkRead      `json:"mark_read,omitempty"`
	Watch         *Watch         `json:"watch,omitempty"`
	Unwatch       *Watch         `json:"unwatch,omitempty"`
	UserId        string         `json:"-"`
}

type Publish struct {
	RoomId     string            `json:"room_id"`
	Content    string            `json:"content"`
	Attachment *types.Attachment `json:"attachment,omitempty"`
	ReplyTo    string            `json:"reply_to,omitempty"`
}

type Edit struct {
	MessageId string `json:"message_id"`
	Content   string `json:"content"`
}

type Delete struct {
	MessageId string `json:"message_id"`
}

type React struct {
	MessageId string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type Join struct {
	RoomId   string `json:"room_id"`
	Password string `json:"password,omitempty"`
}

type Leave struct{}

type Kick struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
}

type ServerMute struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
	Muted  bool   `json:"muted"`
}

type Media struct {
	RoomId string `json:"room_id"`
	engine.MediaFlags
}

type Nickname struct {
	RoomId   string `json:"room_id"`
	Nickname string `json:"nickname"`
}

type Invite struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
}

type FriendRequest struct {
	UserId string `json:"user_id"`
}

type LfgRequest struct {
	UserId    string `json:"user_id"`
	PostId    string `json:"post_id"`
	PostTitle string `json:"post_title"`
}

type Resolve struct {
	NotificationId string `json:"notification_id"`
	Accept         bool   `json:"accept"`
}

type MarkRead struct {
	NotificationId string `json:"notification_id,omitempty"`
	All            bool   `json:"all,omitempty"`
}

type Watch struct {
	RoomId string `json:"room_id"`
}

// ServerMessage is what the server writes back: either a response to a
// client message or an event from the hub's feed.
type ServerMessage struct {
	BaseMessage
	Response *Response    `json:"response,omitempty"`
	Event    *types.Event `json:"event,omitempty"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message",
		},
	}
}

// ErrFor wraps a hub error in a response, reusing the HTTP status mapping.
func ErrFor(id int, err error) *ServerMessage {
	apiErr := apiErrorFor(err)
	resp := &Response{
		ResponseCode: apiErr.StatusCode,
		Error:        apiErr.Message,
	}
	if reason := engine.ConflictReason(err); reason != "" {
		resp.Data = map[string]any{"reason": string(reason)}
	}

	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: resp,
	}
}

func EventMessage(ev types.Event) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: ev.Timestamp,
		},
		Event: &ev,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
