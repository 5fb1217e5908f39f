package types

import "time"

type EventKind string

const (
	EventMessageAppended      EventKind = "message.appended"
	EventMessageEdited        EventKind = "message.edited"
	EventMessageDeleted       EventKind = "message.deleted"
	EventReactionToggled      EventKind = "reaction.toggled"
	EventPresenceChanged      EventKind = "presence.changed"
	EventSpeakerChanged       EventKind = "speaker.changed"
	EventNotificationCreated  EventKind = "notification.created"
	EventNotificationResolved EventKind = "notification.resolved"
	EventRoomCreated          EventKind = "room.created"
	EventRoomDeleted          EventKind = "room.deleted"
)

// Event is one entry in a subscriber's feed. RoomId is set for room-scoped
// events, UserId for user-scoped ones; an event may carry both (a presence
// change is scoped to the room but names the user it concerns).
type Event struct {
	Kind      EventKind `json:"kind"`
	RoomId    string    `json:"room_id,omitempty"`
	UserId    string    `json:"user_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageDeletedPayload struct {
	MessageId string `json:"message_id"`
}

type ReactionPayload struct {
	MessageId string     `json:"message_id"`
	Reactions []Reaction `json:"reactions"`
}

// PresencePayload is the full occupant snapshot of a lobby after a change,
// plus what changed.
type PresencePayload struct {
	RoomId    string     `json:"room_id"`
	UserId    string     `json:"user_id"`
	Present   bool       `json:"present"`
	Occupants []Occupant `json:"occupants"`
}

type SpeakerPayload struct {
	RoomId    string `json:"room_id"`
	SpeakerId string `json:"speaker_id,omitempty"`
}

type NotificationResolvedPayload struct {
	NotificationId string           `json:"notification_id"`
	Type           NotificationType `json:"type"`
	SenderId       string           `json:"sender_id"`
	Accepted       bool             `json:"accepted"`
	Data           NotificationData `json:"data,omitempty"`
}
