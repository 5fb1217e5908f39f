package engine

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/go-lobby/internal/database"
	"github.com/npezzotti/go-lobby/internal/stats"
	"github.com/npezzotti/go-lobby/internal/types"
	"github.com/teris-io/shortid"
)

// SessionHub is the validating gateway every client intent passes through.
// Each intent authorizes the actor, applies exactly one mutation to the
// owning store, synthesizes any side-effect notifications, and publishes the
// resulting event to subscribers of the affected room or user. A rejected
// intent mutates nothing.
type SessionHub struct {
	log      *log.Logger
	db       database.LobbyRepository
	stats    stats.StatsProvider
	messages *MessageStore
	presence *Tracker
	notifier *Dispatcher
	genId    func() (string, error)

	subsMu sync.RWMutex
	subs   map[string]*Subscriber
}

func NewSessionHub(logger *log.Logger, db database.LobbyRepository, su stats.StatsProvider, speakerInterval time.Duration) *SessionHub {
	h := &SessionHub{
		log:      logger,
		db:       db,
		stats:    su,
		messages: NewMessageStore(),
		notifier: NewDispatcher(logger),
		genId:    shortid.Generate,
		subs:     make(map[string]*Subscriber),
	}
	h.presence = NewTracker(logger, speakerInterval, h.publish, su)

	for _, name := range []string{
		stats.ActiveSubscribers,
		stats.ActiveLobbies,
		stats.MessagesTotal,
		stats.NotificationsTotal,
		stats.EventsPublished,
		stats.EventsDropped,
	} {
		su.RegisterMetric(name)
	}

	return h
}

// Shutdown stops background work. Subscribers are closed by their owners.
func (h *SessionHub) Shutdown() {
	h.log.Println("shutting down session hub")
	h.presence.Shutdown()
}

// Subscribe attaches a new event-feed subscriber for the user.
func (h *SessionHub) Subscribe(userId string) (*Subscriber, error) {
	if _, err := h.user(userId); err != nil {
		return nil, err
	}

	s := &Subscriber{
		id:     uuid.NewString(),
		userId: userId,
		hub:    h,
		rooms:  make(map[string]struct{}),
		feed:   make(chan types.Event, subscriberQueueSize),
	}

	h.subsMu.Lock()
	h.subs[s.id] = s
	h.subsMu.Unlock()

	h.stats.Incr(stats.ActiveSubscribers)
	h.log.Printf("added subscriber %q for user %q", s.id, userId)
	return s, nil
}

// publish fans the event out to every matching subscriber. Slow subscribers
// drop the event instead of blocking the mutation path.
func (h *SessionHub) publish(ev types.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	h.subsMu.RLock()
	defer h.subsMu.RUnlock()

	h.stats.Incr(stats.EventsPublished)
	for _, s := range h.subs {
		if !s.wants(ev) {
			continue
		}
		if !s.offer(ev) {
			h.stats.Incr(stats.EventsDropped)
			h.log.Printf("dropped %s event for subscriber %q", ev.Kind, s.id)
		}
	}
}

// user resolves an active account.
func (h *SessionHub) user(userId string) (types.User, error) {
	u, err := h.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, NewNotFoundError("user %q not found", userId)
		}
		return types.User{}, err
	}
	if u.Deactivated {
		return types.User{}, NewForbiddenError("user %q is deactivated", userId)
	}

	return toUser(u), nil
}

func (h *SessionHub) room(roomId string) (types.Room, error) {
	r, err := h.db.GetRoomById(roomId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Room{}, NewNotFoundError("room %q not found", roomId)
		}
		return types.Room{}, err
	}

	return toRoom(r), nil
}

// roomForPresence resolves a room and repairs stale presence state when the
// directory no longer knows the room: the lobby is evicted rather than the
// inconsistency surfacing to the caller as a raw failure.
func (h *SessionHub) roomForPresence(roomId string) (types.Room, error) {
	room, err := h.room(roomId)
	if err != nil && IsNotFound(err) {
		if evicted := h.presence.EvictRoom(roomId); len(evicted) > 0 {
			h.log.Printf("invariant: evicted %d presence entries for deleted room %q", len(evicted), roomId)
			for _, userId := range evicted {
				h.publishPresence(roomId, userId, false, nil)
			}
		}
	}
	return room, err
}

// --- messages ---

// SendMessage appends a message to the room's log and notifies any
// mentioned users.
func (h *SessionHub) SendMessage(actorId, roomId, content string, attachment *types.Attachment, replyTo string) (types.Message, error) {
	actor, err := h.user(actorId)
	if err != nil {
		return types.Message{}, err
	}
	room, err := h.room(roomId)
	if err != nil {
		return types.Message{}, err
	}

	msg, err := h.messages.Append(room.Id, actor.Id, content, attachment, replyTo)
	if err != nil {
		return types.Message{}, err
	}
	h.stats.Incr(stats.MessagesTotal)

	h.notifyMentions(actor, room, msg)

	rendered := h.attachAuthors([]types.Message{msg})[0]
	h.publish(types.Event{
		Kind:    types.EventMessageAppended,
		RoomId:  room.Id,
		Payload: rendered,
	})

	return rendered, nil
}

// notifyMentions sends a mention notification to every user whose
// @username appears in the message body.
func (h *SessionHub) notifyMentions(actor types.User, room types.Room, msg types.Message) {
	for _, username := range parseMentions(msg.Content) {
		u, err := h.db.GetAccountByUsername(username)
		if err != nil || u.Deactivated || u.Id == actor.Id {
			continue
		}

		n, err := h.notifier.Send(types.NotificationMention, actor.Id, u.Id, types.NotificationData{
			RoomId:    room.Id,
			RoomName:  room.Name,
			MessageId: msg.Id,
		})
		if err != nil {
			h.log.Printf("send mention notification: %v", err)
			continue
		}
		h.stats.Incr(stats.NotificationsTotal)
		h.publish(types.Event{
			Kind:    types.EventNotificationCreated,
			UserId:  u.Id,
			Payload: n,
		})
	}
}

// parseMentions extracts the usernames of @mentions from a message body.
func parseMentions(content string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, field := range strings.Fields(content) {
		if !strings.HasPrefix(field, "@") {
			continue
		}
		name := strings.TrimFunc(field[1:], func(r rune) bool {
			return strings.ContainsRune(".,!?:;'\")(", r)
		})
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

// EditMessage replaces a message body. Author only.
func (h *SessionHub) EditMessage(actorId, messageId, newContent string) (types.Message, error) {
	if _, err := h.user(actorId); err != nil {
		return types.Message{}, err
	}

	msg, err := h.messages.Edit(messageId, actorId, newContent)
	if err != nil {
		return types.Message{}, err
	}

	rendered := h.attachAuthors([]types.Message{msg})[0]
	h.publish(types.Event{
		Kind:    types.EventMessageEdited,
		RoomId:  msg.RoomId,
		Payload: rendered,
	})

	return rendered, nil
}

// DeleteMessage removes a message. Author only. Replies to it survive and
// resolve to not-found.
func (h *SessionHub) DeleteMessage(actorId, messageId string) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}

	msg, err := h.messages.Get(messageId)
	if err != nil {
		return err
	}

	if err := h.messages.Delete(messageId, actorId); err != nil {
		return err
	}

	h.publish(types.Event{
		Kind:    types.EventMessageDeleted,
		RoomId:  msg.RoomId,
		Payload: types.MessageDeletedPayload{MessageId: messageId},
	})

	return nil
}

// ToggleReaction flips the actor's reaction on a message.
func (h *SessionHub) ToggleReaction(actorId, messageId, emoji string) (types.Message, error) {
	if _, err := h.user(actorId); err != nil {
		return types.Message{}, err
	}

	msg, err := h.messages.ToggleReaction(messageId, actorId, emoji)
	if err != nil {
		return types.Message{}, err
	}

	h.publish(types.Event{
		Kind:   types.EventReactionToggled,
		RoomId: msg.RoomId,
		Payload: types.ReactionPayload{
			MessageId: msg.Id,
			Reactions: msg.Reactions,
		},
	})

	return msg, nil
}

// History returns a page of the room's log, oldest first, with authors
// resolved to their current profiles.
func (h *SessionHub) History(roomId string, beforeSeq, limit int) ([]types.Message, error) {
	if _, err := h.room(roomId); err != nil {
		return nil, err
	}

	msgs, err := h.messages.List(roomId, beforeSeq, limit)
	if err != nil {
		return nil, err
	}

	return h.attachAuthors(msgs), nil
}

// attachAuthors resolves each message's author reference against the live
// user table, so renames and premium changes show on old messages.
func (h *SessionHub) attachAuthors(msgs []types.Message) []types.Message {
	cache := make(map[string]*types.User)
	for i := range msgs {
		authorId := msgs[i].AuthorId
		author, ok := cache[authorId]
		if !ok {
			if u, err := h.db.GetAccountById(authorId); err == nil {
				converted := toUser(u)
				author = &converted
			}
			cache[authorId] = author
		}
		msgs[i].Author = author
	}
	return msgs
}

// --- presence ---

// JoinLobby moves the actor into a voice room, vacating their previous one.
func (h *SessionHub) JoinLobby(actorId, roomId, password string) ([]types.Occupant, error) {
	actor, err := h.user(actorId)
	if err != nil {
		return nil, err
	}
	room, err := h.room(roomId)
	if err != nil {
		return nil, err
	}

	res, err := h.presence.Join(actor, room, password)
	if err != nil {
		return nil, err
	}

	if res.Rejoined {
		return res.Occupants, nil
	}

	if res.PrevRoomId != "" {
		h.publishPresence(res.PrevRoomId, actorId, false, res.PrevOccupants)
	}
	h.publishPresence(room.Id, actorId, true, res.Occupants)

	return res.Occupants, nil
}

// LeaveLobby vacates the actor's current voice room.
func (h *SessionHub) LeaveLobby(actorId string) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}

	roomId, occupants, err := h.presence.Leave(actorId)
	if err != nil {
		return err
	}

	h.publishPresence(roomId, actorId, false, occupants)
	return nil
}

// KickFromLobby removes the target from the room. Room owner only.
func (h *SessionHub) KickFromLobby(actorId, roomId, targetId string) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}
	room, err := h.roomForPresence(roomId)
	if err != nil {
		return err
	}

	occupants, err := h.presence.Kick(room, actorId, targetId)
	if err != nil {
		return err
	}

	h.publishPresence(room.Id, targetId, false, occupants)
	return nil
}

// SetServerMute toggles the target's server-mute flag. Room owner only.
func (h *SessionHub) SetServerMute(actorId, roomId, targetId string, muted bool) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}
	room, err := h.roomForPresence(roomId)
	if err != nil {
		return err
	}

	occupants, err := h.presence.SetServerMute(room, actorId, targetId, muted)
	if err != nil {
		return err
	}

	h.publishPresence(room.Id, targetId, true, occupants)
	return nil
}

// SetMediaFlags sets the actor's own mute/deafen/camera/stream flags.
func (h *SessionHub) SetMediaFlags(actorId, roomId string, flags MediaFlags) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}

	occupants, err := h.presence.SetMediaFlags(roomId, actorId, flags)
	if err != nil {
		return err
	}

	h.publishPresence(roomId, actorId, true, occupants)
	return nil
}

// SetLobbyNickname sets the actor's own nickname in the lobby.
func (h *SessionHub) SetLobbyNickname(actorId, roomId, nickname string) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}

	occupants, err := h.presence.SetNickname(roomId, actorId, nickname)
	if err != nil {
		return err
	}

	h.publishPresence(roomId, actorId, true, occupants)
	return nil
}

// Occupants returns the room's current lobby membership.
func (h *SessionHub) Occupants(roomId string) []types.Occupant {
	return h.presence.Occupants(roomId)
}

func (h *SessionHub) publishPresence(roomId, userId string, present bool, occupants []types.Occupant) {
	h.publish(types.Event{
		Kind:   types.EventPresenceChanged,
		RoomId: roomId,
		UserId: userId,
		Payload: types.PresencePayload{
			RoomId:    roomId,
			UserId:    userId,
			Present:   present,
			Occupants: occupants,
		},
	})
}

// --- notifications ---

// InviteToLobby sends a lobby-invite notification to the recipient. The
// recipient's presence is untouched until they act on it.
func (h *SessionHub) InviteToLobby(actorId, roomId, recipientId string) (types.Notification, error) {
	actor, err := h.user(actorId)
	if err != nil {
		return types.Notification{}, err
	}
	recipient, err := h.user(recipientId)
	if err != nil {
		return types.Notification{}, err
	}
	room, err := h.roomForPresence(roomId)
	if err != nil {
		return types.Notification{}, err
	}
	if room.Kind != types.RoomVoice {
		return types.Notification{}, NewConflictError(ReasonNotVoiceRoom, "room %q is not a voice room", room.Id)
	}

	return h.sendNotification(types.NotificationLobbyInvite, actor.Id, recipient.Id, types.NotificationData{
		RoomId:   room.Id,
		RoomName: room.Name,
	})
}

// SendFriendRequest sends a friend-request notification.
func (h *SessionHub) SendFriendRequest(actorId, recipientId string) (types.Notification, error) {
	actor, err := h.user(actorId)
	if err != nil {
		return types.Notification{}, err
	}
	if actorId == recipientId {
		return types.Notification{}, NewForbiddenError("user %q cannot befriend themself", actorId)
	}
	recipient, err := h.user(recipientId)
	if err != nil {
		return types.Notification{}, err
	}

	return h.sendNotification(types.NotificationFriendRequest, actor.Id, recipient.Id, types.NotificationData{})
}

// RequestLfgJoin notifies a post author that the actor wants to join their
// group. Matching is the caller's business; the engine only carries the
// request.
func (h *SessionHub) RequestLfgJoin(actorId, recipientId, postId, postTitle string) (types.Notification, error) {
	actor, err := h.user(actorId)
	if err != nil {
		return types.Notification{}, err
	}
	recipient, err := h.user(recipientId)
	if err != nil {
		return types.Notification{}, err
	}

	return h.sendNotification(types.NotificationLfgJoinRequest, actor.Id, recipient.Id, types.NotificationData{
		PostId:    postId,
		PostTitle: postTitle,
	})
}

func (h *SessionHub) sendNotification(typ types.NotificationType, senderId, recipientId string, data types.NotificationData) (types.Notification, error) {
	n, err := h.notifier.Send(typ, senderId, recipientId, data)
	if err != nil {
		return types.Notification{}, err
	}

	h.stats.Incr(stats.NotificationsTotal)
	h.publish(types.Event{
		Kind:    types.EventNotificationCreated,
		UserId:  recipientId,
		Payload: n,
	})

	return n, nil
}

// ResolveNotification removes the notification from the actor's inbox and
// surfaces the accept/decline outcome to the original sender.
func (h *SessionHub) ResolveNotification(actorId, notificationId string, accept bool) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}

	n, err := h.notifier.Resolve(actorId, notificationId)
	if err != nil {
		return err
	}

	payload := types.NotificationResolvedPayload{
		NotificationId: n.Id,
		Type:           n.Type,
		SenderId:       n.SenderId,
		Accepted:       accept,
		Data:           n.Data,
	}
	h.publish(types.Event{
		Kind:    types.EventNotificationResolved,
		UserId:  actorId,
		Payload: payload,
	})

	switch n.Type {
	case types.NotificationFriendRequest, types.NotificationLfgJoinRequest:
		h.publish(types.Event{
			Kind:    types.EventNotificationResolved,
			UserId:  n.SenderId,
			Payload: payload,
		})
	}

	return nil
}

// MarkNotificationRead flags one notification read.
func (h *SessionHub) MarkNotificationRead(actorId, notificationId string) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}
	return h.notifier.MarkRead(actorId, notificationId)
}

// MarkAllNotificationsRead flags the actor's whole inbox read.
func (h *SessionHub) MarkAllNotificationsRead(actorId string) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}
	h.notifier.MarkAllRead(actorId)
	return nil
}

// Notifications lists the actor's inbox, unread first.
func (h *SessionHub) Notifications(actorId string) ([]types.Notification, error) {
	if _, err := h.user(actorId); err != nil {
		return nil, err
	}
	return h.notifier.List(actorId), nil
}

// --- rooms ---

type CreateLobbyParams struct {
	Name        string
	Kind        types.RoomKind
	Topic       string
	Password    string
	MemberLimit int
	GameTag     string
}

// CreateLobby creates a room owned by the actor.
func (h *SessionHub) CreateLobby(actorId string, params CreateLobbyParams) (types.Room, error) {
	actor, err := h.user(actorId)
	if err != nil {
		return types.Room{}, err
	}

	id, err := h.genId()
	if err != nil {
		return types.Room{}, err
	}

	kind := params.Kind
	if kind == "" {
		kind = types.RoomVoice
	}

	dbRoom, err := h.db.CreateRoom(database.CreateRoomParams{
		Id:          id,
		Kind:        string(kind),
		Name:        params.Name,
		Topic:       params.Topic,
		OwnerId:     actor.Id,
		Password:    params.Password,
		MemberLimit: params.MemberLimit,
		GameTag:     params.GameTag,
	})
	if err != nil {
		return types.Room{}, err
	}

	room := toRoom(dbRoom)
	h.publish(types.Event{
		Kind:    types.EventRoomCreated,
		Payload: room,
	})

	return room, nil
}

// DeleteLobby deletes a room the actor owns. Built-in rooms with no owner
// cannot be deleted. Deletion cascades to presence entries and the
// message log.
func (h *SessionHub) DeleteLobby(actorId, roomId string) error {
	if _, err := h.user(actorId); err != nil {
		return err
	}
	room, err := h.room(roomId)
	if err != nil {
		return err
	}

	if room.OwnerId == "" {
		return NewForbiddenError("room %q has no owner and cannot be deleted", roomId)
	}
	if room.OwnerId != actorId {
		return NewForbiddenError("user %q is not the owner of room %q", actorId, roomId)
	}

	if err := h.db.DeleteRoom(roomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewNotFoundError("room %q not found", roomId)
		}
		return err
	}

	evicted := h.presence.EvictRoom(roomId)
	for _, userId := range evicted {
		h.publishPresence(roomId, userId, false, nil)
	}
	h.messages.DropRoom(roomId)

	h.publish(types.Event{
		Kind:    types.EventRoomDeleted,
		Payload: map[string]any{"room_id": roomId},
	})

	return nil
}

// Rooms lists the directory.
func (h *SessionHub) Rooms() ([]types.Room, error) {
	dbRooms, err := h.db.ListRooms()
	if err != nil {
		return nil, err
	}

	rooms := make([]types.Room, len(dbRooms))
	for i, r := range dbRooms {
		rooms[i] = toRoom(r)
	}
	return rooms, nil
}

// Room returns one room from the directory.
func (h *SessionHub) Room(roomId string) (types.Room, error) {
	return h.room(roomId)
}

// --- model conversion ---

func toUser(u database.User) types.User {
	return types.User{
		Id:            u.Id,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		AvatarUrl:     u.AvatarUrl,
		Status:        types.UserStatus(u.Status),
		Bio:           u.Bio,
		FavoriteTags:  u.FavoriteTags,
		Premium:       u.Premium,
		Deactivated:   u.Deactivated,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toRoom(r database.Room) types.Room {
	return types.Room{
		Id:                 r.Id,
		Kind:               types.RoomKind(r.Kind),
		Name:               r.Name,
		Topic:              r.Topic,
		OwnerId:            r.OwnerId,
		Password:           r.Password,
		Protected:          r.Password != "",
		MemberLimit:        r.MemberLimit,
		StreamPermRequired: r.StreamPermRequired,
		GameTag:            r.GameTag,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
