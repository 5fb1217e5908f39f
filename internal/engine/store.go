package engine

import (
	"sync"
	"time"

	"github.com/npezzotti/go-lobby/internal/types"
	"github.com/teris-io/shortid"
)

const replyPreviewLen = 80

// MessageStore owns the ordered message log of every room. Appends serialize
// per room, mutations of a single message serialize per message, and
// operations on different messages proceed independently.
type MessageStore struct {
	mu    sync.RWMutex
	rooms map[string]*roomLog
	// index maps message id to its room's log
	index map[string]*roomLog
	genId func() (string, error)
}

type roomLog struct {
	mu    sync.RWMutex
	seq   int
	order []*message
	byId  map[string]*message
}

type message struct {
	mu         sync.Mutex
	id         string
	roomId     string
	authorId   string
	seq        int
	content    string
	attachment *types.Attachment
	replyTo    string
	createdAt  time.Time
	edited     bool
	deleted    bool
	reactions  []types.Reaction
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		rooms: make(map[string]*roomLog),
		index: make(map[string]*roomLog),
		genId: shortid.Generate,
	}
}

func (ms *MessageStore) roomLogFor(roomId string, create bool) *roomLog {
	ms.mu.RLock()
	rl := ms.rooms[roomId]
	ms.mu.RUnlock()
	if rl != nil || !create {
		return rl
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if rl = ms.rooms[roomId]; rl == nil {
		rl = &roomLog{byId: make(map[string]*message)}
		ms.rooms[roomId] = rl
	}
	return rl
}

// findMessage returns the room log and live message for id.
func (ms *MessageStore) findMessage(messageId string) (*roomLog, *message, error) {
	ms.mu.RLock()
	rl := ms.index[messageId]
	ms.mu.RUnlock()
	if rl == nil {
		return nil, nil, NewNotFoundError("message %q not found", messageId)
	}

	rl.mu.RLock()
	m := rl.byId[messageId]
	rl.mu.RUnlock()
	if m == nil {
		return nil, nil, NewNotFoundError("message %q not found", messageId)
	}

	return rl, m, nil
}

// Append adds a message to the end of the room's log. The order admitted
// here is the order List returns forever after.
func (ms *MessageStore) Append(roomId, authorId, content string, attachment *types.Attachment, replyTo string) (types.Message, error) {
	id, err := ms.genId()
	if err != nil {
		return types.Message{}, err
	}

	rl := ms.roomLogFor(roomId, true)

	rl.mu.Lock()
	if replyTo != "" {
		if _, ok := rl.byId[replyTo]; !ok {
			rl.mu.Unlock()
			return types.Message{}, NewNotFoundError("reply target %q not found in room %q", replyTo, roomId)
		}
	}

	rl.seq++
	m := &message{
		id:         id,
		roomId:     roomId,
		authorId:   authorId,
		seq:        rl.seq,
		content:    content,
		attachment: attachment,
		replyTo:    replyTo,
		createdAt:  time.Now().UTC(),
	}
	rl.order = append(rl.order, m)
	rl.byId[m.id] = m
	rl.mu.Unlock()

	ms.mu.Lock()
	ms.index[m.id] = rl
	ms.mu.Unlock()

	snap := m.snapshot()
	rl.mu.RLock()
	resolveReply(rl, &snap)
	rl.mu.RUnlock()
	return snap, nil
}

func (ms *MessageStore) Get(messageId string) (types.Message, error) {
	rl, m, err := ms.findMessage(messageId)
	if err != nil {
		return types.Message{}, err
	}

	snap := m.snapshot()
	if snap.Id == "" {
		return types.Message{}, NewNotFoundError("message %q not found", messageId)
	}

	rl.mu.RLock()
	resolveReply(rl, &snap)
	rl.mu.RUnlock()
	return snap, nil
}

// Edit replaces the body of a message. Only the original author may edit.
func (ms *MessageStore) Edit(messageId, actorId, newContent string) (types.Message, error) {
	_, m, err := ms.findMessage(messageId)
	if err != nil {
		return types.Message{}, err
	}

	if m.authorId != actorId {
		return types.Message{}, NewForbiddenError("user %q is not the author of message %q", actorId, messageId)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted {
		return types.Message{}, NewNotFoundError("message %q not found", messageId)
	}

	m.content = newContent
	m.edited = true
	return m.snapshotLocked(), nil
}

// Delete removes a message from the log. Replies referencing it keep their
// reference and resolve to not-found afterwards.
func (ms *MessageStore) Delete(messageId, actorId string) error {
	rl, m, err := ms.findMessage(messageId)
	if err != nil {
		return err
	}

	if m.authorId != actorId {
		return NewForbiddenError("user %q is not the author of message %q", actorId, messageId)
	}

	rl.mu.Lock()
	if _, ok := rl.byId[messageId]; !ok {
		rl.mu.Unlock()
		return NewNotFoundError("message %q not found", messageId)
	}
	delete(rl.byId, messageId)
	for i, cur := range rl.order {
		if cur == m {
			rl.order = append(rl.order[:i], rl.order[i+1:]...)
			break
		}
	}
	rl.mu.Unlock()

	ms.mu.Lock()
	delete(ms.index, messageId)
	ms.mu.Unlock()

	m.mu.Lock()
	m.deleted = true
	m.mu.Unlock()

	return nil
}

// ToggleReaction adds the actor to the emoji's user set if absent, removes
// them if present, and prunes entries with no users left. Toggling twice is
// a no-op.
func (ms *MessageStore) ToggleReaction(messageId, actorId, emoji string) (types.Message, error) {
	_, m, err := ms.findMessage(messageId)
	if err != nil {
		return types.Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted {
		return types.Message{}, NewNotFoundError("message %q not found", messageId)
	}

	idx := -1
	for i, r := range m.reactions {
		if r.Emoji == emoji {
			idx = i
			break
		}
	}

	if idx == -1 {
		m.reactions = append(m.reactions, types.Reaction{Emoji: emoji, UserIds: []string{actorId}})
		return m.snapshotLocked(), nil
	}

	r := m.reactions[idx]
	userIdx := -1
	for i, uid := range r.UserIds {
		if uid == actorId {
			userIdx = i
			break
		}
	}

	if userIdx == -1 {
		r.UserIds = append(r.UserIds, actorId)
		m.reactions[idx] = r
	} else {
		r.UserIds = append(r.UserIds[:userIdx], r.UserIds[userIdx+1:]...)
		if len(r.UserIds) == 0 {
			m.reactions = append(m.reactions[:idx], m.reactions[idx+1:]...)
		} else {
			m.reactions[idx] = r
		}
	}

	return m.snapshotLocked(), nil
}

// List returns up to limit messages with seq below beforeSeq in append
// order. A beforeSeq of zero starts from the newest message. The page is a
// stable snapshot; restart from the first returned SeqId to page further
// back.
func (ms *MessageStore) List(roomId string, beforeSeq, limit int) ([]types.Message, error) {
	rl := ms.roomLogFor(roomId, false)
	if rl == nil {
		return nil, nil
	}

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	end := len(rl.order)
	if beforeSeq > 0 {
		for end > 0 && rl.order[end-1].seq >= beforeSeq {
			end--
		}
	}

	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}

	page := make([]types.Message, 0, end-start)
	for _, m := range rl.order[start:end] {
		snap := m.snapshot()
		if snap.Id == "" {
			continue
		}
		resolveReply(rl, &snap)
		page = append(page, snap)
	}

	return page, nil
}

// DropRoom discards a room's entire log. Used when a room is deleted.
func (ms *MessageStore) DropRoom(roomId string) {
	ms.mu.Lock()
	rl := ms.rooms[roomId]
	delete(ms.rooms, roomId)
	for id, owner := range ms.index {
		if owner == rl {
			delete(ms.index, id)
		}
	}
	ms.mu.Unlock()

	if rl == nil {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, m := range rl.order {
		m.mu.Lock()
		m.deleted = true
		m.mu.Unlock()
	}
	rl.order = nil
	rl.byId = make(map[string]*message)
}

func (m *message) snapshot() types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted {
		return types.Message{}
	}
	return m.snapshotLocked()
}

func (m *message) snapshotLocked() types.Message {
	snap := types.Message{
		Id:        m.id,
		SeqId:     m.seq,
		RoomId:    m.roomId,
		AuthorId:  m.authorId,
		Content:   m.content,
		Edited:    m.edited,
		Timestamp: m.createdAt,
	}
	if m.attachment != nil {
		att := *m.attachment
		snap.Attachment = &att
	}
	if m.replyTo != "" {
		snap.ReplyTo = &types.ReplyRef{MessageId: m.replyTo}
	}
	if len(m.reactions) > 0 {
		snap.Reactions = make([]types.Reaction, len(m.reactions))
		for i, r := range m.reactions {
			snap.Reactions[i] = types.Reaction{
				Emoji:   r.Emoji,
				UserIds: append([]string(nil), r.UserIds...),
			}
		}
	}
	return snap
}

// resolveReply fills in the reply target's author and a content preview, or
// marks the reference not-found if the target was deleted. Caller holds at
// least a read lock on rl.
func resolveReply(rl *roomLog, snap *types.Message) {
	if snap.ReplyTo == nil {
		return
	}

	target, ok := rl.byId[snap.ReplyTo.MessageId]
	if !ok {
		snap.ReplyTo.NotFound = true
		return
	}

	target.mu.Lock()
	defer target.mu.Unlock()
	if target.deleted {
		snap.ReplyTo.NotFound = true
		return
	}

	snap.ReplyTo.AuthorId = target.authorId
	preview := target.content
	if len(preview) > replyPreviewLen {
		preview = preview[:replyPreviewLen]
	}
	snap.ReplyTo.Preview = preview
}
