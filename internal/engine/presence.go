package engine

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/npezzotti/go-lobby/internal/stats"
	"github.com/npezzotti/go-lobby/internal/types"
)

// Tracker owns voice-lobby membership. A user occupies at most one lobby at
// a time; all occupancy transitions happen under the tracker's lock, so a
// move between lobbies is never observable as presence in both.
type Tracker struct {
	log      *log.Logger
	interval time.Duration
	publish  func(types.Event)
	stats    stats.StatsProvider

	mu      sync.Mutex
	byUser  map[string]string
	lobbies map[string]*lobby
}

type lobby struct {
	mu        sync.Mutex
	id        string
	occupants map[string]*types.Occupant
	// nicknames persists nickname overrides across leave/rejoin
	nicknames map[string]string
	speakerId string
	sim       *speakerSim
}

// MediaFlags are the occupancy flags a user sets on their own entry.
type MediaFlags struct {
	Muted     bool `json:"muted"`
	Deafened  bool `json:"deafened"`
	CameraOn  bool `json:"camera_on"`
	Streaming bool `json:"streaming"`
}

// JoinResult reports the occupancy changes a join produced.
type JoinResult struct {
	Rejoined      bool
	PrevRoomId    string
	PrevOccupants []types.Occupant
	Occupants     []types.Occupant
}

func NewTracker(logger *log.Logger, interval time.Duration, publish func(types.Event), su stats.StatsProvider) *Tracker {
	if publish == nil {
		publish = func(types.Event) {}
	}
	return &Tracker{
		log:      logger,
		interval: interval,
		publish:  publish,
		stats:    su,
		byUser:   make(map[string]string),
		lobbies:  make(map[string]*lobby),
	}
}

func (t *Tracker) lobbyFor(roomId string) *lobby {
	l, ok := t.lobbies[roomId]
	if !ok {
		l = &lobby{
			id:        roomId,
			occupants: make(map[string]*types.Occupant),
			nicknames: make(map[string]string),
		}
		t.lobbies[roomId] = l
	}
	return l
}

// Join moves the user into the room's lobby, vacating any lobby they were
// in. It is idempotent when the user already occupies the room.
func (t *Tracker) Join(user types.User, room types.Room, password string) (JoinResult, error) {
	if room.Kind != types.RoomVoice {
		return JoinResult{}, NewConflictError(ReasonNotVoiceRoom, "room %q is not a voice room", room.Id)
	}

	if room.Password != "" {
		switch {
		case user.Premium:
			t.log.Printf("premium bypass: user %q joined protected room %q", user.Id, room.Id)
		case password == "":
			return JoinResult{}, NewConflictError(ReasonPasswordRequired, "room %q requires a password", room.Id)
		case password != room.Password:
			return JoinResult{}, NewConflictError(ReasonWrongPassword, "wrong password for room %q", room.Id)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prevRoomId := t.byUser[user.Id]
	if prevRoomId == room.Id {
		l := t.lobbies[room.Id]
		return JoinResult{Rejoined: true, Occupants: l.snapshot()}, nil
	}

	target := t.lobbyFor(room.Id)
	target.mu.Lock()
	if room.MemberLimit > 0 && len(target.occupants) >= room.MemberLimit {
		target.mu.Unlock()
		return JoinResult{}, NewConflictError(ReasonRoomFull, "room %q is full", room.Id)
	}
	target.mu.Unlock()

	res := JoinResult{PrevRoomId: prevRoomId}
	if prevRoomId != "" {
		res.PrevOccupants = t.removeLocked(t.lobbies[prevRoomId], user.Id)
	}

	target.mu.Lock()
	target.occupants[user.Id] = &types.Occupant{
		UserId:   user.Id,
		Nickname: target.nicknames[user.Id],
		JoinedAt: time.Now().UTC(),
	}
	first := len(target.occupants) == 1
	res.Occupants = target.snapshotLocked()
	target.mu.Unlock()

	t.byUser[user.Id] = room.Id

	if first {
		t.startSimLocked(target)
	}

	return res, nil
}

// Leave vacates the user's current lobby and clears their media flags.
func (t *Tracker) Leave(userId string) (string, []types.Occupant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomId, ok := t.byUser[userId]
	if !ok || roomId == "" {
		return "", nil, NewConflictError(ReasonNotInLobby, "user %q is not in a lobby", userId)
	}

	occupants := t.removeLocked(t.lobbies[roomId], userId)
	delete(t.byUser, userId)

	return roomId, occupants, nil
}

// Kick is a leave performed by the room owner on the target.
func (t *Tracker) Kick(room types.Room, actorId, targetId string) ([]types.Occupant, error) {
	if room.OwnerId == "" || actorId != room.OwnerId {
		return nil, NewForbiddenError("user %q is not the owner of room %q", actorId, room.Id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.byUser[targetId] != room.Id {
		return nil, NewNotFoundError("user %q is not in room %q", targetId, room.Id)
	}

	occupants := t.removeLocked(t.lobbies[room.Id], targetId)
	delete(t.byUser, targetId)

	return occupants, nil
}

// removeLocked removes the user from l and stops the speaker simulator when
// the lobby empties. Caller holds t.mu but not l.mu; the simulator only ever
// takes l.mu, so waiting for it here cannot deadlock, and holding t.mu keeps
// joins out until the stop completes.
func (t *Tracker) removeLocked(l *lobby, userId string) []types.Occupant {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	delete(l.occupants, userId)
	speakerLeft := l.speakerId == userId
	if speakerLeft {
		l.speakerId = ""
	}
	empty := len(l.occupants) == 0
	var sim *speakerSim
	if empty {
		sim = l.sim
		l.sim = nil
	}
	occupants := l.snapshotLocked()
	l.mu.Unlock()

	if sim != nil {
		sim.stopSync()
		if t.stats != nil {
			t.stats.Decr(stats.ActiveLobbies)
		}
		t.log.Printf("stopped speaker simulator for room %q", l.id)
	}

	if speakerLeft && !empty {
		t.publish(types.Event{
			Kind:      types.EventSpeakerChanged,
			RoomId:    l.id,
			Payload:   types.SpeakerPayload{RoomId: l.id},
			Timestamp: time.Now().UTC(),
		})
	}

	return occupants
}

// SetNickname sets the actor's own nickname override in the lobby. The
// override survives leave and rejoin.
func (t *Tracker) SetNickname(roomId, actorId, name string) ([]types.Occupant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, o, err := t.occupantLocked(roomId, actorId)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	o.Nickname = name
	l.nicknames[actorId] = name
	return l.snapshotLocked(), nil
}

// SetServerMute toggles the target's server-mute flag. Owner only.
func (t *Tracker) SetServerMute(room types.Room, actorId, targetId string, muted bool) ([]types.Occupant, error) {
	if room.OwnerId == "" || actorId != room.OwnerId {
		return nil, NewForbiddenError("user %q is not the owner of room %q", actorId, room.Id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	l, o, err := t.occupantLocked(room.Id, targetId)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	o.ServerMuted = muted
	return l.snapshotLocked(), nil
}

// SetMediaFlags sets the actor's own local mute/deafen/camera/stream flags.
func (t *Tracker) SetMediaFlags(roomId, actorId string, flags MediaFlags) ([]types.Occupant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, o, err := t.occupantLocked(roomId, actorId)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	o.Muted = flags.Muted
	o.Deafened = flags.Deafened
	o.CameraOn = flags.CameraOn
	o.Streaming = flags.Streaming
	return l.snapshotLocked(), nil
}

// occupantLocked resolves the live occupant entry. Caller holds t.mu.
func (t *Tracker) occupantLocked(roomId, userId string) (*lobby, *types.Occupant, error) {
	if t.byUser[userId] != roomId {
		return nil, nil, NewNotFoundError("user %q is not in room %q", userId, roomId)
	}

	l := t.lobbies[roomId]
	if l == nil {
		return nil, nil, NewNotFoundError("user %q is not in room %q", userId, roomId)
	}

	l.mu.Lock()
	o := l.occupants[userId]
	l.mu.Unlock()
	if o == nil {
		return nil, nil, NewInvariantError("presence index maps user %q to room %q but the lobby has no entry", userId, roomId)
	}

	return l, o, nil
}

// RoomOf returns the room the user currently occupies, if any.
func (t *Tracker) RoomOf(userId string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	roomId, ok := t.byUser[userId]
	return roomId, ok && roomId != ""
}

// Occupants returns the lobby's occupant snapshot in join order.
func (t *Tracker) Occupants(roomId string) []types.Occupant {
	t.mu.Lock()
	l := t.lobbies[roomId]
	t.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.snapshot()
}

// Speaker returns the advisory currently-speaking occupant of the lobby.
func (t *Tracker) Speaker(roomId string) string {
	t.mu.Lock()
	l := t.lobbies[roomId]
	t.mu.Unlock()
	if l == nil {
		return ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.speakerId
}

// EvictRoom drops the lobby entirely and returns the users evicted. Used
// when the room is deleted, and to repair presence entries pointing at a
// room that no longer exists.
func (t *Tracker) EvictRoom(roomId string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	l := t.lobbies[roomId]
	if l == nil {
		return nil
	}

	l.mu.Lock()
	evicted := make([]string, 0, len(l.occupants))
	for userId := range l.occupants {
		evicted = append(evicted, userId)
	}
	l.occupants = make(map[string]*types.Occupant)
	l.speakerId = ""
	sim := l.sim
	l.sim = nil
	l.mu.Unlock()

	sort.Strings(evicted)
	for _, userId := range evicted {
		delete(t.byUser, userId)
	}
	delete(t.lobbies, roomId)

	if sim != nil {
		sim.stopSync()
		if t.stats != nil {
			t.stats.Decr(stats.ActiveLobbies)
		}
	}

	return evicted
}

// Shutdown stops every running speaker simulator.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, l := range t.lobbies {
		l.mu.Lock()
		sim := l.sim
		l.sim = nil
		l.mu.Unlock()
		if sim != nil {
			sim.stopSync()
		}
	}
}

func (l *lobby) snapshot() []types.Occupant {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *lobby) snapshotLocked() []types.Occupant {
	occupants := make([]types.Occupant, 0, len(l.occupants))
	for _, o := range l.occupants {
		occupants = append(occupants, *o)
	}
	sort.Slice(occupants, func(i, j int) bool {
		if occupants[i].JoinedAt.Equal(occupants[j].JoinedAt) {
			return occupants[i].UserId < occupants[j].UserId
		}
		return occupants[i].JoinedAt.Before(occupants[j].JoinedAt)
	})
	return occupants
}
