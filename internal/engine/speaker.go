package engine

import (
	"math/rand"
	"time"

	"github.com/npezzotti/go-lobby/internal/stats"
	"github.com/npezzotti/go-lobby/internal/types"
)

// Probability, in percent, that a tick moves the speaking pointer to a
// different occupant instead of holding the current one.
const speakerSwitchChance = 40

// speakerSim drives the advisory "currently speaking" pointer of one lobby.
// It is a stand-in for real audio-level signals from the media transport.
type speakerSim struct {
	stop chan struct{}
	done chan struct{}
}

// stopSync cancels the simulator and waits for its final tick to finish, so
// no late tick can reinstate a speaker after the lobby emptied.
func (s *speakerSim) stopSync() {
	close(s.stop)
	<-s.done
}

// startSimLocked starts the lobby's speaker simulator. Caller holds t.mu.
func (t *Tracker) startSimLocked(l *lobby) {
	if t.interval <= 0 {
		return
	}

	sim := &speakerSim{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	l.mu.Lock()
	l.sim = sim
	l.mu.Unlock()

	if t.stats != nil {
		t.stats.Incr(stats.ActiveLobbies)
	}
	t.log.Printf("started speaker simulator for room %q", l.id)

	go t.runSim(l, sim)
}

func (t *Tracker) runSim(l *lobby, sim *speakerSim) {
	ticker := time.NewTicker(t.interval)
	defer func() {
		ticker.Stop()
		close(sim.done)
	}()

	for {
		select {
		case <-sim.stop:
			return
		case <-ticker.C:
			t.tickSpeaker(l)
		}
	}
}

// tickSpeaker samples the occupant set and either holds the current speaker
// or switches to another occupant. It tolerates the set having changed since
// the last tick: a vanished speaker is replaced immediately.
func (t *Tracker) tickSpeaker(l *lobby) {
	l.mu.Lock()

	ids := make([]string, 0, len(l.occupants))
	for userId := range l.occupants {
		ids = append(ids, userId)
	}

	if len(ids) == 0 {
		changed := l.speakerId != ""
		l.speakerId = ""
		l.mu.Unlock()
		if changed {
			t.publishSpeaker(l.id, "")
		}
		return
	}

	cur := l.speakerId
	_, present := l.occupants[cur]
	next := cur
	if cur == "" || !present || rand.Intn(100) < speakerSwitchChance {
		next = ids[rand.Intn(len(ids))]
		if next == cur && len(ids) > 1 {
			// pick someone else when switching
			for _, id := range ids {
				if id != cur {
					next = id
					break
				}
			}
		}
	}

	changed := next != cur
	l.speakerId = next
	l.mu.Unlock()

	if changed {
		t.publishSpeaker(l.id, next)
	}
}

func (t *Tracker) publishSpeaker(roomId, speakerId string) {
	t.publish(types.Event{
		Kind:      types.EventSpeakerChanged,
		RoomId:    roomId,
		Payload:   types.SpeakerPayload{RoomId: roomId, SpeakerId: speakerId},
		Timestamp: time.Now().UTC(),
	})
}
