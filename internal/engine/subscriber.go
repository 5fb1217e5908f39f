package engine

import (
	"sync"

	"github.com/npezzotti/go-lobby/internal/stats"
	"github.com/npezzotti/go-lobby/internal/types"
)

const subscriberQueueSize = 256

// Subscriber is one client session's view of the event feed. Delivery is
// best-effort: a subscriber that stops draining its queue loses events
// rather than stalling publishers.
type Subscriber struct {
	id     string
	userId string
	hub    *SessionHub

	mu     sync.RWMutex
	rooms  map[string]struct{}
	feed   chan types.Event
	closed bool
}

func (s *Subscriber) Id() string     { return s.id }
func (s *Subscriber) UserId() string { return s.userId }

// Feed returns the subscriber's event stream. The channel is closed when the
// subscriber is removed from the hub.
func (s *Subscriber) Feed() <-chan types.Event {
	return s.feed
}

// Watch adds a room scope to the subscription.
func (s *Subscriber) Watch(roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomId] = struct{}{}
}

// Watching reports whether the room is one of the subscription's scopes.
func (s *Subscriber) Watching(roomId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomId]
	return ok
}

// Unwatch removes a room scope from the subscription.
func (s *Subscriber) Unwatch(roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomId)
}

// wants reports whether the event falls in this subscriber's scopes. Events
// addressed to the subscriber's user always match; events without any scope
// are broadcasts.
func (s *Subscriber) wants(ev types.Event) bool {
	if ev.RoomId == "" && ev.UserId == "" {
		return true
	}
	if ev.UserId != "" && ev.UserId == s.userId {
		return true
	}
	if ev.RoomId == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[ev.RoomId]
	return ok
}

// offer enqueues the event without blocking. It reports false if the event
// was dropped.
func (s *Subscriber) offer(ev types.Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.feed <- ev:
		return true
	default:
		return false
	}
}

// Close detaches the subscriber from the hub and closes its feed.
func (s *Subscriber) Close() {
	s.hub.removeSubscriber(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.feed)
}

func (h *SessionHub) removeSubscriber(s *Subscriber) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()

	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		h.stats.Decr(stats.ActiveSubscribers)
		h.log.Printf("removed subscriber %q for user %q", s.id, s.userId)
	}
}
