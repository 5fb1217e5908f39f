package engine

import (
	"fmt"
	"testing"

	"github.com/npezzotti/go-lobby/internal/testutil"
	"github.com/npezzotti/go-lobby/internal/types"
	"github.com/stretchr/testify/assert"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	d := NewDispatcher(testutil.TestLogger(t))
	var n int
	d.genId = func() (string, error) {
		n++
		return fmt.Sprintf("notif-%d", n), nil
	}
	return d
}

func TestDispatcherSend(t *testing.T) {
	d := newTestDispatcher(t)

	n, err := d.Send(types.NotificationFriendRequest, "user-1", "user-2", types.NotificationData{})
	assert.NoError(t, err, "expected no error sending notification")
	assert.Equal(t, types.NotificationFriendRequest, n.Type, "expected type to be kept")
	assert.Equal(t, "user-1", n.SenderId, "expected sender to be recorded")
	assert.Equal(t, "user-2", n.RecipientId, "expected recipient to be recorded")
	assert.False(t, n.Read, "expected notification to start unread")

	assert.Len(t, d.List("user-2"), 1, "expected recipient inbox to hold the notification")
	assert.Empty(t, d.List("user-1"), "expected sender inbox to be untouched")
}

func TestDispatcherListOrder(t *testing.T) {
	d := newTestDispatcher(t)

	first, err := d.Send(types.NotificationMention, "user-1", "user-2", types.NotificationData{})
	assert.NoError(t, err, "expected no error sending notification")
	second, err := d.Send(types.NotificationLobbyInvite, "user-3", "user-2", types.NotificationData{RoomId: "room-101"})
	assert.NoError(t, err, "expected no error sending notification")
	third, err := d.Send(types.NotificationMention, "user-1", "user-2", types.NotificationData{})
	assert.NoError(t, err, "expected no error sending notification")

	err = d.MarkRead("user-2", second.Id)
	assert.NoError(t, err, "expected no error marking read")

	// unread newest-first, then read newest-first
	list := d.List("user-2")
	assert.Len(t, list, 3, "expected full inbox")
	assert.Equal(t, third.Id, list[0].Id, "expected newest unread first")
	assert.Equal(t, first.Id, list[1].Id, "expected older unread second")
	assert.Equal(t, second.Id, list[2].Id, "expected read notification last")
	assert.True(t, list[2].Read, "expected read flag to be set")
}

func TestDispatcherMarkRead(t *testing.T) {
	d := newTestDispatcher(t)

	n, err := d.Send(types.NotificationMention, "user-1", "user-2", types.NotificationData{})
	assert.NoError(t, err, "expected no error sending notification")

	err = d.MarkRead("user-2", "no-such-notification")
	assert.True(t, IsNotFound(err), "expected not found error for unknown notification")

	// notifications are addressed per inbox
	err = d.MarkRead("user-3", n.Id)
	assert.True(t, IsNotFound(err), "expected not found error in another user's inbox")

	err = d.MarkRead("user-2", n.Id)
	assert.NoError(t, err, "expected no error marking read")
	assert.True(t, d.List("user-2")[0].Read, "expected notification to be read")
}

func TestDispatcherMarkAllRead(t *testing.T) {
	d := newTestDispatcher(t)

	for i := 0; i < 3; i++ {
		_, err := d.Send(types.NotificationMention, "user-1", "user-2", types.NotificationData{})
		assert.NoError(t, err, "expected no error sending notification")
	}

	d.MarkAllRead("user-2")

	for _, n := range d.List("user-2") {
		assert.True(t, n.Read, "expected every notification to be read")
	}
}

func TestDispatcherResolve(t *testing.T) {
	d := newTestDispatcher(t)

	n, err := d.Send(types.NotificationLobbyInvite, "user-1", "user-2", types.NotificationData{RoomId: "room-101"})
	assert.NoError(t, err, "expected no error sending notification")

	resolved, err := d.Resolve("user-2", n.Id)
	assert.NoError(t, err, "expected no error resolving notification")
	assert.Equal(t, n.Id, resolved.Id, "expected the resolved notification back")
	assert.Equal(t, "room-101", resolved.Data.RoomId, "expected payload to survive resolution")

	assert.Empty(t, d.List("user-2"), "expected resolution to remove the notification")

	_, err = d.Resolve("user-2", n.Id)
	assert.True(t, IsNotFound(err), "expected not found error resolving twice")
}
