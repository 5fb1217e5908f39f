package api

import (
	"net/http"
	"testing"

	"github.com/npezzotti/go-lobby/internal/database"
	"github.com/npezzotti/go-lobby/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// newTestClient builds a client bound to a hub subscriber, without a
// websocket connection. handleMessage never touches the connection.
func newTestClient(t *testing.T, userId string) (*LobbyApp, *Client) {
	app := newTestApp(t, database.NewMemLobbyRepository())

	sub, err := app.hub.Subscribe(userId)
	assert.NoError(t, err, "expected no error subscribing")
	t.Cleanup(sub.Close)

	return app, &Client{
		hub:    app.hub,
		sub:    sub,
		log:    testutil.TestLogger(t),
		userId: userId,
		send:   make(chan *ServerMessage, 64),
		stop:   make(chan struct{}),
	}
}

func TestClientHandlePublish(t *testing.T) {
	_, c := newTestClient(t, "user-1")

	resp := c.handleMessage(&ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Publish:     &Publish{RoomId: "room-1", Content: "hello"},
	})

	assert.Equal(t, 1, resp.Id, "expected response to echo the message id")
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode, "expected 200 response")
	assert.Contains(t, resp.Response.Data, "message", "expected the appended message in the response")
}

func TestClientHandlePublishUnknownRoom(t *testing.T) {
	_, c := newTestClient(t, "user-1")

	resp := c.handleMessage(&ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Publish:     &Publish{RoomId: "no-such-room", Content: "hello"},
	})

	assert.Equal(t, http.StatusNotFound, resp.Response.ResponseCode, "expected 404 response")
	assert.NotEmpty(t, resp.Response.Error, "expected an error message")
}

func TestClientHandleJoinAndLeave(t *testing.T) {
	_, c := newTestClient(t, "user-1")

	resp := c.handleMessage(&ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Join:        &Join{RoomId: "room-101"},
	})
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode, "expected 200 response")
	assert.Contains(t, resp.Response.Data, "occupants", "expected occupants in the response")

	// joining watches the room for events
	assert.True(t, c.sub.Watching("room-101"), "expected the joined room to be watched")

	resp = c.handleMessage(&ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Leave:       &Leave{},
	})
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode, "expected 200 response")
}

func TestClientHandleJoinConflict(t *testing.T) {
	_, c := newTestClient(t, "user-1")

	resp := c.handleMessage(&ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Join:        &Join{RoomId: "room-103"},
	})

	assert.Equal(t, http.StatusConflict, resp.Response.ResponseCode, "expected 409 response")
	assert.Equal(t, "password_required", resp.Response.Data["reason"], "expected the conflict reason in the response")
}

func TestClientHandleInvalidMessage(t *testing.T) {
	_, c := newTestClient(t, "user-1")

	resp := c.handleMessage(&ClientMessage{BaseMessage: BaseMessage{Id: 9}})
	assert.Equal(t, http.StatusBadRequest, resp.Response.ResponseCode, "expected 400 for an empty union")
	assert.Equal(t, 9, resp.Id, "expected response to echo the message id")
}

func TestClientHandleNotificationFlow(t *testing.T) {
	app, c := newTestClient(t, "user-1")

	resp := c.handleMessage(&ClientMessage{
		BaseMessage:   BaseMessage{Id: 1},
		FriendRequest: &FriendRequest{UserId: "user-3"},
	})
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode, "expected 200 response")
	assert.Contains(t, resp.Response.Data, "notification", "expected the notification in the response")

	list, err := app.hub.Notifications("user-3")
	assert.NoError(t, err, "expected no error listing notifications")
	assert.Len(t, list, 1, "expected the friend request delivered")

	// recipient resolves it from their own client
	_, rc := newTestClientOn(t, app, "user-3")
	resp = rc.handleMessage(&ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Resolve:     &Resolve{NotificationId: list[0].Id, Accept: true},
	})
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode, "expected 200 response")

	list, err = app.hub.Notifications("user-3")
	assert.NoError(t, err, "expected no error listing notifications")
	assert.Empty(t, list, "expected the notification resolved away")
}

func TestClientHandleWatchUnwatch(t *testing.T) {
	_, c := newTestClient(t, "user-1")

	resp := c.handleMessage(&ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Watch:       &Watch{RoomId: "room-2"},
	})
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode, "expected 200 response")
	assert.True(t, c.sub.Watching("room-2"), "expected the room to be watched")

	resp = c.handleMessage(&ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Unwatch:     &Watch{RoomId: "room-2"},
	})
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode, "expected 200 response")
	assert.False(t, c.sub.Watching("room-2"), "expected the room to be unwatched")
}

// newTestClientOn attaches a second client to an existing app.
func newTestClientOn(t *testing.T, app *LobbyApp, userId string) (*LobbyApp, *Client) {
	sub, err := app.hub.Subscribe(userId)
	assert.NoError(t, err, "expected no error subscribing")
	t.Cleanup(sub.Close)

	return app, &Client{
		hub:    app.hub,
		sub:    sub,
		log:    testutil.TestLogger(t),
		userId: userId,
		send:   make(chan *ServerMessage, 64),
		stop:   make(chan struct{}),
	}
}
