package api

import (
	"encoding/json"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-lobby/internal/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client bridges one websocket connection to the session hub: inbound
// frames become hub intents, the subscriber's feed streams back out.
type Client struct {
	conn   *websocket.Conn
	hub    *engine.SessionHub
	sub    *engine.Subscriber
	log    *log.Logger
	userId string
	send   chan *ServerMessage
	stop   chan struct{}
	once   sync.Once
}

func NewClient(userId string, conn *websocket.Conn, hub *engine.SessionHub, sub *engine.Subscriber, l *log.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		sub:    sub,
		log:    l,
		userId: userId,
		send:   make(chan *ServerMessage, 64),
		stop:   make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			if !c.writeMessage(msg) {
				return
			}
		case ev, ok := <-c.sub.Feed():
			if !ok {
				return
			}

			if !c.writeMessage(EventMessage(ev)) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.UserId = c.userId
		c.queueMessage(c.handleMessage(&msg))
	}
}

func (c *Client) handleMessage(msg *ClientMessage) *ServerMessage {
	switch {
	case msg.Publish != nil:
		m, err := c.hub.SendMessage(c.userId, msg.Publish.RoomId, msg.Publish.Content, msg.Publish.Attachment, msg.Publish.ReplyTo)
		if err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, map[string]any{"message": m})
	case msg.Edit != nil:
		m, err := c.hub.EditMessage(c.userId, msg.Edit.MessageId, msg.Edit.Content)
		if err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, map[string]any{"message": m})
	case msg.Delete != nil:
		if err := c.hub.DeleteMessage(c.userId, msg.Delete.MessageId); err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, nil)
	case msg.React != nil:
		m, err := c.hub.ToggleReaction(c.userId, msg.React.MessageId, msg.React.Emoji)
		if err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, map[string]any{"message": m})
	case msg.Join != nil:
		occupants, err := c.hub.JoinLobby(c.userId, msg.Join.RoomId, msg.Join.Password)
		if err != nil {
			return ErrFor(msg.Id, err)
		}
		c.sub.Watch(msg.Join.RoomId)
		return NoErrOK(msg.Id, map[string]any{"occupants": occupants})
	case msg.Leave != nil:
		if err := c.hub.LeaveLobby(c.userId); err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, nil)
	case msg.Kick != nil:
		if err := c.hub.KickFromLobby(c.userId, msg.Kick.RoomId, msg.Kick.UserId); err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, nil)
	case msg.ServerMute != nil:
		if err := c.hub.SetServerMute(c.userId, msg.ServerMute.RoomId, msg.ServerMute.UserId, msg.ServerMute.Muted); err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, nil)
	case msg.Media != nil:
		if err := c.hub.SetMediaFlags(c.userId, msg.Media.RoomId, msg.Media.MediaFlags); err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, nil)
	case msg.Nickname != nil:
		if err := c.hub.SetLobbyNickname(c.userId, msg.Nickname.RoomId, msg.Nickname.Nickname); err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, nil)
	case msg.Invite != nil:
		n, err := c.hub.InviteToLobby(c.userId, msg.Invite.RoomId, msg.Invite.UserId)
		if err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, map[string]any{"notification": n})
	case msg.FriendRequest != nil:
		n, err := c.hub.SendFriendRequest(c.userId, msg.FriendRequest.UserId)
		if err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, map[string]any{"notification": n})
	case msg.LfgRequest != nil:
		n, err := c.hub.RequestLfgJoin(c.userId, msg.LfgRequest.UserId, msg.LfgRequest.PostId, msg.LfgRequest.PostTitle)
		if err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, map[string]any{"notification": n})
	case msg.Resolve != nil:
		if err := c.hub.ResolveNotification(c.userId, msg.Resolve.NotificationId, msg.Resolve.Accept); err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, nil)
	case msg.MarkRead != nil:
		var err error
		if msg.MarkRead.All {
			err = c.hub.MarkAllNotificationsRead(c.userId)
		} else {
			err = c.hub.MarkNotificationRead(c.userId, msg.MarkRead.NotificationId)
		}
		if err != nil {
			return ErrFor(msg.Id, err)
		}
		return NoErrOK(msg.Id, nil)
	case msg.Watch != nil:
		c.sub.Watch(msg.Watch.RoomId)
		return NoErrOK(msg.Id, nil)
	case msg.Unwatch != nil:
		c.sub.Unwatch(msg.Unwatch.RoomId)
		return NoErrOK(msg.Id, nil)
	default:
		return ErrInvalidMessage(msg.Id)
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) writeMessage(msg *ServerMessage) bool {
	bytes, err := json.Marshal(msg)
	if err != nil {
		c.log.Println("failed to serialize message:", err)
		return true
	}

	return c.sendMessage(websocket.TextMessage, bytes)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	// a disconnected user vacates any lobby they occupied
	if err := c.hub.LeaveLobby(c.userId); err != nil && !engine.IsConflict(err) {
		c.log.Printf("leave lobby on disconnect: %v", err)
	}
	c.sub.Close()
	c.stopClient()
}

func (s *LobbyApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sub, err := s.hub.Subscribe(userId)
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := NewClient(userId, conn, s.hub, sub, s.log)

	go client.Write()
	go client.Read()
}
