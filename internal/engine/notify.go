package engine

import (
	"log"
	"sync"
	"time"

	"github.com/npezzotti/go-lobby/internal/types"
	"github.com/teris-io/shortid"
)

// Dispatcher owns every user's notification inbox. Notifications are only
// ever created by the session hub as a side effect of another mutation.
type Dispatcher struct {
	log   *log.Logger
	genId func() (string, error)

	mu      sync.Mutex
	inboxes map[string]*inbox
}

type inbox struct {
	mu sync.Mutex
	// items is kept in creation order, oldest first
	items []*types.Notification
}

func NewDispatcher(logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		log:     logger,
		genId:   shortid.Generate,
		inboxes: make(map[string]*inbox),
	}
}

func (d *Dispatcher) inboxFor(recipientId string) *inbox {
	d.mu.Lock()
	defer d.mu.Unlock()

	ib, ok := d.inboxes[recipientId]
	if !ok {
		ib = &inbox{}
		d.inboxes[recipientId] = ib
	}
	return ib
}

// Send appends a notification to the recipient's inbox. Recipient existence
// is the caller's concern.
func (d *Dispatcher) Send(typ types.NotificationType, senderId, recipientId string, data types.NotificationData) (types.Notification, error) {
	id, err := d.genId()
	if err != nil {
		return types.Notification{}, err
	}

	n := &types.Notification{
		Id:          id,
		Type:        typ,
		SenderId:    senderId,
		RecipientId: recipientId,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	}

	ib := d.inboxFor(recipientId)
	ib.mu.Lock()
	ib.items = append(ib.items, n)
	ib.mu.Unlock()

	d.log.Printf("notification %q (%s) sent to %q", n.Id, n.Type, recipientId)
	return *n, nil
}

// MarkRead flags a single notification as read.
func (d *Dispatcher) MarkRead(recipientId, notificationId string) error {
	ib := d.inboxFor(recipientId)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	for _, n := range ib.items {
		if n.Id == notificationId {
			n.Read = true
			return nil
		}
	}

	return NewNotFoundError("notification %q not found", notificationId)
}

// MarkAllRead flags the recipient's whole inbox as read.
func (d *Dispatcher) MarkAllRead(recipientId string) {
	ib := d.inboxFor(recipientId)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	for _, n := range ib.items {
		n.Read = true
	}
}

// Resolve removes the notification from the inbox and returns it so the
// caller can act on the accept/decline outcome. The dispatcher itself
// performs no further mutation.
func (d *Dispatcher) Resolve(recipientId, notificationId string) (types.Notification, error) {
	ib := d.inboxFor(recipientId)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	for i, n := range ib.items {
		if n.Id == notificationId {
			ib.items = append(ib.items[:i], ib.items[i+1:]...)
			return *n, nil
		}
	}

	return types.Notification{}, NewNotFoundError("notification %q not found", notificationId)
}

// List returns the recipient's inbox: unread first, then read, each group
// newest first.
func (d *Dispatcher) List(recipientId string) []types.Notification {
	ib := d.inboxFor(recipientId)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	out := make([]types.Notification, 0, len(ib.items))
	for i := len(ib.items) - 1; i >= 0; i-- {
		if !ib.items[i].Read {
			out = append(out, *ib.items[i])
		}
	}
	for i := len(ib.items) - 1; i >= 0; i-- {
		if ib.items[i].Read {
			out = append(out, *ib.items[i])
		}
	}

	return out
}
