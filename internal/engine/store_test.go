package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/npezzotti/go-lobby/internal/types"
	"github.com/stretchr/testify/assert"
)

func newTestStore() *MessageStore {
	ms := NewMessageStore()
	var n int
	var mu sync.Mutex
	ms.genId = func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("msg-%d", n), nil
	}
	return ms
}

func TestMessageStoreAppend(t *testing.T) {
	ms := newTestStore()

	m1, err := ms.Append("room-1", "user-1", "hello", nil, "")
	assert.NoError(t, err, "expected no error appending message")
	assert.Equal(t, 1, m1.SeqId, "expected first message to get seq 1")
	assert.Equal(t, "user-1", m1.AuthorId, "expected author to be recorded")

	m2, err := ms.Append("room-1", "user-2", "hi", nil, "")
	assert.NoError(t, err, "expected no error appending message")
	assert.Equal(t, 2, m2.SeqId, "expected second message to get seq 2")

	// sequences are per room
	other, err := ms.Append("room-2", "user-1", "elsewhere", nil, "")
	assert.NoError(t, err, "expected no error appending message")
	assert.Equal(t, 1, other.SeqId, "expected separate sequence per room")
}

func TestMessageStoreAppendReply(t *testing.T) {
	ms := newTestStore()

	target, err := ms.Append("room-1", "user-1", "original message", nil, "")
	assert.NoError(t, err, "expected no error appending message")

	reply, err := ms.Append("room-1", "user-2", "a reply", nil, target.Id)
	assert.NoError(t, err, "expected no error appending reply")
	assert.NotNil(t, reply.ReplyTo, "expected reply reference to be set")
	assert.Equal(t, target.Id, reply.ReplyTo.MessageId, "expected reply to reference target")
	assert.Equal(t, "user-1", reply.ReplyTo.AuthorId, "expected reply preview to carry target author")
	assert.Equal(t, "original message", reply.ReplyTo.Preview, "expected reply preview to carry target content")

	_, err = ms.Append("room-1", "user-2", "bad reply", nil, "no-such-message")
	assert.True(t, IsNotFound(err), "expected not found error for missing reply target")

	// reply targets must live in the same room
	_, err = ms.Append("room-2", "user-2", "cross-room reply", nil, target.Id)
	assert.True(t, IsNotFound(err), "expected not found error for cross-room reply target")
}

func TestMessageStoreEdit(t *testing.T) {
	ms := newTestStore()

	m, err := ms.Append("room-1", "user-1", "hello", nil, "")
	assert.NoError(t, err, "expected no error appending message")

	t.Run("author edits own message", func(t *testing.T) {
		edited, err := ms.Edit(m.Id, "user-1", "hello world")
		assert.NoError(t, err, "expected no error editing own message")
		assert.Equal(t, "hello world", edited.Content, "expected content to be updated")
		assert.True(t, edited.Edited, "expected edited flag to be set")
		assert.Equal(t, m.SeqId, edited.SeqId, "expected seq to be unchanged by edit")
	})

	t.Run("non-author cannot edit", func(t *testing.T) {
		_, err := ms.Edit(m.Id, "user-2", "hijacked")
		assert.True(t, IsForbidden(err), "expected forbidden error for non-author")
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := ms.Edit("no-such-message", "user-1", "x")
		assert.True(t, IsNotFound(err), "expected not found error for unknown message")
	})
}

func TestMessageStoreDelete(t *testing.T) {
	ms := newTestStore()

	m, err := ms.Append("room-1", "user-1", "hello", nil, "")
	assert.NoError(t, err, "expected no error appending message")

	err = ms.Delete(m.Id, "user-2")
	assert.True(t, IsForbidden(err), "expected forbidden error for non-author delete")

	err = ms.Delete(m.Id, "user-1")
	assert.NoError(t, err, "expected no error deleting own message")

	_, err = ms.Get(m.Id)
	assert.True(t, IsNotFound(err), "expected deleted message to be unreadable")

	err = ms.Delete(m.Id, "user-1")
	assert.True(t, IsNotFound(err), "expected not found error deleting twice")
}

func TestMessageStoreDeleteKeepsReplies(t *testing.T) {
	ms := newTestStore()

	target, err := ms.Append("room-1", "user-1", "to be deleted", nil, "")
	assert.NoError(t, err, "expected no error appending message")
	_, err = ms.Append("room-1", "user-2", "a reply", nil, target.Id)
	assert.NoError(t, err, "expected no error appending reply")

	err = ms.Delete(target.Id, "user-1")
	assert.NoError(t, err, "expected no error deleting message")

	msgs, err := ms.List("room-1", 0, 0)
	assert.NoError(t, err, "expected no error listing messages")
	assert.Len(t, msgs, 1, "expected deleted message to vanish from the log")
	assert.NotNil(t, msgs[0].ReplyTo, "expected surviving reply to keep its reference")
	assert.True(t, msgs[0].ReplyTo.NotFound, "expected reply reference to resolve as not found")
	assert.Empty(t, msgs[0].ReplyTo.Preview, "expected no preview for a deleted target")
}

func TestMessageStoreToggleReaction(t *testing.T) {
	ms := newTestStore()

	m, err := ms.Append("room-1", "user-1", "hello", nil, "")
	assert.NoError(t, err, "expected no error appending message")

	withReaction, err := ms.ToggleReaction(m.Id, "user-2", "👍")
	assert.NoError(t, err, "expected no error toggling reaction")
	assert.Len(t, withReaction.Reactions, 1, "expected one reaction entry")
	assert.Equal(t, []string{"user-2"}, withReaction.Reactions[0].UserIds, "expected reacting user to be recorded")

	both, err := ms.ToggleReaction(m.Id, "user-3", "👍")
	assert.NoError(t, err, "expected no error toggling reaction")
	assert.Equal(t, []string{"user-2", "user-3"}, both.Reactions[0].UserIds, "expected both users under the same emoji")

	// toggling again removes the user
	removed, err := ms.ToggleReaction(m.Id, "user-2", "👍")
	assert.NoError(t, err, "expected no error toggling reaction off")
	assert.Equal(t, []string{"user-3"}, removed.Reactions[0].UserIds, "expected user to be removed on second toggle")

	// last user leaving prunes the emoji entry
	empty, err := ms.ToggleReaction(m.Id, "user-3", "👍")
	assert.NoError(t, err, "expected no error toggling reaction off")
	assert.Empty(t, empty.Reactions, "expected empty reaction entry to be pruned")
}

func TestMessageStoreList(t *testing.T) {
	ms := newTestStore()

	for i := 0; i < 10; i++ {
		_, err := ms.Append("room-1", "user-1", fmt.Sprintf("message %d", i), nil, "")
		assert.NoError(t, err, "expected no error appending message")
	}

	t.Run("full log in order", func(t *testing.T) {
		msgs, err := ms.List("room-1", 0, 0)
		assert.NoError(t, err, "expected no error listing messages")
		assert.Len(t, msgs, 10, "expected all messages")
		for i, m := range msgs {
			assert.Equal(t, i+1, m.SeqId, "expected ascending seq order")
		}
	})

	t.Run("limit returns newest page", func(t *testing.T) {
		msgs, err := ms.List("room-1", 0, 3)
		assert.NoError(t, err, "expected no error listing messages")
		assert.Len(t, msgs, 3, "expected page of 3")
		assert.Equal(t, 8, msgs[0].SeqId, "expected page to end at the newest message")
		assert.Equal(t, 10, msgs[2].SeqId, "expected page to end at the newest message")
	})

	t.Run("before cursor pages backwards", func(t *testing.T) {
		msgs, err := ms.List("room-1", 8, 3)
		assert.NoError(t, err, "expected no error listing messages")
		assert.Len(t, msgs, 3, "expected page of 3")
		assert.Equal(t, 5, msgs[0].SeqId, "expected page below the cursor")
		assert.Equal(t, 7, msgs[2].SeqId, "expected page below the cursor")
	})

	t.Run("unknown room", func(t *testing.T) {
		msgs, err := ms.List("no-such-room", 0, 0)
		assert.NoError(t, err, "expected no error for unknown room")
		assert.Empty(t, msgs, "expected empty page for unknown room")
	})
}

func TestMessageStoreConcurrentAppend(t *testing.T) {
	ms := newTestStore()

	const writers = 20
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_, err := ms.Append("room-1", fmt.Sprintf("user-%d", w), "concurrent", nil, "")
				assert.NoError(t, err, "expected no error appending concurrently")
			}
		}(i)
	}
	wg.Wait()

	msgs, err := ms.List("room-1", 0, 0)
	assert.NoError(t, err, "expected no error listing messages")
	assert.Len(t, msgs, writers*perWriter, "expected every append to land")

	seen := make(map[int]bool)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.SeqId, "expected dense ascending seq order")
		assert.False(t, seen[m.SeqId], "expected unique seq ids")
		seen[m.SeqId] = true
	}
}

func TestMessageStoreDropRoom(t *testing.T) {
	ms := newTestStore()

	m, err := ms.Append("room-1", "user-1", "hello", nil, "")
	assert.NoError(t, err, "expected no error appending message")

	ms.DropRoom("room-1")

	_, err = ms.Get(m.Id)
	assert.True(t, IsNotFound(err), "expected message to be gone after drop")

	msgs, err := ms.List("room-1", 0, 0)
	assert.NoError(t, err, "expected no error listing dropped room")
	assert.Empty(t, msgs, "expected no messages after drop")
}

func TestMessageStoreAttachment(t *testing.T) {
	ms := newTestStore()

	att := &types.Attachment{Url: "https://cdn.example.com/clip.mp4", Kind: types.AttachmentVideo, Name: "clip.mp4"}
	m, err := ms.Append("room-1", "user-1", "look at this", att, "")
	assert.NoError(t, err, "expected no error appending message with attachment")
	assert.NotNil(t, m.Attachment, "expected attachment to be kept")
	assert.Equal(t, types.AttachmentVideo, m.Attachment.Kind, "expected attachment kind to be kept")

	// snapshot must not alias the stored attachment
	m.Attachment.Url = "mutated"
	got, err := ms.Get(m.Id)
	assert.NoError(t, err, "expected no error reading message")
	assert.Equal(t, "https://cdn.example.com/clip.mp4", got.Attachment.Url, "expected stored attachment to be unaffected by snapshot mutation")
}
