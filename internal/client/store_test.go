package client

import (
	"testing"

	"github.com/smobile/chatclient/internal/testutil"
	"github.com/smobile/chatclient/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestMessageStore_Append(t *testing.T) {
	t.Run("appends in arrival order", func(t *testing.T) {
		s := NewMessageStore(testutil.TestLogger(t))

		assert.True(t, s.Append(types.Message{Id: 2, RoomId: 1, Content: "second"}))
		assert.True(t, s.Append(types.Message{Id: 1, RoomId: 1, Content: "first"}))

		msgs := s.Messages()
		assert.Len(t, msgs, 2)
		assert.Equal(t, 2, msgs[0].Id, "expected arrival order, not id order")
		assert.Equal(t, 1, msgs[1].Id)
	})

	t.Run("duplicate id is a no-op", func(t *testing.T) {
		s := NewMessageStore(testutil.TestLogger(t))

		assert.True(t, s.Append(types.Message{Id: 1, RoomId: 1, Content: "hello"}))
		assert.False(t, s.Append(types.Message{Id: 1, RoomId: 1, Content: "changed"}))

		msgs := s.Messages()
		assert.Len(t, msgs, 1)
		assert.Equal(t, "hello", msgs[0].Content, "expected the original message to be kept")
	})
}

func TestMessageStore_Replace(t *testing.T) {
	s := NewMessageStore(testutil.TestLogger(t))
	s.Append(types.Message{Id: 99, RoomId: 2, Content: "stale"})

	s.Replace([]types.Message{
		{Id: 1, RoomId: 1, Content: "a"},
		{Id: 2, RoomId: 1, Content: "b"},
		{Id: 2, RoomId: 1, Content: "dup"},
	})

	msgs := s.Messages()
	assert.Len(t, msgs, 2, "expected duplicates within a history page to be collapsed")
	assert.Equal(t, 1, msgs[0].Id)
	assert.Equal(t, 2, msgs[1].Id)

	// A live duplicate of a history message is also ignored.
	assert.False(t, s.Append(types.Message{Id: 2, RoomId: 1, Content: "live dup"}))
	assert.Equal(t, 2, s.Len())
}

func TestMessageStore_Clear(t *testing.T) {
	s := NewMessageStore(testutil.TestLogger(t))
	s.Append(types.Message{Id: 1, RoomId: 1})
	s.Append(types.Message{Id: 2, RoomId: 1})

	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Messages())

	// Ids from before the clear are appendable again.
	assert.True(t, s.Append(types.Message{Id: 1, RoomId: 1}))
}
