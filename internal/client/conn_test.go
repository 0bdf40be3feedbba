package client

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/smobile/chatclient/internal/stats"
	"github.com/smobile/chatclient/internal/testutil"
	"github.com/smobile/chatclient/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func backendWSURL(b *testutil.FakeBackend) string {
	return "ws" + strings.TrimPrefix(b.URL(), "http") + "/api/v1/chat/ws/1?token=test-token"
}

func newTestConn(t *testing.T, b *testutil.FakeBackend) *Conn {
	return NewConn(backendWSURL(b), testutil.TestLogger(t), stats.Noop{})
}

func recvEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()

	select {
	case ev, ok := <-events:
		require.True(t, ok, "expected an event, channel was closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	return Event{}
}

func TestConn_Open(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestConn(t, b)

	require.NoError(t, c.Open(context.Background()))
	assert.Equal(t, Connected, c.State())
	assert.NotNil(t, c.Events())

	err := c.Open(context.Background())
	assert.Error(t, err, "expected a second open on a live connection to fail")

	c.Close()
	assert.Equal(t, Disconnected, c.State())
}

func TestConn_OpenFailure(t *testing.T) {
	c := NewConn("ws://127.0.0.1:1/api/v1/chat/ws/1", testutil.TestLogger(t), stats.Noop{})

	err := c.Open(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Disconnected, c.State(), "expected a failed attempt to land in Disconnected")
}

func TestConn_ReceiveMessage(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestConn(t, b)
	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	b.Push(types.Message{
		Id: 101, RoomId: 1, SenderId: 2, SenderName: "Ali",
		SenderRole: types.RoleSeller, Content: "hi", Timestamp: time.Now().UTC(),
	})

	ev := recvEvent(t, c.Events())
	require.NotNil(t, ev.Message)
	assert.Equal(t, 101, ev.Message.Id)
	assert.Equal(t, "hi", ev.Message.Content)
}

func TestConn_MalformedFrames(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestConn(t, b)
	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	b.PushRaw([]byte(`this is not json`))
	b.PushRaw([]byte(`{"type":"presence","user_id":4}`))
	b.Push(types.Message{Id: 7, RoomId: 1, Content: "still alive"})

	// The only event delivered is the well-formed message; the connection
	// survives the junk.
	ev := recvEvent(t, c.Events())
	require.NotNil(t, ev.Message)
	assert.Equal(t, 7, ev.Message.Id)
	assert.Equal(t, Connected, c.State())
}

func TestConn_MaxLengthMessage(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestConn(t, b)
	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	// The server escapes non-ASCII content to \uXXXX pairs, so a
	// maximum-length message of astral-plane runes arrives as roughly
	// twelve bytes per rune on the wire.
	content := strings.Repeat(`😀`, MaxContentLength)
	raw := fmt.Sprintf(`{"type":"message","id":9,"room_id":1,"sender_id":2,`+
		`"sender_name":"Ali","sender_role":"SELLER","content":"%s",`+
		`"timestamp":"2026-08-30T12:00:00Z"}`, content)
	b.PushRaw([]byte(raw))

	ev := recvEvent(t, c.Events())
	require.NotNil(t, ev.Message)
	assert.Equal(t, MaxContentLength, utf8.RuneCountInString(ev.Message.Content))
	assert.Equal(t, Connected, c.State(), "expected the connection to survive a max-length message")
}

func TestConn_MalformedFramesCounted(t *testing.T) {
	b := testutil.NewFakeBackend(t)

	st := &stats.MockRecorder{}
	st.On("Incr", mock.Anything).Return()

	c := NewConn(backendWSURL(b), testutil.TestLogger(t), st)
	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	b.PushRaw([]byte(`{"type":"message"}`))
	b.Push(types.Message{Id: 8, RoomId: 1, Content: "ok"})

	recvEvent(t, c.Events())
	st.AssertCalled(t, "Incr", stats.FramesDropped)
}

func TestConn_Send(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestConn(t, b)
	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	t.Run("trims and transmits", func(t *testing.T) {
		require.NoError(t, c.Send(1, "  hello  "))

		assert.Eventually(t, func() bool {
			sent := b.Sent()
			return len(sent) == 1 && sent[0].RoomId == 1 && sent[0].Content == "hello"
		}, 2*time.Second, 10*time.Millisecond, "expected the frame to reach the backend trimmed")
	})

	t.Run("rejects empty content", func(t *testing.T) {
		assert.ErrorIs(t, c.Send(1, "   "), ErrEmptyContent)
	})

	t.Run("rejects oversized content", func(t *testing.T) {
		assert.ErrorIs(t, c.Send(1, strings.Repeat("x", MaxContentLength+1)), ErrContentTooLong)
		assert.NoError(t, c.Send(1, strings.Repeat("x", MaxContentLength)))
	})
}

func TestConn_SendNotConnected(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestConn(t, b)

	assert.ErrorIs(t, c.Send(1, "hello"), ErrNotConnected)
	assert.Empty(t, b.Sent(), "expected no frame to be transmitted")

	require.NoError(t, c.Open(context.Background()))
	c.Close()

	assert.ErrorIs(t, c.Send(1, "hello"), ErrNotConnected)
}

func TestConn_ServerClose(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestConn(t, b)
	require.NoError(t, c.Open(context.Background()))

	events := c.Events()
	b.CloseConns()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "expected the event channel to close on remote closure")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	assert.Eventually(t, func() bool {
		return c.State() == Disconnected
	}, 2*time.Second, 10*time.Millisecond)
}
