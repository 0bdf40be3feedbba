package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smobile/chatclient/internal/types"
)

// OutboundFrame is the shape of frames the client publishes over the socket.
type OutboundFrame struct {
	RoomId  int    `json:"room_id"`
	Content string `json:"content"`
}

// FakeBackend is a scripted stand-in for the marketplace chat service. It
// serves the directory and history endpoints over HTTP and accepts one or
// more websocket connections that frames can be pushed through.
type FakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	rooms       []types.Room
	history     map[int][]types.Message
	historyGate chan struct{}
	conns       []*websocket.Conn
	sent        []OutboundFrame
	failHistory bool
	failRooms   bool
}

func NewFakeBackend(t *testing.T) *FakeBackend {
	b := &FakeBackend{
		t:       t,
		history: make(map[int][]types.Message),
	}

	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/chat/rooms", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		fail := b.failRooms
		rooms := b.rooms
		b.mu.Unlock()

		if fail {
			writeErr(w, http.StatusInternalServerError, "internal server error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rooms)
	})
	mux.HandleFunc("GET /api/v1/chat/history/{room_id}", func(w http.ResponseWriter, r *http.Request) {
		roomId, err := strconv.Atoi(r.PathValue("room_id"))
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid room id")
			return
		}

		b.mu.Lock()
		fail := b.failHistory
		gate := b.historyGate
		msgs := b.history[roomId]
		b.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if fail {
			writeErr(w, http.StatusInternalServerError, "internal server error")
			return
		}

		limit := len(msgs)
		if l := r.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n < limit {
				limit = n
			}
		}
		if before := r.URL.Query().Get("before_id"); before != "" {
			cursor, err := strconv.Atoi(before)
			if err != nil {
				writeErr(w, http.StatusBadRequest, "invalid cursor")
				return
			}
			var older []types.Message
			for _, m := range msgs {
				if m.Id < cursor {
					older = append(older, m)
				}
			}
			msgs = older
			if limit > len(msgs) {
				limit = len(msgs)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"room_id":  roomId,
			"messages": msgs[len(msgs)-limit:],
		})
	})
	mux.HandleFunc("GET /api/v1/chat/ws/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		b.mu.Lock()
		b.conns = append(b.conns, conn)
		b.mu.Unlock()

		go b.readLoop(conn)
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.Close)

	return b
}

func (b *FakeBackend) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame OutboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		b.mu.Lock()
		b.sent = append(b.sent, frame)
		b.mu.Unlock()
	}
}

// URL returns the backend's base HTTP URL.
func (b *FakeBackend) URL() string {
	return b.srv.URL
}

func (b *FakeBackend) SetRooms(rooms []types.Room) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = rooms
}

func (b *FakeBackend) SetHistory(roomId int, msgs []types.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history[roomId] = msgs
}

func (b *FakeBackend) FailRooms(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRooms = fail
}

func (b *FakeBackend) FailHistory(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failHistory = fail
}

// HoldHistory blocks history responses until the returned release func is
// called. Used to exercise superseded in-flight fetches.
func (b *FakeBackend) HoldHistory() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.historyGate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.historyGate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Push writes a live message frame to every connected socket.
func (b *FakeBackend) Push(msg types.Message) {
	payload := map[string]any{
		"type":        "message",
		"id":          msg.Id,
		"room_id":     msg.RoomId,
		"sender_id":   msg.SenderId,
		"sender_name": msg.SenderName,
		"sender_role": msg.SenderRole,
		"content":     msg.Content,
		"timestamp":   msg.Timestamp,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		b.t.Fatalf("marshal frame: %v", err)
	}

	b.PushRaw(raw)
}

// waitConn blocks until at least one socket has registered. The dial
// handshake completes before the handler goroutine records the
// connection, so an immediate push could otherwise race past it.
func (b *FakeBackend) waitConn() {
	deadline := time.Now().Add(2 * time.Second)
	for {
		b.mu.Lock()
		n := len(b.conns)
		b.mu.Unlock()

		if n > 0 || time.Now().After(deadline) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// PushRaw writes an arbitrary frame to every connected socket.
func (b *FakeBackend) PushRaw(raw []byte) {
	b.waitConn()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, conn := range b.conns {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			b.t.Logf("push: %v", err)
		}
	}
}

// Sent returns the outbound frames received so far.
func (b *FakeBackend) Sent() []OutboundFrame {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]OutboundFrame, len(b.sent))
	copy(out, b.sent)
	return out
}

// CloseConns closes the server side of every websocket connection.
func (b *FakeBackend) CloseConns() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, conn := range b.conns {
		conn.Close()
	}
	b.conns = nil
}

func (b *FakeBackend) Close() {
	b.CloseConns()
	b.srv.Close()
}

func writeErr(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
