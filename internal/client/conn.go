package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/smobile/chatclient/internal/stats"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10

	// maxFrameSize must fit a maximum-length message even when the server
	// escapes every rune to \uXXXX pairs, which inflates content to up to
	// twelve bytes per rune.
	maxFrameSize = 32768

	eventBufSize = 256
	sendBufSize  = 64

	// MaxContentLength is the server-enforced bound on message content;
	// violating sends are rejected before transmission.
	MaxContentLength = 2000
)

// ConnState is the connection lifecycle state.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Conn maintains the single websocket connection for a session. A successful
// Open starts the read and write pumps; the event channel is closed when the
// connection drops, from either end.
type Conn struct {
	log    *slog.Logger
	stats  stats.Recorder
	dialer *websocket.Dialer
	url    string

	mu      sync.Mutex
	state   ConnState
	ws      *websocket.Conn
	events  chan Event
	send    chan publishFrame
	stop    chan struct{}
	stopped bool
}

// NewConn creates a connection manager for the given websocket endpoint. The
// URL is expected to carry the user id and session token already.
func NewConn(wsURL string, logger *slog.Logger, st stats.Recorder) *Conn {
	return &Conn{
		log:    logger,
		stats:  st,
		dialer: websocket.DefaultDialer,
		url:    wsURL,
	}
}

func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Events returns the inbound event stream for the current connection, or nil
// if the connection was never opened.
func (c *Conn) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.events
}

// Open makes a single connection attempt. On failure the state returns to
// Disconnected; there is no implicit retry.
func (c *Conn) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("open: connection is %s", state)
	}
	c.state = Connecting
	c.mu.Unlock()

	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.state = Connected
	c.events = make(chan Event, eventBufSize)
	c.send = make(chan publishFrame, sendBufSize)
	c.stop = make(chan struct{})
	c.stopped = false
	events, send, stop := c.events, c.send, c.stop
	c.mu.Unlock()

	c.log.Info("connected", "url", c.url)

	go c.readPump(ws, events)
	go c.writePump(ws, send, stop)

	return nil
}

// Send queues a message frame for the write pump. Content must be non-empty
// after trimming and within MaxContentLength.
func (c *Conn) Send(roomId int, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Connected {
		return ErrNotConnected
	}

	// Enqueueing under the lock keeps the state check and the enqueue
	// atomic with respect to teardown. Delivery stays best effort: frames
	// already buffered when the connection drops are discarded with it.
	select {
	case c.send <- publishFrame{RoomId: roomId, Content: content}:
		return nil
	default:
		c.log.Warn("send buffer full", "room_id", roomId)
		return ErrSendBufferFull
	}
}

// Close releases the connection. Safe to call in any state, any number of
// times; the state is Disconnected afterwards.
func (c *Conn) Close() {
	c.teardown()
}

func (c *Conn) readPump(ws *websocket.Conn, events chan Event) {
	defer func() {
		c.teardown()
		close(events)
		c.log.Debug("read pump exiting")
	}()

	ws.SetReadLimit(maxFrameSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error { ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warn("ws read", "error", err)
			}
			return
		}

		ev, ok := parseFrame(raw)
		if !ok {
			c.stats.Incr(stats.FramesDropped)
			c.log.Debug("dropping unrecognized frame", "size", len(raw))
			continue
		}

		select {
		case events <- ev:
		default:
			c.stats.Incr(stats.FramesDropped)
			c.log.Warn("event buffer full, dropping frame")
		}
	}
}

func (c *Conn) writePump(ws *websocket.Conn, send chan publishFrame, stop chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		ws.Close()
		c.log.Debug("write pump exiting")
	}()

	for {
		select {
		case frame := <-send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(frame); err != nil {
				c.log.Warn("ws write", "error", err)
				return
			}
			c.stats.Incr(stats.MessagesSent)
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Conn) teardown() {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	if c.stop != nil && !c.stopped {
		c.stopped = true
		close(c.stop)
	}
	c.state = Disconnected
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
}
