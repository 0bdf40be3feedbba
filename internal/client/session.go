package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smobile/chatclient/internal/stats"
	"github.com/smobile/chatclient/internal/types"
)

// SessionState tracks where the active room is in its load cycle.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionLoading
	SessionLive
)

func (s SessionState) String() string {
	switch s {
	case SessionLoading:
		return "loading"
	case SessionLive:
		return "live"
	default:
		return "idle"
	}
}

// HistoryService is the REST surface the session consumes.
type HistoryService interface {
	Rooms(ctx context.Context) ([]types.Room, error)
	History(ctx context.Context, roomId, limit int) ([]types.Message, error)
}

// Connection is the transport surface the session consumes.
type Connection interface {
	Open(ctx context.Context) error
	Send(roomId int, content string) error
	Close()
	Events() <-chan Event
	State() ConnState
}

// Observer receives session change notifications. Callbacks are invoked from
// the session loop (and ConnStateChanged additionally from Start), so
// implementations must be safe to call from other goroutines.
type Observer interface {
	ConnStateChanged(state ConnState)
	RoomsChanged(rooms []types.Room)
	MessagesChanged(roomId int, messages []types.Message)
	SessionError(err error)
}

type SessionConfig struct {
	HistoryLimit int
	// Reconnect enables redialing with backoff after a dropped
	// connection. Off by default; Open stays single-attempt either way.
	Reconnect  bool
	MaxRedials uint
}

// Session owns the message store, room directory and connection for one
// authenticated user and coordinates them: activating a room cancels any
// in-flight history fetch, clears the store, loads fresh history, and routes
// live events into the store and directory. All state is mutated on the
// single run-loop goroutine.
type Session struct {
	log       *slog.Logger
	api       HistoryService
	conn      Connection
	stats     stats.Recorder
	store     *MessageStore
	directory *RoomDirectory
	observer  Observer
	cfg       SessionConfig

	commands   chan command
	history    chan historyResult
	roomsRes   chan roomsResult
	redialDone chan error
	stop       chan struct{}
	stopOnce   sync.Once
	done       chan struct{}

	// Owned by the run loop.
	state       SessionState
	activeRoom  int
	gen         uint64
	cancelFetch context.CancelFunc
}

type command struct {
	activate   *activateCmd
	deactivate bool
	refresh    bool
}

type activateCmd struct {
	roomId int
}

type historyResult struct {
	gen      uint64
	roomId   int
	messages []types.Message
	err      error
}

type roomsResult struct {
	rooms []types.Room
	err   error
}

func NewSession(logger *slog.Logger, api HistoryService, conn Connection, st stats.Recorder,
	observer Observer, cfg SessionConfig) *Session {
	return &Session{
		log:        logger,
		api:        api,
		conn:       conn,
		stats:      st,
		store:      NewMessageStore(logger),
		directory:  NewRoomDirectory(logger),
		observer:   observer,
		cfg:        cfg,
		commands:   make(chan command, 16),
		history:    make(chan historyResult, 4),
		roomsRes:   make(chan roomsResult, 4),
		redialDone: make(chan error, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start opens the connection, starts the run loop, and kicks off the first
// directory refresh. A failed connection attempt is returned but does not
// prevent the session from running: history and directory fetches still work
// and the caller can present an offline state.
func (s *Session) Start(ctx context.Context) error {
	openErr := s.conn.Open(ctx)
	if openErr != nil {
		s.log.Warn("open connection", "error", openErr)
	}
	s.observer.ConnStateChanged(s.conn.State())

	go s.run(ctx)
	s.RefreshRooms()

	if openErr != nil {
		return fmt.Errorf("open connection: %w", openErr)
	}

	return nil
}

// Activate makes roomId the active room: any pending history fetch is
// cancelled, the store is cleared, and fresh history is loaded.
func (s *Session) Activate(roomId int) error {
	return s.post(command{activate: &activateCmd{roomId: roomId}})
}

// Deactivate clears the active room and the message store.
func (s *Session) Deactivate() error {
	return s.post(command{deactivate: true})
}

// RefreshRooms replaces the room directory from a fresh fetch.
func (s *Session) RefreshRooms() error {
	return s.post(command{refresh: true})
}

// SendMessage publishes content to a room over the live connection. The
// connection rejects sends while disconnected and enforces content bounds
// before anything is transmitted.
func (s *Session) SendMessage(roomId int, content string) error {
	return s.conn.Send(roomId, content)
}

// Stop shuts the session down and waits for the run loop to exit.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Session) post(cmd command) error {
	select {
	case s.commands <- cmd:
		return nil
	case <-s.done:
		return ErrSessionStopped
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	events := s.conn.Events()
	for {
		select {
		case cmd := <-s.commands:
			s.handleCommand(ctx, cmd)
		case ev, ok := <-events:
			if !ok {
				events = nil
				s.handleDisconnect(ctx)
				continue
			}
			s.handleEvent(ev)
		case res := <-s.history:
			s.handleHistory(res)
		case res := <-s.roomsRes:
			s.handleRooms(res)
		case err := <-s.redialDone:
			if err != nil {
				s.observer.SessionError(fmt.Errorf("reconnect: %w", err))
				continue
			}
			events = s.conn.Events()
			s.stats.Incr(stats.Reconnects)
			s.observer.ConnStateChanged(Connected)
			s.refreshRooms(ctx)
		case <-s.stop:
			s.shutdown()
			return
		case <-ctx.Done():
			s.shutdown()
			return
		}
	}
}

func (s *Session) handleCommand(ctx context.Context, cmd command) {
	switch {
	case cmd.activate != nil:
		s.activate(ctx, cmd.activate.roomId)
	case cmd.deactivate:
		s.deactivate()
	case cmd.refresh:
		s.refreshRooms(ctx)
	}
}

func (s *Session) activate(ctx context.Context, roomId int) {
	s.cancelPending()

	// The store must be empty before any new history arrives so nothing
	// leaks across rooms.
	s.store.Clear()
	s.activeRoom = roomId
	s.state = SessionLoading
	s.observer.MessagesChanged(roomId, nil)

	s.directory.ResetUnread(roomId)
	s.observer.RoomsChanged(s.directory.Rooms())

	s.gen++
	gen := s.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel

	s.log.Debug("activating room", "room_id", roomId, "generation", gen)

	go func() {
		messages, err := s.api.History(fetchCtx, roomId, s.cfg.HistoryLimit)
		select {
		case s.history <- historyResult{gen: gen, roomId: roomId, messages: messages, err: err}:
		case <-s.done:
		}
	}()
}

func (s *Session) deactivate() {
	s.cancelPending()
	s.store.Clear()
	s.state = SessionIdle
	// A fetch that completes after this point carries a stale generation
	// and must not resurrect the cleared store.
	s.gen++
	roomId := s.activeRoom
	s.activeRoom = 0
	s.observer.MessagesChanged(roomId, nil)
}

func (s *Session) handleHistory(res historyResult) {
	if res.gen != s.gen {
		// A newer activation superseded this fetch.
		s.log.Debug("discarding superseded history", "room_id", res.roomId, "generation", res.gen)
		return
	}

	s.cancelPending()

	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			return
		}

		s.state = SessionIdle
		s.activeRoom = 0
		s.observer.SessionError(fmt.Errorf("load history: %w", res.err))
		return
	}

	s.store.Replace(res.messages)
	s.state = SessionLive
	s.stats.Incr(stats.HistoryFetches)
	s.observer.MessagesChanged(res.roomId, s.store.Messages())
}

func (s *Session) refreshRooms(ctx context.Context) {
	go func() {
		rooms, err := s.api.Rooms(ctx)
		select {
		case s.roomsRes <- roomsResult{rooms: rooms, err: err}:
		case <-s.done:
		}
	}()
}

func (s *Session) handleRooms(res roomsResult) {
	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			return
		}

		// Fail open with an empty directory; the error is surfaced for
		// display, not retried.
		s.directory.ReplaceAll(nil)
		s.observer.RoomsChanged(nil)
		s.observer.SessionError(fmt.Errorf("refresh rooms: %w", res.err))
		return
	}

	s.directory.ReplaceAll(res.rooms)
	s.stats.Incr(stats.RoomRefreshes)
	s.observer.RoomsChanged(s.directory.Rooms())
}

func (s *Session) handleEvent(ev Event) {
	switch {
	case ev.Message != nil:
		msg := *ev.Message
		s.stats.Incr(stats.MessagesReceived)

		// The directory always sees live messages; the store only when the
		// message belongs to the live active room.
		s.directory.ApplyIncoming(msg, s.activeRoom)
		s.observer.RoomsChanged(s.directory.Rooms())

		if s.state == SessionLive && msg.RoomId == s.activeRoom {
			if s.store.Append(msg) {
				s.observer.MessagesChanged(msg.RoomId, s.store.Messages())
			}
		}
	case ev.ServerError != "":
		s.observer.SessionError(fmt.Errorf("server error: %s", ev.ServerError))
	}
}

func (s *Session) handleDisconnect(ctx context.Context) {
	s.observer.ConnStateChanged(Disconnected)

	if !s.cfg.Reconnect {
		return
	}

	s.log.Info("connection lost, redialing")
	go func() {
		select {
		case s.redialDone <- s.redial(ctx):
		case <-s.done:
		}
	}()
}

func (s *Session) cancelPending() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
}

func (s *Session) shutdown() {
	s.cancelPending()
	s.conn.Close()
}
