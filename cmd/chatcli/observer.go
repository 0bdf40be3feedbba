package main

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/smobile/chatclient/internal/client"
	"github.com/smobile/chatclient/internal/types"
)

type connStateMsg struct {
	state client.ConnState
}

type roomsMsg struct {
	rooms []types.Room
}

type messagesMsg struct {
	roomId   int
	messages []types.Message
}

type sessionErrMsg struct {
	err error
}

// uiObserver forwards session notifications into the bubbletea program.
// Notifications that arrive before the program exists are queued and
// replayed on attach.
type uiObserver struct {
	mu    sync.Mutex
	p     *tea.Program
	queue []tea.Msg
}

func newUIObserver() *uiObserver {
	return &uiObserver{}
}

func (o *uiObserver) attach(p *tea.Program) {
	o.mu.Lock()
	o.p = p
	queue := o.queue
	o.queue = nil
	o.mu.Unlock()

	for _, msg := range queue {
		p.Send(msg)
	}
}

func (o *uiObserver) send(msg tea.Msg) {
	o.mu.Lock()
	if o.p == nil {
		o.queue = append(o.queue, msg)
		o.mu.Unlock()
		return
	}
	p := o.p
	o.mu.Unlock()

	p.Send(msg)
}

func (o *uiObserver) ConnStateChanged(state client.ConnState) {
	o.send(connStateMsg{state: state})
}

func (o *uiObserver) RoomsChanged(rooms []types.Room) {
	o.send(roomsMsg{rooms: rooms})
}

func (o *uiObserver) MessagesChanged(roomId int, messages []types.Message) {
	o.send(messagesMsg{roomId: roomId, messages: messages})
}

func (o *uiObserver) SessionError(err error) {
	o.send(sessionErrMsg{err: err})
}
