package client

import (
	"log/slog"

	"github.com/smobile/chatclient/internal/types"
)

// MessageStore is the ordered, deduplicated message log for the active room.
// It is mutated only from the session loop.
type MessageStore struct {
	log      *slog.Logger
	messages []types.Message
	ids      map[int]struct{}
}

func NewMessageStore(logger *slog.Logger) *MessageStore {
	return &MessageStore{
		log: logger,
		ids: make(map[int]struct{}),
	}
}

// Replace installs a freshly loaded history, establishing the initial order.
func (s *MessageStore) Replace(messages []types.Message) {
	s.messages = s.messages[:0]
	clear(s.ids)

	for _, msg := range messages {
		s.add(msg)
	}
}

// Append adds a live message at the end, preserving arrival order. It
// reports false if a message with the same id is already present.
func (s *MessageStore) Append(msg types.Message) bool {
	if _, ok := s.ids[msg.Id]; ok {
		s.log.Debug("ignoring duplicate message", "id", msg.Id, "room_id", msg.RoomId)
		return false
	}

	s.add(msg)
	return true
}

func (s *MessageStore) add(msg types.Message) {
	if _, ok := s.ids[msg.Id]; ok {
		return
	}

	if n := len(s.messages); n > 0 && msg.Id < s.messages[n-1].Id {
		// Server ids are assumed monotonic per room; worth knowing when
		// the transport delivers out of order.
		s.log.Debug("message arrived out of id order",
			"id", msg.Id, "tail_id", s.messages[n-1].Id)
	}

	s.messages = append(s.messages, msg)
	s.ids[msg.Id] = struct{}{}
}

func (s *MessageStore) Clear() {
	s.messages = s.messages[:0]
	clear(s.ids)
}

// Messages returns a copy of the current log.
func (s *MessageStore) Messages() []types.Message {
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *MessageStore) Len() int {
	return len(s.messages)
}
