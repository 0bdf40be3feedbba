package types

import (
	"time"
)

// Role is the closed set of marketplace roles a chat participant can have.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleSeller Role = "SELLER"
	RoleBuyer  Role = "BUYER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleBuyer:
		return true
	}

	return false
}

type Participant struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// LastMessage is the preview a room carries for its most recent message.
type LastMessage struct {
	Content   string    `json:"content"`
	SenderId  int       `json:"sender_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Room struct {
	Id           int           `json:"id"`
	Name         string        `json:"name"`
	OrderId      *int          `json:"order_id"`
	IsActive     bool          `json:"is_active"`
	CreatedAt    time.Time     `json:"created_at,omitempty"`
	Participants []Participant `json:"participants"`
	LastMessage  *LastMessage  `json:"last_message"`
	UnreadCount  int           `json:"unread_count"`
}

// Message is immutable once received; only ReadAt may be attached later.
type Message struct {
	Id         int        `json:"id"`
	RoomId     int        `json:"room_id"`
	SenderId   int        `json:"sender_id"`
	SenderName string     `json:"sender_name"`
	SenderRole Role       `json:"sender_role"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}
