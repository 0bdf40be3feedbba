package client

import (
	"log/slog"
	"sort"
	"time"

	"github.com/smobile/chatclient/internal/types"
)

// RoomDirectory is the authoritative client-side view of room metadata:
// previews and unread counts for every room the user belongs to. Like the
// store, it is mutated only from the session loop.
type RoomDirectory struct {
	log   *slog.Logger
	rooms map[int]*types.Room
}

func NewRoomDirectory(logger *slog.Logger) *RoomDirectory {
	return &RoomDirectory{
		log:   logger,
		rooms: make(map[int]*types.Room),
	}
}

// ReplaceAll swaps in a fresh room set from a directory fetch.
func (d *RoomDirectory) ReplaceAll(rooms []types.Room) {
	d.rooms = make(map[int]*types.Room, len(rooms))
	for _, room := range rooms {
		r := room
		d.rooms[room.Id] = &r
	}
}

// ApplyIncoming updates the room's preview for a live message and bumps its
// unread count when the message's room is not the active one.
func (d *RoomDirectory) ApplyIncoming(msg types.Message, activeRoomId int) {
	room, ok := d.rooms[msg.RoomId]
	if !ok {
		// A message for a room we haven't fetched yet; the next directory
		// refresh will pick it up.
		d.log.Debug("message for unknown room", "room_id", msg.RoomId, "id", msg.Id)
		return
	}

	room.LastMessage = &types.LastMessage{
		Content:   msg.Content,
		SenderId:  msg.SenderId,
		Timestamp: msg.Timestamp,
	}

	if msg.RoomId != activeRoomId {
		room.UnreadCount++
	}
}

// ResetUnread zeroes a room's unread count, typically on activation.
func (d *RoomDirectory) ResetUnread(roomId int) {
	if room, ok := d.rooms[roomId]; ok {
		room.UnreadCount = 0
	}
}

// Room returns a copy of the room with the given id.
func (d *RoomDirectory) Room(id int) (types.Room, bool) {
	room, ok := d.rooms[id]
	if !ok {
		return types.Room{}, false
	}

	return *room, true
}

// Rooms returns a snapshot of all rooms ordered by most recent activity.
func (d *RoomDirectory) Rooms() []types.Room {
	out := make([]types.Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		out = append(out, *room)
	}

	sort.Slice(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})

	return out
}

// TotalUnread is the aggregate unread count across all rooms.
func (d *RoomDirectory) TotalUnread() int {
	var total int
	for _, room := range d.rooms {
		total += room.UnreadCount
	}

	return total
}

func lastActivity(room types.Room) time.Time {
	if room.LastMessage != nil {
		return room.LastMessage.Timestamp
	}

	return room.CreatedAt
}
