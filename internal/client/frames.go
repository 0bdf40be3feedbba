package client

import (
	"encoding/json"

	"github.com/smobile/chatclient/internal/types"
)

// Frame tags recognized on the inbound stream. Anything else is ignored.
const (
	frameTypeMessage = "message"
	frameTypeError   = "error"
)

// publishFrame is the only outbound frame shape.
type publishFrame struct {
	RoomId  int    `json:"room_id"`
	Content string `json:"content"`
}

// inboundFrame covers both recognized inbound shapes: message frames carry
// the message fields inline next to the tag, error frames carry a detail
// string.
type inboundFrame struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
	types.Message
}

// Event is a discriminated inbound event: exactly one field is set.
type Event struct {
	Message *types.Message
	// ServerError is a non-fatal error frame from the far end.
	ServerError string
}

// parseFrame decodes a raw inbound frame. It returns false for malformed
// payloads and unrecognized tags; those must not surface as errors.
func parseFrame(raw []byte) (Event, bool) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Event{}, false
	}

	switch frame.Type {
	case frameTypeMessage:
		if frame.Id == 0 || frame.RoomId == 0 {
			return Event{}, false
		}

		msg := frame.Message
		return Event{Message: &msg}, true
	case frameTypeError:
		return Event{ServerError: frame.Detail}, true
	}

	return Event{}, false
}
