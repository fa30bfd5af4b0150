package realtime

import "encoding/json"

// Live channel event types.
const (
	// client -> server
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"

	// server -> client
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventError          = "error"
)

// Event is the wire envelope for both directions of the live channel.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinPayload joins or leaves a conversation room.
type JoinPayload struct {
	Room string `json:"room"`
}

// AckPayload acknowledges a committed message to its sender.
type AckPayload struct {
	ID   string `json:"id"`
	Room string `json:"room"`
}

// ErrorPayload reports a failed event to the offending client only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewEvent marshals data into an outbound Event envelope.
func NewEvent(typ string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Data: raw}, nil
}
