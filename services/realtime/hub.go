package realtime

import (
	"context"
	"fmt"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/chat"
)

// Hub dispatches live chat events: it authorizes room joins, persists
// inbound messages through the chat service and re-emits the persisted
// record to every member of the target room.
//
// A message is durably stored before any broadcast; if persistence fails the
// error propagates to the sender and nobody else sees the message.
type Hub struct {
	registry *Registry
	chatSvc  chat.Service
	logger   core.Logger
}

func NewHub(registry *Registry, chatSvc chat.Service, logger core.Logger) *Hub {
	return &Hub{
		registry: registry,
		chatSvc:  chatSvc,
		logger:   logger,
	}
}

// Join registers the session in the room after an authorization check. An
// empty room key means the counterpart is not resolved yet (eg. an instructor
// with no student selected); the join is deferred, not an error.
func (h *Hub) Join(sess Session, roomKey string) error {
	if roomKey == "" {
		return nil
	}
	if err := h.chatSvc.Authorize(sess.User(), roomKey); err != nil {
		return err
	}
	h.registry.Join(sess, roomKey)
	return nil
}

// Leave removes the session from the room; idempotent.
func (h *Hub) Leave(sess Session, roomKey string) {
	h.registry.Leave(sess, roomKey)
}

// Disconnect cleans up all room memberships of a closed session.
func (h *Hub) Disconnect(sess Session) {
	h.registry.Drop(sess)
}

// Send persists the message and broadcasts the stored record, including its
// server-assigned id and timestamp, to all current members of the room; the
// sender's own session included, so its UI reflects the canonical form.
func (h *Hub) Send(ctx context.Context, sess Session, nm NewMessagePayload) (chat.Message, error) {
	msg, err := h.chatSvc.Send(ctx, sess.User(), chat.NewMessage{
		ReceiverID: nm.ReceiverID,
		CourseID:   nm.CourseID,
		Content:    nm.Content,
		Room:       nm.Room,
	})
	if err != nil {
		return chat.Message{}, err
	}

	event, err := NewEvent(EventReceiveMessage, msg)
	if err != nil {
		return chat.Message{}, err
	}
	for _, member := range h.registry.MembersOf(nm.Room) {
		if wErr := member.WriteJSON(event); wErr != nil {
			// slow or dead member; the rest of the room still gets the message
			h.logger.Warn(fmt.Sprintf("dropping broadcast to %s: %v", member.User().Username, wErr))
		}
	}
	return msg, nil
}

// NewMessagePayload is the inbound send_message event body. The sender
// identity is taken from the session, never from the payload.
type NewMessagePayload struct {
	ReceiverID string `json:"receiver_id,omitempty"`
	CourseID   string `json:"course_id"`
	Content    string `json:"content"`
	Room       string `json:"room"`
}
