package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-lms/darasa/core"
)

var ErrInvalidRoomKey = errors.New("invalid room key")

type (
	// Sender is the public subset of a user embedded in message payloads.
	Sender struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// Message is one immutable chat message. ReceiverID is null when a
	// student addresses the course instructor generically.
	Message struct {
		ID         string      `json:"id"`
		SenderID   string      `json:"sender_id"`
		ReceiverID null.String `json:"receiver_id,omitempty"`
		CourseID   string      `json:"course_id"`
		Content    string      `json:"content"`
		Sender     Sender      `json:"sender,omitempty"`
		CreatedAt  time.Time   `json:"created_at"` // UTC
	}

	// Partner is a distinct conversation counterpart within one course.
	Partner struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// ConversationSummary is one (course, student) conversation with its
	// latest message, for the instructor's cross-course inbox.
	ConversationSummary struct {
		Student         Partner   `json:"student"`
		CourseID        string    `json:"course_id"`
		CourseTitle     string    `json:"course_title"`
		LastMessage     string    `json:"last_message"`
		LastMessageTime time.Time `json:"last_message_time"` // UTC
	}
)

// NewMessage contains information needed to send a message.
type NewMessage struct {
	ReceiverID string `json:"receiver_id" validate:"omitempty,uuid4"`
	CourseID   string `json:"course_id" validate:"required,uuid4"`
	Content    string `json:"content" validate:"required"`
	Room       string `json:"room" validate:"required"`
}

func (nm *NewMessage) Validate() error {
	nm.Content = core.CleanString(nm.Content)
	return core.Validate.Struct(nm)
}

// RoomKey derives the conversation room key for a (course, student) pair.
// Both parties must derive the key from the student's id: an instructor
// opening a conversation must resolve which student they are addressing
// first, never substitute their own id.
func RoomKey(courseID, studentID string) string {
	if courseID == "" || studentID == "" {
		return ""
	}
	return fmt.Sprintf("%s_%s", courseID, studentID)
}

// ParseRoomKey splits a room key back into its (course, student) pair.
func ParseRoomKey(key string) (courseID, studentID string, err error) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidRoomKey
	}
	return parts[0], parts[1], nil
}
