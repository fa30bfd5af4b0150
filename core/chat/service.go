package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound             = errors.New("message not found")
	ErrNotConversationParty = errors.New("you are not a party to this conversation")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryCourseMessages returns the course's messages sent or received
		// by participantID, oldest first, with Sender populated.
		QueryCourseMessages(ctx context.Context, courseID, participantID string) ([]Message, error)
		// QueryCoursePartners returns the distinct senders in a course.
		QueryCoursePartners(ctx context.Context, courseID string) ([]Partner, error)
		// QueryConversationSummaries groups messages in the given courses by
		// (course, sender) and returns the latest message of each group, most
		// recent first.
		QueryConversationSummaries(ctx context.Context, courseIDs ...string) ([]ConversationSummary, error)
	}

	Service interface {
		// Send validates and persists a message. The sender identity always
		// comes from the authenticated caller, never from the payload.
		Send(ctx context.Context, sender user.User, nm NewMessage) (Message, error)
		// CourseConversation returns one conversation's history, oldest first.
		// Students are restricted to their own messages; instructors and
		// admins must name a counterpart explicitly.
		CourseConversation(ctx context.Context, requester user.User, courseID, counterpartID string) ([]Message, error)
		// CoursePartners lists the distinct users who messaged in a course,
		// excluding the requester.
		CoursePartners(ctx context.Context, requester user.User, courseID string) ([]Partner, error)
		// Conversations returns the requester's cross-course conversation
		// summaries, most recent first.
		Conversations(ctx context.Context, requester user.User) ([]ConversationSummary, error)
		// Authorize reports whether the requester may join the room.
		Authorize(requester user.User, roomKey string) error
	}

	service struct {
		repo      Repository
		courseSvc course.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
	}
}

func (svc *service) Send(ctx context.Context, sender user.User, nm NewMessage) (Message, error) {
	if err := nm.Validate(); err != nil {
		return Message{}, err
	}
	msg := Message{
		SenderID:   sender.ID,
		ReceiverID: null.NewString(nm.ReceiverID, nm.ReceiverID != ""),
		CourseID:   nm.CourseID,
		Content:    nm.Content,
		CreatedAt:  time.Now().UTC(),
	}
	msg, err := svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, errors.Wrap(err, "persisting message")
	}
	return msg, nil
}

func (svc *service) CourseConversation(ctx context.Context, requester user.User, courseID, counterpartID string) ([]Message, error) {
	participantID := counterpartID
	if !(requester.IsInstructor() || requester.IsAdmin()) {
		// students only ever see their own conversation
		participantID = requester.ID
	} else if counterpartID == "" {
		// no default "all messages" view; a counterpart must be named
		return []Message{}, nil
	}
	return svc.repo.QueryCourseMessages(ctx, courseID, participantID)
}

func (svc *service) CoursePartners(ctx context.Context, requester user.User, courseID string) ([]Partner, error) {
	partners, err := svc.repo.QueryCoursePartners(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]Partner, 0, len(partners))
	for _, p := range partners {
		if p.ID == requester.ID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (svc *service) Conversations(ctx context.Context, requester user.User) ([]ConversationSummary, error) {
	courses, err := svc.courseSvc.QueryByInstructor(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return []ConversationSummary{}, nil
	}
	courseIDs := make([]string, 0, len(courses))
	for _, crs := range courses {
		courseIDs = append(courseIDs, crs.ID)
	}

	summaries, err := svc.repo.QueryConversationSummaries(ctx, courseIDs...)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Student.ID == requester.ID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Authorize grants room membership to the student named in the key and to
// instructors/admins; anyone else is refused.
func (svc *service) Authorize(requester user.User, roomKey string) error {
	_, studentID, err := ParseRoomKey(roomKey)
	if err != nil {
		return err
	}
	if requester.ID == studentID || requester.IsInstructor() || requester.IsAdmin() {
		return nil
	}
	return ErrNotConversationParty
}
