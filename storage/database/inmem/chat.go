package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasa-lms/darasa/core/chat"
)

type chatRepository struct {
	db      *chatTable
	users   *userTable
	courses *courseTable
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *DB) *chatRepository {
	return &chatRepository{db: db.chat, users: db.user, courses: db.course}
}

// senderOf resolves the message's sender summary.
func (repo *chatRepository) senderOf(msg chat.Message) chat.Sender {
	repo.users.RLock()
	defer repo.users.RUnlock()

	snd := chat.Sender{ID: msg.SenderID}
	if usr, ok := repo.users.table[msg.SenderID]; ok {
		snd.Name = usr.Name
		snd.Email = usr.Email
	}
	return snd
}

// query returns messages sorted oldest first; callers must hold the lock.
func (repo *chatRepository) query() []chat.Message {
	msgs := make([]chat.Message, 0, len(repo.db.table))
	for _, m := range repo.db.table {
		msgs = append(msgs, *m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs
}

func (repo *chatRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	repo.db.Lock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	stored := msg
	stored.Sender = chat.Sender{}
	repo.db.table[msg.ID] = &stored
	repo.db.Unlock()

	msg.Sender = repo.senderOf(msg)
	return msg, nil
}

func (repo *chatRepository) QueryCourseMessages(ctx context.Context, courseID, participantID string) ([]chat.Message, error) {
	repo.db.RLock()
	all := repo.query()
	repo.db.RUnlock()

	msgs := make([]chat.Message, 0)
	for _, msg := range all {
		if msg.CourseID != courseID {
			continue
		}
		if msg.SenderID != participantID && msg.ReceiverID.String != participantID {
			continue
		}
		msg.Sender = repo.senderOf(msg)
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (repo *chatRepository) QueryCoursePartners(ctx context.Context, courseID string) ([]chat.Partner, error) {
	repo.db.RLock()
	all := repo.query()
	repo.db.RUnlock()

	seen := make(map[string]struct{})
	partners := make([]chat.Partner, 0)
	for _, msg := range all {
		if msg.CourseID != courseID {
			continue
		}
		if _, ok := seen[msg.SenderID]; ok {
			continue
		}
		seen[msg.SenderID] = struct{}{}
		snd := repo.senderOf(msg)
		partners = append(partners, chat.Partner{ID: snd.ID, Name: snd.Name, Email: snd.Email})
	}
	sort.Slice(partners, func(i, j int) bool { return partners[i].Name < partners[j].Name })
	return partners, nil
}

func (repo *chatRepository) QueryConversationSummaries(ctx context.Context, courseIDs ...string) ([]chat.ConversationSummary, error) {
	wanted := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}

	repo.db.RLock()
	all := repo.query()
	repo.db.RUnlock()

	type convKey struct{ courseID, senderID string }
	latest := make(map[convKey]chat.Message)
	for _, msg := range all {
		if _, ok := wanted[msg.CourseID]; !ok {
			continue
		}
		key := convKey{msg.CourseID, msg.SenderID}
		if last, ok := latest[key]; !ok || msg.CreatedAt.After(last.CreatedAt) {
			latest[key] = msg
		}
	}

	sums := make([]chat.ConversationSummary, 0, len(latest))
	for _, msg := range latest {
		snd := repo.senderOf(msg)
		var title string
		repo.courses.RLock()
		if crs, ok := repo.courses.courses[msg.CourseID]; ok {
			title = crs.Title
		}
		repo.courses.RUnlock()

		sums = append(sums, chat.ConversationSummary{
			Student:         chat.Partner{ID: snd.ID, Name: snd.Name, Email: snd.Email},
			CourseID:        msg.CourseID,
			CourseTitle:     title,
			LastMessage:     msg.Content,
			LastMessageTime: msg.CreatedAt,
		})
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].LastMessageTime.After(sums[j].LastMessageTime) })
	return sums, nil
}
