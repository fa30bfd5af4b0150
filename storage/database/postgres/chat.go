package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-lms/darasa/core/chat"
)

type messageRow struct {
	ID          string      `db:"id"`
	SenderID    string      `db:"sender_id"`
	ReceiverID  null.String `db:"receiver_id"`
	CourseID    string      `db:"course_id"`
	Content     string      `db:"content"`
	CreatedAt   time.Time   `db:"created_at"`
	SenderName  string      `db:"sender_name"`
	SenderEmail string      `db:"sender_email"`
}

func (r messageRow) unpack() chat.Message {
	return chat.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		CourseID:   r.CourseID,
		Content:    r.Content,
		Sender: chat.Sender{
			ID:    r.SenderID,
			Name:  r.SenderName,
			Email: r.SenderEmail,
		},
		CreatedAt: r.CreatedAt,
	}
}

const messageSelect = `
SELECT m.*, u.name AS sender_name, u.email AS sender_email
FROM chat_message m
JOIN "user" u ON u.id = m.sender_id`

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *sqlx.DB) *chatRepository {
	return &chatRepository{db: db}
}

func (repo chatRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	q := `
INSERT INTO chat_message (id, sender_id, receiver_id, course_id, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.CourseID, msg.Content, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "creating message")
	}

	var row messageRow
	if err = repo.db.GetContext(ctx, &row, messageSelect+" WHERE m.id = $1", msg.ID); err != nil {
		return chat.Message{}, errors.Wrap(err, "getting created message")
	}
	return row.unpack(), nil
}

func (repo chatRepository) QueryCourseMessages(ctx context.Context, courseID, participantID string) ([]chat.Message, error) {
	var rows []messageRow
	q := messageSelect + `
WHERE m.course_id = $1 AND (m.sender_id = $2 OR m.receiver_id = $2)
ORDER BY m.created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID, participantID); err != nil {
		return nil, errors.Wrap(err, "querying course messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.unpack())
	}
	return msgs, nil
}

func (repo chatRepository) QueryCoursePartners(ctx context.Context, courseID string) ([]chat.Partner, error) {
	var partners []chat.Partner
	q := `
SELECT DISTINCT u.id, u.name, u.email
FROM chat_message m
JOIN "user" u ON u.id = m.sender_id
WHERE m.course_id = $1
ORDER BY u.name`
	if err := repo.db.SelectContext(ctx, &partners, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course partners")
	}
	if partners == nil {
		partners = []chat.Partner{}
	}
	return partners, nil
}

func (repo chatRepository) QueryConversationSummaries(ctx context.Context, courseIDs ...string) ([]chat.ConversationSummary, error) {
	if len(courseIDs) == 0 {
		return []chat.ConversationSummary{}, nil
	}

	var rows []struct {
		StudentID    string    `db:"student_id"`
		StudentName  string    `db:"student_name"`
		StudentEmail string    `db:"student_email"`
		CourseID     string    `db:"course_id"`
		CourseTitle  string    `db:"course_title"`
		Content      string    `db:"content"`
		CreatedAt    time.Time `db:"created_at"`
	}
	q := `
SELECT t.* FROM (
    SELECT DISTINCT ON (m.course_id, m.sender_id)
           u.id AS student_id, u.name AS student_name, u.email AS student_email,
           m.course_id, c.title AS course_title, m.content, m.created_at
    FROM chat_message m
    JOIN "user" u ON u.id = m.sender_id
    JOIN course c ON c.id = m.course_id
    WHERE m.course_id = ANY($1)
    ORDER BY m.course_id, m.sender_id, m.created_at DESC
) t
ORDER BY t.created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(courseIDs)); err != nil {
		return nil, errors.Wrap(err, "querying conversation summaries")
	}

	sums := make([]chat.ConversationSummary, 0, len(rows))
	for _, r := range rows {
		sums = append(sums, chat.ConversationSummary{
			Student: chat.Partner{
				ID:    r.StudentID,
				Name:  r.StudentName,
				Email: r.StudentEmail,
			},
			CourseID:        r.CourseID,
			CourseTitle:     r.CourseTitle,
			LastMessage:     r.Content,
			LastMessageTime: r.CreatedAt,
		})
	}
	return sums, nil
}
