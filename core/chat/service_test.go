package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/darasa-lms/darasa/core/chat"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/storage/database/inmem"
	"github.com/darasa-lms/darasa/tests"
)

type chatFixture struct {
	svc        chat.Service
	chatRepo   chat.Repository
	instructor user.User
	student    user.User
	student2   user.User
	admin      user.User
	crs        course.Course
	crs2       course.Course
}

func newChatFixture(t *testing.T) chatFixture {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	chatRepo := inmemdb.NewChatRepository(db)
	crsSvc := course.NewService(crsRepo)

	instructor := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.InstructorRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Student One", "student1", "student1@test.cd", "", user.StudentRoles, true)
	student2 := testutil.CreateUser(t, usrRepo, "Student Two", "student2", "student2@test.cd", "", user.StudentRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)
	crs := testutil.CreateCourse(t, crsRepo, "Go 101", instructor, course.StatusPublished, 50)
	crs2 := testutil.CreateCourse(t, crsRepo, "SQL 101", instructor, course.StatusPublished, 30)

	return chatFixture{
		svc:        chat.NewService(chatRepo, crsSvc),
		chatRepo:   chatRepo,
		instructor: instructor,
		student:    student,
		student2:   student2,
		admin:      admin,
		crs:        crs,
		crs2:       crs2,
	}
}

func TestServiceSend(t *testing.T) {
	ctx := context.Background()
	fix := newChatFixture(t)
	room := chat.RoomKey(fix.crs.ID, fix.student.ID)

	t.Run("persists with sender from the caller", func(t *testing.T) {
		msg, err := fix.svc.Send(ctx, fix.student, chat.NewMessage{
			CourseID: fix.crs.ID,
			Content:  "  hello there  ",
			Room:     room,
		})
		if err != nil {
			t.Fatalf("Send() failed: %v", err)
		}
		if msg.ID == "" {
			t.Error("Send() did not assign an id")
		}
		if msg.SenderID != fix.student.ID {
			t.Errorf("SenderID = %q; want %q", msg.SenderID, fix.student.ID)
		}
		if msg.Content != "hello there" {
			t.Errorf("Content = %q; want cleaned content", msg.Content)
		}
		if msg.ReceiverID.Valid {
			t.Errorf("ReceiverID = %q; want null", msg.ReceiverID.String)
		}

		// the message must be readable back from the store
		msgs, err := fix.chatRepo.QueryCourseMessages(ctx, fix.crs.ID, fix.student.ID)
		if err != nil {
			t.Fatalf("QueryCourseMessages() failed: %v", err)
		}
		if len(msgs) != 1 {
			t.Fatalf("got %d persisted messages; want 1", len(msgs))
		}
		if msgs[0].Sender.Name != fix.student.Name {
			t.Errorf("Sender.Name = %q; want %q", msgs[0].Sender.Name, fix.student.Name)
		}
	})

	t.Run("addressed message keeps its receiver", func(t *testing.T) {
		msg, err := fix.svc.Send(ctx, fix.instructor, chat.NewMessage{
			ReceiverID: fix.student.ID,
			CourseID:   fix.crs.ID,
			Content:    "welcome aboard",
			Room:       room,
		})
		if err != nil {
			t.Fatalf("Send() failed: %v", err)
		}
		if !msg.ReceiverID.Valid || msg.ReceiverID.String != fix.student.ID {
			t.Errorf("ReceiverID = %v; want %q", msg.ReceiverID, fix.student.ID)
		}
	})

	t.Run("rejects empty content", func(t *testing.T) {
		for _, content := range []string{"", "   "} {
			if _, err := fix.svc.Send(ctx, fix.student, chat.NewMessage{
				CourseID: fix.crs.ID,
				Content:  content,
				Room:     room,
			}); err == nil {
				t.Errorf("Send(%q) succeeded; want validation error", content)
			}
		}
		msgs, err := fix.chatRepo.QueryCourseMessages(ctx, fix.crs.ID, fix.student.ID)
		if err != nil {
			t.Fatalf("QueryCourseMessages() failed: %v", err)
		}
		for _, msg := range msgs {
			if msg.Content == "" {
				t.Error("an empty message was persisted")
			}
		}
	})

	t.Run("rejects missing room", func(t *testing.T) {
		if _, err := fix.svc.Send(ctx, fix.student, chat.NewMessage{
			CourseID: fix.crs.ID,
			Content:  "orphan",
		}); err == nil {
			t.Error("Send() succeeded; want validation error")
		}
	})
}

func TestServiceCourseConversation(t *testing.T) {
	ctx := context.Background()
	fix := newChatFixture(t)

	now := time.Now().UTC()
	m1 := testutil.CreateMessage(t, fix.chatRepo, fix.student, fix.crs, "first question", now.Add(-2*time.Hour))
	m2 := testutil.CreateMessage(t, fix.chatRepo, fix.student, fix.crs, "second question", now.Add(-time.Hour))
	testutil.CreateMessage(t, fix.chatRepo, fix.student2, fix.crs, "unrelated question", now)

	t.Run("student sees only their own conversation", func(t *testing.T) {
		// the counterpart argument is ignored for students
		msgs, err := fix.svc.CourseConversation(ctx, fix.student, fix.crs.ID, fix.student2.ID)
		if err != nil {
			t.Fatalf("CourseConversation() failed: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("got %d messages; want 2", len(msgs))
		}
		if msgs[0].ID != m1.ID || msgs[1].ID != m2.ID {
			t.Error("messages are not the student's own, oldest first")
		}
	})

	t.Run("instructor reads a named counterpart", func(t *testing.T) {
		msgs, err := fix.svc.CourseConversation(ctx, fix.instructor, fix.crs.ID, fix.student2.ID)
		if err != nil {
			t.Fatalf("CourseConversation() failed: %v", err)
		}
		if len(msgs) != 1 {
			t.Fatalf("got %d messages; want 1", len(msgs))
		}
		if msgs[0].SenderID != fix.student2.ID {
			t.Errorf("SenderID = %q; want %q", msgs[0].SenderID, fix.student2.ID)
		}
	})

	t.Run("instructor without a counterpart gets nothing", func(t *testing.T) {
		msgs, err := fix.svc.CourseConversation(ctx, fix.instructor, fix.crs.ID, "")
		if err != nil {
			t.Fatalf("CourseConversation() failed: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("got %d messages; want 0", len(msgs))
		}
	})
}

func TestServiceCoursePartners(t *testing.T) {
	ctx := context.Background()
	fix := newChatFixture(t)

	// several messages from the same student must yield one partner
	testutil.CreateMessage(t, fix.chatRepo, fix.student, fix.crs, "q1")
	testutil.CreateMessage(t, fix.chatRepo, fix.student, fix.crs, "q2")
	testutil.CreateMessage(t, fix.chatRepo, fix.student2, fix.crs, "q3")
	testutil.CreateMessage(t, fix.chatRepo, fix.instructor, fix.crs, "a1")
	testutil.CreateMessage(t, fix.chatRepo, fix.student, fix.crs2, "other course")

	t.Run("distinct partners excluding the requester", func(t *testing.T) {
		partners, err := fix.svc.CoursePartners(ctx, fix.instructor, fix.crs.ID)
		if err != nil {
			t.Fatalf("CoursePartners() failed: %v", err)
		}
		if len(partners) != 2 {
			t.Fatalf("got %d partners; want 2", len(partners))
		}
		for _, p := range partners {
			if p.ID == fix.instructor.ID {
				t.Error("requester listed as their own partner")
			}
		}
	})

	t.Run("scoped to the course", func(t *testing.T) {
		partners, err := fix.svc.CoursePartners(ctx, fix.instructor, fix.crs2.ID)
		if err != nil {
			t.Fatalf("CoursePartners() failed: %v", err)
		}
		if len(partners) != 1 || partners[0].ID != fix.student.ID {
			t.Errorf("partners = %+v; want only %q", partners, fix.student.ID)
		}
	})
}

func TestServiceConversations(t *testing.T) {
	ctx := context.Background()
	fix := newChatFixture(t)

	now := time.Now().UTC()
	testutil.CreateMessage(t, fix.chatRepo, fix.student, fix.crs, "old", now.Add(-3*time.Hour))
	latest := testutil.CreateMessage(t, fix.chatRepo, fix.student, fix.crs, "latest", now.Add(-time.Hour))
	testutil.CreateMessage(t, fix.chatRepo, fix.student2, fix.crs2, "hi", now.Add(-2*time.Hour))
	testutil.CreateMessage(t, fix.chatRepo, fix.instructor, fix.crs, "reply", now)

	t.Run("latest message per student per course, newest first", func(t *testing.T) {
		summaries, err := fix.svc.Conversations(ctx, fix.instructor)
		if err != nil {
			t.Fatalf("Conversations() failed: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("got %d summaries; want 2", len(summaries))
		}
		// the instructor's own replies never appear as conversations
		for _, s := range summaries {
			if s.Student.ID == fix.instructor.ID {
				t.Error("requester listed in their own inbox")
			}
		}
		if summaries[0].LastMessage != latest.Content {
			t.Errorf("LastMessage = %q; want %q", summaries[0].LastMessage, latest.Content)
		}
		if summaries[0].CourseTitle != fix.crs.Title {
			t.Errorf("CourseTitle = %q; want %q", summaries[0].CourseTitle, fix.crs.Title)
		}
	})

	t.Run("scoped to the requester's courses", func(t *testing.T) {
		summaries, err := fix.svc.Conversations(ctx, fix.student)
		if err != nil {
			t.Fatalf("Conversations() failed: %v", err)
		}
		if len(summaries) != 0 {
			t.Errorf("got %d summaries; want 0", len(summaries))
		}
	})
}

func TestServiceAuthorize(t *testing.T) {
	fix := newChatFixture(t)
	room := chat.RoomKey(fix.crs.ID, fix.student.ID)

	tests := []struct {
		name      string
		requester user.User
		roomKey   string
		wantErr   error
	}{
		{name: "student in the key", requester: fix.student, roomKey: room},
		{name: "instructor", requester: fix.instructor, roomKey: room},
		{name: "admin", requester: fix.admin, roomKey: room},
		{name: "foreign student", requester: fix.student2, roomKey: room, wantErr: chat.ErrNotConversationParty},
		{name: "malformed key", requester: fix.student, roomKey: "nonsense", wantErr: chat.ErrInvalidRoomKey},
		{name: "empty key", requester: fix.student, roomKey: "", wantErr: chat.ErrInvalidRoomKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fix.svc.Authorize(tt.requester, tt.roomKey); err != tt.wantErr {
				t.Errorf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
