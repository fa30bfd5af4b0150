package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/darasa-lms/darasa/core/chat"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/tests"
)

func Test_chatApi(t *testing.T) {
	resetDB(t)

	instructor := testutil.CreateUser(t, usrRepo, "Teacher", "teacher1", "teacher1@test.cd", "", user.InstructorRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Student One", "student1", "student1@test.cd", "", user.StudentRoles, true)
	student2 := testutil.CreateUser(t, usrRepo, "Student Two", "student2", "student2@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, crsRepo, "Go 101", instructor, course.StatusPublished, 50)

	now := time.Now().UTC()
	testutil.CreateMessage(t, chatRepo, student, crs, "first question", now.Add(-3*time.Hour))
	testutil.CreateMessage(t, chatRepo, student, crs, "second question", now.Add(-2*time.Hour))
	testutil.CreateMessage(t, chatRepo, student2, crs, "other question", now.Add(-time.Hour))
	testutil.CreateMessage(t, chatRepo, instructor, crs, "an answer", now)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/chat/courses/"+crs.ID)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		}, rec)
	})

	t.Run("student reads their own thread", func(t *testing.T) {
		// the partner param is ignored for students
		req, rec := newAuthRequest(http.MethodGet, "/v1/chat/courses/"+crs.ID+"?partner="+student2.ID, getToken(t, student))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var msgs []chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("got %d messages; want 2", len(msgs))
		}
		for _, msg := range msgs {
			if msg.SenderID != student.ID {
				t.Errorf("leaked a message from %q", msg.SenderID)
			}
		}
		if !msgs[0].CreatedAt.Before(msgs[1].CreatedAt) {
			t.Error("messages are not oldest first")
		}
	})

	t.Run("instructor reads a named counterpart", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/chat/courses/"+crs.ID+"?partner="+student2.ID, getToken(t, instructor))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var msgs []chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(msgs) != 1 || msgs[0].Content != "other question" {
			t.Errorf("messages = %+v; want student2's thread", msgs)
		}
	})

	t.Run("instructor without a counterpart gets an empty thread", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/chat/courses/"+crs.ID, getToken(t, instructor))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("partners exclude the requester", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/chat/courses/"+crs.ID+"/partners", getToken(t, instructor))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var partners []chat.Partner
		if err := json.Unmarshal(rec.Body.Bytes(), &partners); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(partners) != 2 {
			t.Fatalf("got %d partners; want 2", len(partners))
		}
		for _, p := range partners {
			if p.ID == instructor.ID {
				t.Error("requester listed as their own partner")
			}
		}
	})

	t.Run("conversations inbox is instructor-only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/chat/conversations", getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("conversations inbox", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/chat/conversations", getToken(t, instructor))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var sums []chat.ConversationSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &sums); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(sums) != 2 {
			t.Fatalf("got %d summaries; want 2", len(sums))
		}
		// one summary per student with their latest message
		latest := map[string]string{
			student.ID:  "second question",
			student2.ID: "other question",
		}
		for _, s := range sums {
			if want := latest[s.Student.ID]; s.LastMessage != want {
				t.Errorf("LastMessage for %q = %q; want %q", s.Student.Name, s.LastMessage, want)
			}
		}
	})
}
