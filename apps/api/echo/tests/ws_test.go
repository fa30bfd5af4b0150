package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/darasa-lms/darasa/core/chat"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/services/realtime"
	"github.com/darasa-lms/darasa/tests"
)

func hubMembers(t *testing.T, room string) int {
	t.Helper()
	return len(registry.MembersOf(room))
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, typ string, payload interface{}) {
	t.Helper()

	event, err := realtime.NewEvent(typ, payload)
	if err != nil {
		t.Fatalf("building event: %v", err)
	}
	if err := conn.WriteJSON(event); err != nil {
		t.Fatalf("writing event: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Event {
	t.Helper()

	var event realtime.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	return event
}

func Test_chatWS(t *testing.T) {
	resetDB(t)

	instructor := testutil.CreateUser(t, usrRepo, "Teacher", "teacher1", "teacher1@test.cd", "", user.InstructorRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Student One", "student1", "student1@test.cd", "", user.StudentRoles, true)
	intruder := testutil.CreateUser(t, usrRepo, "Student Two", "student2", "student2@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, crsRepo, "Go 101", instructor, course.StatusPublished, 50)
	room := chat.RoomKey(crs.ID, student.ID)

	srv := httptest.NewServer(app)
	defer srv.Close()

	t.Run("handshake requires a token", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatal("handshake succeeded without a token")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("handshake response = %+v; want %d", resp, http.StatusUnauthorized)
		}
	})

	t.Run("message round trip", func(t *testing.T) {
		studentConn := dialWS(t, srv, getToken(t, student))
		instructorConn := dialWS(t, srv, getToken(t, instructor))

		sendEvent(t, studentConn, realtime.EventJoinChat, realtime.JoinPayload{Room: room})
		sendEvent(t, instructorConn, realtime.EventJoinChat, realtime.JoinPayload{Room: room})

		// joins are processed in order per connection but we must not send
		// before the instructor's join landed; ping for ordering
		deadline := time.Now().Add(3 * time.Second)
		for hubMembers(t, room) < 2 {
			if time.Now().After(deadline) {
				t.Fatal("joins did not land in time")
			}
			time.Sleep(10 * time.Millisecond)
		}

		sendEvent(t, studentConn, realtime.EventSendMessage, realtime.NewMessagePayload{
			CourseID: crs.ID,
			Content:  "hujambo",
			Room:     room,
		})

		// the sender gets the broadcast first, then the commit ack
		var broadcast, ack realtime.Event
		first := readEvent(t, studentConn)
		second := readEvent(t, studentConn)
		for _, event := range []realtime.Event{first, second} {
			switch event.Type {
			case realtime.EventReceiveMessage:
				broadcast = event
			case realtime.EventMessageSent:
				ack = event
			default:
				t.Fatalf("unexpected event %q", event.Type)
			}
		}
		if broadcast.Type == "" || ack.Type == "" {
			t.Fatalf("missing events: got %q and %q", first.Type, second.Type)
		}

		var msg chat.Message
		if err := json.Unmarshal(broadcast.Data, &msg); err != nil {
			t.Fatalf("unmarshalling broadcast: %v", err)
		}
		if msg.ID == "" || msg.SenderID != student.ID || msg.Content != "hujambo" {
			t.Errorf("broadcast = %+v; want the stored message", msg)
		}

		var ackData realtime.AckPayload
		if err := json.Unmarshal(ack.Data, &ackData); err != nil {
			t.Fatalf("unmarshalling ack: %v", err)
		}
		if ackData.ID != msg.ID || ackData.Room != room {
			t.Errorf("ack = %+v; want id %q in %q", ackData, msg.ID, room)
		}

		// the other member sees the same record
		got := readEvent(t, instructorConn)
		if got.Type != realtime.EventReceiveMessage {
			t.Fatalf("instructor got %q; want %q", got.Type, realtime.EventReceiveMessage)
		}

		// and the message is durable
		msgs, err := chatRepo.QueryCourseMessages(context.Background(), crs.ID, student.ID)
		if err != nil {
			t.Fatalf("QueryCourseMessages() failed: %v", err)
		}
		if len(msgs) != 1 || msgs[0].ID != msg.ID {
			t.Errorf("stored messages = %+v; want the broadcast record", msgs)
		}
	})

	t.Run("foreign students cannot join the room", func(t *testing.T) {
		conn := dialWS(t, srv, getToken(t, intruder))

		sendEvent(t, conn, realtime.EventJoinChat, realtime.JoinPayload{Room: room})

		event := readEvent(t, conn)
		if event.Type != realtime.EventError {
			t.Fatalf("got %q; want %q", event.Type, realtime.EventError)
		}
		var payload realtime.ErrorPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			t.Fatalf("unmarshalling error payload: %v", err)
		}
		if payload.Message != chat.ErrNotConversationParty.Error() {
			t.Errorf("Message = %q; want %q", payload.Message, chat.ErrNotConversationParty.Error())
		}
	})

	t.Run("empty messages are rejected before persistence", func(t *testing.T) {
		conn := dialWS(t, srv, getToken(t, student))
		sendEvent(t, conn, realtime.EventJoinChat, realtime.JoinPayload{Room: room})

		sendEvent(t, conn, realtime.EventSendMessage, realtime.NewMessagePayload{
			CourseID: crs.ID,
			Content:  "   ",
			Room:     room,
		})

		event := readEvent(t, conn)
		if event.Type != realtime.EventError {
			t.Fatalf("got %q; want %q", event.Type, realtime.EventError)
		}
	})

	t.Run("unknown event types are reported", func(t *testing.T) {
		conn := dialWS(t, srv, getToken(t, student))
		sendEvent(t, conn, "dance", nil)

		event := readEvent(t, conn)
		if event.Type != realtime.EventError {
			t.Fatalf("got %q; want %q", event.Type, realtime.EventError)
		}
	})
}
