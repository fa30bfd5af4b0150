package chat

import (
	"testing"
)

func TestRoomKey(t *testing.T) {
	courseID := "0c7e8e63-56cb-41f4-bd3b-5c1c8e6a1d60"
	studentID := "8a2f6c7e-91d0-4b34-8f35-9188c7b2a001"
	instructorID := "f1d2b5a9-3c4e-4a6f-b7d8-0e1f2a3b4c5d"

	t.Run("derivation is deterministic", func(t *testing.T) {
		want := courseID + "_" + studentID
		if got := RoomKey(courseID, studentID); got != want {
			t.Errorf("RoomKey() = %q; want %q", got, want)
		}
	})

	// both parties must land in the same room: the instructor derives the
	// key from the student they are addressing, never from their own id
	t.Run("both parties derive the same key", func(t *testing.T) {
		studentSide := RoomKey(courseID, studentID)
		instructorSide := RoomKey(courseID, studentID)
		if studentSide != instructorSide {
			t.Errorf("keys diverge: %q != %q", studentSide, instructorSide)
		}
		if wrong := RoomKey(courseID, instructorID); wrong == studentSide {
			t.Error("instructor-derived key must not collide with the student room")
		}
	})

	t.Run("empty parts yield no key", func(t *testing.T) {
		if got := RoomKey("", studentID); got != "" {
			t.Errorf("RoomKey() = %q; want empty", got)
		}
		if got := RoomKey(courseID, ""); got != "" {
			t.Errorf("RoomKey() = %q; want empty", got)
		}
	})
}

func TestParseRoomKey(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		wantCourseID  string
		wantStudentID string
		wantErr       bool
	}{
		{name: "valid", key: "c1_s1", wantCourseID: "c1", wantStudentID: "s1"},
		{name: "empty", key: "", wantErr: true},
		{name: "no separator", key: "c1s1", wantErr: true},
		{name: "empty course", key: "_s1", wantErr: true},
		{name: "empty student", key: "c1_", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			courseID, studentID, err := ParseRoomKey(tt.key)
			if tt.wantErr {
				if err != ErrInvalidRoomKey {
					t.Errorf("ParseRoomKey() error = %v; want ErrInvalidRoomKey", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoomKey() failed: %v", err)
			}
			if courseID != tt.wantCourseID || studentID != tt.wantStudentID {
				t.Errorf("ParseRoomKey() = (%q, %q); want (%q, %q)", courseID, studentID, tt.wantCourseID, tt.wantStudentID)
			}
		})
	}
}

func TestRoomKeyRoundTrip(t *testing.T) {
	courseID := "0c7e8e63-56cb-41f4-bd3b-5c1c8e6a1d60"
	studentID := "8a2f6c7e-91d0-4b34-8f35-9188c7b2a001"

	gotCourseID, gotStudentID, err := ParseRoomKey(RoomKey(courseID, studentID))
	if err != nil {
		t.Fatalf("ParseRoomKey() failed: %v", err)
	}
	if gotCourseID != courseID || gotStudentID != studentID {
		t.Errorf("round trip = (%q, %q); want (%q, %q)", gotCourseID, gotStudentID, courseID, studentID)
	}
}
