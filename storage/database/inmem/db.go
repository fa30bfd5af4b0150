package inmemdb

import (
	"sync"

	"github.com/darasa-lms/darasa/core/chat"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		enrollment *enrollmentTable
		chat       *chatTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		courses  map[string]*course.Course
		sections map[string]*course.Section
		lessons  map[string]*course.Lesson
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enrollment.Enrollment
	}

	chatTable struct {
		sync.RWMutex
		table map[string]*chat.Message
	}
)

// Reset drops all rows; meant for test isolation.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.course.Lock()
	db.course.courses = make(map[string]*course.Course)
	db.course.sections = make(map[string]*course.Section)
	db.course.lessons = make(map[string]*course.Lesson)
	db.course.Unlock()

	db.enrollment.Lock()
	db.enrollment.table = make(map[string]*enrollment.Enrollment)
	db.enrollment.Unlock()

	db.chat.Lock()
	db.chat.table = make(map[string]*chat.Message)
	db.chat.Unlock()
}

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			courses:  make(map[string]*course.Course),
			sections: make(map[string]*course.Section),
			lessons:  make(map[string]*course.Lesson),
		},
		enrollment: &enrollmentTable{table: make(map[string]*enrollment.Enrollment)},
		chat:       &chatTable{table: make(map[string]*chat.Message)},
	}
	return db, nil
}
