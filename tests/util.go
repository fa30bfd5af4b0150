package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/darasa-lms/darasa/core/chat"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	title string,
	instructor user.User,
	status string,
	price float64,
) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:        title,
		Description:  title + " description",
		Category:     "testing",
		Price:        price,
		Thumbnail:    "https://cdn.example.com/" + title + ".png",
		InstructorID: instructor.ID,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateSection(t *testing.T, repo course.Repository, crs course.Course, title string, order int) course.Section {
	t.Helper()

	now := time.Now().UTC()
	sec, err := repo.CreateSection(context.Background(), course.Section{
		CourseID:  crs.ID,
		Title:     title,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	return sec
}

func CreateLesson(t *testing.T, repo course.Repository, sec course.Section, title string, order int) course.Lesson {
	t.Helper()

	les, err := repo.CreateLesson(context.Background(), course.Lesson{
		SectionID: sec.ID,
		Title:     title,
		VideoURL:  "https://cdn.example.com/" + title + ".mp4",
		Order:     order,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return les
}

func CreateEnrollment(t *testing.T, repo enrollment.Repository, student user.User, crs course.Course, enrolledAt ...time.Time) enrollment.Enrollment {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(enrolledAt) > 0 {
		tstamp = enrolledAt[0].UTC()
	}
	enr, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		StudentID:  student.ID,
		CourseID:   crs.ID,
		EnrolledAt: tstamp,
		PaidAmount: crs.Price,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

func CreateMessage(
	t *testing.T,
	repo chat.Repository,
	sender user.User,
	crs course.Course,
	content string,
	createdAt ...time.Time,
) chat.Message {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	msg, err := repo.CreateMessage(context.Background(), chat.Message{
		SenderID:  sender.ID,
		CourseID:  crs.ID,
		Content:   content,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateMessage() failed: %v", err)
	}
	return msg
}
