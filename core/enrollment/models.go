package enrollment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/darasa-lms/darasa/core/course"
)

type (
	// Student is the public subset of a user embedded in enrollment payloads.
	Student struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Progress struct {
		CompletedLessons []string `json:"completed_lessons"`
		IsCompleted      bool     `json:"is_completed"`
	}

	Certificate struct {
		Issued   bool        `json:"issued"`
		IssuedAt null.Time   `json:"issued_at,omitempty"`
		ID       null.String `json:"certificate_id,omitempty"`
	}

	Enrollment struct {
		ID         string    `json:"id"`
		StudentID  string    `json:"student_id"`
		CourseID   string    `json:"course_id"`
		EnrolledAt time.Time `json:"enrolled_at"` // UTC
		PaidAmount float64   `json:"paid_amount"`

		Progress    Progress    `json:"progress"`
		Certificate Certificate `json:"certificate"`

		// populated on reads
		Student Student       `json:"student,omitempty"`
		Course  course.Course `json:"course,omitempty"`

		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}
)

// CompletedLesson reports whether the lesson is already marked complete.
func (p *Progress) CompletedLesson(lessonID string) bool {
	for _, id := range p.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// GenerateCertificateID derives a short display id unique to this enrollment.
func (e *Enrollment) GenerateCertificateID() string {
	unique := fmt.Sprintf("%s-%s-%d", e.StudentID, e.CourseID, time.Now().UnixNano()/int64(time.Millisecond))
	sum := sha256.Sum256([]byte(unique))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:16])
}

// ProgressReport is the per-course progress view returned to students.
type ProgressReport struct {
	CompletedLessons   []string `json:"completed_lessons"`
	TotalLessons       int      `json:"total_lessons"`
	CompletedCount     int      `json:"completed_count"`
	ProgressPercentage int      `json:"progress_percentage"`
	IsCompleted        bool     `json:"is_completed"`
}

// CertificateData is the rendered certificate payload.
type CertificateData struct {
	CertificateID  string    `json:"certificate_id"`
	IssuedAt       time.Time `json:"issued_at"`
	StudentName    string    `json:"student_name"`
	StudentEmail   string    `json:"student_email"`
	CourseName     string    `json:"course_name"`
	CourseCategory string    `json:"course_category"`
	InstructorName string    `json:"instructor_name"`
	CompletedAt    time.Time `json:"completed_at"`
}

// CertificateVerification is the public verification payload.
type CertificateVerification struct {
	Valid          bool      `json:"valid"`
	StudentName    string    `json:"student_name"`
	CourseName     string    `json:"course_name"`
	InstructorName string    `json:"instructor_name"`
	IssuedAt       time.Time `json:"issued_at"`
	CertificateID  string    `json:"certificate_id"`
}

type (
	// RosterEntry is one enrolled student in an instructor's roster.
	RosterEntry struct {
		ID               string    `json:"id"`
		Student          Student   `json:"student"`
		CourseID         string    `json:"course_id"`
		CourseTitle      string    `json:"course_title"`
		EnrolledAt       time.Time `json:"enrolled_at"`
		Progress         int       `json:"progress"`
		IsCompleted      bool      `json:"is_completed"`
		CompletedLessons int       `json:"completed_lessons"`
		TotalLessons     int       `json:"total_lessons"`
	}

	RosterStats struct {
		Total      int `json:"total"`
		Completed  int `json:"completed"`
		InProgress int `json:"in_progress"`
	}

	Roster struct {
		Students []RosterEntry `json:"students"`
		Stats    RosterStats   `json:"stats"`
	}
)

type (
	MonthlyEarnings struct {
		Month       string  `json:"month"`
		Earnings    float64 `json:"earnings"`
		Enrollments int     `json:"enrollments"`
	}

	Transaction struct {
		ID           string    `json:"id"`
		StudentName  string    `json:"student_name"`
		StudentEmail string    `json:"student_email"`
		CourseName   string    `json:"course_name"`
		Amount       float64   `json:"amount"`
		Date         time.Time `json:"date"`
	}

	// EarningsReport summarizes an instructor's revenue.
	EarningsReport struct {
		TotalEarnings      float64           `json:"total_earnings"`
		ThisMonthEarnings  float64           `json:"this_month_earnings"`
		LastMonthEarnings  float64           `json:"last_month_earnings"`
		PercentChange      int               `json:"percent_change"`
		TotalStudents      int               `json:"total_students"`
		MonthlyEarnings    []MonthlyEarnings `json:"monthly_earnings"`
		RecentTransactions []Transaction     `json:"recent_transactions"`
	}
)
