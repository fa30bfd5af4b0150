package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db      *enrollmentTable
	users   *userTable
	courses *courseRepository
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db.enrollment, users: db.user, courses: NewCourseRepository(db)}
}

// populate fills the Student and Course summaries.
func (repo *enrollmentRepository) populate(enr enrollment.Enrollment) enrollment.Enrollment {
	repo.users.RLock()
	if usr, ok := repo.users.table[enr.StudentID]; ok {
		enr.Student = enrollment.Student{ID: usr.ID, Name: usr.Name, Email: usr.Email}
	} else {
		enr.Student = enrollment.Student{ID: enr.StudentID}
	}
	repo.users.RUnlock()

	if crs, err := repo.courses.GetCourseByID(context.Background(), enr.CourseID); err == nil {
		enr.Course = crs
	} else {
		enr.Course = course.Course{ID: enr.CourseID}
	}
	return enr
}

// query returns enrollments sorted newest first; callers must hold the lock.
func (repo *enrollmentRepository) query() []enrollment.Enrollment {
	enrs := make([]enrollment.Enrollment, 0, len(repo.db.table))
	for _, e := range repo.db.table {
		enrs = append(enrs, *e)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.After(enrs[j].EnrolledAt) })
	return enrs
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()

	for _, e := range repo.db.table {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			repo.db.Unlock()
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	if enr.Progress.CompletedLessons == nil {
		enr.Progress.CompletedLessons = []string{}
	}
	repo.db.table[enr.ID] = &enr
	repo.db.Unlock()

	return repo.populate(enr), nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	repo.db.RLock()

	for _, e := range repo.db.table {
		if e.StudentID == studentID && e.CourseID == courseID {
			enr := *e
			repo.db.RUnlock()
			return repo.populate(enr), nil
		}
	}
	repo.db.RUnlock()
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetEnrollmentByCertificateID(ctx context.Context, certificateID string) (enrollment.Enrollment, error) {
	repo.db.RLock()

	for _, e := range repo.db.table {
		if e.Certificate.ID.Valid && e.Certificate.ID.String == certificateID {
			enr := *e
			repo.db.RUnlock()
			return repo.populate(enr), nil
		}
	}
	repo.db.RUnlock()
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryStudentEnrollments(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	all := repo.query()
	repo.db.RUnlock()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range all {
		if enr.StudentID == studentID {
			enrs = append(enrs, repo.populate(enr))
		}
	}
	return enrs, nil
}

func (repo *enrollmentRepository) QueryCourseEnrollments(ctx context.Context, courseIDs ...string) ([]enrollment.Enrollment, error) {
	wanted := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}

	repo.db.RLock()
	all := repo.query()
	repo.db.RUnlock()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range all {
		if _, ok := wanted[enr.CourseID]; ok {
			enrs = append(enrs, repo.populate(enr))
		}
	}
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()

	orig, ok := repo.db.table[enr.ID]
	if !ok {
		repo.db.Unlock()
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	orig.PaidAmount = enr.PaidAmount
	orig.Progress = enr.Progress
	orig.Certificate = enr.Certificate
	orig.UpdatedAt = enr.UpdatedAt
	out := *orig
	repo.db.Unlock()

	return repo.populate(out), nil
}
