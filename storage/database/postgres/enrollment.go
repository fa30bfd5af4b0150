package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
)

type enrollmentRow struct {
	ID                  string      `db:"id"`
	StudentID           string      `db:"student_id"`
	CourseID            string      `db:"course_id"`
	EnrolledAt          time.Time   `db:"enrolled_at"`
	PaidAmount          float64     `db:"paid_amount"`
	IsCompleted         bool        `db:"is_completed"`
	CertificateID       null.String `db:"certificate_id"`
	CertificateIssuedAt null.Time   `db:"certificate_issued_at"`
	CreatedAt           time.Time   `db:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at"`

	StudentName     string  `db:"student_name"`
	StudentEmail    string  `db:"student_email"`
	CourseTitle     string  `db:"course_title"`
	CourseCategory  string  `db:"course_category"`
	CourseThumbnail string  `db:"course_thumbnail"`
	CoursePrice     float64 `db:"course_price"`
	InstructorID    string  `db:"course_instructor_id"`
	InstructorName  string  `db:"instructor_name"`
	InstructorEmail string  `db:"instructor_email"`
}

func (r enrollmentRow) unpack() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:         r.ID,
		StudentID:  r.StudentID,
		CourseID:   r.CourseID,
		EnrolledAt: r.EnrolledAt,
		PaidAmount: r.PaidAmount,
		Progress: enrollment.Progress{
			CompletedLessons: []string{},
			IsCompleted:      r.IsCompleted,
		},
		Certificate: enrollment.Certificate{
			Issued:   r.CertificateID.Valid,
			IssuedAt: r.CertificateIssuedAt,
			ID:       r.CertificateID,
		},
		Student: enrollment.Student{
			ID:    r.StudentID,
			Name:  r.StudentName,
			Email: r.StudentEmail,
		},
		Course: course.Course{
			ID:           r.CourseID,
			Title:        r.CourseTitle,
			Category:     r.CourseCategory,
			Thumbnail:    r.CourseThumbnail,
			Price:        r.CoursePrice,
			InstructorID: r.InstructorID,
			Instructor: course.Instructor{
				ID:    r.InstructorID,
				Name:  r.InstructorName,
				Email: r.InstructorEmail,
			},
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const enrollmentSelect = `
SELECT e.*,
       su.name AS student_name, su.email AS student_email,
       c.title AS course_title, c.category AS course_category,
       c.thumbnail AS course_thumbnail, c.price AS course_price,
       c.instructor_id AS course_instructor_id,
       iu.name AS instructor_name, iu.email AS instructor_email
FROM enrollment e
JOIN "user" su ON su.id = e.student_id
JOIN course c ON c.id = e.course_id
JOIN "user" iu ON iu.id = c.instructor_id`

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return enrollment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// loadCompletedLessons fills Progress.CompletedLessons on each enrollment.
func (repo enrollmentRepository) loadCompletedLessons(ctx context.Context, enrs []enrollment.Enrollment) error {
	if len(enrs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(enrs))
	for _, e := range enrs {
		ids = append(ids, e.ID)
	}

	var rows []struct {
		EnrollmentID string `db:"enrollment_id"`
		LessonID     string `db:"lesson_id"`
	}
	q := `SELECT enrollment_id, lesson_id FROM completed_lesson WHERE enrollment_id = ANY($1) ORDER BY completed_at`
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "querying completed lessons")
	}

	byEnr := make(map[string][]string, len(enrs))
	for _, r := range rows {
		byEnr[r.EnrollmentID] = append(byEnr[r.EnrollmentID], r.LessonID)
	}
	for i := range enrs {
		if done := byEnr[enrs[i].ID]; done != nil {
			enrs[i].Progress.CompletedLessons = done
		}
	}
	return nil
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	q := `
INSERT INTO enrollment (id, student_id, course_id, enrolled_at, paid_amount, is_completed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, q,
		enr.ID, enr.StudentID, enr.CourseID, enr.EnrolledAt.UTC(), enr.PaidAmount,
		enr.Progress.IsCompleted, enr.CreatedAt.UTC(), enr.UpdatedAt.UTC(),
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return repo.getByID(ctx, enr.ID)
}

func (repo enrollmentRepository) getByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, enrollmentSelect+" WHERE e.id = $1", id); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "getting enrollment")
	}
	enrs := []enrollment.Enrollment{row.unpack()}
	if err := repo.loadCompletedLessons(ctx, enrs); err != nil {
		return enrollment.Enrollment{}, err
	}
	return enrs[0], nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := enrollmentSelect + " WHERE e.student_id = $1 AND e.course_id = $2"
	if err := repo.db.GetContext(ctx, &row, q, studentID, courseID); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "getting enrollment")
	}
	enrs := []enrollment.Enrollment{row.unpack()}
	if err := repo.loadCompletedLessons(ctx, enrs); err != nil {
		return enrollment.Enrollment{}, err
	}
	return enrs[0], nil
}

func (repo enrollmentRepository) GetEnrollmentByCertificateID(ctx context.Context, certificateID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := enrollmentSelect + " WHERE e.certificate_id = $1"
	if err := repo.db.GetContext(ctx, &row, q, certificateID); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "getting enrollment by certificate")
	}
	enrs := []enrollment.Enrollment{row.unpack()}
	if err := repo.loadCompletedLessons(ctx, enrs); err != nil {
		return enrollment.Enrollment{}, err
	}
	return enrs[0], nil
}

func (repo enrollmentRepository) QueryStudentEnrollments(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	q := enrollmentSelect + " WHERE e.student_id = $1 ORDER BY e.enrolled_at DESC"
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.unpack())
	}
	if err := repo.loadCompletedLessons(ctx, enrs); err != nil {
		return nil, err
	}
	return enrs, nil
}

func (repo enrollmentRepository) QueryCourseEnrollments(ctx context.Context, courseIDs ...string) ([]enrollment.Enrollment, error) {
	if len(courseIDs) == 0 {
		return []enrollment.Enrollment{}, nil
	}
	var rows []enrollmentRow
	q := enrollmentSelect + " WHERE e.course_id = ANY($1) ORDER BY e.enrolled_at DESC"
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(courseIDs)); err != nil {
		return nil, errors.Wrap(err, "querying course enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.unpack())
	}
	if err := repo.loadCompletedLessons(ctx, enrs); err != nil {
		return nil, err
	}
	return enrs, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	q := `
UPDATE enrollment
SET paid_amount = $2, is_completed = $3, certificate_id = $4, certificate_issued_at = $5, updated_at = $6
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		enr.ID, enr.PaidAmount, enr.Progress.IsCompleted,
		enr.Certificate.ID, enr.Certificate.IssuedAt, time.Now().UTC(),
	)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	// sync completed lessons; marking is append-only
	for _, lessonID := range enr.Progress.CompletedLessons {
		iq := `
INSERT INTO completed_lesson (enrollment_id, lesson_id, completed_at)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`
		if _, err = repo.db.ExecContext(ctx, iq, enr.ID, lessonID, time.Now().UTC()); err != nil {
			return enrollment.Enrollment{}, errors.Wrap(err, "recording completed lesson")
		}
	}
	return repo.getByID(ctx, enr.ID)
}
