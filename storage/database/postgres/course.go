package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/course"
)

type courseRow struct {
	ID              string    `db:"id"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	Category        string    `db:"category"`
	Price           float64   `db:"price"`
	Thumbnail       string    `db:"thumbnail"`
	InstructorID    string    `db:"instructor_id"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
	InstructorName  string    `db:"instructor_name"`
	InstructorEmail string    `db:"instructor_email"`
}

func (r courseRow) unpack() course.Course {
	return course.Course{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Price:        r.Price,
		Thumbnail:    r.Thumbnail,
		InstructorID: r.InstructorID,
		Instructor: course.Instructor{
			ID:    r.InstructorID,
			Name:  r.InstructorName,
			Email: r.InstructorEmail,
		},
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type sectionRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r sectionRow) unpack() course.Section {
	return course.Section{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Order:     r.Position,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type lessonRow struct {
	ID            string `db:"id"`
	SectionID     string `db:"section_id"`
	Title         string `db:"title"`
	VideoURL      string `db:"video_url"`
	Content       string `db:"content"`
	Duration      int    `db:"duration"`
	IsFreePreview bool   `db:"is_free_preview"`
	Position      int    `db:"position"`
}

func (r lessonRow) unpack() course.Lesson {
	return course.Lesson{
		ID:            r.ID,
		SectionID:     r.SectionID,
		Title:         r.Title,
		VideoURL:      r.VideoURL,
		Content:       r.Content,
		Duration:      r.Duration,
		IsFreePreview: r.IsFreePreview,
		Order:         r.Position,
	}
}

const courseSelect = `
SELECT c.*, u.name AS instructor_name, u.email AS instructor_email
FROM course c
JOIN "user" u ON u.id = c.instructor_id`

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	q := `
INSERT INTO course (id, title, description, category, price, thumbnail, instructor_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, q,
		crs.ID, crs.Title, crs.Description, crs.Category, crs.Price, crs.Thumbnail,
		crs.InstructorID, crs.Status, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(c.title ILIKE %[1]s OR c.description ILIKE %[1]s OR c.category ILIKE %[1]s)", p))
	}
	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf("c.category = %s", arg(filter.Category)))
	}
	if filter.Status != "" {
		conds = append(conds, fmt.Sprintf("c.status = %s", arg(filter.Status)))
	}
	if filter.InstructorID != "" {
		conds = append(conds, fmt.Sprintf("c.instructor_id = %s", arg(filter.InstructorID)))
	}

	q := courseSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY c.created_at DESC"

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unpack())
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, courseSelect+" WHERE c.id = $1", id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, course.ErrNotFound, "getting course by id")
	}
	return row.unpack(), nil
}

func (repo courseRepository) GetCourseDetail(ctx context.Context, id string) (course.Course, error) {
	crs, err := repo.GetCourseByID(ctx, id)
	if err != nil {
		return course.Course{}, err
	}

	var secRows []sectionRow
	q := `SELECT * FROM course_section WHERE course_id = $1 ORDER BY position`
	if err = repo.db.SelectContext(ctx, &secRows, q, id); err != nil {
		return course.Course{}, errors.Wrap(err, "querying course sections")
	}

	secIDs := make([]string, 0, len(secRows))
	for _, r := range secRows {
		secIDs = append(secIDs, r.ID)
	}
	var lesRows []lessonRow
	if len(secIDs) > 0 {
		q = `SELECT * FROM lesson WHERE section_id = ANY($1) ORDER BY position`
		if err = repo.db.SelectContext(ctx, &lesRows, q, pq.Array(secIDs)); err != nil {
			return course.Course{}, errors.Wrap(err, "querying course lessons")
		}
	}

	lessonsBySec := make(map[string][]course.Lesson, len(secRows))
	for _, r := range lesRows {
		lessonsBySec[r.SectionID] = append(lessonsBySec[r.SectionID], r.unpack())
	}
	crs.Sections = make([]course.Section, 0, len(secRows))
	for _, r := range secRows {
		sec := r.unpack()
		sec.Lessons = lessonsBySec[sec.ID]
		crs.Sections = append(crs.Sections, sec)
	}
	return crs, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `
UPDATE course
SET title = $2, description = $3, category = $4, price = $5, thumbnail = $6, status = $7, updated_at = $8
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		crs.ID, crs.Title, crs.Description, crs.Category, crs.Price, crs.Thumbnail, crs.Status, time.Now().UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

func (repo courseRepository) CreateSection(ctx context.Context, sec course.Section) (course.Section, error) {
	if sec.ID == "" {
		sec.ID = uuid.New().String()
	}
	q := `
INSERT INTO course_section (id, course_id, title, position, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, sec.ID, sec.CourseID, sec.Title, sec.Order, sec.CreatedAt.UTC(), sec.UpdatedAt.UTC())
	if err != nil {
		return course.Section{}, errors.Wrap(err, "creating section")
	}
	return sec, nil
}

func (repo courseRepository) GetSectionByID(ctx context.Context, id string) (course.Section, error) {
	var row sectionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course_section WHERE id = $1`, id); err != nil {
		return course.Section{}, repo.trapNoRowsErr(err, course.ErrSectionNotFound, "getting section by id")
	}
	return row.unpack(), nil
}

func (repo courseRepository) CountSections(ctx context.Context, courseID string) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM course_section WHERE course_id = $1`
	if err := repo.db.GetContext(ctx, &count, q, courseID); err != nil {
		return 0, errors.Wrap(err, "counting sections")
	}
	return count, nil
}

func (repo courseRepository) UpdateSection(ctx context.Context, sec course.Section) (course.Section, error) {
	q := `UPDATE course_section SET title = $2, position = $3, updated_at = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, sec.ID, sec.Title, sec.Order, time.Now().UTC())
	if err != nil {
		return course.Section{}, errors.Wrap(err, "updating section")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Section{}, course.ErrSectionNotFound
	}
	return repo.GetSectionByID(ctx, sec.ID)
}

func (repo courseRepository) DeleteSection(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course_section WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return nil
}

func (repo courseRepository) CreateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	if les.ID == "" {
		les.ID = uuid.New().String()
	}
	q := `
INSERT INTO lesson (id, section_id, title, video_url, content, duration, is_free_preview, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, q,
		les.ID, les.SectionID, les.Title, les.VideoURL, les.Content, les.Duration, les.IsFreePreview, les.Order,
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return les, nil
}

func (repo courseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		return course.Lesson{}, repo.trapNoRowsErr(err, course.ErrLessonNotFound, "getting lesson by id")
	}
	return row.unpack(), nil
}

func (repo courseRepository) CountLessons(ctx context.Context, sectionID string) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM lesson WHERE section_id = $1`
	if err := repo.db.GetContext(ctx, &count, q, sectionID); err != nil {
		return 0, errors.Wrap(err, "counting lessons")
	}
	return count, nil
}

func (repo courseRepository) CountCourseLessons(ctx context.Context, courseID string) (int, error) {
	var count int
	q := `
SELECT COUNT(*)
FROM lesson l
JOIN course_section s ON s.id = l.section_id
WHERE s.course_id = $1`
	if err := repo.db.GetContext(ctx, &count, q, courseID); err != nil {
		return 0, errors.Wrap(err, "counting course lessons")
	}
	return count, nil
}

func (repo courseRepository) UpdateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	q := `
UPDATE lesson
SET title = $2, video_url = $3, content = $4, duration = $5, is_free_preview = $6, position = $7
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		les.ID, les.Title, les.VideoURL, les.Content, les.Duration, les.IsFreePreview, les.Order,
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return repo.GetLessonByID(ctx, les.ID)
}

func (repo courseRepository) DeleteLesson(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return nil
}
