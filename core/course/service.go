package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrNotCourseOwner  = errors.New("not authorized to modify this course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields,
		// newest first.
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// GetCourseDetail returns the course with its sections and lessons,
		// both ordered by their position.
		GetCourseDetail(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateSection(ctx context.Context, sec Section) (Section, error)
		GetSectionByID(ctx context.Context, id string) (Section, error)
		CountSections(ctx context.Context, courseID string) (int, error)
		UpdateSection(ctx context.Context, sec Section) (Section, error)
		DeleteSection(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, les Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		CountLessons(ctx context.Context, sectionID string) (int, error)
		// CountCourseLessons counts all lessons in all sections of a course.
		CountCourseLessons(ctx context.Context, courseID string) (int, error)
		UpdateLesson(ctx context.Context, les Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, instructor user.User, nc NewCourse) (Course, error)
		QueryPublished(ctx context.Context, filter QueryFilter) ([]Course, error)
		QueryByInstructor(ctx context.Context, instructorID string) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetDetail(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, id string, requester user.User, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id string, requester user.User) error

		AddSection(ctx context.Context, courseID string, requester user.User, ns NewSection) (Section, error)
		RenameSection(ctx context.Context, sectionID string, requester user.User, us UpdateSection) (Section, error)
		DeleteSection(ctx context.Context, sectionID string, requester user.User) error

		AddLesson(ctx context.Context, sectionID string, requester user.User, nl NewLesson) (Lesson, error)
		UpdateLesson(ctx context.Context, lessonID string, requester user.User, ul UpdateLesson) (Lesson, error)
		DeleteLesson(ctx context.Context, lessonID string, requester user.User) error

		TotalLessons(ctx context.Context, courseID string) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// checkOwnership fetches the course and verifies the requester may manage it.
func (svc *service) checkOwnership(ctx context.Context, courseID string, requester user.User) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if !crs.OwnedBy(requester.ID) && !requester.IsAdmin() {
		return Course{}, ErrNotCourseOwner
	}
	return crs, nil
}

func (svc *service) Create(ctx context.Context, instructor user.User, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		Category:     nc.Category,
		Price:        nc.Price,
		Thumbnail:    nc.Thumbnail,
		InstructorID: instructor.ID,
		Status:       StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) QueryPublished(ctx context.Context, filter QueryFilter) ([]Course, error) {
	filter.Clean()
	filter.Status = StatusPublished
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) QueryByInstructor(ctx context.Context, instructorID string) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, QueryFilter{InstructorID: instructorID})
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) GetDetail(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseDetail(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, requester user.User, uc UpdateCourse) (Course, error) {
	crs, err := svc.checkOwnership(ctx, id, requester)
	if err != nil {
		return Course{}, err
	}
	if err = uc.Validate(crs); err != nil {
		return Course{}, err
	}
	crs.Title = uc.Title
	crs.Description = uc.Description
	crs.Category = uc.Category
	crs.Price = *uc.Price
	crs.Thumbnail = uc.Thumbnail
	crs.Status = uc.Status
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, id string, requester user.User) error {
	if _, err := svc.checkOwnership(ctx, id, requester); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) AddSection(ctx context.Context, courseID string, requester user.User, ns NewSection) (Section, error) {
	if _, err := svc.checkOwnership(ctx, courseID, requester); err != nil {
		return Section{}, err
	}
	count, err := svc.repo.CountSections(ctx, courseID)
	if err != nil {
		return Section{}, err
	}
	now := time.Now().UTC()
	sec := Section{
		CourseID:  courseID,
		Title:     ns.Title,
		Order:     count + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSection(ctx, sec)
}

func (svc *service) RenameSection(ctx context.Context, sectionID string, requester user.User, us UpdateSection) (Section, error) {
	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return Section{}, err
	}
	if _, err = svc.checkOwnership(ctx, sec.CourseID, requester); err != nil {
		return Section{}, err
	}
	sec.Title = us.Title
	sec.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSection(ctx, sec)
}

func (svc *service) DeleteSection(ctx context.Context, sectionID string, requester user.User) error {
	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return err
	}
	if _, err = svc.checkOwnership(ctx, sec.CourseID, requester); err != nil {
		return err
	}
	return svc.repo.DeleteSection(ctx, sectionID)
}

func (svc *service) AddLesson(ctx context.Context, sectionID string, requester user.User, nl NewLesson) (Lesson, error) {
	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return Lesson{}, err
	}
	if _, err = svc.checkOwnership(ctx, sec.CourseID, requester); err != nil {
		return Lesson{}, err
	}
	count, err := svc.repo.CountLessons(ctx, sectionID)
	if err != nil {
		return Lesson{}, err
	}
	les := Lesson{
		SectionID:     sectionID,
		Title:         nl.Title,
		VideoURL:      nl.VideoURL,
		Content:       nl.Content,
		Duration:      nl.Duration,
		IsFreePreview: nl.IsFreePreview,
		Order:         count + 1,
	}
	return svc.repo.CreateLesson(ctx, les)
}

func (svc *service) UpdateLesson(ctx context.Context, lessonID string, requester user.User, ul UpdateLesson) (Lesson, error) {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	sec, err := svc.repo.GetSectionByID(ctx, les.SectionID)
	if err != nil {
		return Lesson{}, err
	}
	if _, err = svc.checkOwnership(ctx, sec.CourseID, requester); err != nil {
		return Lesson{}, err
	}
	if err = ul.Validate(les); err != nil {
		return Lesson{}, err
	}
	les.Title = ul.Title
	les.VideoURL = ul.VideoURL
	les.Content = ul.Content
	les.Duration = *ul.Duration
	les.IsFreePreview = *ul.IsFreePreview
	return svc.repo.UpdateLesson(ctx, les)
}

func (svc *service) DeleteLesson(ctx context.Context, lessonID string, requester user.User) error {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return err
	}
	sec, err := svc.repo.GetSectionByID(ctx, les.SectionID)
	if err != nil {
		return err
	}
	if _, err = svc.checkOwnership(ctx, sec.CourseID, requester); err != nil {
		return err
	}
	return svc.repo.DeleteLesson(ctx, lessonID)
}

func (svc *service) TotalLessons(ctx context.Context, courseID string) (int, error) {
	return svc.repo.CountCourseLessons(ctx, courseID)
}
