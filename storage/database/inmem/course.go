package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/darasa-lms/darasa/core/course"
)

type courseRepository struct {
	db    *courseTable
	users *userTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course, users: db.user}
}

// instructorOf resolves the course's instructor summary.
func (repo *courseRepository) instructorOf(crs course.Course) course.Instructor {
	repo.users.RLock()
	defer repo.users.RUnlock()

	inst := course.Instructor{ID: crs.InstructorID}
	if usr, ok := repo.users.table[crs.InstructorID]; ok {
		inst.Name = usr.Name
		inst.Email = usr.Email
	}
	return inst
}

// query returns courses sorted newest first; callers must hold the lock.
func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	crs.Sections = nil
	repo.db.courses[crs.ID] = &crs

	out := crs
	out.Instructor = repo.instructorOf(crs)
	return out, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matchesSearch := func(crs course.Course) bool {
		s := strings.ToLower(filter.Search)
		return strings.Contains(strings.ToLower(crs.Title), s) ||
			strings.Contains(strings.ToLower(crs.Description), s) ||
			strings.Contains(strings.ToLower(crs.Category), s)
	}

	courses := make([]course.Course, 0)
	for _, crs := range repo.query() {
		if filter.Search != "" && !matchesSearch(crs) {
			continue
		}
		if filter.Category != "" && crs.Category != filter.Category {
			continue
		}
		if filter.Status != "" && crs.Status != filter.Status {
			continue
		}
		if filter.InstructorID != "" && crs.InstructorID != filter.InstructorID {
			continue
		}
		crs.Instructor = repo.instructorOf(crs)
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.getCourse(id)
}

func (repo *courseRepository) getCourse(id string) (course.Course, error) {
	crs, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	out := *crs
	out.Instructor = repo.instructorOf(out)
	return out, nil
}

func (repo *courseRepository) GetCourseDetail(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	crs, err := repo.getCourse(id)
	if err != nil {
		return course.Course{}, err
	}

	sections := make([]course.Section, 0)
	for _, sec := range repo.db.sections {
		if sec.CourseID != id {
			continue
		}
		s := *sec
		s.Lessons = repo.sectionLessons(s.ID)
		sections = append(sections, s)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	crs.Sections = sections
	return crs, nil
}

// sectionLessons returns the section's lessons ordered by position;
// callers must hold the lock.
func (repo *courseRepository) sectionLessons(sectionID string) []course.Lesson {
	lessons := make([]course.Lesson, 0)
	for _, les := range repo.db.lessons {
		if les.SectionID == sectionID {
			lessons = append(lessons, *les)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	return lessons
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	orig.Title = crs.Title
	orig.Description = crs.Description
	orig.Category = crs.Category
	orig.Price = crs.Price
	orig.Thumbnail = crs.Thumbnail
	orig.Status = crs.Status
	orig.UpdatedAt = crs.UpdatedAt

	out := *orig
	out.Instructor = repo.instructorOf(out)
	return out, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for secID, sec := range repo.db.sections {
		if sec.CourseID != id {
			continue
		}
		for lesID, les := range repo.db.lessons {
			if les.SectionID == secID {
				delete(repo.db.lessons, lesID)
			}
		}
		delete(repo.db.sections, secID)
	}
	delete(repo.db.courses, id)
	return nil
}

func (repo *courseRepository) CreateSection(ctx context.Context, sec course.Section) (course.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if sec.ID == "" {
		sec.ID = uuid.New().String()
	}
	sec.Lessons = nil
	repo.db.sections[sec.ID] = &sec
	return sec, nil
}

func (repo *courseRepository) GetSectionByID(ctx context.Context, id string) (course.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sec, ok := repo.db.sections[id]; ok {
		return *sec, nil
	}
	return course.Section{}, course.ErrSectionNotFound
}

func (repo *courseRepository) CountSections(ctx context.Context, courseID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, sec := range repo.db.sections {
		if sec.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) UpdateSection(ctx context.Context, sec course.Section) (course.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.sections[sec.ID]
	if !ok {
		return course.Section{}, course.ErrSectionNotFound
	}
	orig.Title = sec.Title
	orig.Order = sec.Order
	orig.UpdatedAt = sec.UpdatedAt
	return *orig, nil
}

func (repo *courseRepository) DeleteSection(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for lesID, les := range repo.db.lessons {
		if les.SectionID == id {
			delete(repo.db.lessons, lesID)
		}
	}
	delete(repo.db.sections, id)
	return nil
}

func (repo *courseRepository) CreateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if les.ID == "" {
		les.ID = uuid.New().String()
	}
	repo.db.lessons[les.ID] = &les
	return les, nil
}

func (repo *courseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if les, ok := repo.db.lessons[id]; ok {
		return *les, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) CountLessons(ctx context.Context, sectionID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, les := range repo.db.lessons {
		if les.SectionID == sectionID {
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) CountCourseLessons(ctx context.Context, courseID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, les := range repo.db.lessons {
		sec, ok := repo.db.sections[les.SectionID]
		if ok && sec.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.lessons[les.ID]
	if !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	orig.Title = les.Title
	orig.VideoURL = les.VideoURL
	orig.Content = les.Content
	orig.Duration = les.Duration
	orig.IsFreePreview = les.IsFreePreview
	orig.Order = les.Order
	return *orig, nil
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.lessons, id)
	return nil
}
