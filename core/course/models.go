package course

import (
	"time"

	"github.com/darasa-lms/darasa/core"
)

// Course statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusRejected  = "rejected"
)

var Statuses = []string{StatusDraft, StatusPublished, StatusRejected}

type (
	// Instructor is the public subset of a user embedded in course payloads.
	Instructor struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Course struct {
		ID           string     `json:"id"`
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		Category     string     `json:"category"`
		Price        float64    `json:"price"`
		Thumbnail    string     `json:"thumbnail"`
		InstructorID string     `json:"instructor_id"`
		Instructor   Instructor `json:"instructor,omitempty"`
		Status       string     `json:"status"`
		Sections     []Section  `json:"sections,omitempty"`
		CreatedAt    time.Time  `json:"created_at"` // UTC
		UpdatedAt    time.Time  `json:"updated_at"` // UTC
	}

	Section struct {
		ID        string    `json:"id"`
		CourseID  string    `json:"course_id"`
		Title     string    `json:"title"`
		Order     int       `json:"order"`
		Lessons   []Lesson  `json:"lessons,omitempty"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	Lesson struct {
		ID            string `json:"id"`
		SectionID     string `json:"section_id"`
		Title         string `json:"title"`
		VideoURL      string `json:"video_url"`
		Content       string `json:"content,omitempty"` // markdown notes
		Duration      int    `json:"duration,omitempty"` // seconds
		IsFreePreview bool   `json:"is_free_preview"`
		Order         int    `json:"order"`
	}
)

func (c *Course) IsPublished() bool {
	return c.Status == StatusPublished
}

// OwnedBy reports whether usr may manage this course.
func (c *Course) OwnedBy(usrID string) bool {
	return c.InstructorID == usrID
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Thumbnail   string  `json:"thumbnail" validate:"required,url"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	return core.Validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. Zero fields are left untouched.
type UpdateCourse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Thumbnail   string   `json:"thumbnail" validate:"omitempty,url"`
	Status      string   `json:"status" validate:"omitempty,coursestatus"`
}

func (uc *UpdateCourse) Validate(orig Course) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}
	if cat := core.CleanString(uc.Category); cat != "" {
		uc.Category = cat
	} else {
		uc.Category = orig.Category
	}
	if uc.Thumbnail == "" {
		uc.Thumbnail = orig.Thumbnail
	}
	if uc.Status == "" {
		uc.Status = orig.Status
	}
	if uc.Price == nil {
		uc.Price = &orig.Price
	}
	return core.Validate.Struct(uc)
}

// NewSection contains information needed to create a new Section.
type NewSection struct {
	Title string `json:"title" validate:"required"`
}

func (ns *NewSection) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	return core.Validate.Struct(ns)
}

// UpdateSection renames an existing Section.
type UpdateSection struct {
	Title string `json:"title" validate:"required"`
}

func (us *UpdateSection) Validate() error {
	us.Title = core.CleanString(us.Title)
	return core.Validate.Struct(us)
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Title         string `json:"title" validate:"required"`
	VideoURL      string `json:"video_url" validate:"required,url"`
	Content       string `json:"content"`
	Duration      int    `json:"duration" validate:"gte=0"`
	IsFreePreview bool   `json:"is_free_preview"`
}

func (nl *NewLesson) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	return core.Validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an existing
// Lesson. Zero fields are left untouched.
type UpdateLesson struct {
	Title         string `json:"title"`
	VideoURL      string `json:"video_url" validate:"omitempty,url"`
	Content       string `json:"content"`
	Duration      *int   `json:"duration" validate:"omitempty,gte=0"`
	IsFreePreview *bool  `json:"is_free_preview"`
}

func (ul *UpdateLesson) Validate(orig Lesson) error {
	if title := core.CleanString(ul.Title); title != "" {
		ul.Title = title
	} else {
		ul.Title = orig.Title
	}
	if ul.VideoURL == "" {
		ul.VideoURL = orig.VideoURL
	}
	if ul.Content == "" {
		ul.Content = orig.Content
	}
	if ul.Duration == nil {
		ul.Duration = &orig.Duration
	}
	if ul.IsFreePreview == nil {
		ul.IsFreePreview = &orig.IsFreePreview
	}
	return core.Validate.Struct(ul)
}

// QueryFilter filters course listings.
type QueryFilter struct {
	Search       string `query:"search"`
	Category     string `query:"category"`
	Status       string `query:"status"`
	InstructorID string `query:"instructor_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Category == "" && qf.Status == "" && qf.InstructorID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
}
