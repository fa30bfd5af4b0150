package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound             = errors.New("you are not enrolled in this course")
	ErrAlreadyEnrolled      = errors.New("you are already enrolled in this course")
	ErrCertificateNotIssued = errors.New("certificate not yet issued; complete the course first")
	ErrInvalidCertificate   = errors.New("invalid certificate id")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		// GetEnrollment returns the enrollment with its Student and Course
		// summaries populated.
		GetEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
		GetEnrollmentByCertificateID(ctx context.Context, certificateID string) (Enrollment, error)
		// QueryStudentEnrollments returns the student's enrollments, newest first.
		QueryStudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
		// QueryCourseEnrollments returns all enrollments in any of the given
		// courses, newest first.
		QueryCourseEnrollments(ctx context.Context, courseIDs ...string) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	}

	Service interface {
		Enroll(ctx context.Context, student user.User, courseID string) (Enrollment, error)
		QueryOwn(ctx context.Context, studentID string) ([]Enrollment, error)
		IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
		MarkLessonComplete(ctx context.Context, student user.User, courseID, lessonID string) (Enrollment, error)
		Progress(ctx context.Context, student user.User, courseID string) (ProgressReport, error)
		Complete(ctx context.Context, student user.User, courseID string) (Enrollment, error)
		GetCertificate(ctx context.Context, student user.User, courseID string) (CertificateData, error)
		VerifyCertificate(ctx context.Context, certificateID string) (CertificateVerification, error)
		InstructorRoster(ctx context.Context, instructor user.User) (Roster, error)
		InstructorEarnings(ctx context.Context, instructor user.User) (EarningsReport, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		mailSvc   core.EmailService
		conf      *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		mailSvc:   mailSvc,
		conf:      conf,
	}
}

func (svc *service) Enroll(ctx context.Context, student user.User, courseID string) (Enrollment, error) {
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if _, err = svc.repo.GetEnrollment(ctx, student.ID, courseID); err == nil {
		return Enrollment{}, ErrAlreadyEnrolled
	} else if err != ErrNotFound {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	enr := Enrollment{
		StudentID:  student.ID,
		CourseID:   courseID,
		EnrolledAt: now,
		PaidAmount: crs.Price,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *service) QueryOwn(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryStudentEnrollments(ctx, studentID)
}

func (svc *service) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	if _, err := svc.repo.GetEnrollment(ctx, studentID, courseID); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkLessonComplete records the lesson as done; repeated calls are no-ops.
func (svc *service) MarkLessonComplete(ctx context.Context, student user.User, courseID, lessonID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, student.ID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.Progress.CompletedLesson(lessonID) {
		return enr, nil
	}
	enr.Progress.CompletedLessons = append(enr.Progress.CompletedLessons, lessonID)
	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *service) Progress(ctx context.Context, student user.User, courseID string) (ProgressReport, error) {
	enr, err := svc.repo.GetEnrollment(ctx, student.ID, courseID)
	if err != nil {
		return ProgressReport{}, err
	}
	total, err := svc.courseSvc.TotalLessons(ctx, courseID)
	if err != nil {
		return ProgressReport{}, err
	}

	completed := len(enr.Progress.CompletedLessons)
	pct := core.Percentage(completed, total)
	return ProgressReport{
		CompletedLessons:   enr.Progress.CompletedLessons,
		TotalLessons:       total,
		CompletedCount:     completed,
		ProgressPercentage: pct,
		IsCompleted:        enr.Progress.IsCompleted,
	}, nil
}

// Complete marks the course as finished and issues the certificate. All
// lessons must be completed first.
func (svc *service) Complete(ctx context.Context, student user.User, courseID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, student.ID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	total, err := svc.courseSvc.TotalLessons(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if done := len(enr.Progress.CompletedLessons); done < total {
		return Enrollment{}, core.NewValidationError(
			fmt.Errorf("please complete all %d lessons first; you have completed %d lessons", total, done))
	}

	enr.Progress.IsCompleted = true
	if !enr.Certificate.Issued {
		enr.Certificate.Issued = true
		enr.Certificate.IssuedAt = null.TimeFrom(time.Now().UTC())
		enr.Certificate.ID = null.StringFrom(enr.GenerateCertificateID())
	}
	enr.UpdatedAt = time.Now().UTC()

	enr, err = svc.repo.UpdateEnrollment(ctx, enr)
	if err != nil {
		return Enrollment{}, err
	}
	svc.sendCertificateMail(student, enr)
	return enr, nil
}

func (svc *service) GetCertificate(ctx context.Context, student user.User, courseID string) (CertificateData, error) {
	enr, err := svc.repo.GetEnrollment(ctx, student.ID, courseID)
	if err != nil {
		return CertificateData{}, err
	}
	if !enr.Certificate.Issued {
		return CertificateData{}, ErrCertificateNotIssued
	}
	return CertificateData{
		CertificateID:  enr.Certificate.ID.String,
		IssuedAt:       enr.Certificate.IssuedAt.Time,
		StudentName:    enr.Student.Name,
		StudentEmail:   enr.Student.Email,
		CourseName:     enr.Course.Title,
		CourseCategory: enr.Course.Category,
		InstructorName: enr.Course.Instructor.Name,
		CompletedAt:    enr.Certificate.IssuedAt.Time,
	}, nil
}

func (svc *service) VerifyCertificate(ctx context.Context, certificateID string) (CertificateVerification, error) {
	enr, err := svc.repo.GetEnrollmentByCertificateID(ctx, certificateID)
	if err != nil {
		if err == ErrNotFound {
			return CertificateVerification{}, ErrInvalidCertificate
		}
		return CertificateVerification{}, err
	}
	return CertificateVerification{
		Valid:          true,
		StudentName:    enr.Student.Name,
		CourseName:     enr.Course.Title,
		InstructorName: enr.Course.Instructor.Name,
		IssuedAt:       enr.Certificate.IssuedAt.Time,
		CertificateID:  enr.Certificate.ID.String,
	}, nil
}

func (svc *service) InstructorRoster(ctx context.Context, instructor user.User) (Roster, error) {
	courses, err := svc.courseSvc.QueryByInstructor(ctx, instructor.ID)
	if err != nil {
		return Roster{}, err
	}
	if len(courses) == 0 {
		return Roster{Students: []RosterEntry{}}, nil
	}

	courseIDs := make([]string, 0, len(courses))
	totals := make(map[string]int, len(courses))
	for _, crs := range courses {
		courseIDs = append(courseIDs, crs.ID)
		total, err := svc.courseSvc.TotalLessons(ctx, crs.ID)
		if err != nil {
			return Roster{}, err
		}
		totals[crs.ID] = total
	}

	enrollments, err := svc.repo.QueryCourseEnrollments(ctx, courseIDs...)
	if err != nil {
		return Roster{}, err
	}

	roster := Roster{Students: make([]RosterEntry, 0, len(enrollments))}
	for _, enr := range enrollments {
		total := totals[enr.CourseID]
		completed := len(enr.Progress.CompletedLessons)
		pct := core.Percentage(completed, total)
		roster.Students = append(roster.Students, RosterEntry{
			ID:               enr.ID,
			Student:          enr.Student,
			CourseID:         enr.CourseID,
			CourseTitle:      enr.Course.Title,
			EnrolledAt:       enr.EnrolledAt,
			Progress:         pct,
			IsCompleted:      enr.Progress.IsCompleted,
			CompletedLessons: completed,
			TotalLessons:     total,
		})

		roster.Stats.Total++
		if enr.Progress.IsCompleted {
			roster.Stats.Completed++
		} else if pct > 0 {
			roster.Stats.InProgress++
		}
	}
	return roster, nil
}

func (svc *service) InstructorEarnings(ctx context.Context, instructor user.User) (EarningsReport, error) {
	courses, err := svc.courseSvc.QueryByInstructor(ctx, instructor.ID)
	if err != nil {
		return EarningsReport{}, err
	}
	courseIDs := make([]string, 0, len(courses))
	for _, crs := range courses {
		courseIDs = append(courseIDs, crs.ID)
	}
	report := EarningsReport{
		MonthlyEarnings:    []MonthlyEarnings{},
		RecentTransactions: []Transaction{},
	}
	if len(courseIDs) == 0 {
		return report, nil
	}

	enrollments, err := svc.repo.QueryCourseEnrollments(ctx, courseIDs...)
	if err != nil {
		return EarningsReport{}, err
	}

	amountOf := func(enr Enrollment) float64 {
		if enr.PaidAmount > 0 {
			return enr.PaidAmount
		}
		return enr.Course.Price
	}

	now := time.Now().UTC()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	startOfLastMonth := startOfMonth.AddDate(0, -1, 0)

	var thisMonth, lastMonth float64
	for _, enr := range enrollments {
		amount := amountOf(enr)
		report.TotalEarnings += amount
		if !enr.EnrolledAt.Before(startOfMonth) {
			thisMonth += amount
		} else if !enr.EnrolledAt.Before(startOfLastMonth) {
			lastMonth += amount
		}
	}
	report.ThisMonthEarnings = thisMonth
	report.LastMonthEarnings = lastMonth
	report.TotalStudents = len(enrollments)

	switch {
	case lastMonth > 0:
		report.PercentChange = int((thisMonth-lastMonth)/lastMonth*100 + 0.5)
	case thisMonth > 0:
		report.PercentChange = 100
	}

	// last 6 months series for the dashboard chart
	for i := 5; i >= 0; i-- {
		monthStart := startOfMonth.AddDate(0, -i, 0)
		monthEnd := monthStart.AddDate(0, 1, 0)
		entry := MonthlyEarnings{Month: monthStart.Format("Jan")}
		for _, enr := range enrollments {
			if !enr.EnrolledAt.Before(monthStart) && enr.EnrolledAt.Before(monthEnd) {
				entry.Earnings += amountOf(enr)
				entry.Enrollments++
			}
		}
		report.MonthlyEarnings = append(report.MonthlyEarnings, entry)
	}

	for i, enr := range enrollments {
		if i == 10 {
			break
		}
		report.RecentTransactions = append(report.RecentTransactions, Transaction{
			ID:           enr.ID,
			StudentName:  enr.Student.Name,
			StudentEmail: enr.Student.Email,
			CourseName:   enr.Course.Title,
			Amount:       amountOf(enr),
			Date:         enr.EnrolledAt,
		})
	}
	return report, nil
}

func (svc *service) sendCertificateMail(student user.User, enr Enrollment) {
	if student.Email == "" {
		return
	}
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject: fmt.Sprintf("Your %s certificate is ready!", enr.Course.Title),
		TextContent: fmt.Sprintf(
			"Congratulations %s!\n\nYou completed %q. View your certificate:\n%s/certificates/%s\n",
			student.Name, enr.Course.Title, svc.conf.FrontendBaseURL, enr.Certificate.ID.String,
		),
	}
	svc.mailSvc.SendMessages(msg)
}
