package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/user"
)

type enrollmentApi struct {
	svc    enrollment.Service
	usrSvc user.Service
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc enrollment.Service, usrSvc user.Service) {
	api := enrollmentApi{svc: svc, usrSvc: usrSvc}

	// public certificate verification
	g.GET("/certificates/:id/verify", api.verifyCertificate)

	// student endpoints
	sg := g.Group("", jwt, studentMiddleware())
	sg.POST("/courses/:id/enroll", api.enroll)
	sg.GET("/enrollments", api.queryOwn)
	sg.GET("/courses/:id/progress", api.progress)
	sg.POST("/courses/:id/lessons/:lessonId/complete", api.completeLesson)
	sg.POST("/courses/:id/complete", api.completeCourse)
	sg.GET("/courses/:id/certificate", api.certificate)

	// instructor endpoints
	ig := g.Group("/instructor", jwt, instructorMiddleware())
	ig.GET("/students", api.roster)
	ig.GET("/earnings", api.earnings)
}

// Handlers

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) queryOwn(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enrs, err := api.svc.QueryOwn(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) progress(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	report, err := api.svc.Progress(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *enrollmentApi) completeLesson(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enr, err := api.svc.MarkLessonComplete(ctx.Request().Context(), ctxUsr, ctx.Param("id"), ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "marking lesson complete")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) completeCourse(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enr, err := api.svc.Complete(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing course")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) certificate(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cert, err := api.svc.GetCertificate(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting certificate")
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *enrollmentApi) verifyCertificate(ctx echo.Context) error {
	verif, err := api.svc.VerifyCertificate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == enrollment.ErrInvalidCertificate {
			return ctx.JSON(http.StatusNotFound, enrollment.CertificateVerification{Valid: false})
		}
		return errors.Wrap(err, "verifying certificate")
	}
	return ctx.JSON(http.StatusOK, verif)
}

func (api *enrollmentApi) roster(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	roster, err := api.svc.InstructorRoster(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "getting roster")
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (api *enrollmentApi) earnings(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	report, err := api.svc.InstructorEarnings(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "getting earnings")
	}
	return ctx.JSON(http.StatusOK, report)
}
