package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/user"
)

type courseApi struct {
	svc    course.Service
	usrSvc user.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc course.Service, usrSvc user.Service) {
	api := courseApi{svc: svc, usrSvc: usrSvc}

	// public catalog; only published courses are visible here
	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)

	// authoring endpoints
	ig := g.Group("", jwt, instructorMiddleware())
	ig.POST("/courses", api.create)
	ig.PUT("/courses/:id", api.update)
	ig.DELETE("/courses/:id", api.destroy)
	ig.GET("/instructor/courses", api.queryOwn)
	ig.GET("/instructor/courses/:id", api.retrieveOwn)

	ig.POST("/courses/:id/sections", api.addSection)
	ig.PUT("/sections/:id", api.renameSection)
	ig.DELETE("/sections/:id", api.destroySection)

	ig.POST("/sections/:id/lessons", api.addLesson)
	ig.PUT("/lessons/:id", api.updateLesson)
	ig.DELETE("/lessons/:id", api.destroyLesson)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()

	courses, err := api.svc.QueryPublished(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course detail")
	}
	if !crs.IsPublished() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryOwn(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	courses, err := api.svc.QueryByInstructor(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying instructor courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieveOwn(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course detail")
	}
	if !(crs.OwnedBy(ctxUsr.ID) || ctxUsr.IsAdmin()) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) addSection(ctx echo.Context) error {
	var data course.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sec, err := api.svc.AddSection(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "adding section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *courseApi) renameSection(ctx echo.Context) error {
	var data course.UpdateSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSection")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sec, err := api.svc.RenameSection(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "renaming section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *courseApi) destroySection(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteSection(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	les, err := api.svc.AddLesson(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, les)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	les, err := api.svc.UpdateLesson(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, les)
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteLesson(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}
