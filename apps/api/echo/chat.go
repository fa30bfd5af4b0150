package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/chat"
	"github.com/darasa-lms/darasa/core/user"
)

type chatApi struct {
	svc    chat.Service
	usrSvc user.Service
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc chat.Service, usrSvc user.Service) {
	api := chatApi{svc: svc, usrSvc: usrSvc}

	cg := g.Group("/chat", jwt)
	cg.GET("/conversations", api.conversations, instructorMiddleware())
	cg.GET("/courses/:courseId", api.courseConversation)
	cg.GET("/courses/:courseId/partners", api.coursePartners)
}

// Handlers

// courseConversation returns one conversation's history, oldest first.
// Students always get their own thread; instructors and admins pass the
// student via the `partner` query param.
func (api *chatApi) courseConversation(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	counterpartID := ctx.QueryParam("partner")
	msgs, err := api.svc.CourseConversation(ctx.Request().Context(), ctxUsr, ctx.Param("courseId"), counterpartID)
	if err != nil {
		return errors.Wrap(err, "querying conversation")
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) coursePartners(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	partners, err := api.svc.CoursePartners(ctx.Request().Context(), ctxUsr, ctx.Param("courseId"))
	if err != nil {
		return errors.Wrap(err, "querying partners")
	}
	if partners == nil {
		partners = []chat.Partner{}
	}
	return ctx.JSON(http.StatusOK, partners)
}

func (api *chatApi) conversations(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sums, err := api.svc.Conversations(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying conversations")
	}
	if sums == nil {
		sums = []chat.ConversationSummary{}
	}
	return ctx.JSON(http.StatusOK, sums)
}
