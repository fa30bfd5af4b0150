package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/services/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// cross-origin connections are allowed; auth happens via JWT
	CheckOrigin: func(r *http.Request) bool { return true },
}

type chatWS struct {
	hub    *realtime.Hub
	usrSvc user.Service
	logger core.Logger
}

func registerChatWS(g *echo.Group, hub *realtime.Hub, usrSvc user.Service, logger core.Logger) {
	ws := chatWS{hub: hub, usrSvc: usrSvc, logger: logger}
	g.GET("/chat/ws", ws.serve, middleware.JWTWithConfig(wsJWTConfig))
}

// serve upgrades the connection and pumps chat events until the client
// disconnects. Event handling errors are reported to the offending client
// only; they never tear down the connection.
func (ws *chatWS) serve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, ws.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sock, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	conn := realtime.NewConnection(sock, ctxUsr)
	defer func() {
		ws.hub.Disconnect(conn)
		_ = conn.Close()
	}()

	for {
		var event realtime.Event
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Warn(fmt.Sprintf("websocket closed unexpectedly: %v", err))
			}
			return nil
		}
		if err := ws.dispatch(ctx, conn, event); err != nil {
			ws.sendError(conn, err)
		}
	}
}

func (ws *chatWS) dispatch(ctx echo.Context, conn *realtime.Connection, event realtime.Event) error {
	switch event.Type {
	case realtime.EventJoinChat:
		var data realtime.JoinPayload
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return errors.Wrap(err, "unmarshaling join payload")
		}
		return ws.hub.Join(conn, data.Room)

	case realtime.EventLeaveChat:
		var data realtime.JoinPayload
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return errors.Wrap(err, "unmarshaling leave payload")
		}
		ws.hub.Leave(conn, data.Room)
		return nil

	case realtime.EventSendMessage:
		var data realtime.NewMessagePayload
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return errors.Wrap(err, "unmarshaling message payload")
		}
		msg, err := ws.hub.Send(ctx.Request().Context(), conn, data)
		if err != nil {
			return err
		}
		// commit acknowledgment to the sender
		ack, err := realtime.NewEvent(realtime.EventMessageSent, realtime.AckPayload{ID: msg.ID, Room: data.Room})
		if err != nil {
			return errors.Wrap(err, "marshaling ack")
		}
		return conn.WriteJSON(ack)

	default:
		return errors.Errorf("unknown event type %q", event.Type)
	}
}

func (ws *chatWS) sendError(conn *realtime.Connection, err error) {
	msg := errors.Cause(err).Error()
	event, mErr := realtime.NewEvent(realtime.EventError, realtime.ErrorPayload{Message: msg})
	if mErr != nil {
		return
	}
	if wErr := conn.WriteJSON(event); wErr != nil {
		ws.logger.Warn(fmt.Sprintf("sending error event: %v", wErr))
	}
}
