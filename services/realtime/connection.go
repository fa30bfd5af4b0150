package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/user"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write timed out")
)

const (
	sendBufferSize = 100
	writeTimeout   = 5 * time.Second
)

// Connection wraps one live websocket session. All writes go through a single
// writer goroutine; websocket.Conn does not allow concurrent writers.
type Connection struct {
	ws        *websocket.Conn
	usr       user.User
	send      chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded websocket for the authenticated user and
// starts its writer goroutine.
func NewConnection(ws *websocket.Conn, usr user.User) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	conn := &Connection{
		ws:     ws,
		usr:    usr,
		send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	go conn.writeLoop()
	return conn
}

func (c *Connection) User() user.User { return c.usr }

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON queues v for delivery. It never blocks longer than writeTimeout.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}

	select {
	case c.send <- data:
		return nil
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// ReadJSON blocks until the next inbound event is decoded into v.
func (c *Connection) ReadJSON(v interface{}) error {
	return c.ws.ReadJSON(v)
}

func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.ws.Close()
	})
	return err
}
