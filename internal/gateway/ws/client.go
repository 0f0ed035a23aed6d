package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/welliohq/wellio-backend/internal/adapters/transport/http/middleware"
	"github.com/welliohq/wellio-backend/internal/domain/auth/model"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity middleware.Identity
	joined   map[string]struct{}
	log      *zap.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, identity middleware.Identity, log *zap.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		identity: identity,
		joined:   make(map[string]struct{}),
		log:      log,
	}
}

// Run joins the identity- and role-scoped rooms and pumps messages until the
// connection drops.
func (c *Client) Run() {
	c.hub.Join("user:"+c.identity.ID.String(), c)
	if c.identity.Role == model.RoleCoach {
		c.hub.Join("coaches", c)
	} else {
		c.hub.Join("clients", c)
	}
	c.log.Info("websocket connected", zap.String("email", c.identity.Email))

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.LeaveAll(c)
		c.conn.Close()
		c.log.Info("websocket disconnected", zap.String("email", c.identity.Email))
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var evt Event
		if err := c.conn.ReadJSON(&evt); err != nil {
			return
		}
		c.dispatch(evt)
	}
}

func (c *Client) dispatch(evt Event) {
	switch evt.Event {
	case "join_conversation":
		if id, ok := evt.Data["conversationId"].(string); ok && id != "" {
			c.hub.Join("conversation:"+id, c)
		}

	case "send_message":
		if id, ok := evt.Data["conversationId"].(string); ok && id != "" {
			c.hub.Broadcast("conversation:"+id, Event{Event: "new_message", Data: evt.Data}, c)
		}

	case "typing":
		if id, ok := evt.Data["conversationId"].(string); ok && id != "" {
			c.hub.Broadcast("conversation:"+id, Event{
				Event: "user_typing",
				Data: map[string]interface{}{
					"userId":         c.identity.ID.String(),
					"conversationId": id,
				},
			}, c)
		}

	case "session_update":
		// route to the other party of the session
		targetField := "clientId"
		if c.identity.Role != model.RoleCoach {
			targetField = "coachId"
		}
		if target, ok := evt.Data[targetField].(string); ok && target != "" {
			c.hub.Broadcast("user:"+target, Event{Event: "session_updated", Data: evt.Data}, c)
		}

	default:
		c.log.Debug("ignoring unknown websocket event", zap.String("event", evt.Event))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
