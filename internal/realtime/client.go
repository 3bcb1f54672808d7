package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время на запись одного фрейма
	writeWait = 10 * time.Second

	// Соединение без pong дольше этого срока считается мертвым
	pongWait = 60 * time.Second

	// Интервал пингов, должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	// Буфер исходящих фреймов на соединение; переполнение означает,
	// что клиент не читает, и он отключается
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 5 * time.Second,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one live websocket connection. The hub talks to it only
// through the buffered send channel, the write pump is the sole writer
// on the underlying connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

// ID возвращает идентификатор соединения (аналог socket id)
func (c *Client) ID() string {
	return c.id
}

// trySend queues a frame without blocking; false means the client is
// not draining its buffer
func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close releases the outbound queue exactly once; the write pump exits
// when the channel drains
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// inboundMessage is the client-to-server frame
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// viewingPayload is the body of a viewing-team frame
type viewingPayload struct {
	TeamID   string `json:"teamId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// ServeWS upgrades the request and runs the connection's pumps. The
// endpoint is mounted by server wiring with the shared hub injected.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("realtime: upgrade failed: %v", err)
			return
		}

		client := &Client{
			id:   uuid.NewString(),
			hub:  hub,
			conn: conn,
			send: make(chan []byte, sendBufferSize),
		}
		hub.Register(client)
		log.Printf("realtime: client connected: %s", client.id)

		go client.writePump()
		go client.readPump()
	}
}

// readPump consumes inbound frames until the connection dies for any
// reason (close, timeout, protocol error). The deferred Disconnect is
// the single cleanup path: it always runs, so a dropped connection can
// never leak room membership.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
		log.Printf("realtime: client disconnected: %s", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: read error on %s: %v", c.id, err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("realtime: malformed frame from %s: %v", c.id, err)
			continue
		}

		switch msg.Event {
		case "join-team":
			var teamID string
			if err := json.Unmarshal(msg.Data, &teamID); err == nil && teamID != "" {
				c.hub.Join(c, teamID)
				log.Printf("realtime: %s joined team:%s", c.id, teamID)
			}
		case "leave-team":
			var teamID string
			if err := json.Unmarshal(msg.Data, &teamID); err == nil && teamID != "" {
				c.hub.Leave(c, teamID)
				log.Printf("realtime: %s left team:%s", c.id, teamID)
			}
		case "viewing-team":
			var payload viewingPayload
			if err := json.Unmarshal(msg.Data, &payload); err == nil && payload.TeamID != "" {
				c.hub.NotifyViewing(c, payload.TeamID, payload.UserID, payload.UserName)
			}
		default:
			log.Printf("realtime: unknown event %q from %s", msg.Event, c.id)
		}
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings. It exits when the channel closes
// (disconnect) or a write fails.
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
				c.hub.Disconnect(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.Disconnect(c)
				return
			}
		}
	}
}
