package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	socketModels "socketDraw/internal/models/socket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Strokes carry full paths.
	maxMessageSize = 512 * 1024

	// Maximum accepted room identifier length.
	maxRoomIDLen = 64
)

// ConnState is the lifecycle state of one connection.
type ConnState int

const (
	StateConnected ConnState = iota
	StateJoined
	StateClosed
)

// Client is one websocket connection attached to the hub. Its state machine
// (Connected -> Joined -> Connected/Closed) is read and written only inside
// the hub's event loop; the mutex exists for outside readers.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	mu     sync.Mutex
	state  ConnState
	roomID string
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		id:    uuid.NewString(),
		state: StateConnected,
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns the joined room id, or "" when not joined.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) setState(state ConnState, roomID string) {
	c.mu.Lock()
	c.state = state
	c.roomID = roomID
	c.mu.Unlock()
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// readPump pumps decoded events from the websocket into the hub loop.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("connection_id", c.id).WithError(err).Warn("WebSocket read error")
			}
			break
		}

		var event socketModels.BoardSocketEvent
		if err := json.Unmarshal(message, &event); err != nil {
			logrus.WithField("connection_id", c.id).WithError(err).Warn("Dropping malformed socket event")
			continue
		}
		c.hub.Dispatch(c, event)
	}
}

// writePump pumps messages from the send channel to the websocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel during unregister
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("connection_id", c.id).WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
