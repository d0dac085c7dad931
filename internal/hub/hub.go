package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"socketDraw/internal/enums"
	"socketDraw/internal/errs"
	"socketDraw/internal/models"
	socketModels "socketDraw/internal/models/socket"
	"socketDraw/internal/registry"
)

// HistoryGateway is the persistence side of the relay: fire-and-forget appends
// and the history read used for the join snapshot.
type HistoryGateway interface {
	Append(roomID string, command models.DrawingCommand)
	FetchHistory(ctx context.Context, roomID string) ([]models.DrawingCommand, error)
}

type messageKind int

const (
	kindRegister messageKind = iota
	kindUnregister
	kindFrame
	kindHistory
)

// hubMessage is the only thing that enters the hub loop. History fetch
// results re-enter through it as well, so every RoomState mutation and every
// broadcast happens on one goroutine.
type hubMessage struct {
	kind    messageKind
	client  *Client
	frame   socketModels.BoardSocketEvent
	roomID  string
	history []models.DrawingCommand
	err     error
}

// Hub relays board events between the connections of a room and keeps the
// registry in sync with connection lifecycle.
type Hub struct {
	messages chan hubMessage

	// Connections by room, for fan-out. Membership truth lives in the registry.
	rooms   map[string]map[*Client]bool
	clients map[*Client]bool

	registry *registry.RoomRegistry
	history  HistoryGateway
	log      *logrus.Entry
}

func NewHub(reg *registry.RoomRegistry, history HistoryGateway) *Hub {
	if reg == nil {
		panic("room registry cannot be nil for Hub")
	}
	if history == nil {
		panic("history gateway cannot be nil for Hub")
	}
	return &Hub{
		messages: make(chan hubMessage, 512),
		rooms:    make(map[string]map[*Client]bool),
		clients:  make(map[*Client]bool),
		registry: reg,
		history:  history,
		log:      logrus.WithField("component", "hub"),
	}
}

// Register attaches a freshly upgraded connection to the hub.
func (h *Hub) Register(client *Client) {
	h.messages <- hubMessage{kind: kindRegister, client: client}
}

// Unregister detaches a connection after its transport closed.
func (h *Hub) Unregister(client *Client) {
	h.messages <- hubMessage{kind: kindUnregister, client: client}
}

// Dispatch queues an inbound event. Non-blocking: when the hub is saturated
// the event is dropped, matching the relay's best-effort contract.
func (h *Hub) Dispatch(client *Client, event socketModels.BoardSocketEvent) bool {
	select {
	case h.messages <- hubMessage{kind: kindFrame, client: client, frame: event}:
		return true
	default:
		h.log.WithFields(logrus.Fields{
			"connection_id": client.id,
			"event":         event.Event,
		}).Warn("Hub message channel full, dropping event")
		return false
	}
}

// Run drains the hub's message channel. It should run in its own goroutine;
// everything it touches is confined to this loop.
func (h *Hub) Run() {
	h.log.Info("Hub is running...")
	for msg := range h.messages {
		switch msg.kind {
		case kindRegister:
			h.clients[msg.client] = true
			h.log.WithField("connection_id", msg.client.id).Debug("Connection registered")
		case kindUnregister:
			h.handleDisconnect(msg.client)
		case kindFrame:
			h.handleFrame(msg.client, msg.frame)
		case kindHistory:
			h.handleHistoryResult(msg)
		}
	}
	h.log.Info("Hub is shutting down...")
}

func (h *Hub) handleFrame(c *Client, event socketModels.BoardSocketEvent) {
	if !h.clients[c] || c.State() == StateClosed {
		return
	}

	switch event.Event {
	case enums.SOCKET_EVENT_JOIN_ROOM:
		h.handleJoin(c, event.Payload)
	case enums.SOCKET_EVENT_LEAVE_ROOM:
		h.handleLeave(c, event.Payload)
	case enums.SOCKET_EVENT_CURSOR_MOVE:
		h.handleCursorMove(c, event.Payload)
	case enums.SOCKET_EVENT_DRAW_START:
		h.handleDrawStart(c, event.Payload)
	case enums.SOCKET_EVENT_DRAW_MOVE:
		h.handleDrawMove(c, event.Payload)
	case enums.SOCKET_EVENT_DRAW_END:
		h.handleDrawEnd(c, event.Payload)
	case enums.SOCKET_EVENT_CLEAR_CANVAS:
		h.handleClearCanvas(c, event.Payload)
	default:
		h.log.WithFields(logrus.Fields{
			"connection_id": c.id,
			"event":         event.Event,
		}).Warn("Received unknown event")
	}
}

func (h *Hub) handleJoin(c *Client, raw json.RawMessage) {
	if c.State() != StateConnected {
		h.dropForState(c, enums.SOCKET_EVENT_JOIN_ROOM)
		return
	}

	var payload socketModels.JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" || len(payload.RoomID) > maxRoomIDLen {
		h.sendEvent(c, enums.SOCKET_EVENT_JOIN_ACK, socketModels.JoinAckPayload{
			OK:    false,
			Error: errs.ErrInvalidRoomId.Error(),
		})
		return
	}
	roomID := payload.RoomID

	h.registry.AddParticipant(roomID, c.id)
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	c.setState(StateJoined, roomID)

	h.broadcastUserCount(roomID)

	// The history read runs off-loop and its result re-enters the loop. A
	// stroke committed between this point and the snapshot read may reach the
	// joiner twice (live and in the snapshot) or, if its append lags, miss the
	// snapshot. Accepted; see the server's design notes.
	go h.fetchHistory(c, roomID)

	h.log.WithFields(logrus.Fields{
		"connection_id": c.id,
		"room_id":       roomID,
		"members":       h.registry.MemberCount(roomID),
	}).Info("Connection joined room")
}

func (h *Hub) fetchHistory(c *Client, roomID string) {
	history, err := h.history.FetchHistory(context.Background(), roomID)
	h.messages <- hubMessage{
		kind:    kindHistory,
		client:  c,
		roomID:  roomID,
		history: history,
		err:     err,
	}
}

// handleHistoryResult delivers the join snapshot and the join ack. A late
// result for a connection that already left or re-joined elsewhere is dropped.
func (h *Hub) handleHistoryResult(msg hubMessage) {
	c := msg.client
	if c.State() != StateJoined || c.Room() != msg.roomID {
		h.log.WithFields(logrus.Fields{
			"connection_id": c.id,
			"room_id":       msg.roomID,
		}).Debug("Dropping late history result")
		return
	}

	if msg.err != nil {
		// Degrades to memory-only collaboration; the join itself stands.
		h.log.WithField("room_id", msg.roomID).WithError(msg.err).Error("Failed to fetch history for joiner")
	} else if len(msg.history) > 0 {
		h.sendEvent(c, enums.SOCKET_EVENT_INITIAL_DATA, msg.history)
	}

	h.sendEvent(c, enums.SOCKET_EVENT_JOIN_ACK, socketModels.JoinAckPayload{OK: true})
}

func (h *Hub) handleLeave(c *Client, raw json.RawMessage) {
	var payload socketModels.LeaveRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if c.State() != StateJoined || payload.RoomID != c.Room() {
		h.dropForState(c, enums.SOCKET_EVENT_LEAVE_ROOM)
		return
	}

	h.removeFromRoom(c, payload.RoomID)
	c.setState(StateConnected, "")

	h.log.WithFields(logrus.Fields{
		"connection_id": c.id,
		"room_id":       payload.RoomID,
	}).Info("Connection left room")
}

func (h *Hub) handleDisconnect(c *Client) {
	if !h.clients[c] {
		return
	}
	if c.State() == StateJoined {
		h.removeFromRoom(c, c.Room())
	}
	c.setState(StateClosed, "")
	delete(h.clients, c)
	close(c.send)

	h.log.WithField("connection_id", c.id).Debug("Connection unregistered")
}

// removeFromRoom drops the connection from registry and fan-out table, then
// tells the remaining members the new count and the surviving cursor set so
// they can prune stale cursor indicators.
func (h *Hub) removeFromRoom(c *Client, roomID string) {
	h.registry.RemoveParticipant(roomID, c.id)
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}

	h.broadcastUserCount(roomID)
	h.broadcastEvent(roomID, nil, enums.SOCKET_EVENT_CURSORS, h.registry.Cursors(roomID))
}

func (h *Hub) handleCursorMove(c *Client, raw json.RawMessage) {
	if c.State() != StateJoined {
		h.dropForState(c, enums.SOCKET_EVENT_CURSOR_MOVE)
		return
	}
	var payload socketModels.CursorMovePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	roomID := c.Room()

	h.registry.SetCursor(roomID, c.id, models.CursorInfo{
		ID:         c.id,
		X:          payload.X,
		Y:          payload.Y,
		Color:      payload.Color,
		LastActive: time.Now().UnixMilli(),
	})

	h.broadcastEvent(roomID, c, enums.SOCKET_EVENT_CURSOR_UPDATE, socketModels.CursorUpdatePayload{
		ID:    c.id,
		X:     payload.X,
		Y:     payload.Y,
		Color: payload.Color,
	})
}

func (h *Hub) handleDrawStart(c *Client, raw json.RawMessage) {
	if c.State() != StateJoined {
		h.dropForState(c, enums.SOCKET_EVENT_DRAW_START)
		return
	}
	var payload socketModels.DrawStartPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	// Not persisted: the durable record is written once, at stroke end.
	h.broadcastEvent(c.Room(), c, enums.SOCKET_EVENT_DRAW_START, socketModels.DrawStartPayload{
		ID:     c.id,
		Stroke: payload.Stroke,
	})
}

func (h *Hub) handleDrawMove(c *Client, raw json.RawMessage) {
	if c.State() != StateJoined {
		h.dropForState(c, enums.SOCKET_EVENT_DRAW_MOVE)
		return
	}
	var payload socketModels.DrawMovePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	roomID := c.Room()

	// Batches are flattened so remote rendering stays per-point smooth no
	// matter how the sender batched.
	if len(payload.Points) > 0 {
		for i := range payload.Points {
			point := payload.Points[i]
			h.broadcastEvent(roomID, c, enums.SOCKET_EVENT_DRAW_MOVE, socketModels.DrawMovePayload{
				ID:    c.id,
				Point: &point,
			})
		}
		return
	}
	if payload.Point != nil {
		h.broadcastEvent(roomID, c, enums.SOCKET_EVENT_DRAW_MOVE, socketModels.DrawMovePayload{
			ID:    c.id,
			Point: payload.Point,
		})
	}
}

func (h *Hub) handleDrawEnd(c *Client, raw json.RawMessage) {
	if c.State() != StateJoined {
		h.dropForState(c, enums.SOCKET_EVENT_DRAW_END)
		return
	}
	var payload socketModels.DrawEndPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	// A draw-end without a stroke carries nothing to render or replay.
	if len(payload.Stroke.Path) == 0 {
		return
	}
	roomID := c.Room()

	// Peers first; the append must never delay or fail the broadcast.
	h.broadcastEvent(roomID, c, enums.SOCKET_EVENT_DRAW_END, socketModels.DrawEndPayload{
		ID:     c.id,
		Stroke: payload.Stroke,
	})

	h.history.Append(roomID, models.DrawingCommand{
		Type:      models.CommandTypeStroke,
		Data:      payload.Stroke,
		Timestamp: time.Now(),
	})
}

func (h *Hub) handleClearCanvas(c *Client, raw json.RawMessage) {
	if c.State() != StateJoined {
		h.dropForState(c, enums.SOCKET_EVENT_CLEAR_CANVAS)
		return
	}
	roomID := c.Room()

	// Unlike stroke events, clear goes to the sender too.
	h.broadcastEvent(roomID, nil, enums.SOCKET_EVENT_CLEAR_CANVAS, struct{}{})

	h.history.Append(roomID, models.DrawingCommand{
		Type:      models.CommandTypeClear,
		Timestamp: time.Now(),
	})
}

func (h *Hub) broadcastUserCount(roomID string) {
	h.broadcastEvent(roomID, nil, enums.SOCKET_EVENT_USER_COUNT, socketModels.UserCountPayload{
		Count: h.registry.MemberCount(roomID),
	})
}

// broadcastEvent sends an event to every connection of a room; a non-nil
// sender is excluded. Sends are non-blocking so one slow client cannot stall
// the loop.
func (h *Hub) broadcastEvent(roomID string, sender *Client, event string, payload interface{}) {
	clients, ok := h.rooms[roomID]
	if !ok || len(clients) == 0 {
		return
	}
	data, err := marshalEvent(event, payload)
	if err != nil {
		h.log.WithField("event", event).WithError(err).Error("Failed to marshal broadcast event")
		return
	}
	for client := range clients {
		if client == sender {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.log.WithFields(logrus.Fields{
				"connection_id": client.id,
				"event":         event,
			}).Warn("Client send channel full, dropping broadcast")
		}
	}
}

func (h *Hub) sendEvent(c *Client, event string, payload interface{}) {
	data, err := marshalEvent(event, payload)
	if err != nil {
		h.log.WithField("event", event).WithError(err).Error("Failed to marshal event")
		return
	}
	select {
	case c.send <- data:
	default:
		h.log.WithFields(logrus.Fields{
			"connection_id": c.id,
			"event":         event,
		}).Warn("Client send channel full, dropping event")
	}
}

func (h *Hub) dropForState(c *Client, event string) {
	h.log.WithFields(logrus.Fields{
		"connection_id": c.id,
		"event":         event,
		"state":         c.State(),
	}).Debug("Dropping event received in wrong state")
}

func marshalEvent(event string, payload interface{}) ([]byte, error) {
	ev, err := socketModels.NewBoardSocketEvent(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ev)
}
