package socket

import (
	"encoding/json"

	"socketDraw/internal/models"
)

// BoardSocketEvent is the wire envelope for every message on the board socket,
// in both directions. Payload stays raw until the event name is known.
type BoardSocketEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewBoardSocketEvent(event string, payload interface{}) (*BoardSocketEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &BoardSocketEvent{Event: event, Payload: raw}, nil
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type JoinAckPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type UserCountPayload struct {
	Count int `json:"count"`
}

type CursorMovePayload struct {
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
}

type CursorUpdatePayload struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

type DrawStartPayload struct {
	RoomID string        `json:"roomId,omitempty"`
	ID     string        `json:"id,omitempty"`
	Stroke models.Stroke `json:"stroke"`
}

// DrawMovePayload carries either a single point or a client-side batch.
// The server re-emits batches point-wise, never as a batch.
type DrawMovePayload struct {
	RoomID string         `json:"roomId,omitempty"`
	ID     string         `json:"id,omitempty"`
	Point  *models.Point  `json:"point,omitempty"`
	Points []models.Point `json:"points,omitempty"`
}

type DrawEndPayload struct {
	RoomID string        `json:"roomId,omitempty"`
	ID     string        `json:"id,omitempty"`
	Stroke models.Stroke `json:"stroke"`
}

type ClearCanvasPayload struct {
	RoomID string `json:"roomId,omitempty"`
}
