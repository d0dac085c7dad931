package models

import "time"

const (
	CommandTypeStroke = "stroke"
	CommandTypeClear  = "clear"
)

// DrawingCommand is one entry of a room's append-only drawing history.
// Insertion order (the auto-increment ID) is the canonical replay order.
type DrawingCommand struct {
	ID        uint      `json:"-" gorm:"primarykey"`
	RoomID    string    `json:"-" gorm:"index;not null"`
	Type      string    `json:"type" gorm:"not null"`
	Data      Stroke    `json:"data" gorm:"type:jsonb"`
	Timestamp time.Time `json:"timestamp"`
}
