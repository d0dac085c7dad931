package models

import "time"

type Room struct {
	ID           uint      `json:"-" gorm:"primarykey"`
	RoomID       string    `json:"roomId" gorm:"uniqueIndex;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}
