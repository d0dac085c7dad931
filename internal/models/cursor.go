package models

// CursorInfo is the last reported cursor position of one connection.
// Ephemeral, never persisted.
type CursorInfo struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Color      string  `json:"color"`
	LastActive int64   `json:"lastActive"`
}
