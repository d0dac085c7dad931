package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// To satisfy postgres jsonb data type
type Path []Point

func (p *Path) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, p)
}

func (p Path) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Stroke is not a db entity on its own.
// Embedded in the drawing command db entity as a jsonb column.
type Stroke struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
	Path  Path    `json:"path"`
}

func (s *Stroke) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

func (s Stroke) Value() (driver.Value, error) {
	return json.Marshal(s)
}
