package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"socketDraw/internal/models"
)

const (
	TypeCommandPersistence = "command:persist"
)

type CommandPersistencePayload struct {
	RoomID  string                `json:"room_id"`
	Command models.DrawingCommand `json:"command"`
}

func NewCommandPersistenceTask(roomID string, command models.DrawingCommand) (*asynq.Task, error) {
	payload, err := json.Marshal(CommandPersistencePayload{
		RoomID:  roomID,
		Command: command,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCommandPersistence, payload), nil
}
