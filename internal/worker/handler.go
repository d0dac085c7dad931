package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"socketDraw/internal/errs"
	"socketDraw/internal/models"
	"socketDraw/internal/tasks"
)

// CommandAppender is the slice of the room repository the worker needs.
type CommandAppender interface {
	AppendCommand(ctx context.Context, roomID string, command *models.DrawingCommand) error
}

// CommandPersistenceHandler appends queued drawing commands to the durable
// history. A failure here degrades durability only; live fan-out already
// happened by the time the task was enqueued.
type CommandPersistenceHandler struct {
	appender CommandAppender
}

func NewCommandPersistenceHandler(appender CommandAppender) *CommandPersistenceHandler {
	return &CommandPersistenceHandler{appender: appender}
}

// ProcessTask implements the asynq.Handler interface.
func (h *CommandPersistenceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.CommandPersistencePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithField("task_type", t.Type()).WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type":    t.Type(),
		"room_id":      payload.RoomID,
		"command_type": payload.Command.Type,
	})

	if err := h.appender.AppendCommand(ctx, payload.RoomID, &payload.Command); err != nil {
		logCtx.WithError(err).Error("Failed to append drawing command")
		return fmt.Errorf("%w: room %q: %w", errs.ErrPersistenceFailed, payload.RoomID, err)
	}

	logCtx.Debug("Drawing command persisted")
	return nil
}
