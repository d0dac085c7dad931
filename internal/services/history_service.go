package services

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"socketDraw/internal/models"
	"socketDraw/internal/tasks"
)

// TaskEnqueuer is the slice of asynq.Client the gateway uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// HistoryReader reads a room's persisted command log.
type HistoryReader interface {
	FetchHistory(ctx context.Context, roomID string) ([]models.DrawingCommand, error)
}

type appendRequest struct {
	roomID  string
	command models.DrawingCommand
}

// HistoryService is the persistence gateway for drawing history: appends are
// fire-and-forget through the task queue, reads go straight to the store.
// Appends pass through one drain goroutine so commands reach the queue in the
// order Append was called.
type HistoryService struct {
	enqueuer TaskEnqueuer
	reader   HistoryReader
	pending  chan appendRequest
	log      *logrus.Entry
}

func NewHistoryService(enqueuer TaskEnqueuer, reader HistoryReader) *HistoryService {
	return &HistoryService{
		enqueuer: enqueuer,
		reader:   reader,
		pending:  make(chan appendRequest, 1024),
		log:      logrus.WithField("component", "history_service"),
	}
}

// Run drains pending appends one at a time. It should run in its own
// goroutine for the life of the process.
func (hs *HistoryService) Run() {
	for req := range hs.pending {
		hs.enqueue(req)
	}
}

// Append queues a durable append of one drawing command. It never reports
// failure to the caller: persistence trouble degrades durability, not live
// collaboration.
func (hs *HistoryService) Append(roomID string, command models.DrawingCommand) {
	hs.pending <- appendRequest{roomID: roomID, command: command}
}

func (hs *HistoryService) enqueue(req appendRequest) {
	logCtx := hs.log.WithFields(logrus.Fields{
		"room_id":      req.roomID,
		"command_type": req.command.Type,
	})

	task, err := tasks.NewCommandPersistenceTask(req.roomID, req.command)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build persistence task")
		return
	}
	if _, err := hs.enqueuer.Enqueue(task); err != nil {
		logCtx.WithError(err).Error("Failed to enqueue persistence task")
		return
	}
	logCtx.Debug("Persistence task enqueued")
}

// FetchHistory returns the full ordered history of a room. A room with no
// persisted record yet yields an empty history and no error.
func (hs *HistoryService) FetchHistory(ctx context.Context, roomID string) ([]models.DrawingCommand, error) {
	return hs.reader.FetchHistory(ctx, roomID)
}
