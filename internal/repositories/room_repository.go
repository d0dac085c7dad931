package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"socketDraw/internal/errs"
	"socketDraw/internal/models"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{
		db: db,
	}
}

// EnsureRoom creates the durable room record if absent and returns it.
func (rr *RoomRepository) EnsureRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room := models.Room{RoomID: roomID}
	result := rr.db.WithContext(ctx).
		Where(models.Room{RoomID: roomID}).
		Attrs(models.Room{LastActivity: time.Now()}).
		FirstOrCreate(&room)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to ensure room %q: %w", roomID, err)
	}
	return &room, nil
}

func (rr *RoomRepository) FindRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	result := rr.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room)
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room %q: %w", roomID, err)
	}
	return &room, nil
}

// AppendCommand appends one drawing command to the room's history and bumps
// lastActivity. The room row is upserted first: a stroke may land before the
// REST join ever created the room, and two appends for the same new room may
// race, so the insert has to tolerate an existing row.
func (rr *RoomRepository) AppendCommand(ctx context.Context, roomID string, command *models.DrawingCommand) error {
	return rr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room := models.Room{RoomID: roomID, LastActivity: command.Timestamp}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_activity": command.Timestamp}),
		}).Create(&room).Error; err != nil {
			return fmt.Errorf("failed to upsert room %q: %w", roomID, err)
		}

		command.RoomID = roomID
		if err := tx.Create(command).Error; err != nil {
			return fmt.Errorf("failed to append %s command to room %q: %w", command.Type, roomID, err)
		}
		return nil
	})
}

// FetchHistory returns the room's full command log in insertion order.
// An unknown room yields an empty history, never an error.
func (rr *RoomRepository) FetchHistory(ctx context.Context, roomID string) ([]models.DrawingCommand, error) {
	var commands []models.DrawingCommand
	result := rr.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id asc").
		Find(&commands)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history for room %q: %w", roomID, err)
	}
	return commands, nil
}
