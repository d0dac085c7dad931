package services

import (
	"context"

	"socketDraw/internal/errs"
	"socketDraw/internal/models"
	"socketDraw/internal/repositories"
)

type RoomService struct {
	roomRepo *repositories.RoomRepository
}

func NewRoomService(roomRepo *repositories.RoomRepository) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
	}
}

const maxRoomIDLen = 64

// JoinRoom creates the durable room record on first use, or fetches it.
func (rs *RoomService) JoinRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if roomID == "" || len(roomID) > maxRoomIDLen {
		return nil, errs.ErrInvalidRoomId
	}
	return rs.roomRepo.EnsureRoom(ctx, roomID)
}

func (rs *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if roomID == "" {
		return nil, errs.ErrInvalidRoomId
	}
	return rs.roomRepo.FindRoom(ctx, roomID)
}
