package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"socketDraw/internal/errs"
	"socketDraw/internal/models"
	"socketDraw/internal/msgs"
	"socketDraw/internal/registry"
	"socketDraw/internal/services"
)

type RestHandler struct {
	roomService *services.RoomService
	registry    *registry.RoomRegistry
}

func NewRestHandler(roomService *services.RoomService, reg *registry.RoomRegistry) *RestHandler {
	return &RestHandler{
		roomService: roomService,
		registry:    reg,
	}
}

type joinRoomRequest struct {
	RoomID string `json:"roomId"`
}

// roomResponse augments the durable room record with the live member count.
type roomResponse struct {
	*models.Room
	ActiveUsers int `json:"activeUsers"`
}

// JoinRoom godoc
// @Summary      Create or fetch a room
// @Description  Creates the durable room record if it does not exist yet
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        request  body      joinRoomRequest  true  "Room identifier"
// @Success      200  {object}  roomResponse
// @Failure      400  {object}  models.Response
// @Failure      500  {object}  models.Response
// @Router       /rooms/join [post]
func (rh *RestHandler) JoinRoom(ctx *gin.Context) {
	var req joinRoomRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, models.Response{
			Success: false,
			Message: msgs.MsgOperationFailed,
			Errors:  []error{errs.ErrInvalidRequestBody},
		})
		return
	}

	room, err := rh.roomService.JoinRoom(ctx.Request.Context(), req.RoomID)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRoomId) {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: msgs.MsgOperationFailed,
				Errors:  []error{errs.ErrInvalidRoomId},
			})
			return
		}
		logrus.WithError(err).Error("Failed to create or fetch room")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Message: msgs.MsgOperationFailed,
			Errors:  []error{err},
		})
		return
	}

	ctx.JSON(http.StatusOK, roomResponse{
		Room:        room,
		ActiveUsers: rh.registry.MemberCount(room.RoomID),
	})
}

// GetRoom godoc
// @Summary      Fetch a room
// @Tags         rooms
// @Produce      json
// @Param        roomId  path      string  true  "Room identifier"
// @Success      200  {object}  roomResponse
// @Failure      404  {object}  models.Response
// @Failure      500  {object}  models.Response
// @Router       /rooms/{roomId} [get]
func (rh *RestHandler) GetRoom(ctx *gin.Context) {
	roomID := ctx.Param("roomId")

	room, err := rh.roomService.GetRoom(ctx.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, errs.ErrRoomNotFound) {
			ctx.AbortWithStatusJSON(http.StatusNotFound, models.Response{
				Success: false,
				Message: msgs.MsgRoomNotFound,
				Errors:  []error{errs.ErrRoomNotFound},
			})
			return
		}
		logrus.WithError(err).Error("Failed to fetch room")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Message: msgs.MsgOperationFailed,
			Errors:  []error{err},
		})
		return
	}

	ctx.JSON(http.StatusOK, roomResponse{
		Room:        room,
		ActiveUsers: rh.registry.MemberCount(room.RoomID),
	})
}
