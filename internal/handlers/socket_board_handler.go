package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"socketDraw/internal/hub"
)

type SocketBoardHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

func NewSocketBoardHandler(boardHub *hub.Hub) *SocketBoardHandler {
	return &SocketBoardHandler{
		hub: boardHub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleSocketBoardRoute upgrades the connection and hands it to the hub.
// The connection stays in Connected state until it sends join-room.
func (sbh *SocketBoardHandler) HandleSocketBoardRoute(ctx *gin.Context) {
	ws, err := sbh.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	client := hub.NewClient(sbh.hub, ws)
	sbh.hub.Register(client)
	client.Run()

	logrus.WithField("connection_id", client.ID()).Debug("Board socket connected")
}
