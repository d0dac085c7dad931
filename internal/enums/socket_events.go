package enums

const (
	SOCKET_EVENT_JOIN_ROOM     = "join-room"
	SOCKET_EVENT_JOIN_ACK      = "join-ack"
	SOCKET_EVENT_LEAVE_ROOM    = "leave-room"
	SOCKET_EVENT_USER_COUNT    = "user-count"
	SOCKET_EVENT_CURSOR_MOVE   = "cursor-move"
	SOCKET_EVENT_CURSOR_UPDATE = "cursor-update"
	SOCKET_EVENT_CURSORS       = "cursors"
	SOCKET_EVENT_DRAW_START    = "draw-start"
	SOCKET_EVENT_DRAW_MOVE     = "draw-move"
	SOCKET_EVENT_DRAW_END      = "draw-end"
	SOCKET_EVENT_CLEAR_CANVAS  = "clear-canvas"
	SOCKET_EVENT_INITIAL_DATA  = "initial-data"
)
