package msgs

const (
	MsgOperationFailed = "operation failed"
	MsgRoomNotFound    = "room not found"
)
