package errs

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrInvalidRequestBody = Error("invalid request body")
	ErrInvalidRoomId      = Error("invalid-roomId")
	ErrJoinFailed         = Error("server-error")
	ErrRoomNotFound       = Error("room not found")
	ErrPersistenceFailed  = Error("failed to persist drawing command")
)
