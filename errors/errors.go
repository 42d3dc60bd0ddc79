package errors

import "fmt"

var (
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrNotInRoom          = fmt.Errorf("not in a room")
	ErrTransportFailure   = fmt.Errorf("transport failure")
	ErrPersistenceFailure = fmt.Errorf("persistence failure")
	ErrSinkClosed         = fmt.Errorf("sink is closed")
	ErrSinkFull           = fmt.Errorf("sink buffer is full")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrInvalidCensorChar  = fmt.Errorf("censor character must be a single rune")
)
