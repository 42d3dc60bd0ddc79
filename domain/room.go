package domain

// RoomStatus reports how a participant entered a room.
type RoomStatus int

const (
	Created RoomStatus = iota + 1
	Joined
)

func (s RoomStatus) String() string {
	switch s {
	case Created:
		return "created"
	case Joined:
		return "joined"
	default:
		return "unknown"
	}
}

// Set is an unordered collection of usernames.
type Set map[string]struct{}
