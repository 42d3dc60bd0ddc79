package runtime

import (
	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IDirectory = (*Directory)(nil)

// Directory keeps rooms -> members and the inverse username -> room.
// Both maps change together under one lock so that a room switch is never
// observed half done. Rooms are never deleted, even when empty.
// Transcript handles are opened and closed after the lock is released.
type Directory struct {
	mu         sync.RWMutex
	log        *slog.Logger
	transcript contract.TranscriptSink
	rooms      map[string]domain.Set
	userRooms  map[string]string
}

func NewDirectory(log *slog.Logger, transcript contract.TranscriptSink) *Directory {
	return &Directory{
		log:        log,
		transcript: transcript,
		rooms:      make(map[string]domain.Set),
		userRooms:  make(map[string]string),
	}
}

// CreateOrJoin never fails: a missing room is created with username as its
// only member.
func (d *Directory) CreateOrJoin(username, room string) (domain.RoomStatus, error) {
	return d.enter(username, room, true)
}

// Join fails with errors.ErrRoomNotFound when room is unknown, leaving every
// membership untouched.
func (d *Directory) Join(username, room string) (domain.RoomStatus, error) {
	return d.enter(username, room, false)
}

func (d *Directory) enter(username, room string, create bool) (domain.RoomStatus, error) {
	d.mu.Lock()
	members, exists := d.rooms[room]
	if !exists && !create {
		d.mu.Unlock()
		return 0, errors.ErrRoomNotFound
	}

	vacated, emptied := "", false
	if current, ok := d.userRooms[username]; ok && current != room {
		vacated, emptied = d.removeLocked(username, current)
	}

	status := domain.Joined
	if !exists {
		members = make(domain.Set)
		d.rooms[room] = members
		status = domain.Created
	}
	members[username] = struct{}{}
	d.userRooms[username] = room
	d.mu.Unlock()

	if emptied {
		d.closeTranscript(vacated)
	}
	if err := d.transcript.Open(room); err != nil {
		d.log.Warn("Transcript could not be opened", "room", room, "error", err)
	}
	d.log.Debug("Participant entered room", "username", username, "room", room, "status", status.String())
	return status, nil
}

// Leave returns the room username left, or errors.ErrNotInRoom.
func (d *Directory) Leave(username string) (string, error) {
	d.mu.Lock()
	current, ok := d.userRooms[username]
	if !ok {
		d.mu.Unlock()
		return "", errors.ErrNotInRoom
	}
	_, emptied := d.removeLocked(username, current)
	d.mu.Unlock()

	if emptied {
		d.closeTranscript(current)
	}
	d.log.Debug("Participant left room", "username", username, "room", current)
	return current, nil
}

// removeLocked drops username from room and reports whether nobody is left.
// Any string is a valid room name, the empty one included.
func (d *Directory) removeLocked(username, room string) (string, bool) {
	delete(d.userRooms, username)
	members, ok := d.rooms[room]
	if !ok {
		return room, false
	}
	delete(members, username)
	return room, len(members) == 0
}

func (d *Directory) closeTranscript(room string) {
	if err := d.transcript.Close(room); err != nil {
		d.log.Warn("Transcript could not be closed", "room", room, "error", err)
	}
}

// ListRooms returns every known room sorted by name, empty ones included.
// The boolean is false when no room was ever created.
func (d *Directory) ListRooms() ([]string, bool) {
	d.mu.RLock()
	names := lo.Keys(d.rooms)
	d.mu.RUnlock()

	if len(names) == 0 {
		return nil, false
	}
	slices.Sort(names)
	return names, true
}

func (d *Directory) MembersOf(room string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Keys(d.rooms[room])
}

func (d *Directory) RoomOf(username string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.userRooms[username]
	return room, ok
}

// Snapshot reads username's room and that room's members in one critical
// section. The returned slice is a copy and can be used without holding locks.
func (d *Directory) Snapshot(username string) (string, []string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.userRooms[username]
	if !ok {
		return "", nil, false
	}
	return room, lo.Keys(d.rooms[room]), true
}

// Len is the number of known rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
