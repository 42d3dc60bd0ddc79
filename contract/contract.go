//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-rooms/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Sink delivers lines to one connected participant.
type Sink interface {
	Deliver(ctx context.Context, line string) error
	Close() error
}

// TranscriptSink is the append-only history of every room.
// Append must work whether or not Open was called first.
type TranscriptSink interface {
	Open(room string) error
	Append(room, line string) error
	Close(room string) error
}

type IRegistry interface {
	Register(username string, sink Sink) (Sink, bool)
	Unregister(username string, sink Sink) (removed bool, ownedByOther bool)
	Lookup(username string) (Sink, bool)
	Kick(ctx context.Context, username string) bool
	Len() int
}

type IDirectory interface {
	CreateOrJoin(username, room string) (domain.RoomStatus, error)
	Join(username, room string) (domain.RoomStatus, error)
	Leave(username string) (string, error)
	ListRooms() ([]string, bool)
	MembersOf(room string) []string
	RoomOf(username string) (string, bool)
	Snapshot(username string) (string, []string, bool)
	Len() int
}

type IRouter interface {
	Broadcast(ctx context.Context, sender, body string) error
}

// Censor hides forbidden words and reports the ones it found.
type Censor interface {
	Censor(original string) (string, []string)
}
