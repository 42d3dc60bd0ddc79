package runtime

import (
	"bufio"
	"chat-rooms/contract"
	"chat-rooms/domain"
	chaterrors "chat-rooms/errors"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const defaultMaxLineLength = 64 * 1024

// SessionConfig groups the knobs shared by every connection.
type SessionConfig struct {
	MaxLineLength   int
	DuplicatePolicy domain.DuplicatePolicy
}

// Session drives one connected participant: registration, command loop and
// cleanup. It only knows its own sink; every cross-session effect goes
// through the registry, the directory or the router.
type Session struct {
	ID        uuid.UUID
	log       *slog.Logger
	registry  contract.IRegistry
	directory contract.IDirectory
	router    contract.IRouter
	sink      contract.Sink
	reader    io.Reader
	config    SessionConfig

	username   string
	registered bool
	cleanup    sync.Once
}

func NewSession(log *slog.Logger, registry contract.IRegistry, directory contract.IDirectory,
	router contract.IRouter, reader io.Reader, sink contract.Sink, config SessionConfig) *Session {
	if config.MaxLineLength <= 0 {
		config.MaxLineLength = defaultMaxLineLength
	}
	if config.DuplicatePolicy == "" {
		config.DuplicatePolicy = domain.OverwritePolicy
	}
	id := uuid.New()
	return &Session{
		ID:        id,
		log:       log.With("session_id", id.String()),
		registry:  registry,
		directory: directory,
		router:    router,
		sink:      sink,
		reader:    reader,
		config:    config,
	}
}

// Username is empty until the registration line has been read.
func (s *Session) Username() string {
	return s.username
}

// Run blocks until the stream ends, a read fails or /exit is received.
// Cleanup always runs once before Run returns. A nil error means the
// participant left on its own (EOF or /exit); read failures are wrapped in
// errors.ErrTransportFailure.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, min(4096, s.config.MaxLineLength)), s.config.MaxLineLength)

	if !scanner.Scan() {
		return s.readError(scanner.Err())
	}
	s.register(ctx, scanner.Text())

	for scanner.Scan() {
		if exit := s.dispatch(ctx, scanner.Text()); exit {
			return nil
		}
	}
	return s.readError(scanner.Err())
}

// Close unregisters the participant and drops its room membership.
// Only the first call does anything.
func (s *Session) Close() {
	s.cleanup.Do(func() {
		if !s.registered {
			return
		}
		if _, ownedByOther := s.registry.Unregister(s.username, s.sink); ownedByOther {
			// The name now belongs to a newer connection, so does the room membership.
			s.log.Debug("Registry entry already replaced, keeping room membership")
			return
		}
		if room, err := s.directory.Leave(s.username); err == nil {
			s.log.Debug("Left room on cleanup", "room", room)
		}
		s.log.Info("Participant disconnected")
	})
}

func (s *Session) readError(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", chaterrors.ErrTransportFailure, err)
}

func (s *Session) register(ctx context.Context, username string) {
	s.log = s.log.With("username", username)
	if s.config.DuplicatePolicy == domain.EvictPolicy && s.registry.Kick(ctx, username) {
		// The evicted connection keeps no claim on the name, nor on its room.
		_, _ = s.directory.Leave(username)
	}
	if _, replaced := s.registry.Register(username, s.sink); replaced {
		s.log.Warn("Username taken over by a new connection")
	}
	s.username = username
	s.registered = true
	s.log.Info("Participant registered")
}

// dispatch runs one command and reports whether the session must end.
func (s *Session) dispatch(ctx context.Context, line string) bool {
	cmd := domain.ParseCommand(line)
	switch cmd.Kind {
	case domain.ExitCommand:
		s.reply(ctx, domain.ExitNotice(s.username))
		return true
	case domain.CreateCommand:
		s.createOrJoin(ctx, cmd.Argument)
	case domain.JoinCommand:
		s.join(ctx, cmd.Argument)
	case domain.LeaveCommand:
		s.leave(ctx)
	case domain.ListCommand:
		rooms, _ := s.directory.ListRooms()
		s.reply(ctx, domain.RoomsNotice(rooms))
	default:
		s.broadcast(ctx, cmd.Argument)
	}
	return false
}

func (s *Session) createOrJoin(ctx context.Context, room string) {
	status, err := s.directory.CreateOrJoin(s.username, room)
	if err != nil {
		s.log.Error("Room creation failed", "room", room, "error", err)
		return
	}
	if status == domain.Created {
		s.reply(ctx, domain.CreatedNotice(room))
		return
	}
	s.reply(ctx, domain.JoinedNotice(room))
}

func (s *Session) join(ctx context.Context, room string) {
	if _, err := s.directory.Join(s.username, room); err != nil {
		if errors.Is(err, chaterrors.ErrRoomNotFound) {
			s.reply(ctx, domain.RoomNotFoundNotice(room))
			return
		}
		s.log.Error("Room join failed", "room", room, "error", err)
		return
	}
	s.reply(ctx, domain.JoinedNotice(room))
}

func (s *Session) leave(ctx context.Context) {
	room, err := s.directory.Leave(s.username)
	if err != nil {
		s.reply(ctx, domain.NotInRoomNotice)
		return
	}
	s.reply(ctx, domain.LeftNotice(room))
}

func (s *Session) broadcast(ctx context.Context, body string) {
	err := s.router.Broadcast(ctx, s.username, body)
	switch {
	case err == nil:
	case errors.Is(err, chaterrors.ErrNotInRoom):
		s.reply(ctx, domain.NotInRoomChatNotice)
	default:
		s.log.Warn("Message delivered but not persisted", "error", err)
	}
}

func (s *Session) reply(ctx context.Context, line string) {
	if err := s.sink.Deliver(ctx, line); err != nil {
		s.log.Debug("Reply not delivered", "error", err)
	}
}
