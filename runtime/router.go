package runtime

import (
	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"context"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

var _ contract.IRouter = (*Router)(nil)

// Router delivers chat lines to the sender's room and records them.
// Delivery works on a membership snapshot: someone joining mid-broadcast
// may miss the line, someone leaving may still get it.
type Router struct {
	log        *slog.Logger
	registry   contract.IRegistry
	directory  contract.IDirectory
	transcript contract.TranscriptSink
	censor     contract.Censor
}

// NewRouter builds a Router. censor may be nil to route bodies untouched.
func NewRouter(log *slog.Logger, registry contract.IRegistry, directory contract.IDirectory,
	transcript contract.TranscriptSink, censor contract.Censor) *Router {
	return &Router{
		log:        log,
		registry:   registry,
		directory:  directory,
		transcript: transcript,
		censor:     censor,
	}
}

// Broadcast sends body from sender to every other member of sender's room,
// then appends the formatted line to the room transcript.
// It returns errors.ErrNotInRoom when sender has no room (nothing is sent or
// written) and wraps errors.ErrPersistenceFailure when only the append failed.
func (r *Router) Broadcast(ctx context.Context, sender, body string) error {
	room, members, ok := r.directory.Snapshot(sender)
	if !ok {
		return errors.ErrNotInRoom
	}

	line := domain.FormatLine(sender, room, r.moderate(sender, room, body))
	for _, member := range lo.Without(members, sender) {
		sink, ok := r.registry.Lookup(member)
		if !ok {
			// Stale membership: the participant is gone but cleanup hasn't run yet.
			continue
		}
		if err := sink.Deliver(ctx, line); err != nil {
			r.log.Debug("Line not delivered", "room", room, "recipient", member, "error", err)
		}
	}

	if err := r.transcript.Append(room, line); err != nil {
		return fmt.Errorf("%w: room %q: %v", errors.ErrPersistenceFailure, room, err)
	}
	return nil
}

func (r *Router) moderate(sender, room, body string) string {
	if r.censor == nil {
		return body
	}
	sanitized, words := r.censor.Censor(body)
	if len(words) > 0 {
		r.log.Info("Message censored",
			"sender", sender,
			"room", room,
			"words", len(words),
			"lang", whatlanggo.Detect(body).Lang.Iso6391())
	}
	return sanitized
}
