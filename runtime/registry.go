package runtime

import (
	"chat-rooms/contract"
	"chat-rooms/domain"
	"context"
	"log/slog"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

// Registry is the directory of online participants: username -> Sink.
// Last registration wins; nothing here checks uniqueness.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[string]contract.Sink
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[string]contract.Sink),
	}
}

// Register maps username to sink, overwriting any previous entry.
// The replaced sink, if any, is returned so callers can decide what to do with it.
func (r *Registry) Register(username string, sink contract.Sink) (contract.Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced := r.sessions[username]
	r.sessions[username] = sink
	return previous, replaced
}

// Unregister removes username only while it still points at sink.
// A connection that lost its name to a newer one can't remove the newer entry:
// ownedByOther reports that case. Both results are false when username has
// no entry at all.
func (r *Registry) Unregister(username string, sink contract.Sink) (removed bool, ownedByOther bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[username]
	if !ok {
		return false, false
	}
	if current != sink {
		return false, true
	}
	delete(r.sessions, username)
	return true, false
}

func (r *Registry) Lookup(username string) (contract.Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, ok := r.sessions[username]
	return sink, ok
}

// Kick removes username from the registry, sends the kick sentinel to its
// connection and closes it. The remote session then ends through its normal
// cleanup path. Delivery happens outside the lock.
func (r *Registry) Kick(ctx context.Context, username string) bool {
	r.mu.Lock()
	sink, ok := r.sessions[username]
	if ok {
		delete(r.sessions, username)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if err := sink.Deliver(ctx, domain.KickSentinel); err != nil {
		r.log.Debug("Kick sentinel not delivered", "username", username, "error", err)
	}
	if err := sink.Close(); err != nil {
		r.log.Debug("Kicked sink did not close cleanly", "username", username, "error", err)
	}
	r.log.Info("Participant kicked", "username", username)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
