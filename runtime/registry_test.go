package runtime

import (
	"chat-rooms/domain"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
	sink := &recordingSink{}

	// Given nobody is connected
	req.Zero(registry.Len())
	_, ok := registry.Lookup("alice")
	req.False(ok)

	// When alice registers
	previous, replaced := registry.Register("alice", sink)

	// Then she can be found
	req.False(replaced)
	req.Nil(previous)
	found, ok := registry.Lookup("alice")
	req.True(ok)
	req.Same(sink, found)
	req.Equal(1, registry.Len())
}

func TestRegistry_Register_Overwrites_Previous_Entry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
	first, second := &recordingSink{}, &recordingSink{}

	// Given alice is registered
	registry.Register("alice", first)

	// When a second connection registers the same name
	previous, replaced := registry.Register("alice", second)

	// Then the newest connection wins and the first one is returned
	req.True(replaced)
	req.Same(first, previous)
	found, _ := registry.Lookup("alice")
	req.Same(second, found)
	req.Equal(1, registry.Len())
	req.False(first.IsClosed())
}

func TestRegistry_Unregister_Only_Removes_Owned_Entry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
	first, second := &recordingSink{}, &recordingSink{}
	registry.Register("alice", first)
	registry.Register("alice", second)

	// When the stale connection unregisters
	removed, ownedByOther := registry.Unregister("alice", first)
	req.False(removed)
	req.True(ownedByOther)

	// Then the newest entry is untouched
	found, ok := registry.Lookup("alice")
	req.True(ok)
	req.Same(second, found)

	// When the owner unregisters
	removed, ownedByOther = registry.Unregister("alice", second)
	req.True(removed)
	req.False(ownedByOther)
	_, ok = registry.Lookup("alice")
	req.False(ok)

	// Then unregistering an absent name is a no-op, owned by nobody
	removed, ownedByOther = registry.Unregister("alice", second)
	req.False(removed)
	req.False(ownedByOther)
}

func TestRegistry_Kick(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
	sink := &recordingSink{}
	registry.Register("alice", sink)

	// When alice is kicked
	req.True(registry.Kick(context.Background(), "alice"))

	// Then she got the sentinel, her sink is closed and her entry is gone
	req.Equal([]string{domain.KickSentinel}, sink.Lines())
	req.True(sink.IsClosed())
	_, ok := registry.Lookup("alice")
	req.False(ok)

	// And kicking an unknown user reports false
	req.False(registry.Kick(context.Background(), "bob"))
}

func TestRegistry_Concurrent_Access(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelError))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			username := fmt.Sprintf("user-%d", i)
			sink := &recordingSink{}
			registry.Register(username, sink)
			_, _ = registry.Lookup(username)
			if i%2 == 0 {
				registry.Unregister(username, sink)
			}
		}(i)
	}
	wg.Wait()

	req.Equal(25, registry.Len())
}
