package runtime

import (
	"chat-rooms/errors"
	"context"
	"log/slog"
	"sync"
)

// recordingSink keeps every delivered line in memory.
type recordingSink struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

func (s *recordingSink) Deliver(_ context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSinkClosed
	}
	s.lines = append(s.lines, line)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *recordingSink) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// memoryTranscript records appended lines per room and tracks open handles.
type memoryTranscript struct {
	mu     sync.Mutex
	lines  map[string][]string
	open   map[string]bool
	opens  map[string]int
	closes map[string]int
	failOn string
}

func newMemoryTranscript() *memoryTranscript {
	return &memoryTranscript{
		lines:  make(map[string][]string),
		open:   make(map[string]bool),
		opens:  make(map[string]int),
		closes: make(map[string]int),
	}
}

func (m *memoryTranscript) Open(room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open[room] = true
	m.opens[room]++
	return nil
}

func (m *memoryTranscript) Append(room, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room == m.failOn {
		return errors.ErrPersistenceFailure
	}
	m.open[room] = true
	m.lines[room] = append(m.lines[room], line)
	return nil
}

func (m *memoryTranscript) Close(room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open[room] = false
	m.closes[room]++
	return nil
}

func (m *memoryTranscript) Lines(room string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines[room]...)
}

func (m *memoryTranscript) IsOpen(room string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open[room]
}

func (m *memoryTranscript) Closes(room string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes[room]
}

// keyCountHandler counts, per log record, how many attributes carry each key,
// attributes added through With included.
type keyCountHandler struct {
	mu      *sync.Mutex
	attrs   []slog.Attr
	records *[]map[string]int
}

func newKeyCountHandler() *keyCountHandler {
	return &keyCountHandler{mu: &sync.Mutex{}, records: &[]map[string]int{}}
}

func (h *keyCountHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *keyCountHandler) Handle(_ context.Context, r slog.Record) error {
	counts := make(map[string]int)
	for _, a := range h.attrs {
		counts[a.Key]++
	}
	r.Attrs(func(a slog.Attr) bool {
		counts[a.Key]++
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, counts)
	return nil
}

func (h *keyCountHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &keyCountHandler{mu: h.mu, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...), records: h.records}
}

func (h *keyCountHandler) WithGroup(string) slog.Handler { return h }

// MaxCount is the highest number of times key appeared in a single record.
func (h *keyCountHandler) MaxCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	highest := 0
	for _, counts := range *h.records {
		highest = max(highest, counts[key])
	}
	return highest
}
