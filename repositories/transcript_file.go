package repositories

import (
	"bufio"
	"chat-rooms/contract"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

var _ contract.TranscriptSink = (*FileTranscript)(nil)

// FileTranscript writes one append-only text file per room.
// Each room has its own lock: appends to one room are serialized,
// appends to different rooms never wait on each other.
type FileTranscript struct {
	mu   sync.Mutex // guards logs, not the files
	dir  string
	log  *slog.Logger
	logs map[string]*roomLog
}

type roomLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
}

func NewFileTranscript(dir string, log *slog.Logger) (*FileTranscript, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating transcript directory %s: %w", dir, err)
	}
	return &FileTranscript{dir: dir, log: log, logs: make(map[string]*roomLog)}, nil
}

// FileName maps a room name to its transcript file name.
// Escaping keeps every room inside the transcript directory.
func FileName(room string) string {
	return url.PathEscape(room) + ".txt"
}

// Path is where room's transcript lives.
func (f *FileTranscript) Path(room string) string {
	return filepath.Join(f.dir, FileName(room))
}

func (f *FileTranscript) roomLog(room string) *roomLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	rl, ok := f.logs[room]
	if !ok {
		rl = &roomLog{path: f.Path(room)}
		f.logs[room] = rl
	}
	return rl
}

// Open makes sure room's file is open in append mode.
func (f *FileTranscript) Open(room string) error {
	rl := f.roomLog(room)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.open()
}

// Append writes line and a newline, flushing before it returns.
// A closed handle is reopened, so history survives rooms emptying out.
func (f *FileTranscript) Append(room, line string) error {
	rl := f.roomLog(room)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if err := rl.open(); err != nil {
		return err
	}
	if _, err := rl.writer.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("writing transcript %s: %w", rl.path, err)
	}
	if err := rl.writer.Flush(); err != nil {
		return fmt.Errorf("flushing transcript %s: %w", rl.path, err)
	}
	return nil
}

// Close releases room's file handle. Closing a room that is not open is a no-op.
func (f *FileTranscript) Close(room string) error {
	f.mu.Lock()
	rl, ok := f.logs[room]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.close()
}

// CloseAll releases every open handle, used at shutdown.
func (f *FileTranscript) CloseAll() error {
	f.mu.Lock()
	logs := make([]*roomLog, 0, len(f.logs))
	for _, rl := range f.logs {
		logs = append(logs, rl)
	}
	f.mu.Unlock()

	var firstErr error
	for _, rl := range logs {
		rl.mu.Lock()
		if err := rl.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		rl.mu.Unlock()
	}
	return firstErr
}

// IsOpen reports whether room currently holds a file handle.
func (f *FileTranscript) IsOpen(room string) bool {
	f.mu.Lock()
	rl, ok := f.logs[room]
	f.mu.Unlock()
	if !ok {
		return false
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.file != nil
}

func (rl *roomLog) open() error {
	if rl.file != nil {
		return nil
	}
	file, err := os.OpenFile(rl.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening transcript %s: %w", rl.path, err)
	}
	rl.file = file
	rl.writer = bufio.NewWriter(file)
	return nil
}

func (rl *roomLog) close() error {
	if rl.file == nil {
		return nil
	}
	flushErr := rl.writer.Flush()
	closeErr := rl.file.Close()
	rl.file = nil
	rl.writer = nil
	if flushErr != nil {
		return fmt.Errorf("flushing transcript %s: %w", rl.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing transcript %s: %w", rl.path, closeErr)
	}
	return nil
}
