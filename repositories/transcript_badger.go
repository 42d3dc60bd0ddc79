package repositories

import (
	"bytes"
	"chat-rooms/contract"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ contract.TranscriptSink = (*BadgerTranscript)(nil)

const transcriptPrefix = "transcript:"

// BadgerTranscript stores every room history in one BadgerDB.
// Badger has no per-room handle to keep open, so Open and Close only
// track which rooms are active.
type BadgerTranscript struct {
	db     *badger.DB
	log    *slog.Logger
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	active map[string]struct{}
	now    func() time.Time
}

// TranscriptRecord is one stored line.
type TranscriptRecord struct {
	ID   uuid.UUID
	Room string
	Line string
	At   time.Time
}

func NewBadgerTranscript(db *badger.DB, log *slog.Logger) *BadgerTranscript {
	return &BadgerTranscript{
		db:     db,
		log:    log,
		locks:  make(map[string]*sync.Mutex),
		active: make(map[string]struct{}),
		now:    time.Now,
	}
}

func (b *BadgerTranscript) Open(room string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active[room] = struct{}{}
	return nil
}

func (b *BadgerTranscript) Close(room string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, room)
	return nil
}

func (b *BadgerTranscript) IsOpen(room string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.active[room]
	return ok
}

func (b *BadgerTranscript) roomLock(room string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[room]
	if !ok {
		l = &sync.Mutex{}
		b.locks[room] = l
	}
	return l
}

// Append persists line under "transcript:{hex room}:{timestamp_padded}:{uuid}".
// The hex room keeps prefixes unambiguous whatever the room name contains,
// the 19-digit timestamp keeps lexicographic order chronological and the
// uuid separates two lines written in the same nanosecond.
func (b *BadgerTranscript) Append(room, line string) error {
	l := b.roomLock(room)
	l.Lock()
	defer l.Unlock()

	key := fmt.Sprintf("%s%019d:%s", roomPrefix(room), b.now().UnixNano(), uuid.New())
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(line))
	})
}

// History returns room's lines oldest first. A nil limit returns everything,
// otherwise only the most recent limit lines.
func (b *BadgerTranscript) History(room string, limit *int) ([]TranscriptRecord, error) {
	var records []TranscriptRecord
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomPrefix(room))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key, then walk backwards.
		seekKey := append(bytes.Clone(prefix), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit != nil && len(records) == *limit {
				b.log.Debug(fmt.Sprintf("Maximum of %d lines reached", *limit))
				break
			}
			item := it.Item()
			record, err := parseKey(string(item.Key()))
			if err != nil {
				return err
			}
			err = item.Value(func(value []byte) error {
				record.Line = string(value)
				return nil
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Rooms lists every room with at least one stored line.
func (b *BadgerTranscript) Rooms() ([]string, error) {
	var rooms []string
	seen := make(map[string]struct{})
	err := b.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(transcriptPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			record, err := parseKey(string(it.Item().Key()))
			if err != nil {
				return err
			}
			if _, ok := seen[record.Room]; ok {
				continue
			}
			seen[record.Room] = struct{}{}
			rooms = append(rooms, record.Room)
		}
		return nil
	})
	return rooms, err
}

func roomPrefix(room string) string {
	return transcriptPrefix + hex.EncodeToString([]byte(room)) + ":"
}

// parseKey splits "transcript:{hex room}:{nanos}:{uuid}".
func parseKey(key string) (TranscriptRecord, error) {
	parts := strings.SplitN(strings.TrimPrefix(key, transcriptPrefix), ":", 3)
	if len(parts) != 3 {
		return TranscriptRecord{}, fmt.Errorf("malformed transcript key %q", key)
	}
	room, err := hex.DecodeString(parts[0])
	if err != nil {
		return TranscriptRecord{}, fmt.Errorf("malformed room in key %q: %w", key, err)
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return TranscriptRecord{}, fmt.Errorf("malformed timestamp in key %q: %w", key, err)
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return TranscriptRecord{}, fmt.Errorf("malformed id in key %q: %w", key, err)
	}
	return TranscriptRecord{ID: id, Room: string(room), At: time.Unix(0, nanos).UTC()}, nil
}
