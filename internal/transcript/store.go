package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store accumulates transcripts for one room and persists them to
// `<dir>/<room>_transcripts.json`. Safe for concurrent use.
type Store struct {
	dir  string
	room string

	mu      sync.Mutex
	entries []TimedTranscript
}

// NewStore creates a store for a room. The directory is created on the
// first flush.
func NewStore(dir, room string) *Store {
	return &Store{dir: dir, room: room}
}

// Append records one transcript entry.
func (s *Store) Append(entry TimedTranscript) {
	if entry.Type == "" {
		entry.Type = TypeTranscript
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

// Entries returns a copy of the recorded transcripts.
func (s *Store) Entries() []TimedTranscript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TimedTranscript, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Path returns the file the store flushes to.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.room+"_transcripts.json")
}

// Flush writes all recorded transcripts to disk. The write is atomic: a
// temp file in the same directory is renamed over the target, so a
// crash mid-write never leaves a truncated file.
func (s *Store) Flush() error {
	entries := s.Entries()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("transcript: create dir: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("transcript: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, s.room+"_transcripts-*.tmp")
	if err != nil {
		return fmt.Errorf("transcript: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("transcript: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("transcript: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("transcript: rename: %w", err)
	}
	return nil
}
