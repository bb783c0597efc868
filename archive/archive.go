// Package archive persists generated readings keyed by UUID, using the
// same atomic-replace discipline as the ledger. The archive is append
// style bookkeeping: readings are stored once on success and looked up
// later (e.g. "show my last reading"), never mutated.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrCorrupt is returned by Open when the archive file exists but
// cannot be read or parsed.
var ErrCorrupt = errors.New("archive: canonical file is corrupt")

// ErrNotFound is returned by Get for an unknown reading id.
var ErrNotFound = errors.New("archive: reading not found")

// Entry is one archived reading. Reading holds the reading exactly as
// it was returned to the user, as raw JSON.
type Entry struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Kind      string          `json:"kind"`
	Reading   json.RawMessage `json:"reading"`
	CreatedAt string          `json:"created_at"`
}

type snapshot map[string]Entry

// Archive is a concurrency-safe reading store backed by one file.
type Archive struct {
	path string

	mu   sync.Mutex // serializes mutation + persistence
	snap atomic.Pointer[snapshot]
}

// Open loads the archive at path. A missing file yields an empty
// archive; a corrupt file is fatal, reported via ErrCorrupt.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("archive: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("archive: create directory: %w", err)
	}

	snap := snapshot{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	default:
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	a := &Archive{path: path}
	a.snap.Store(&snap)
	return a, nil
}

// Save stores a reading for userID and returns its assigned id. The
// reading is marshalled once and kept verbatim.
func (a *Archive) Save(userID int64, kind string, reading any) (string, error) {
	raw, err := json.Marshal(reading)
	if err != nil {
		return "", fmt.Errorf("archive: encode reading: %w", err)
	}

	entry := Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		Reading:   raw,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	old := *a.snap.Load()
	next := make(snapshot, len(old)+1)
	for id, e := range old {
		next[id] = e
	}
	next[entry.ID] = entry

	if err := a.persist(next); err != nil {
		return "", err
	}
	a.snap.Store(&next)
	return entry.ID, nil
}

// Get returns the entry with the given id.
func (a *Archive) Get(id string) (Entry, error) {
	snap := *a.snap.Load()
	entry, ok := snap[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// ByUser returns all entries for userID, unordered.
func (a *Archive) ByUser(userID int64) []Entry {
	snap := *a.snap.Load()
	var entries []Entry
	for _, e := range snap {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	return entries
}

// Len returns the number of archived readings.
func (a *Archive) Len() int {
	return len(*a.snap.Load())
}

func (a *Archive) persist(snap snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode snapshot: %w", err)
	}

	dir := filepath.Dir(a.path)
	tmp, err := os.CreateTemp(dir, ".archive-*.json")
	if err != nil {
		return fmt.Errorf("archive: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("archive: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("archive: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("archive: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, a.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("archive: replace canonical file: %w", err)
	}
	return nil
}
