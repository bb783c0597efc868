// Package ledger is the durable store of per-user reading counts.
//
// The whole user map lives in memory and is mirrored to a single JSON
// file. Every mutation rewrites the file through an atomic replace
// (temp file + rename), so the canonical file is always either the old
// or the new snapshot, never a torn write. Reads are served from a
// copy-on-write snapshot pointer and never block on writer I/O.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// ErrCorrupt is returned by Open when the canonical file exists but
// cannot be read or parsed. User data is never silently discarded.
var ErrCorrupt = errors.New("ledger: canonical file is corrupt")

type snapshot map[int64]Record

// Ledger is a concurrency-safe usage counter store backed by one file.
type Ledger struct {
	path      string
	limit     int
	unlimited map[int64]struct{}

	mu   sync.Mutex // serializes mutation + persistence
	snap atomic.Pointer[snapshot]
}

// Open loads the ledger at path. A missing file yields an empty
// ledger; a present but unreadable or unparseable file is fatal and
// reported via ErrCorrupt. limit is the free-reading quota; users in
// unlimited are permanently exempt from it.
func Open(path string, limit int, unlimited []int64) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}

	snap := snapshot{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run: start empty.
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	default:
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	exempt := make(map[int64]struct{}, len(unlimited))
	for _, id := range unlimited {
		exempt[id] = struct{}{}
	}

	l := &Ledger{
		path:      path,
		limit:     limit,
		unlimited: exempt,
	}
	l.snap.Store(&snap)
	return l, nil
}

// MayConsume reports whether the user may perform a free basic reading:
// true for allow-listed users, otherwise true while the stored count is
// below the configured limit.
func (l *Ledger) MayConsume(userID int64) bool {
	if _, ok := l.unlimited[userID]; ok {
		return true
	}
	rec, _ := l.Get(userID)
	return rec.BasicCount < l.limit
}

// Get returns the record for userID from the in-memory snapshot. The
// second return value reports whether the user has been seen. Get
// never mutates or persists anything.
func (l *Ledger) Get(userID int64) (Record, bool) {
	snap := *l.snap.Load()
	rec, ok := snap[userID]
	if !ok {
		rec = Record{UserID: userID}
	}
	_, rec.Unlimited = l.unlimited[userID]
	return rec, ok
}

// RecordBasic atomically increments the basic-reading count for userID
// (creating a zero record first if absent), persists the snapshot and
// returns the post-increment record. A persistence failure leaves both
// the file and the visible in-memory snapshot unchanged.
func (l *Ledger) RecordBasic(userID int64) (Record, error) {
	return l.mutate(userID, func(rec *Record, now string) {
		rec.BasicCount++
		rec.LastBasicAt = now
	})
}

// RecordPremium atomically increments the premium-reading count for
// userID. Premium access is gated by payment, not by the quota; the
// counter is bookkeeping only.
func (l *Ledger) RecordPremium(userID int64) (Record, error) {
	return l.mutate(userID, func(rec *Record, now string) {
		rec.PremiumCount++
		rec.LastPremiumAt = now
	})
}

func (l *Ledger) mutate(userID int64, apply func(rec *Record, now string)) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := *l.snap.Load()
	next := make(snapshot, len(old)+1)
	for id, rec := range old {
		next[id] = rec
	}

	rec, ok := next[userID]
	if !ok {
		rec = Record{UserID: userID}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	apply(&rec, now)
	rec.UpdatedAt = now
	next[userID] = rec

	if err := l.persist(next); err != nil {
		return Record{}, err
	}

	// Only publish the new snapshot after the file write succeeded, so
	// readers always observe state that is also on disk.
	l.snap.Store(&next)

	_, rec.Unlimited = l.unlimited[userID]
	return rec, nil
}

// persist writes snap to a temp file in the ledger's directory and
// renames it over the canonical path.
func (l *Ledger) persist(snap snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode snapshot: %w", err)
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("ledger: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ledger: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ledger: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: replace canonical file: %w", err)
	}
	return nil
}

// Len returns the number of seen users.
func (l *Ledger) Len() int {
	return len(*l.snap.Load())
}
