package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLedger(t *testing.T, limit int, unlimited []int64) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	l, err := Open(path, limit, unlimited)
	require.NoError(t, err)
	return l, path
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	l, _ := tempLedger(t, 3, nil)
	assert.Equal(t, 0, l.Len())

	rec, seen := l.Get(1)
	assert.False(t, seen)
	assert.Equal(t, int64(1), rec.UserID)
	assert.Equal(t, 0, rec.BasicCount)
}

func TestOpen_CorruptFileIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": {truncated`), 0o644))

	_, err := Open(path, 3, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRecordBasic_IncrementsAndPersists(t *testing.T) {
	l, path := tempLedger(t, 3, nil)

	rec, err := l.RecordBasic(7)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.BasicCount)
	assert.NotEmpty(t, rec.LastBasicAt)
	assert.NotEmpty(t, rec.UpdatedAt)

	rec, err = l.RecordBasic(7)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.BasicCount)

	// Reopen from disk: identical state.
	reopened, err := Open(path, 3, nil)
	require.NoError(t, err)
	got, seen := reopened.Get(7)
	assert.True(t, seen)
	assert.Equal(t, 2, got.BasicCount)
	assert.Equal(t, rec.LastBasicAt, got.LastBasicAt)
}

func TestMayConsume_LimitScenario(t *testing.T) {
	l, _ := tempLedger(t, 1, nil)

	assert.True(t, l.MayConsume(1))

	rec, err := l.RecordBasic(1)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.BasicCount)

	assert.False(t, l.MayConsume(1))

	// Still false on repeat checks.
	assert.False(t, l.MayConsume(1))
}

func TestMayConsume_AllowListIsExempt(t *testing.T) {
	l, _ := tempLedger(t, 1, []int64{2})

	for i := 0; i < 5; i++ {
		_, err := l.RecordBasic(2)
		require.NoError(t, err)
	}

	assert.True(t, l.MayConsume(2))
	rec, seen := l.Get(2)
	assert.True(t, seen)
	assert.Equal(t, 5, rec.BasicCount)
	assert.True(t, rec.Unlimited)
}

func TestMayConsume_ZeroLimitBlocksEveryone(t *testing.T) {
	l, _ := tempLedger(t, 0, []int64{9})

	assert.False(t, l.MayConsume(1))
	assert.True(t, l.MayConsume(9))
}

func TestRecordPremium_DoesNotTouchQuota(t *testing.T) {
	l, _ := tempLedger(t, 1, nil)

	for i := 0; i < 3; i++ {
		_, err := l.RecordPremium(5)
		require.NoError(t, err)
	}

	assert.True(t, l.MayConsume(5))
	rec, _ := l.Get(5)
	assert.Equal(t, 3, rec.PremiumCount)
	assert.Equal(t, 0, rec.BasicCount)
}

func TestRecordBasic_ConcurrentNoLostUpdates(t *testing.T) {
	l, path := tempLedger(t, 1000, nil)

	const (
		goroutines = 10
		perG       = 10
	)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				if _, err := l.RecordBasic(42); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	rec, _ := l.Get(42)
	assert.Equal(t, goroutines*perG, rec.BasicCount)

	// Disk agrees with memory.
	reopened, err := Open(path, 1000, nil)
	require.NoError(t, err)
	got, _ := reopened.Get(42)
	assert.Equal(t, goroutines*perG, got.BasicCount)
}

func TestConcurrentReadersDoNotBlockOnWrites(t *testing.T) {
	l, _ := tempLedger(t, 1000, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := l.RecordBasic(1); err != nil {
				t.Error(err)
				return
			}
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				rec, _ := l.Get(1)
				// Counts only ever move forward.
				if rec.BasicCount < prev {
					t.Errorf("count went backwards: %d -> %d", prev, rec.BasicCount)
					return
				}
				prev = rec.BasicCount
			}
		}()
	}

	wg.Wait()
	rec, _ := l.Get(1)
	assert.Equal(t, 50, rec.BasicCount)
}

func TestSnapshotRoundTrip(t *testing.T) {
	l, path := tempLedger(t, 3, nil)

	for _, id := range []int64{1, 2, 3} {
		_, err := l.RecordBasic(id)
		require.NoError(t, err)
	}
	_, err := l.RecordPremium(2)
	require.NoError(t, err)

	reopened, err := Open(path, 3, nil)
	require.NoError(t, err)
	require.Equal(t, l.Len(), reopened.Len())

	for _, id := range []int64{1, 2, 3} {
		want, _ := l.Get(id)
		got, seen := reopened.Get(id)
		assert.True(t, seen)
		assert.Equal(t, want, got)
	}
}

func TestUnknownFieldsPreservedAcrossWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	seed := `{
		"7": {"user_id": 7, "basic_count": 1, "notes": "manually granted", "tier": 2}
	}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	l, err := Open(path, 3, nil)
	require.NoError(t, err)

	_, err = l.RecordBasic(7)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "7")
	assert.JSONEq(t, `"manually granted"`, string(raw["7"]["notes"]))
	assert.JSONEq(t, `2`, string(raw["7"]["tier"]))
	assert.JSONEq(t, `2`, string(raw["7"]["basic_count"]))
}

func TestAbortedWriteLeavesCanonicalFileIntact(t *testing.T) {
	l, path := tempLedger(t, 3, nil)
	_, err := l.RecordBasic(1)
	require.NoError(t, err)

	// Simulate a crash mid-write: a half-written temp file left behind
	// before the rename ever happened.
	stray := filepath.Join(filepath.Dir(path), ".ledger-12345.json")
	require.NoError(t, os.WriteFile(stray, []byte(`{"1": {"basic_c`), 0o644))

	reopened, err := Open(path, 3, nil)
	require.NoError(t, err)
	rec, seen := reopened.Get(1)
	assert.True(t, seen)
	assert.Equal(t, 1, rec.BasicCount)
}

func TestPersistFailureKeepsSnapshotVisible(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	l, err := Open(filepath.Join(dir, "users.json"), 3, nil)
	require.NoError(t, err)
	_, err = l.RecordBasic(1)
	require.NoError(t, err)

	// Remove the directory out from under the ledger so the next
	// temp-file create fails.
	require.NoError(t, os.RemoveAll(dir))

	_, err = l.RecordBasic(1)
	require.Error(t, err)

	// The failed write must not be visible.
	rec, _ := l.Get(1)
	assert.Equal(t, 1, rec.BasicCount)
}
