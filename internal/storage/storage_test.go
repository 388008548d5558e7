package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(key string) models.EnrichmentResult {
	return models.EnrichmentResult{
		RecordID: "id-" + key,
		BookKey:  key,
		Status:   models.StatusMissing,
		Title:    key,
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "enriched.json"), 10)

	results, seen, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, seen)
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated", content: `[{"record_id":"a","book_key":"k","status":"FOUND"`},
		{name: "empty file", content: ``},
		{name: "not an array", content: `{"record_id":"a"}`},
		{name: "missing book_key", content: `[{"record_id":"a","status":"FOUND"}]`},
		{name: "unknown status", content: `[{"record_id":"a","book_key":"k","status":"MAYBE"}]`},
		{name: "duplicate book_key", content: `[
			{"record_id":"a","book_key":"k","status":"FOUND"},
			{"record_id":"b","book_key":"k","status":"MISSING"}
		]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "enriched.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, _, err := NewCheckpointStore(path, 10).Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptCheckpoint)
		})
	}
}

func TestAppendFlushesEveryInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.json")
	store := NewCheckpointStore(path, 3)
	_, _, err := store.Load()
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		appended, flushed, err := store.Append(result(fmt.Sprintf("k%d", i)))
		require.NoError(t, err)
		assert.True(t, appended)
		assert.False(t, flushed)
	}
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no flush before the interval")

	_, flushed, err := store.Append(result("k2"))
	require.NoError(t, err)
	assert.True(t, flushed)

	onDisk, err := ReadResults(path)
	require.NoError(t, err)
	assert.Len(t, onDisk, 3)
}

func TestAppendIgnoresDuplicateKeys(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "enriched.json"), 100)

	appended, _, err := store.Append(result("k"))
	require.NoError(t, err)
	assert.True(t, appended)

	appended, flushed, err := store.Append(result("k"))
	require.NoError(t, err)
	assert.False(t, appended)
	assert.False(t, flushed)
	assert.Equal(t, 1, store.Len())
}

func TestConcurrentAppendKeepsInvariant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.json")
	store := NewCheckpointStore(path, 7)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				// Every worker races on the same 50 keys.
				_, _, err := store.Append(result(fmt.Sprintf("k%d", i)))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, store.Flush())

	results := store.Results()
	seen := store.SeenKeys()
	assert.Len(t, results, 50)
	assert.Len(t, seen, 50)
	for _, r := range results {
		_, ok := seen[r.BookKey]
		assert.True(t, ok)
	}

	reloaded, reseen, err := NewCheckpointStore(path, 7).Load()
	require.NoError(t, err)
	assert.Len(t, reloaded, 50)
	assert.Equal(t, seen, reseen)
}

func TestFlushRoundTripPreservesNulls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "enriched.json")
	store := NewCheckpointStore(path, 100)

	summary := "A classic."
	year := 1988
	method := "strict"
	found := models.EnrichmentResult{
		RecordID:    "r1",
		BookKey:     "9780131103627|the c programming language",
		Status:      models.StatusFound,
		MatchMethod: &method,
		Title:       "The C Programming Language",
		Authors:     []string{"Brian W. Kernighan"},
		Summary:     &summary,
		Year:        &year,
	}
	missing := result("NOISBN|unknown")

	_, _, err := store.Append(found)
	require.NoError(t, err)
	_, _, err = store.Append(missing)
	require.NoError(t, err)
	require.NoError(t, store.Flush())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"summary": null`)
	assert.Contains(t, string(raw), `"authors": null`)

	loaded, err := ReadResults(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, found, loaded[0])
	assert.Equal(t, missing, loaded[1])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp files must not be left behind")
	}
}

func TestFlushReplacesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.json")
	store := NewCheckpointStore(path, 100)

	_, _, err := store.Append(result("a"))
	require.NoError(t, err)
	require.NoError(t, store.Flush())

	_, _, err = store.Append(result("b"))
	require.NoError(t, err)
	require.NoError(t, store.Flush())

	loaded, err := ReadResults(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
