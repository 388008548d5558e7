// Package storage persists enrichment progress as a JSON checkpoint that can
// be resumed after a crash or interrupt.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DhruvParmar051/book-recommendation-system/internal/metrics"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
)

// ErrCorruptCheckpoint is returned by Load when the checkpoint exists but
// cannot be trusted. There is no salvage path.
var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

// DefaultFlushInterval is the number of appends between automatic flushes.
const DefaultFlushInterval = 100

// CheckpointStore owns the ordered result list and the set of seen book keys.
// All methods are safe for concurrent use; Append is the single serialization
// point for the append and flush decision.
type CheckpointStore struct {
	path          string
	flushInterval int

	mu         sync.Mutex
	results    []models.EnrichmentResult
	seen       map[string]struct{}
	sinceFlush int
}

// NewCheckpointStore creates a store backed by path. A non-positive
// flushInterval selects DefaultFlushInterval.
func NewCheckpointStore(path string, flushInterval int) *CheckpointStore {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &CheckpointStore{
		path:          path,
		flushInterval: flushInterval,
		seen:          make(map[string]struct{}),
	}
}

// Path returns the checkpoint file location.
func (s *CheckpointStore) Path() string {
	return s.path
}

// Load reads the checkpoint into memory, replacing any in-memory state. A
// missing file is an empty checkpoint.
func (s *CheckpointStore) Load() ([]models.EnrichmentResult, map[string]struct{}, error) {
	results, err := readCheckpoint(s.path)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[r.BookKey] = struct{}{}
	}

	s.mu.Lock()
	s.results = results
	s.seen = seen
	s.sinceFlush = 0
	s.mu.Unlock()

	return s.Results(), s.SeenKeys(), nil
}

// Seen reports whether key already has a result.
func (s *CheckpointStore) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// Len returns the number of results held.
func (s *CheckpointStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Results returns a copy of the ordered results.
func (s *CheckpointStore) Results() []models.EnrichmentResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EnrichmentResult, len(s.results))
	copy(out, s.results)
	return out
}

// SeenKeys returns a copy of the seen set.
func (s *CheckpointStore) SeenKeys() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.seen))
	for k := range s.seen {
		out[k] = struct{}{}
	}
	return out
}

// Append adds r and marks its book key seen. A result for a key that is
// already present is dropped and reported as not appended. flushed is true
// when this append triggered a periodic flush.
func (s *CheckpointStore) Append(r models.EnrichmentResult) (appended, flushed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[r.BookKey]; ok {
		return false, false, nil
	}
	s.results = append(s.results, r)
	s.seen[r.BookKey] = struct{}{}
	s.sinceFlush++

	if s.sinceFlush < s.flushInterval {
		return true, false, nil
	}
	if err := s.flushLocked(); err != nil {
		return true, false, err
	}
	return true, true, nil
}

// Flush persists the full state atomically.
func (s *CheckpointStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *CheckpointStore) flushLocked() error {
	start := time.Now()
	err := writeAtomic(s.path, s.results)
	metrics.RecordFlush(time.Since(start), err)
	if err != nil {
		return err
	}
	s.sinceFlush = 0
	slog.Debug("Checkpoint flushed", "path", s.path, "records", len(s.results))
	return nil
}

// ReadResults loads a checkpoint file without keeping a store around.
func ReadResults(path string) ([]models.EnrichmentResult, error) {
	results, err := readCheckpoint(path)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func readCheckpoint(path string) ([]models.EnrichmentResult, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.EnrichmentResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCheckpoint, path, err)
	}

	var results []models.EnrichmentResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCheckpoint, path, err)
	}
	if results == nil {
		results = []models.EnrichmentResult{}
	}

	keys := make(map[string]struct{}, len(results))
	for i, r := range results {
		if _, dup := keys[r.BookKey]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate book_key %q at index %d", ErrCorruptCheckpoint, path, r.BookKey, i)
		}
		keys[r.BookKey] = struct{}{}
	}
	return results, nil
}

// writeAtomic serializes results to a temp file next to path, fsyncs it,
// renames it over path and fsyncs the directory. An advisory lock on
// <path>.lock keeps two writers from interleaving.
func writeAtomic(path string, results []models.EnrichmentResult) error {
	if results == nil {
		results = []models.EnrichmentResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock checkpoint: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Error("Unable to release checkpoint lock", "path", path, "err", err)
		}
	}()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	committed = true

	if d, err := os.Open(dir); err == nil {
		if err := d.Sync(); err != nil {
			slog.Warn("Unable to sync checkpoint directory", "dir", dir, "err", err)
		}
		d.Close()
	}
	return nil
}
