package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// fileStore is a memoryStore mirrored to a JSON snapshot on disk.
//
// Every mutation takes an advisory lock on path+".lock", reloads the snapshot,
// applies the change and writes the result to a temp file renamed into place,
// so writers in different processes never drop each other's records. Reads
// reload the snapshot when another process has replaced it.
type fileStore struct {
	*memoryStore
	path string
	lock *flock.Flock
	seen os.FileInfo
}

func newFileStore(cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("filesystem: config is required")
	}
	storePath := filepath.Clean(cfg.Path)
	dir := filepath.Dir(storePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("filesystem: ensure directory %q: %w", dir, err)
	}
	mem := newMemoryStore(cfg)
	mem.provider = ProviderFilesystem
	fs := &fileStore{memoryStore: mem, path: storePath, lock: flock.New(storePath + ".lock")}
	if err := fs.reloadLocked(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *fileStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return s.mutate(ctx, func() (bool, error) {
		if err := s.upsertLocked(records); err != nil {
			recordVectorError(ctx, "upsert", "invalid_record")
			return false, err
		}
		return true, nil
	})
}

func (s *fileStore) Delete(ctx context.Context, filter Filter) error {
	return s.mutate(ctx, func() (bool, error) {
		return s.deleteLocked(filter), nil
	})
}

func (s *fileStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s.memoryStore.Search(ctx, query, opts)
}

func (s *fileStore) Count(ctx context.Context) (int, error) {
	if err := s.refresh(ctx); err != nil {
		return 0, err
	}
	return s.memoryStore.Count(ctx)
}

// mutate runs apply against the latest snapshot while holding the file lock
// and persists the result when apply reports a change.
func (s *fileStore) mutate(ctx context.Context, apply func() (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err == nil && !locked {
		err = errors.New("lock not acquired")
	}
	if err != nil {
		recordVectorError(ctx, "persist", "lock")
		return fmt.Errorf("filesystem: lock %q: %w", s.path, err)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()
	if err := s.reloadLocked(); err != nil {
		recordVectorError(ctx, "persist", "reload")
		return err
	}
	changed, err := apply()
	if err != nil || !changed {
		return err
	}
	return s.persistLocked(ctx)
}

// refresh reloads the snapshot when the file on disk is not the one last seen.
func (s *fileStore) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.changedOnDisk() {
		return nil
	}
	if err := s.reloadLocked(); err != nil {
		recordVectorError(ctx, "search", "reload")
		return err
	}
	return nil
}

func (s *fileStore) changedOnDisk() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return s.seen != nil
	}
	if s.seen == nil {
		return true
	}
	return !os.SameFile(info, s.seen) || !info.ModTime().Equal(s.seen.ModTime()) || info.Size() != s.seen.Size()
}

// reloadLocked replaces the in-memory records with the snapshot on disk.
// A missing or empty file is an empty store.
func (s *fileStore) reloadLocked() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.records = make(map[string]Record)
		s.seen = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("filesystem: stat %q: %w", s.path, err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("filesystem: read %q: %w", s.path, err)
	}
	records := make(map[string]Record)
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := s.decode(data, records); err != nil {
			return err
		}
	}
	s.records = records
	s.seen = info
	return nil
}

func (s *fileStore) decode(data []byte, into map[string]Record) error {
	var payload fileStorePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("filesystem: decode %q: %w", s.path, err)
	}
	if payload.Dimension > 0 && s.dimension != payload.Dimension {
		return fmt.Errorf(
			"filesystem: stored dimension %d does not match config %d for %q: %w",
			payload.Dimension,
			s.dimension,
			s.path,
			ErrDimensionMismatch,
		)
	}
	for i := range payload.Records {
		rec := payload.Records[i]
		if len(rec.Embedding) != s.dimension {
			return fmt.Errorf("filesystem: record %q in %q: %w", rec.ID, s.path, ErrDimensionMismatch)
		}
		into[rec.ID] = Record{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: toFloat32(rec.Embedding),
			Metadata:  rec.Metadata,
		}
	}
	return nil
}

// persistLocked writes the snapshot; the caller holds the file lock.
func (s *fileStore) persistLocked(ctx context.Context) error {
	payload := fileStorePayload{
		Dimension: s.dimension,
		Records:   make([]fileStoreRecord, 0, len(s.records)),
	}
	for _, rec := range s.records {
		payload.Records = append(payload.Records, fileStoreRecord{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: toFloat64(rec.Embedding),
			Metadata:  rec.Metadata,
		})
	}
	slices.SortFunc(payload.Records, func(a, b fileStoreRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("filesystem: encode snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		recordVectorError(ctx, "persist", "write")
		return fmt.Errorf("filesystem: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		recordVectorError(ctx, "persist", "rename")
		return fmt.Errorf("filesystem: commit snapshot: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.seen = info
	}
	return nil
}

type fileStorePayload struct {
	Dimension int               `json:"dimension"`
	Records   []fileStoreRecord `json:"records"`
}

type fileStoreRecord struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float64      `json:"embedding"`
	Metadata  map[string]any `json:"metadata"`
}

func toFloat64(values []float32) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	for i := range values {
		out[i] = float64(values[i])
	}
	return out
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i := range values {
		out[i] = float32(values[i])
	}
	return out
}
