package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofrs/flock"

	"github.com/videochop/videochop/internal/jobs"
	"github.com/videochop/videochop/pkg/log"
)

// FileStore persists the job snapshot as a single JSON file. Writes go to a
// temp file under an exclusive advisory lock and land via atomic rename, so
// a concurrent reader never observes a torn snapshot. The snapshot is kept
// world-writable: any process on the host may update records.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot, creating an empty one if it does not exist yet.
// An unreadable or corrupt snapshot is moved aside and replaced by an empty
// mapping rather than failing startup; the damaged file survives as
// <path>.corrupt for inspection.
func (s *FileStore) Load(ctx context.Context) (map[string]*jobs.Record, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		empty := make(map[string]*jobs.Record)
		if err := s.Save(ctx, empty); err != nil {
			log.Error("Failed to write initial snapshot %s: %v", s.path, err)
		}
		return empty, nil
	}

	lock := flock.New(s.path)
	if err := lock.RLock(); err != nil {
		log.Error("Failed to lock snapshot %s for reading: %v", s.path, err)
		return make(map[string]*jobs.Record), nil
	}
	data, readErr := os.ReadFile(s.path)
	_ = lock.Unlock()

	if readErr != nil {
		log.Error("Failed to read snapshot %s: %v", s.path, readErr)
		return make(map[string]*jobs.Record), nil
	}

	records := make(map[string]*jobs.Record)
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		log.Error("Snapshot %s is corrupt, starting empty: %v", s.path, err)
		if renameErr := os.Rename(s.path, s.path+".corrupt"); renameErr != nil {
			log.Error("Failed to preserve corrupt snapshot: %v", renameErr)
		}
		return make(map[string]*jobs.Record), nil
	}
	return records, nil
}

// Save serializes the full snapshot to a temp file, flushes it to disk while
// holding an exclusive lock, then renames it over the live snapshot.
func (s *FileStore) Save(_ context.Context, records map[string]*jobs.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return fmt.Errorf("create temp snapshot %s: %w", tmpPath, err)
	}

	lock := flock.New(tmpPath)
	if err := lock.Lock(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("lock temp snapshot %s: %w", tmpPath, err)
	}

	_, writeErr := f.Write(data)
	if writeErr == nil {
		writeErr = f.Sync()
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	_ = lock.Unlock()

	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp snapshot %s: %w", tmpPath, writeErr)
	}

	if err := os.Chmod(tmpPath, 0666); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp snapshot %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0666); err != nil {
		return fmt.Errorf("chmod snapshot %s: %w", s.path, err)
	}
	return nil
}
