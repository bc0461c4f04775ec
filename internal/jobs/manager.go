package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/videochop/videochop/pkg/log"
)

// ErrNotFound is returned for job identifiers that were never issued. An
// expired job is not "not found": its record stays readable with status
// expired.
var ErrNotFound = errors.New("job not found")

const expiredMessage = "Video deleted after 24 hours"

// Manager owns the authoritative in-memory job map. Every mutation happens
// under one mutex and is written through to the Store, so concurrent task
// completions can never overwrite each other's updates.
type Manager struct {
	store     Store
	videoDir  string
	retention time.Duration

	mu      sync.RWMutex
	records map[string]*Record
}

// NewManager hydrates the job map from the store once at construction.
// A nil store keeps the manager purely in-memory.
func NewManager(store Store, videoDir string, retention time.Duration) *Manager {
	m := &Manager{
		store:     store,
		videoDir:  videoDir,
		retention: retention,
		records:   make(map[string]*Record),
	}
	if store != nil {
		loaded, err := store.Load(context.Background())
		if err != nil {
			log.Error("Failed to load job snapshot: %v", err)
		} else {
			for id, rec := range loaded {
				if rec == nil || id == "" {
					continue
				}
				m.records[id] = cloneRecord(rec)
			}
		}
	}
	return m
}

// Create registers a new queued job and persists it before returning, so a
// status lookup immediately after creation always finds the record.
func (m *Manager) Create(kind Kind, req Request) *Record {
	now := time.Now()
	rec := &Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusQueued,
		Message:   "Job queued for processing",
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.records[rec.ID] = rec
	snapshot := cloneRecord(rec)
	err := m.persistLocked()
	m.mu.Unlock()

	if err != nil {
		log.Error("Failed to persist job %s after create: %v", rec.ID, err)
	}
	return snapshot
}

// UpdateOption mutates a record during Update.
type UpdateOption func(*Record)

func WithMessage(message string) UpdateOption {
	return func(r *Record) { r.Message = message }
}

func WithError(errMsg string) UpdateOption {
	return func(r *Record) { r.Error = errMsg }
}

func WithDownloadURL(url string) UpdateOption {
	return func(r *Record) { r.DownloadURL = url }
}

func WithOutputFile(name string) UpdateOption {
	return func(r *Record) { r.OutputFile = name }
}

// Update merges the given fields into the record, creating it if absent, and
// persists the full snapshot. A persistence failure is reported to the caller
// but the in-memory state stays authoritative.
func (m *Manager) Update(id string, status Status, opts ...UpdateOption) error {
	now := time.Now()

	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok {
		rec = &Record{
			ID:        id,
			Status:    status,
			CreatedAt: now,
		}
		m.records[id] = rec
	}
	rec.Status = status
	rec.UpdatedAt = now
	for _, opt := range opts {
		opt(rec)
	}
	err := m.persistLocked()
	m.mu.Unlock()

	if err != nil {
		log.Error("Failed to persist job %s: %v", id, err)
	}
	return err
}

// Get sweeps expired jobs first and then returns a copy of the record.
func (m *Manager) Get(id string) (*Record, error) {
	m.Sweep(time.Now())

	m.mu.RLock()
	rec, ok := m.records[id]
	var snapshot *Record
	if ok {
		snapshot = cloneRecord(rec)
	}
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot, nil
}

// ArtifactPath resolves the on-disk artifact for a completed job. Expired and
// unfinished jobs have no artifact.
func (m *Manager) ArtifactPath(id string) (string, error) {
	m.Sweep(time.Now())

	m.mu.RLock()
	var status Status
	var outputFile string
	rec, ok := m.records[id]
	if ok {
		status = rec.Status
		outputFile = rec.OutputFile
	}
	m.mu.RUnlock()
	if !ok || status != StatusCompleted || outputFile == "" {
		return "", ErrNotFound
	}
	return filepath.Join(m.videoDir, outputFile), nil
}

// List returns snapshot copies of all records.
func (m *Manager) List() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ret := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		ret = append(ret, cloneRecord(rec))
	}
	return ret
}

// Sweep deletes artifacts of jobs older than the retention window and marks
// those jobs expired. It is idempotent and never propagates an error: a
// failed invocation is retried wholesale on the next trigger.
func (m *Manager) Sweep(now time.Time) {
	cutoff := now.Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, rec := range m.records {
		if rec.CreatedAt.After(cutoff) {
			continue
		}
		if rec.OutputFile != "" {
			path := filepath.Join(m.videoDir, rec.OutputFile)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Error("Failed to delete expired artifact %s: %v", path, err)
				continue
			}
		}
		if rec.Status == StatusExpired {
			continue
		}
		rec.Status = StatusExpired
		rec.Message = expiredMessage
		rec.UpdatedAt = now
		changed = true
	}

	if changed {
		if err := m.persistLocked(); err != nil {
			log.Error("Failed to persist snapshot after sweep: %v", err)
		}
	}
}

// ResetInterrupted re-marks jobs that were queued or processing when the
// process stopped, and returns them so the caller can resubmit their tasks.
func (m *Manager) ResetInterrupted() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make([]*Record, 0)
	for _, rec := range m.records {
		if rec.Status != StatusQueued && rec.Status != StatusProcessing {
			continue
		}
		rec.Status = StatusQueued
		rec.Message = "Job requeued after restart"
		rec.UpdatedAt = time.Now()
		ret = append(ret, cloneRecord(rec))
	}

	if len(ret) > 0 {
		if err := m.persistLocked(); err != nil {
			log.Error("Failed to persist snapshot after requeue: %v", err)
		}
	}
	return ret
}

func (m *Manager) persistLocked() error {
	if m.store == nil {
		return nil
	}
	snapshot := make(map[string]*Record, len(m.records))
	for id, rec := range m.records {
		snapshot[id] = cloneRecord(rec)
	}
	return m.store.Save(context.Background(), snapshot)
}

func cloneRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	tmp := *rec
	return &tmp
}
