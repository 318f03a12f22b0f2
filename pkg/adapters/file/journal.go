// Package file keeps the response journal of a station in a local JSON file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/promptplug/pkg/ports"
)

// DefaultCapacity bounds the number of records kept in the file.
const DefaultCapacity = 256

// Journal implements ports.Journal on a single JSON file, newest record first.
// Every Append rewrites the file atomically.
type Journal struct {
	Path     string
	capacity int

	mu sync.Mutex
}

// NewJournal creates a journal stored at path (DefaultCapacity if capacity <= 0).
func NewJournal(path string, capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{Path: path, capacity: capacity}
}

// Append records rec and drops the oldest records beyond capacity.
func (j *Journal) Append(ctx context.Context, rec ports.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.read()
	if err != nil {
		return err
	}
	records = append([]ports.Record{rec}, records...)
	if len(records) > j.capacity {
		records = records[:j.capacity]
	}
	return j.write(records)
}

// Last returns the newest record.
func (j *Journal) Last(ctx context.Context) (ports.Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.read()
	if err != nil {
		return ports.Record{}, err
	}
	if len(records) == 0 {
		return ports.Record{}, ports.ErrNoRecord
	}
	return records[0], nil
}

// List returns up to limit records, newest first (all when limit <= 0).
func (j *Journal) List(ctx context.Context, limit int) ([]ports.Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.read()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (j *Journal) read() ([]ports.Record, error) {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []ports.Record{}, nil
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	var records []ports.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal: %w", err)
	}
	return records, nil
}

// write replaces the journal through a synced temp file in the same directory,
// so a crash leaves either the old or the new content.
func (j *Journal) write(records []ports.Record) error {
	dir := filepath.Dir(j.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure journal directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-journal-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows os.Rename fails when the destination exists.
	if _, err := os.Stat(j.Path); err == nil {
		if err := os.Remove(j.Path); err != nil {
			return fmt.Errorf("failed to remove journal for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, j.Path); err != nil {
		return fmt.Errorf("failed to rename temp file to journal: %w", err)
	}
	return nil
}
