package memory

import (
	"context"
	"sync"

	"github.com/aretw0/promptplug/pkg/ports"
)

// DefaultCapacity is how many records a Journal keeps unless configured otherwise.
const DefaultCapacity = 256

// Journal implements ports.Journal in memory.
// Safe for concurrent use.
type Journal struct {
	mu       sync.RWMutex
	records  []ports.Record // oldest first
	capacity int
}

// NewJournal creates a journal keeping at most capacity records (DefaultCapacity if <= 0).
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{capacity: capacity}
}

// Append records a response, dropping the oldest once full.
func (j *Journal) Append(ctx context.Context, rec ports.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = append(j.records, rec)
	if over := len(j.records) - j.capacity; over > 0 {
		j.records = append([]ports.Record(nil), j.records[over:]...)
	}
	return nil
}

// Last returns the newest record.
func (j *Journal) Last(ctx context.Context) (ports.Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.records) == 0 {
		return ports.Record{}, ports.ErrNoRecord
	}
	return j.records[len(j.records)-1], nil
}

// List returns up to limit records, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]ports.Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := len(j.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ports.Record, 0, n)
	for i := len(j.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, j.records[i])
	}
	return out, nil
}
