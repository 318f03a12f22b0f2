package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNoRecord is returned by Journal.Last when nothing has been recorded yet.
var ErrNoRecord = errors.New("no response recorded")

// Record is one accepted response, kept for diagnostics.
type Record struct {
	PromptID   string    `json:"prompt_id"`
	Raw        string    `json:"raw"`
	ReceivedAt time.Time `json:"received_at"`
}

// Journal defines the interface for persisting accepted responses.
type Journal interface {
	// Append records a response. Implementations may cap how many they keep.
	Append(ctx context.Context, rec Record) error

	// Last returns the most recent record or ErrNoRecord.
	Last(ctx context.Context) (Record, error)

	// List returns up to limit records, newest first. limit <= 0 means all kept records.
	List(ctx context.Context, limit int) ([]Record, error)
}
