package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/promptplug/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "promptplug:"

// Journal implements ports.Journal using a capped Redis list (newest first).
type Journal struct {
	client   *backend.Client
	prefix   string
	capacity int64
	ttl      time.Duration
}

type Option func(*Journal)

// WithPrefix sets the key prefix, e.g. "promptplug:bench-1:".
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithCapacity caps how many records are kept.
func WithCapacity(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.capacity = int64(n)
		}
	}
}

// WithTTL expires the whole journal after ttl without writes.
func WithTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		j.ttl = ttl
	}
}

// NewFromClient creates a Redis journal from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Journal {
	j := &Journal{
		client:   client,
		prefix:   DefaultPrefix,
		capacity: 256,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) key() string {
	return j.prefix + "responses"
}

// Append pushes rec and trims the list to capacity.
func (j *Journal) Append(ctx context.Context, rec ports.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := j.client.TxPipeline()
	pipe.LPush(ctx, j.key(), data)
	pipe.LTrim(ctx, j.key(), 0, j.capacity-1)
	if j.ttl > 0 {
		pipe.Expire(ctx, j.key(), j.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Last returns the newest record.
func (j *Journal) Last(ctx context.Context) (ports.Record, error) {
	val, err := j.client.LIndex(ctx, j.key(), 0).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return ports.Record{}, ports.ErrNoRecord
		}
		return ports.Record{}, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decodeRecord(val)
}

// List returns up to limit records, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]ports.Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	vals, err := j.client.LRange(ctx, j.key(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	out := make([]ports.Record, 0, len(vals))
	for _, v := range vals {
		rec, err := decodeRecord(v)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeRecord(val string) (ports.Record, error) {
	var rec ports.Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return ports.Record{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}
