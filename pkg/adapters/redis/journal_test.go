package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/promptplug/pkg/adapters/redis"
	"github.com/aretw0/promptplug/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisJournal_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunJournalContract(t, redis.NewFromClient(client))
}

func TestRedisJournal_Capacity(t *testing.T) {
	_, client := newClient(t)
	j := redis.NewFromClient(client, redis.WithCapacity(2), redis.WithPrefix("test:"))
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, j.Append(ctx, ports.Record{PromptID: id, Raw: `{}`}))
	}

	recs, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "p3", recs[0].PromptID)
	assert.Equal(t, "p2", recs[1].PromptID)

	n, err := client.LLen(ctx, "test:responses").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRedisJournal_TTL(t *testing.T) {
	mr, client := newClient(t)
	j := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, ports.Record{PromptID: "p1"}))
	mr.FastForward(2 * time.Second)

	_, err := j.Last(ctx)
	assert.ErrorIs(t, err, ports.ErrNoRecord)
}
