package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract runs a suite of tests to verify that a Journal implementation
// adheres to the defined interface contract. The journal must start empty.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Last Empty", func(t *testing.T) {
		_, err := journal.Last(ctx)
		assert.ErrorIs(t, err, ErrNoRecord)

		recs, err := journal.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("Append and Last", func(t *testing.T) {
		rec := Record{PromptID: "p1", Raw: `{"":"UNIT-42"}`, ReceivedAt: base}
		require.NoError(t, journal.Append(ctx, rec), "Append should not return error")

		last, err := journal.Last(ctx)
		require.NoError(t, err)
		assert.Equal(t, "p1", last.PromptID)
		assert.Equal(t, rec.Raw, last.Raw)
		assert.True(t, rec.ReceivedAt.Equal(last.ReceivedAt))
	})

	t.Run("List Newest First", func(t *testing.T) {
		require.NoError(t, journal.Append(ctx, Record{PromptID: "p2", Raw: `{}`, ReceivedAt: base.Add(time.Second)}))
		require.NoError(t, journal.Append(ctx, Record{PromptID: "p3", Raw: `{}`, ReceivedAt: base.Add(2 * time.Second)}))

		recs, err := journal.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "p3", recs[0].PromptID)
		assert.Equal(t, "p2", recs[1].PromptID)

		all, err := journal.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
