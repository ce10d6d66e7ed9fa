package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/fadem/internal/types"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testEntry(entityType, entityID, category, weight, polarity, summary string, daysAgo int) types.ActivityEntry {
	return types.ActivityEntry{
		EventID:           "test-" + summary,
		EventType:         "payment_received",
		OccurredAt:        testNow.AddDate(0, 0, -daysAgo),
		IndexedEntityType: entityType,
		IndexedEntityID:   entityID,
		EntityRole:        "subject",
		Summary:           summary,
		Category:          category,
		Weight:            weight,
		Polarity:          polarity,
	}
}

// storeContract runs the same behavioral checks against any Store.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("write and query", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.WriteEntries(ctx, []types.ActivityEntry{
			testEntry("tenant", "alice", "payment", "minor", "positive", "Payment on time", 10),
			testEntry("tenant", "alice", "alert", "major", "negative", "Rent overdue", 5),
			testEntry("tenant", "bob", "payment", "minor", "positive", "Payment on time", 10),
		}))

		results, _, total, err := store.QueryByEntity(ctx, "tenant", "alice", DefaultQueryOptions(testNow))
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, results, 2)
		assert.Equal(t, "Rent overdue", results[0].Summary, "newest first")
	})

	t.Run("category filter", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.WriteEntries(ctx, []types.ActivityEntry{
			testEntry("tenant", "alice", "payment", "minor", "positive", "Payment", 10),
			testEntry("tenant", "alice", "alert", "major", "negative", "Overdue", 5),
		}))

		opts := DefaultQueryOptions(testNow)
		opts.Categories = []string{"payment"}
		results, _, total, err := store.QueryByEntity(ctx, "tenant", "alice", opts)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, "payment", results[0].Category)
	})

	t.Run("time window", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.WriteEntries(ctx, []types.ActivityEntry{
			testEntry("tenant", "alice", "payment", "info", "positive", "Recent", 5),
			testEntry("tenant", "alice", "payment", "info", "positive", "Old", 200),
		}))

		since := testNow.AddDate(0, 0, -30)
		opts := DefaultQueryOptions(testNow)
		opts.Since = &since
		results, _, total, err := store.QueryByEntity(ctx, "tenant", "alice", opts)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, "Recent", results[0].Summary)
	})

	t.Run("min weight", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.WriteEntries(ctx, []types.ActivityEntry{
			testEntry("tenant", "alice", "payment", "info", "positive", "Info level", 5),
			testEntry("tenant", "alice", "alert", "critical", "negative", "Critical level", 4),
		}))

		opts := DefaultQueryOptions(testNow)
		opts.MinWeight = "major"
		results, _, total, err := store.QueryByEntity(ctx, "tenant", "alice", opts)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, "critical", results[0].Weight)
	})

	t.Run("cursor pagination", func(t *testing.T) {
		store := newStore(t)
		var entries []types.ActivityEntry
		for i := 1; i <= 5; i++ {
			entries = append(entries, testEntry("lease", "l1", "payment", "minor", "positive", "Payment "+string(rune('A'+i)), i))
		}
		require.NoError(t, store.WriteEntries(ctx, entries))

		opts := DefaultQueryOptions(testNow)
		opts.Limit = 2
		page1, cursor, total, err := store.QueryByEntity(ctx, "lease", "l1", opts)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, page1, 2)
		require.NotEmpty(t, cursor)

		opts.Cursor = cursor
		page2, _, _, err := store.QueryByEntity(ctx, "lease", "l1", opts)
		require.NoError(t, err)
		require.Len(t, page2, 2)
		assert.True(t, page2[0].OccurredAt.Before(page1[1].OccurredAt))
	})

	t.Run("search", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.WriteEntries(ctx, []types.ActivityEntry{
			testEntry("tenant", "alice", "alert", "major", "negative", "Rent OVERDUE for room 3", 5),
			testEntry("tenant", "alice", "payment", "info", "positive", "Payment received on time", 10),
			testEntry("property", "p1", "alert", "major", "negative", "Overdue rent in building", 3),
		}))

		results, total, err := store.Search(ctx, "overdue", DefaultSearchOptions())
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, results, 2)

		opts := DefaultSearchOptions()
		opts.EntityType = "tenant"
		results, total, err = store.Search(ctx, "overdue", opts)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, "tenant", results[0].IndexedEntityType)

		results, total, err = store.Search(ctx, "zzzznotfound", DefaultSearchOptions())
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, results)
	})

	t.Run("empty store", func(t *testing.T) {
		store := newStore(t)
		results, _, total, err := store.QueryByEntity(ctx, "tenant", "nobody", DefaultQueryOptions(testNow))
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, results)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestIsAtLeastWeight(t *testing.T) {
	assert.True(t, IsAtLeastWeight("critical", "major"))
	assert.True(t, IsAtLeastWeight("major", "major"))
	assert.False(t, IsAtLeastWeight("minor", "major"))
	assert.False(t, IsAtLeastWeight("unknown", "info"))
	assert.ElementsMatch(t, []string{"critical", "major"}, weightsAtLeast("major"))
}
