package history_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebot/internal/history"
)

func record(roller string, total int) history.Record {
	return history.Record{
		ID:        uuid.New(),
		Roller:    roller,
		Formula:   fmt.Sprintf("%d", total),
		Canonical: fmt.Sprintf("%d", total),
		Results:   fmt.Sprintf("**%d** (**%d**)", total, total),
		Total:     total,
		CreatedAt: time.Now(),
	}
}

func TestMemoryStore_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := history.NewMemoryStore(10)
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Append(ctx, record("ana", i)))
	}
	require.NoError(t, s.Append(ctx, record("bo", 99)))

	got, err := s.Recent(ctx, "ana", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{got[0].Total, got[1].Total, got[2].Total})

	got, err = s.Recent(ctx, "ana", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Total)
}

func TestMemoryStore_UnknownRoller(t *testing.T) {
	got, err := history.NewMemoryStore(5).Recent(context.Background(), "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := history.NewMemoryStore(5)
	assert.ErrorIs(t, s.Append(ctx, record("ana", 1)), context.Canceled)
	_, err := s.Recent(ctx, "ana", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_Preconditions(t *testing.T) {
	s := history.NewMemoryStore(5)
	assert.Panics(t, func() { _ = s.Append(context.Background(), history.Record{Roller: "ana"}) })
	assert.Panics(t, func() { _, _ = s.Recent(context.Background(), "ana", 0) })
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	s := history.NewMemoryStore(1000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Append(ctx, record("shared", j))
			}
		}()
	}
	wg.Wait()
	got, err := s.Recent(ctx, "shared", 1000)
	require.NoError(t, err)
	assert.Len(t, got, 400)
}

// TestMemoryStore_BoundedProperty verifies the store never retains more than its
// capacity and always returns the latest appends.
func TestMemoryStore_BoundedProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 20).Draw(rt, "capacity")
		n := rapid.IntRange(0, 60).Draw(rt, "appends")
		limit := rapid.IntRange(1, 30).Draw(rt, "limit")

		ctx := context.Background()
		s := history.NewMemoryStore(capacity)
		for i := 0; i < n; i++ {
			require.NoError(rt, s.Append(ctx, record("r", i)))
		}
		got, err := s.Recent(ctx, "r", limit)
		require.NoError(rt, err)
		assert.Len(rt, got, min(n, capacity, limit))
		for i, rec := range got {
			assert.Equal(rt, n-1-i, rec.Total)
		}
	})
}
