package postgres_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dicebot/internal/history"
	"github.com/cory-johannsen/dicebot/internal/storage/postgres"
	"github.com/cory-johannsen/dicebot/internal/testutil"
)

func newRecord(roller string, total int, at time.Time) history.Record {
	return history.Record{
		ID:        uuid.New(),
		Roller:    roller,
		Formula:   "2d6+3",
		Canonical: "2d6 + 3",
		Results:   "**9** (**6** (2, 4), **3**)",
		Total:     total,
		CreatedAt: at,
	}
}

func TestRollRepository_AppendAndRecent(t *testing.T) {
	repo := postgres.NewRollRepository(testutil.NewPool(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, newRecord("ana", i, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Append(ctx, newRecord("bo", 42, base)))

	got, err := repo.Recent(ctx, "ana", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 4, got[0].Total)
	assert.Equal(t, 3, got[1].Total)
	assert.Equal(t, 2, got[2].Total)
	assert.Equal(t, "2d6 + 3", got[0].Canonical)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(4*time.Minute)))
}

func TestRollRepository_DefaultsCreatedAt(t *testing.T) {
	repo := postgres.NewRollRepository(testutil.NewPool(t))
	ctx := context.Background()

	rec := newRecord("cy", 7, time.Time{})
	require.NoError(t, repo.Append(ctx, rec))

	got, err := repo.Recent(ctx, "cy", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestRollRepository_DuplicateID(t *testing.T) {
	repo := postgres.NewRollRepository(testutil.NewPool(t))
	ctx := context.Background()

	rec := newRecord("dee", 1, time.Now())
	require.NoError(t, repo.Append(ctx, rec))
	assert.Error(t, repo.Append(ctx, rec))
}

func TestRollRepository_UnknownRoller(t *testing.T) {
	repo := postgres.NewRollRepository(testutil.NewPool(t))
	got, err := repo.Recent(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRollRepository_TotalsBeyondInt32(t *testing.T) {
	repo := postgres.NewRollRepository(testutil.NewPool(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// eleven 200d999999 terms at their maximum draw
	high := 11 * 200 * 999999
	require.Greater(t, high, math.MaxInt32)
	low := -(math.MaxInt32 + 10)

	require.NoError(t, repo.Append(ctx, newRecord("eve", high, base)))
	require.NoError(t, repo.Append(ctx, newRecord("eve", low, base.Add(time.Minute))))

	got, err := repo.Recent(ctx, "eve", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, low, got[0].Total)
	assert.Equal(t, high, got[1].Total)
}
