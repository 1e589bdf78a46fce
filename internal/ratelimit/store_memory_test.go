package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSlidingWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := store.Allow(ctx, "org:acme", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be admitted", i+1)
		assert.Equal(t, 2-i, result.Remaining)
	}

	// 4th within the window is rejected with enough info to retry.
	result, err := store.Allow(ctx, "org:acme", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, now.Add(time.Hour), result.ResetAt)

	// 61 minutes after the first, the window has rolled.
	now = now.Add(61 * time.Minute)
	result, err = store.Allow(ctx, "org:acme", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Allow(ctx, "org:acme", 3, time.Hour)
		require.NoError(t, err)
	}

	result, err := store.Allow(ctx, "org:other", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryStoreReset(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Allow(ctx, "k", 3, time.Hour)
		require.NoError(t, err)
	}
	require.NoError(t, store.Reset(ctx, "k"))

	result, err := store.Allow(ctx, "k", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
