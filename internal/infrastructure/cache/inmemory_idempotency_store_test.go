package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("marks a new key", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "req-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("rejects a repeated key", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "req-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "req-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("accepts the key again after the TTL", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "req-3", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, "req-3", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "seen", time.Hour)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "seen")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ExpiredKeyIsNotProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "short-lived", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	processed, err := store.IsProcessed(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "expiring-1", 10*time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "expiring-2", 10*time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "durable", time.Hour)
	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())

	processed, err := store.IsProcessed(ctx, "durable")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const goroutines = 100

	results := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, "contested-key", time.Hour)
			results <- err == nil && isNew
		}()
	}

	newCount := 0
	for i := 0; i < goroutines; i++ {
		if <-results {
			newCount++
		}
	}

	// exactly one caller wins
	assert.Equal(t, 1, newCount)
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
