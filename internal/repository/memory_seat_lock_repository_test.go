package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatLockAcquireExclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatLockRepository()

	ok, err := repo.Acquire(ctx, 1, 11, 100, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Acquire(ctx, 1, 11, 200, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a different seat on the same show is unaffected
	ok, err = repo.Acquire(ctx, 1, 12, 200, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeatLockConcurrentAcquire(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatLockRepository()

	const contenders = 50
	var wg sync.WaitGroup
	acquired := make(chan int64, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			ok, err := repo.Acquire(ctx, 1, 11, userID, time.Minute)
			assert.NoError(t, err)
			if ok {
				acquired <- userID
			}
		}(int64(i + 1))
	}
	wg.Wait()
	close(acquired)

	var winners []int64
	for userID := range acquired {
		winners = append(winners, userID)
	}
	require.Len(t, winners, 1, "exactly one contender must win the seat")

	owned, err := repo.ListOwned(ctx, 1, winners[0])
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, owned)
}

func TestSeatLockOwnerScopedRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatLockRepository()

	ok, err := repo.Acquire(ctx, 1, 11, 100, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// a non-owner release is a no-op
	require.NoError(t, repo.Release(ctx, 1, 11, 200))
	available, err := repo.IsAvailable(ctx, 1, 11)
	require.NoError(t, err)
	assert.False(t, available)

	require.NoError(t, repo.Release(ctx, 1, 11, 100))
	available, err = repo.IsAvailable(ctx, 1, 11)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestSeatLockReleaseAll(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatLockRepository()

	for _, seatID := range []int64{11, 12, 13} {
		ok, err := repo.Acquire(ctx, 1, seatID, 100, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := repo.Acquire(ctx, 1, 14, 200, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.ReleaseAll(ctx, 1, 100))

	owned, err := repo.ListOwned(ctx, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, owned)

	// the other user's lock survives
	locked, err := repo.ListLocked(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{14}, locked)
}

func TestSeatLockTTLExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatLockRepository()

	current := time.Now()
	repo.SetClock(func() time.Time { return current })

	ok, err := repo.Acquire(ctx, 1, 11, 100, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	current = current.Add(5 * time.Minute)
	available, err := repo.IsAvailable(ctx, 1, 11)
	require.NoError(t, err)
	assert.False(t, available)

	// past the hold window the lock self-expires and a crashed holder
	// cannot block the seat any longer
	current = current.Add(6 * time.Minute)
	available, err = repo.IsAvailable(ctx, 1, 11)
	require.NoError(t, err)
	assert.True(t, available)

	ok, err = repo.Acquire(ctx, 1, 11, 200, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeatLockForceRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatLockRepository()

	ok, err := repo.Acquire(ctx, 1, 11, 100, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.ForceRelease(ctx, 1, 11))

	available, err := repo.IsAvailable(ctx, 1, 11)
	require.NoError(t, err)
	assert.True(t, available)

	// releasing an absent lock is a no-op
	require.NoError(t, repo.ForceRelease(ctx, 1, 11))
}
