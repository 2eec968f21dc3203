package repository

import (
	"context"
	"sync"
	"time"
)

type memoryLock struct {
	userID   int64
	deadline time.Time
}

type lockKey struct {
	showID int64
	seatID int64
}

// MemorySeatLockRepository implements SeatLockRepository in process memory.
// This is useful for testing and development.
type MemorySeatLockRepository struct {
	locks map[lockKey]memoryLock
	mu    sync.Mutex

	// now is swappable so tests can step time past lock deadlines
	now func() time.Time
}

// NewMemorySeatLockRepository creates a new in-memory seat lock repository
func NewMemorySeatLockRepository() *MemorySeatLockRepository {
	return &MemorySeatLockRepository{
		locks: make(map[lockKey]memoryLock),
		now:   time.Now,
	}
}

// SetClock overrides the time source. Test use only.
func (r *MemorySeatLockRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// live must be called with the mutex held
func (r *MemorySeatLockRepository) live(key lockKey) (memoryLock, bool) {
	lock, exists := r.locks[key]
	if !exists {
		return memoryLock{}, false
	}
	if r.now().After(lock.deadline) {
		delete(r.locks, key)
		return memoryLock{}, false
	}
	return lock, true
}

// Acquire takes the seat lock if no live lock exists
func (r *MemorySeatLockRepository) Acquire(ctx context.Context, showID, seatID, userID int64, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lockKey{showID: showID, seatID: seatID}
	if _, held := r.live(key); held {
		return false, nil
	}
	r.locks[key] = memoryLock{userID: userID, deadline: r.now().Add(ttl)}
	return true, nil
}

// Release removes the lock only when owned by the given user
func (r *MemorySeatLockRepository) Release(ctx context.Context, showID, seatID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lockKey{showID: showID, seatID: seatID}
	if lock, held := r.live(key); held && lock.userID == userID {
		delete(r.locks, key)
	}
	return nil
}

// ReleaseAll removes every lock the user holds on the show
func (r *MemorySeatLockRepository) ReleaseAll(ctx context.Context, showID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.locks {
		if key.showID != showID {
			continue
		}
		if lock, held := r.live(key); held && lock.userID == userID {
			delete(r.locks, key)
		}
	}
	return nil
}

// ForceRelease removes a seat lock regardless of owner
func (r *MemorySeatLockRepository) ForceRelease(ctx context.Context, showID, seatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.locks, lockKey{showID: showID, seatID: seatID})
	return nil
}

// ListLocked returns the seat ids currently locked for a show
func (r *MemorySeatLockRepository) ListLocked(ctx context.Context, showID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var seatIDs []int64
	for key := range r.locks {
		if key.showID != showID {
			continue
		}
		if _, held := r.live(key); held {
			seatIDs = append(seatIDs, key.seatID)
		}
	}
	return seatIDs, nil
}

// ListOwned returns the seat ids the user currently holds on a show
func (r *MemorySeatLockRepository) ListOwned(ctx context.Context, showID, userID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var seatIDs []int64
	for key := range r.locks {
		if key.showID != showID {
			continue
		}
		if lock, held := r.live(key); held && lock.userID == userID {
			seatIDs = append(seatIDs, key.seatID)
		}
	}
	return seatIDs, nil
}

// IsAvailable reports whether no live lock exists on the seat
func (r *MemorySeatLockRepository) IsAvailable(ctx context.Context, showID, seatID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, held := r.live(lockKey{showID: showID, seatID: seatID})
	return !held, nil
}
