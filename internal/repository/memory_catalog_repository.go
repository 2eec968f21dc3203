package repository

import (
	"context"
	"sync"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
)

// MemoryCatalogRepository implements CatalogRepository over fixture data.
// This is useful for testing and development.
type MemoryCatalogRepository struct {
	shows map[int64]*domain.Show
	seats map[int64][]*domain.Seat
	mu    sync.RWMutex
}

// NewMemoryCatalogRepository creates a new in-memory catalog repository
func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		shows: make(map[int64]*domain.Show),
		seats: make(map[int64][]*domain.Seat),
	}
}

// AddShow registers a show fixture
func (r *MemoryCatalogRepository) AddShow(show *domain.Show) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := *show
	r.shows[show.ID] = &s
}

// AddSeat registers a seat fixture for a show
func (r *MemoryCatalogRepository) AddSeat(seat *domain.Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := *seat
	r.seats[seat.ShowID] = append(r.seats[seat.ShowID], &s)
}

// GetShow retrieves a show by id
func (r *MemoryCatalogRepository) GetShow(ctx context.Context, showID int64) (*domain.Show, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	show, exists := r.shows[showID]
	if !exists {
		return nil, domain.ErrShowNotFound
	}
	s := *show
	return &s, nil
}

// GetSeats retrieves the given seats of a show
func (r *MemoryCatalogRepository) GetSeats(ctx context.Context, showID int64, seatIDs []int64) ([]*domain.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := make(map[int64]*domain.Seat)
	for _, seat := range r.seats[showID] {
		byID[seat.ID] = seat
	}

	result := make([]*domain.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, exists := byID[id]
		if !exists {
			return nil, domain.ErrSeatNotFound
		}
		s := *seat
		result = append(result, &s)
	}
	return result, nil
}

// ListSeats retrieves all seats of a show
func (r *MemoryCatalogRepository) ListSeats(ctx context.Context, showID int64) ([]*domain.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seats := r.seats[showID]
	result := make([]*domain.Seat, 0, len(seats))
	for _, seat := range seats {
		s := *seat
		result = append(result, &s)
	}
	return result, nil
}

// MemoryUserRepository implements UserRepository over fixture data
type MemoryUserRepository struct {
	users map[int64]*domain.User
	mu    sync.RWMutex
}

// NewMemoryUserRepository creates a new in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[int64]*domain.User)}
}

// AddUser registers a user fixture
func (r *MemoryUserRepository) AddUser(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *user
	r.users[user.ID] = &u
}

// GetByID retrieves a user by id
func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	u := *user
	return &u, nil
}
