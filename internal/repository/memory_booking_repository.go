package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
)

// MemoryBookingRepository implements BookingRepository using in-memory
// storage. This is useful for testing and development.
type MemoryBookingRepository struct {
	bookings map[int64]*domain.Booking
	byNumber map[string]int64
	nextID   int64
	mu       sync.RWMutex
}

// NewMemoryBookingRepository creates a new in-memory booking repository
func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[int64]*domain.Booking),
		byNumber: make(map[string]int64),
	}
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	c.Seats = make([]*domain.BookedSeat, len(b.Seats))
	for i, s := range b.Seats {
		seat := *s
		c.Seats[i] = &seat
	}
	c.Tickets = make([]*domain.Ticket, len(b.Tickets))
	for i, t := range b.Tickets {
		ticket := *t
		c.Tickets[i] = &ticket
	}
	return &c
}

// Create persists a booking and assigns surrogate ids
func (r *MemoryBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[booking.BookingNumber]; exists {
		return domain.ErrBookingExists
	}
	// Mirrors the partial unique index on (user_id, show_id) for active rows
	for _, b := range r.bookings {
		if b.UserID == booking.UserID && b.ShowID == booking.ShowID && b.Status.IsActive() {
			return domain.ErrBookingExists
		}
	}

	r.nextID++
	booking.ID = r.nextID
	booking.Version = 1
	for i, seat := range booking.Seats {
		seat.ID = booking.ID*1000 + int64(i)
		seat.BookingID = booking.ID
	}

	r.bookings[booking.ID] = cloneBooking(booking)
	r.byNumber[booking.BookingNumber] = booking.ID
	return nil
}

// GetByID retrieves a booking by id
func (r *MemoryBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, exists := r.bookings[id]
	if !exists {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(booking), nil
}

// GetByNumber retrieves a booking by its booking number
func (r *MemoryBookingRepository) GetByNumber(ctx context.Context, bookingNumber string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byNumber[bookingNumber]
	if !exists {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(r.bookings[id]), nil
}

// GetByUserID retrieves bookings for a user, newest first
func (r *MemoryBookingRepository) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			result = append(result, cloneBooking(b))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// HasActiveBooking reports whether the user already holds a PENDING or
// CONFIRMED booking for the show
func (r *MemoryBookingRepository) HasActiveBooking(ctx context.Context, userID, showID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bookings {
		if b.UserID == userID && b.ShowID == showID && b.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

// Update persists a transition guarded by optimistic versioning
func (r *MemoryBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.bookings[booking.ID]
	if !exists {
		return domain.ErrBookingNotFound
	}
	if stored.Version != booking.Version {
		return domain.ErrConcurrentUpdate
	}

	booking.Version++
	for i, ticket := range booking.Tickets {
		if ticket.ID == 0 {
			ticket.ID = booking.ID*10000 + int64(i)
			ticket.BookingID = booking.ID
		}
	}
	r.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// ListExpired returns PENDING bookings past their hold window
func (r *MemoryBookingRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingStatusPending && b.ExpiresAt != nil && b.ExpiresAt.Before(cutoff) {
			result = append(result, cloneBooking(b))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(*result[j].ExpiresAt)
	})
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// ListBookedSeatIDs returns seat ids held by active bookings for a show
func (r *MemoryBookingRepository) ListBookedSeatIDs(ctx context.Context, showID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var seatIDs []int64
	for _, b := range r.bookings {
		if b.ShowID != showID || !b.Status.IsActive() {
			continue
		}
		for _, seat := range b.Seats {
			seatIDs = append(seatIDs, seat.SeatID)
		}
	}
	return seatIDs, nil
}

// GetTicketByNumber retrieves a ticket by its ticket number
func (r *MemoryBookingRepository) GetTicketByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bookings {
		for _, t := range b.Tickets {
			if t.TicketNumber == ticketNumber {
				ticket := *t
				return &ticket, nil
			}
		}
	}
	return nil, domain.ErrTicketNotFound
}

// UpdateTicket persists a ticket transition
func (r *MemoryBookingRepository) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bookings {
		for i, t := range b.Tickets {
			if t.TicketNumber == ticket.TicketNumber {
				updated := *ticket
				b.Tickets[i] = &updated
				return nil
			}
		}
	}
	return domain.ErrTicketNotFound
}
