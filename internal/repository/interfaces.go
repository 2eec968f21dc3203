package repository

import (
	"context"
	"time"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
)

// SeatLock is a live hold on a seat as seen in the lock store
type SeatLock struct {
	ShowID int64
	SeatID int64
	UserID int64
}

// SeatLockRepository manages TTL-bounded exclusive seat holds. Locks are
// advisory holds for the payment window, not the record of ownership.
type SeatLockRepository interface {
	// Acquire attempts an exclusive hold on one seat for a user. It returns
	// false when another live lock holds the seat, without error.
	Acquire(ctx context.Context, showID, seatID, userID int64, ttl time.Duration) (bool, error)

	// Release removes the lock on a seat only if it is owned by the given
	// user. Releasing an absent or foreign lock is a no-op.
	Release(ctx context.Context, showID, seatID, userID int64) error

	// ReleaseAll removes every lock the user holds on the show
	ReleaseAll(ctx context.Context, showID, userID int64) error

	// ForceRelease removes a seat lock regardless of owner. Used when the
	// booking record is authoritative proof of prior ownership.
	ForceRelease(ctx context.Context, showID, seatID int64) error

	// ListLocked returns the seat ids currently locked for a show
	ListLocked(ctx context.Context, showID int64) ([]int64, error)

	// ListOwned returns the seat ids the user currently holds on a show
	ListOwned(ctx context.Context, showID, userID int64) ([]int64, error)

	// IsAvailable reports whether no live lock exists on the seat. It does
	// not consult booking state.
	IsAvailable(ctx context.Context, showID, seatID int64) (bool, error)
}

// BookingRepository defines the interface for booking data access
type BookingRepository interface {
	// Create persists a booking together with its seat assignments in one
	// transaction
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking with its seats and tickets
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)

	// GetByNumber retrieves a booking by its booking number
	GetByNumber(ctx context.Context, bookingNumber string) (*domain.Booking, error)

	// GetByUserID retrieves bookings for a user, newest first
	GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*domain.Booking, error)

	// HasActiveBooking reports whether the user already holds a PENDING or
	// CONFIRMED booking for the show
	HasActiveBooking(ctx context.Context, userID, showID int64) (bool, error)

	// Update persists a booking transition guarded by its version. It
	// returns domain.ErrConcurrentUpdate when the stored version moved, and
	// inserts any tickets attached since the last read.
	Update(ctx context.Context, booking *domain.Booking) error

	// ListExpired returns PENDING bookings whose expiresAt passed before
	// the cutoff, bounded by limit
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error)

	// ListBookedSeatIDs returns seat ids held by PENDING or CONFIRMED
	// bookings for a show
	ListBookedSeatIDs(ctx context.Context, showID int64) ([]int64, error)

	// GetTicketByNumber retrieves a ticket and its owning booking id
	GetTicketByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error)

	// UpdateTicket persists a ticket transition
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) error
}

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)

	// GetByOrderID retrieves a payment by gateway order reference
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)

	// GetByIdempotencyKey retrieves a payment by idempotency key
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Payment, error)

	// GetSuccessfulByBookingID retrieves the captured payment for a booking
	GetSuccessfulByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error)

	// Update updates an existing payment and inserts any new refunds
	Update(ctx context.Context, payment *domain.Payment) error
}

// CatalogRepository reads show and seat reference data. Catalog writes are
// owned by another system.
type CatalogRepository interface {
	// GetShow retrieves a show by id
	GetShow(ctx context.Context, showID int64) (*domain.Show, error)

	// GetSeats retrieves the given seats of a show. Every requested id must
	// resolve or the call fails with domain.ErrSeatNotFound.
	GetSeats(ctx context.Context, showID int64, seatIDs []int64) ([]*domain.Seat, error)

	// ListSeats retrieves all seats of a show
	ListSeats(ctx context.Context, showID int64) ([]*domain.Seat, error)
}

// UserRepository reads user account data
type UserRepository interface {
	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
