package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
	BookingStatusFailed    BookingStatus = "FAILED"
)

// IsTerminal reports whether no further transition is permitted
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusExpired || s == BookingStatusFailed
}

// IsActive reports whether the booking still holds its seats
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

func (s BookingStatus) String() string { return string(s) }

// PaymentStatus is the booking-level view of payment progress
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusSuccess       PaymentStatus = "SUCCESS"
	PaymentStatusFailed        PaymentStatus = "FAILED"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
	PaymentStatusPartialRefund PaymentStatus = "PARTIAL_REFUND"
)

// Booking owns its seat assignments and tickets; both are created and
// destroyed only through booking transitions, never independently.
type Booking struct {
	ID            int64
	BookingNumber string
	UserID        int64
	ShowID        int64

	TotalAmount    decimal.Decimal
	ConvenienceFee decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal

	Status        BookingStatus
	PaymentStatus PaymentStatus

	BookedAt           *time.Time
	ExpiresAt          *time.Time
	CancelledAt        *time.Time
	CancellationReason string

	Seats   []*BookedSeat
	Tickets []*Ticket

	// Version guards concurrent transitions via optimistic locking
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookedSeat is a seat claimed by a booking, with the price snapshotted at
// booking time. It is never recalculated even if show pricing changes.
type BookedSeat struct {
	ID        int64
	BookingID int64
	ShowID    int64
	SeatID    int64
	SeatLabel string
	Price     decimal.Decimal
}

// NewBooking creates a PENDING booking holding the given seats until expiresAt
func NewBooking(userID, showID int64, expiresAt time.Time) *Booking {
	now := time.Now().UTC()
	expiresAt = expiresAt.UTC()
	return &Booking{
		BookingNumber:  GenerateBookingNumber(),
		UserID:         userID,
		ShowID:         showID,
		TotalAmount:    decimal.Zero,
		ConvenienceFee: decimal.Zero,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		FinalAmount:    decimal.Zero,
		Status:         BookingStatusPending,
		PaymentStatus:  PaymentStatusPending,
		ExpiresAt:      &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddSeat attaches a seat assignment to this booking
func (b *Booking) AddSeat(seat *BookedSeat) {
	seat.ShowID = b.ShowID
	b.Seats = append(b.Seats, seat)
}

// IsExpired reports whether the hold window has passed
func (b *Booking) IsExpired(now time.Time) bool {
	return b.ExpiresAt != nil && now.After(*b.ExpiresAt)
}

// Confirm moves a PENDING booking to CONFIRMED and records payment success.
// Ticket issuance is the caller's responsibility (it needs show context).
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != BookingStatusPending {
		return ErrInvalidBookingState
	}
	b.Status = BookingStatusConfirmed
	b.PaymentStatus = PaymentStatusSuccess
	t := now.UTC()
	b.BookedAt = &t
	b.ExpiresAt = nil
	b.UpdatedAt = t
	return nil
}

// Cancel moves a PENDING or CONFIRMED booking to CANCELLED and cascades the
// status to every owned ticket
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.Status.IsActive() {
		return ErrInvalidBookingState
	}
	b.Status = BookingStatusCancelled
	t := now.UTC()
	b.CancelledAt = &t
	b.CancellationReason = reason
	b.UpdatedAt = t
	for _, ticket := range b.Tickets {
		ticket.Status = TicketStatusCancelled
	}
	return nil
}

// Expire moves a PENDING booking past its hold window to EXPIRED
func (b *Booking) Expire(now time.Time) error {
	if b.Status != BookingStatusPending {
		return ErrInvalidBookingState
	}
	b.Status = BookingStatusExpired
	t := now.UTC()
	b.CancelledAt = &t
	b.CancellationReason = "expired"
	b.UpdatedAt = t
	for _, ticket := range b.Tickets {
		ticket.Status = TicketStatusExpired
	}
	return nil
}

// SeatIDs returns the ids of every seat this booking claims
func (b *Booking) SeatIDs() []int64 {
	ids := make([]int64, 0, len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.SeatID)
	}
	return ids
}

// SeatLabels returns the labels of every seat this booking claims
func (b *Booking) SeatLabels() []string {
	labels := make([]string, 0, len(b.Seats))
	for _, s := range b.Seats {
		labels = append(labels, s.SeatLabel)
	}
	return labels
}

// GenerateBookingNumber returns a collision-resistant human-readable booking
// number: date prefix plus a random suffix, e.g. BK250829A1B2C3D4E5
func GenerateBookingNumber() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(err)
	}
	return "BK" + time.Now().UTC().Format("060102") + strings.ToUpper(hex.EncodeToString(buf))
}
