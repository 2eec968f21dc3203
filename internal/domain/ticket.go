package domain

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// TicketStatus represents the state of an issued ticket
type TicketStatus string

const (
	TicketStatusValid     TicketStatus = "VALID"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusExpired   TicketStatus = "EXPIRED"
)

// Ticket is issued per booked seat at the CONFIRMED transition. Apart from
// the USED transition on scan, its status mirrors the owning booking.
type Ticket struct {
	ID           int64
	BookingID    int64
	TicketNumber string
	SeatLabel    string
	QRPayload    string
	Status       TicketStatus
	ScannedAt    *time.Time
	CreatedAt    time.Time
}

// NewTicket issues a VALID ticket for a booked seat. The QR payload is
// derived deterministically from the booking number, seat label and show
// date/time so the same ticket always encodes the same payload.
func NewTicket(bookingNumber, seatLabel string, showDate, startTime time.Time) *Ticket {
	return &Ticket{
		TicketNumber: GenerateTicketNumber(),
		SeatLabel:    seatLabel,
		QRPayload:    BuildQRPayload(bookingNumber, seatLabel, showDate, startTime),
		Status:       TicketStatusValid,
		CreatedAt:    time.Now().UTC(),
	}
}

// MarkUsed transitions a VALID ticket to USED and records the scan time once
func (t *Ticket) MarkUsed(now time.Time) error {
	if t.Status != TicketStatusValid {
		return ErrTicketNotValid
	}
	t.Status = TicketStatusUsed
	scanned := now.UTC()
	t.ScannedAt = &scanned
	return nil
}

// BuildQRPayload encodes the ticket identity for venue-side scanning
func BuildQRPayload(bookingNumber, seatLabel string, showDate, startTime time.Time) string {
	raw := fmt.Sprintf("%s|%s|%s|%s",
		bookingNumber,
		seatLabel,
		showDate.Format("2006-01-02"),
		startTime.Format("15:04"),
	)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// GenerateTicketNumber returns a collision-resistant unique ticket number
func GenerateTicketNumber() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return "TKT" + strings.ToUpper(hex.EncodeToString(buf))
}
