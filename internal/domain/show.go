package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShowStatus represents the scheduling state of a show
type ShowStatus string

const (
	ShowStatusScheduled ShowStatus = "SCHEDULED"
	ShowStatusOnSale    ShowStatus = "ON_SALE"
	ShowStatusSoldOut   ShowStatus = "SOLD_OUT"
	ShowStatusCancelled ShowStatus = "CANCELLED"
	ShowStatusCompleted ShowStatus = "COMPLETED"
)

// SeatType categorizes a physical seat, which determines its price tier
type SeatType string

const (
	SeatTypeRegular    SeatType = "REGULAR"
	SeatTypePremium    SeatType = "PREMIUM"
	SeatTypeRecliner   SeatType = "RECLINER"
	SeatTypeVIP        SeatType = "VIP"
	SeatTypeWheelchair SeatType = "WHEELCHAIR"
)

// Show is a single screening of an event at a venue
type Show struct {
	ID         int64
	EventTitle string
	VenueName  string
	ScreenName string
	ShowDate   time.Time
	StartTime  time.Time
	EndTime    time.Time
	BasePrice  decimal.Decimal
	Status     ShowStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsBookable reports whether new bookings may be initiated against the show.
// Cancelled, completed and already-started shows are not bookable.
func (s *Show) IsBookable(now time.Time) bool {
	if s.Status == ShowStatusCancelled || s.Status == ShowStatusCompleted || s.Status == ShowStatusSoldOut {
		return false
	}
	return now.Before(s.StartTime)
}

// Seat is a physical seat on a screen
type Seat struct {
	ID        int64
	ShowID    int64
	Label     string
	RowName   string
	Number    int
	Type      SeatType
	Price     decimal.Decimal
	CreatedAt time.Time
}

// PriceMultiplier returns the tier multiplier applied over the show base price
func (t SeatType) PriceMultiplier() decimal.Decimal {
	switch t {
	case SeatTypePremium:
		return decimal.NewFromFloat(1.5)
	case SeatTypeRecliner:
		return decimal.NewFromFloat(2.0)
	case SeatTypeVIP:
		return decimal.NewFromFloat(2.5)
	default:
		return decimal.NewFromInt(1)
	}
}
