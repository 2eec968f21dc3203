// Package pricing computes booking charges with exact decimal arithmetic.
// All rounding is half-up to two decimal places and happens in a fixed
// order so that repeated calculation over the same inputs is bit-stable.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Config carries the percentage rates applied on top of the ticket subtotal
type Config struct {
	ConvenienceFeePct decimal.Decimal
	TaxPct            decimal.Decimal
}

// DefaultConfig returns the standard 5% convenience fee and 18% tax
func DefaultConfig() Config {
	return Config{
		ConvenienceFeePct: decimal.NewFromInt(5),
		TaxPct:            decimal.NewFromInt(18),
	}
}

// Detail is an itemized price breakdown for a set of seats
type Detail struct {
	TotalAmount    decimal.Decimal
	ConvenienceFee decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

// Calculator prices seat selections for a booking
type Calculator struct {
	config Config
}

// NewCalculator creates a Calculator with the given rate config
func NewCalculator(config Config) *Calculator {
	return &Calculator{config: config}
}

// Calculate itemizes the charges for the given seat prices.
//
// The ticket subtotal is the exact sum of seat prices. The convenience fee
// is computed on the subtotal and rounded before the tax base is formed:
// tax applies to subtotal plus the already-rounded fee. Each line item is
// rounded independently and the final amount is the sum of rounded items,
// never a re-rounding of an exact total.
func (c *Calculator) Calculate(seats []*domain.Seat) (*Detail, error) {
	if len(seats) == 0 {
		return nil, domain.ErrNoSeatsRequested
	}

	subtotal := decimal.Zero
	for _, seat := range seats {
		if seat.Price.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidAmount
		}
		subtotal = subtotal.Add(seat.Price)
	}
	subtotal = round2(subtotal)

	fee := round2(subtotal.Mul(c.config.ConvenienceFeePct).Div(hundred))
	tax := round2(subtotal.Add(fee).Mul(c.config.TaxPct).Div(hundred))
	discount := decimal.Zero.Round(2)

	return &Detail{
		TotalAmount:    subtotal,
		ConvenienceFee: fee,
		TaxAmount:      tax,
		DiscountAmount: discount,
		FinalAmount:    subtotal.Add(fee).Add(tax).Sub(discount),
	}, nil
}

// round2 rounds half away from zero to two decimal places
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
