package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
)

func seatsAt(prices ...string) []*domain.Seat {
	seats := make([]*domain.Seat, 0, len(prices))
	for i, p := range prices {
		seats = append(seats, &domain.Seat{
			ID:    int64(i + 1),
			Price: decimal.RequireFromString(p),
		})
	}
	return seats
}

func TestCalculate(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	tests := []struct {
		name     string
		prices   []string
		total    string
		fee      string
		tax      string
		final    string
	}{
		{
			name:   "three regular seats",
			prices: []string{"200", "200", "200"},
			total:  "600.00", fee: "30.00", tax: "113.40", final: "743.40",
		},
		{
			name:   "two regular seats",
			prices: []string{"200", "200"},
			total:  "400.00", fee: "20.00", tax: "75.60", final: "495.60",
		},
		{
			name:   "single seat",
			prices: []string{"250"},
			total:  "250.00", fee: "12.50", tax: "47.25", final: "309.75",
		},
		{
			name:   "mixed seat tiers",
			prices: []string{"200", "300", "500"},
			total:  "1000.00", fee: "50.00", tax: "189.00", final: "1239.00",
		},
		{
			name:   "fee rounds half up",
			prices: []string{"130.10"},
			// fee = 6.505 -> 6.51, tax base = 136.61, tax = 24.5898 -> 24.59
			total: "130.10", fee: "6.51", tax: "24.59", final: "161.20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := calc.Calculate(seatsAt(tt.prices...))
			require.NoError(t, err)

			assert.Equal(t, tt.total, detail.TotalAmount.StringFixed(2))
			assert.Equal(t, tt.fee, detail.ConvenienceFee.StringFixed(2))
			assert.Equal(t, tt.tax, detail.TaxAmount.StringFixed(2))
			assert.Equal(t, tt.final, detail.FinalAmount.StringFixed(2))
		})
	}
}

func TestCalculateFinalAmountIdentity(t *testing.T) {
	calc := NewCalculator(Config{
		ConvenienceFeePct: decimal.RequireFromString("7.5"),
		TaxPct:            decimal.RequireFromString("12.25"),
	})

	detail, err := calc.Calculate(seatsAt("149.99", "149.99", "99.50"))
	require.NoError(t, err)

	want := detail.TotalAmount.
		Add(detail.ConvenienceFee).
		Add(detail.TaxAmount).
		Sub(detail.DiscountAmount)
	assert.True(t, detail.FinalAmount.Equal(want),
		"final %s != sum of rounded items %s", detail.FinalAmount, want)
}

func TestCalculateTaxAppliesToRoundedFee(t *testing.T) {
	// fee rounds from 5.0005 to 5.00; the tax base must use the rounded
	// fee, not the exact one
	calc := NewCalculator(Config{
		ConvenienceFeePct: decimal.RequireFromString("5"),
		TaxPct:            decimal.RequireFromString("18"),
	})

	detail, err := calc.Calculate(seatsAt("100.01"))
	require.NoError(t, err)

	assert.Equal(t, "5.00", detail.ConvenienceFee.StringFixed(2))
	// (100.01 + 5.00) * 0.18 = 18.9018 -> 18.90
	assert.Equal(t, "18.90", detail.TaxAmount.StringFixed(2))
}

func TestCalculateNoSeats(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	detail, err := calc.Calculate(nil)
	assert.Nil(t, detail)
	assert.ErrorIs(t, err, domain.ErrNoSeatsRequested)
}

func TestCalculateNegativePrice(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	detail, err := calc.Calculate(seatsAt("200", "-50"))
	assert.Nil(t, detail)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCalculateDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	seats := seatsAt("133.33", "266.67", "99.99")

	first, err := calc.Calculate(seats)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := calc.Calculate(seats)
		require.NoError(t, err)
		assert.True(t, first.FinalAmount.Equal(again.FinalAmount))
	}
}
