package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	p := NewPayment(1, 101, decimal.RequireFromString("495.60"), PaymentMethodUPI, "idem-key-1")
	p.ID = 9
	return p
}

func TestNewPayment(t *testing.T) {
	p := newTestPayment(t)

	assert.Equal(t, GatewayStatusInitiated, p.Status)
	assert.True(t, strings.HasPrefix(p.OrderID, "order_"))
	assert.Len(t, p.OrderID, len("order_")+16)
	assert.Equal(t, "idem-key-1", p.IdempotencyKey)
}

func TestPaymentMarkSuccess(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t)

	require.NoError(t, p.MarkSuccess("pay_abc", "sig", now))

	assert.Equal(t, GatewayStatusSuccess, p.Status)
	assert.Equal(t, "pay_abc", p.GatewayPaymentID)
	assert.NotNil(t, p.PaidAt)
}

func TestPaymentMarkSuccessReplay(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t)
	require.NoError(t, p.MarkSuccess("pay_abc", "sig", now))

	// a replayed success callback is accepted without effect
	require.NoError(t, p.MarkSuccess("pay_other", "sig2", now.Add(time.Minute)))
	assert.Equal(t, "pay_abc", p.GatewayPaymentID)
}

func TestPaymentMarkSuccessAfterFailure(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t)
	require.NoError(t, p.MarkFailed("DECLINED", "card declined", now))

	assert.ErrorIs(t, p.MarkSuccess("pay_abc", "sig", now), ErrInvalidPaymentState)
}

func TestPaymentMarkFailed(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t)

	require.NoError(t, p.MarkFailed("DECLINED", "card declined", now))

	assert.Equal(t, GatewayStatusFailed, p.Status)
	assert.Equal(t, "DECLINED", p.FailureCode)

	// replayed failure is a no-op
	require.NoError(t, p.MarkFailed("OTHER", "other", now))
	assert.Equal(t, "DECLINED", p.FailureCode)
}

func TestPaymentRefund(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t)
	require.NoError(t, p.MarkSuccess("pay_abc", "sig", now))

	refund, err := p.InitiateRefund(decimal.RequireFromString("200.00"), "partial cancel", now)
	require.NoError(t, err)

	assert.Equal(t, RefundStatusPending, refund.Status)
	assert.True(t, strings.HasPrefix(refund.RefundReference, "rfnd_"))
	assert.Equal(t, GatewayStatusRefundInitiated, p.Status)
}

func TestPaymentRefundExceedsCaptured(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t)
	require.NoError(t, p.MarkSuccess("pay_abc", "sig", now))

	_, err := p.InitiateRefund(decimal.RequireFromString("400.00"), "a", now)
	require.NoError(t, err)

	_, err = p.InitiateRefund(decimal.RequireFromString("100.00"), "b", now)
	assert.ErrorIs(t, err, ErrRefundExceedsPayment)
}

func TestPaymentRefundBeforeCapture(t *testing.T) {
	p := newTestPayment(t)

	_, err := p.InitiateRefund(decimal.RequireFromString("100.00"), "too early", time.Now())
	assert.ErrorIs(t, err, ErrInvalidPaymentState)
}

func TestTicketMarkUsed(t *testing.T) {
	now := time.Now()
	showDate := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 1, 19, 30, 0, 0, time.UTC)
	tk := NewTicket("BK260901ABCDE12345", "A1", showDate, start)

	assert.Equal(t, TicketStatusValid, tk.Status)
	assert.True(t, strings.HasPrefix(tk.TicketNumber, "TKT"))
	assert.NotEmpty(t, tk.QRPayload)

	require.NoError(t, tk.MarkUsed(now))
	assert.Equal(t, TicketStatusUsed, tk.Status)
	require.NotNil(t, tk.ScannedAt)

	assert.ErrorIs(t, tk.MarkUsed(now), ErrTicketNotValid)
}

func TestBuildQRPayloadDeterministic(t *testing.T) {
	showDate := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 1, 19, 30, 0, 0, time.UTC)

	a := BuildQRPayload("BK1", "A1", showDate, start)
	b := BuildQRPayload("BK1", "A1", showDate, start)
	assert.Equal(t, a, b)

	c := BuildQRPayload("BK1", "A2", showDate, start)
	assert.NotEqual(t, a, c)
}
