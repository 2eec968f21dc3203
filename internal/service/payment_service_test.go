package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/internal/dto"
	"github.com/unnisamohammad/cinehub-backend/internal/repository"
)

const testWebhookSecret = "test-webhook-secret"

type paymentFixture struct {
	*bookingFixture
	payments PaymentService
	repo     *repository.MemoryPaymentRepository
}

func newPaymentFixture(t *testing.T, bookingCfg *BookingServiceConfig) *paymentFixture {
	t.Helper()

	bf := newBookingFixture(t, bookingCfg)
	paymentRepo := repository.NewMemoryPaymentRepository()
	svc := NewPaymentService(paymentRepo, bf.bookingRepo, bf.service, NewNoOpEventPublisher(),
		&PaymentServiceConfig{WebhookSecret: testWebhookSecret})

	return &paymentFixture{
		bookingFixture: bf,
		payments:       svc,
		repo:           paymentRepo,
	}
}

func (f *paymentFixture) initiateBooking(t *testing.T, userID int64, seatIDs ...int64) *dto.BookingResponse {
	t.Helper()
	resp, err := f.service.InitiateBooking(context.Background(), userID, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: seatIDs,
	})
	require.NoError(t, err)
	return resp
}

func signedCallback(payment *dto.PaymentResponse, status string) *dto.PaymentCallbackRequest {
	req := &dto.PaymentCallbackRequest{
		OrderID:          payment.OrderID,
		GatewayPaymentID: "pay_" + payment.OrderID,
		Status:           status,
		Amount:           payment.Amount,
	}
	req.Signature = ComputeCallbackSignature([]byte(testWebhookSecret),
		req.OrderID, req.GatewayPaymentID, req.Status, req.Amount)
	return req
}

func TestInitiatePayment(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11, 12)

	resp, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID,
		Method:    "UPI",
	}, "idem-1")
	require.NoError(t, err)

	assert.Equal(t, booking.ID, resp.BookingID)
	assert.Equal(t, "495.60", resp.Amount)
	assert.Equal(t, "INITIATED", resp.Status)
	assert.NotEmpty(t, resp.OrderID)
}

func TestInitiatePaymentIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)
	req := &dto.InitiatePaymentRequest{BookingID: booking.ID, Method: "UPI"}

	first, err := f.payments.InitiatePayment(ctx, 101, req, "idem-1")
	require.NoError(t, err)
	second, err := f.payments.InitiatePayment(ctx, 101, req, "idem-1")
	require.NoError(t, err)

	// one Payment row, identical identifiers on both calls
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.OrderID, second.OrderID)
}

func TestInitiatePaymentValidation(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)

	_, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "")
	assert.ErrorIs(t, err, domain.ErrMissingIdempotency)

	_, err = f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "BARTER",
	}, "idem-2")
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentState)

	_, err = f.payments.InitiatePayment(ctx, 202, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-3")
	assert.ErrorIs(t, err, domain.ErrNotBookingOwner)
}

func TestHandleCallbackSuccess(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11, 12)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)

	require.NoError(t, f.payments.HandleCallback(ctx, signedCallback(payment, CallbackStatusSuccess)))

	// payment captured and booking confirmed with tickets issued
	stored, err := f.repo.GetByOrderID(ctx, payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusSuccess, stored.Status)
	assert.NotNil(t, stored.PaidAt)

	confirmed, err := f.service.GetBooking(ctx, booking.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
	assert.Len(t, confirmed.Tickets, 2)
}

func TestHandleCallbackReplay(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)

	callback := signedCallback(payment, CallbackStatusSuccess)
	require.NoError(t, f.payments.HandleCallback(ctx, callback))
	require.NoError(t, f.payments.HandleCallback(ctx, callback))

	confirmed, err := f.service.GetBooking(ctx, booking.ID, 101)
	require.NoError(t, err)
	assert.Len(t, confirmed.Tickets, 1, "replayed callback must not duplicate tickets")
}

func TestHandleCallbackBadSignature(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)

	callback := signedCallback(payment, CallbackStatusSuccess)
	callback.Signature = "forged"
	assert.ErrorIs(t, f.payments.HandleCallback(ctx, callback), domain.ErrInvalidSignature)
}

func TestHandleCallbackAmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)

	callback := signedCallback(payment, CallbackStatusSuccess)
	callback.Amount = "1.00"
	callback.Signature = ComputeCallbackSignature([]byte(testWebhookSecret),
		callback.OrderID, callback.GatewayPaymentID, callback.Status, callback.Amount)
	assert.ErrorIs(t, f.payments.HandleCallback(ctx, callback), domain.ErrPaymentMismatch)
}

func TestHandleCallbackFailed(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)

	callback := signedCallback(payment, CallbackStatusFailed)
	callback.FailureCode = "DECLINED"
	callback.FailureReason = "card declined"
	require.NoError(t, f.payments.HandleCallback(ctx, callback))

	stored, err := f.repo.GetByOrderID(ctx, payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusFailed, stored.Status)
	assert.Equal(t, "DECLINED", stored.FailureCode)

	// the booking keeps waiting for a retry until the hold window closes
	pending, err := f.service.GetBooking(ctx, booking.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", pending.Status)
}

func TestHandleCallbackExpiredBooking(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, &BookingServiceConfig{HoldTTL: 50 * time.Millisecond})
	booking := f.initiateBooking(t, 101, 11)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	// the capture succeeded but the booking can no longer confirm
	err = f.payments.HandleCallback(ctx, signedCallback(payment, CallbackStatusSuccess))
	assert.ErrorIs(t, err, domain.ErrBookingExpired)

	stored, err := f.repo.GetByOrderID(ctx, payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusSuccess, stored.Status, "capture is recorded even when confirm fails")

	expired, err := f.service.GetBooking(ctx, booking.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", expired.Status)
}

func TestGetBookingPayment(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)

	// nothing settled yet
	_, err = f.payments.GetBookingPayment(ctx, booking.ID, 101)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	require.NoError(t, f.payments.HandleCallback(ctx, signedCallback(payment, CallbackStatusSuccess)))

	got, err := f.payments.GetBookingPayment(ctx, booking.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, payment.OrderID, got.OrderID)
	assert.Equal(t, "SUCCESS", got.Status)

	_, err = f.payments.GetBookingPayment(ctx, booking.ID, 202)
	assert.ErrorIs(t, err, domain.ErrNotPaymentOwner)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)
	require.NoError(t, f.payments.HandleCallback(ctx, signedCallback(payment, CallbackStatusSuccess)))

	refund, err := f.payments.Refund(ctx, 101, &dto.RefundRequest{
		BookingID: booking.ID,
		Amount:    "100.00",
		Reason:    "goodwill",
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", refund.Status)
	assert.Equal(t, "100.00", refund.Amount)

	// cumulative refunds cannot exceed the captured amount
	_, err = f.payments.Refund(ctx, 101, &dto.RefundRequest{
		BookingID: booking.ID,
		Amount:    payment.Amount,
	})
	assert.ErrorIs(t, err, domain.ErrRefundExceedsPayment)
}

func TestRefundNotOwner(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)
	booking := f.initiateBooking(t, 101, 11)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "UPI",
	}, "idem-1")
	require.NoError(t, err)
	require.NoError(t, f.payments.HandleCallback(ctx, signedCallback(payment, CallbackStatusSuccess)))

	_, err = f.payments.Refund(ctx, 202, &dto.RefundRequest{
		BookingID: booking.ID,
		Amount:    "50.00",
	})
	assert.ErrorIs(t, err, domain.ErrNotPaymentOwner)
}

// Full lifecycle: lock, price, pay, confirm, then a contender is rejected
func TestEndToEndBookingFlow(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, nil)

	booking := f.initiateBooking(t, 101, 11, 12)
	assert.Equal(t, "400.00", booking.TotalAmount)
	assert.Equal(t, "20.00", booking.ConvenienceFee)
	assert.Equal(t, "75.60", booking.TaxAmount)
	assert.Equal(t, "495.60", booking.FinalAmount)

	payment, err := f.payments.InitiatePayment(ctx, 101, &dto.InitiatePaymentRequest{
		BookingID: booking.ID, Method: "CREDIT_CARD",
	}, "idem-e2e")
	require.NoError(t, err)
	assert.Equal(t, "495.60", payment.Amount)

	require.NoError(t, f.payments.HandleCallback(ctx, signedCallback(payment, CallbackStatusSuccess)))

	confirmed, err := f.service.GetBooking(ctx, booking.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
	assert.Len(t, confirmed.Tickets, 2)
	assert.True(t, decimal.RequireFromString(confirmed.FinalAmount).Equal(decimal.RequireFromString("495.60")))

	// a second user cannot take seat 11: booking-owned seats are excluded
	// from availability even though the lock is gone
	_, err = f.service.InitiateBooking(ctx, 202, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	assert.ErrorIs(t, err, domain.ErrSeatNotAvailable)
}
