package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/internal/dto"
	"github.com/unnisamohammad/cinehub-backend/internal/metrics"
	"github.com/unnisamohammad/cinehub-backend/internal/repository"
	"github.com/unnisamohammad/cinehub-backend/pkg/logger"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

// Gateway callback status values
const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusFailed  = "FAILED"
)

// PaymentService defines the interface for payment coordination
type PaymentService interface {
	// InitiatePayment opens a gateway payment attempt for a PENDING
	// booking. Calls replaying an idempotency key return the original
	// payment instead of creating a second one.
	InitiatePayment(ctx context.Context, userID int64, req *dto.InitiatePaymentRequest, idempotencyKey string) (*dto.PaymentResponse, error)

	// HandleCallback reconciles a gateway webhook: verifies the signature,
	// settles the payment and, on capture, confirms the booking
	HandleCallback(ctx context.Context, req *dto.PaymentCallbackRequest) error

	// Refund opens a refund against the booking's captured payment
	Refund(ctx context.Context, userID int64, req *dto.RefundRequest) (*dto.RefundResponse, error)

	// GetPayment retrieves a payment owned by the requester
	GetPayment(ctx context.Context, paymentID, userID int64) (*dto.PaymentResponse, error)

	// GetBookingPayment retrieves the settled payment of a booking owned by
	// the requester
	GetBookingPayment(ctx context.Context, bookingID, userID int64) (*dto.PaymentResponse, error)
}

// PaymentServiceConfig contains configuration for the payment service
type PaymentServiceConfig struct {
	WebhookSecret string
}

// paymentService implements PaymentService
type paymentService struct {
	paymentRepo    repository.PaymentRepository
	bookingRepo    repository.BookingRepository
	bookingService BookingService
	publisher      EventPublisher
	webhookSecret  []byte
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	bookingRepo repository.BookingRepository,
	bookingService BookingService,
	publisher EventPublisher,
	cfg *PaymentServiceConfig,
) PaymentService {
	secret := ""
	if cfg != nil {
		secret = cfg.WebhookSecret
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &paymentService{
		paymentRepo:    paymentRepo,
		bookingRepo:    bookingRepo,
		bookingService: bookingService,
		publisher:      publisher,
		webhookSecret:  []byte(secret),
	}
}

// InitiatePayment opens a gateway payment attempt for a PENDING booking
func (s *paymentService) InitiatePayment(ctx context.Context, userID int64, req *dto.InitiatePaymentRequest, idempotencyKey string) (*dto.PaymentResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.initiate")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	if idempotencyKey == "" {
		span.SetStatus(codes.Error, "missing idempotency key")
		return nil, domain.ErrMissingIdempotency
	}
	if req == nil || req.BookingID <= 0 {
		span.SetStatus(codes.Error, "invalid booking id")
		return nil, domain.ErrBookingNotFound
	}
	method := domain.PaymentMethod(req.Method)
	if !method.IsValid() {
		span.SetStatus(codes.Error, "invalid method")
		return nil, domain.ErrInvalidPaymentState
	}

	// Replay: the first initiation with this key wins for everyone after
	if existing, err := s.paymentRepo.GetByIdempotencyKey(ctx, idempotencyKey); err == nil {
		if existing.BookingID != req.BookingID || existing.UserID != userID {
			span.SetStatus(codes.Error, "idempotency key reuse")
			return nil, domain.ErrPaymentMismatch
		}
		span.SetAttributes(attribute.Bool("replayed", true))
		span.SetStatus(codes.Ok, "")
		return toPaymentResponse(existing), nil
	} else if !domain.IsNotFoundError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		span.SetStatus(codes.Error, "booking lookup failed")
		return nil, err
	}
	if booking.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrNotBookingOwner
	}
	if booking.Status != domain.BookingStatusPending {
		span.SetStatus(codes.Error, "booking not pending")
		return nil, domain.ErrInvalidBookingState
	}
	if booking.IsExpired(time.Now()) {
		span.SetStatus(codes.Error, "booking expired")
		return nil, domain.ErrBookingExpired
	}

	payment := domain.NewPayment(booking.ID, userID, booking.FinalAmount, method, idempotencyKey)
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		// A concurrent initiation with the same key beat this one
		if domain.IsConflictError(err) {
			if existing, gerr := s.paymentRepo.GetByIdempotencyKey(ctx, idempotencyKey); gerr == nil {
				span.SetAttributes(attribute.Bool("replayed", true))
				span.SetStatus(codes.Ok, "")
				return toPaymentResponse(existing), nil
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Get().Info("payment initiated",
		zap.String("order_id", payment.OrderID),
		zap.Int64("booking_id", booking.ID),
		zap.String("amount", payment.Amount.StringFixed(2)))

	span.SetAttributes(attribute.String("order_id", payment.OrderID))
	span.SetStatus(codes.Ok, "")
	return toPaymentResponse(payment), nil
}

// HandleCallback reconciles a gateway webhook
func (s *paymentService) HandleCallback(ctx context.Context, req *dto.PaymentCallbackRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.handle_callback")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", req.OrderID),
		attribute.String("status", req.Status),
	)

	if !s.verifySignature(req) {
		span.SetStatus(codes.Error, "invalid signature")
		return domain.ErrInvalidSignature
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		span.SetStatus(codes.Error, "invalid amount")
		return domain.ErrInvalidAmount
	}

	payment, err := s.paymentRepo.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		span.SetStatus(codes.Error, "payment lookup failed")
		return err
	}

	// Replayed success callbacks are acknowledged without effect
	if payment.Status == domain.GatewayStatusSuccess && req.Status == CallbackStatusSuccess {
		span.SetAttributes(attribute.Bool("replayed", true))
		span.SetStatus(codes.Ok, "")
		return nil
	}

	now := time.Now()
	switch req.Status {
	case CallbackStatusSuccess:
		if !amount.Equal(payment.Amount) {
			span.SetStatus(codes.Error, "amount mismatch")
			return domain.ErrPaymentMismatch
		}
		if err := payment.MarkSuccess(req.GatewayPaymentID, req.Signature, now); err != nil {
			span.SetStatus(codes.Error, "invalid payment state")
			return err
		}
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if perr := s.publisher.PublishPaymentEvent(ctx, EventPaymentCaptured, payment); perr != nil {
			logger.Get().Warn("failed to publish payment captured event",
				zap.String("order_id", payment.OrderID), zap.Error(perr))
		}
		metrics.PaymentsSucceeded.Inc(ctx)

		if err := s.bookingService.ConfirmBooking(ctx, payment.BookingID, amount); err != nil {
			// Money is captured but the booking could not confirm. The
			// refund decision is manual; surface loudly instead of hiding.
			logger.Get().Error("payment captured but booking confirm failed",
				zap.String("order_id", payment.OrderID),
				zap.Int64("booking_id", payment.BookingID),
				zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

	case CallbackStatusFailed:
		if err := payment.MarkFailed(req.FailureCode, req.FailureReason, now); err != nil {
			span.SetStatus(codes.Error, "invalid payment state")
			return err
		}
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if perr := s.publisher.PublishPaymentEvent(ctx, EventPaymentFailed, payment); perr != nil {
			logger.Get().Warn("failed to publish payment failed event",
				zap.String("order_id", payment.OrderID), zap.Error(perr))
		}
		logger.Get().Info("payment failed",
			zap.String("order_id", payment.OrderID),
			zap.String("failure_code", payment.FailureCode))
		metrics.PaymentsFailed.Inc(ctx)

	default:
		span.SetStatus(codes.Error, "unknown callback status")
		return fmt.Errorf("unknown callback status %q", req.Status)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Refund opens a refund against the booking's captured payment
func (s *paymentService) Refund(ctx context.Context, userID int64, req *dto.RefundRequest) (*dto.RefundResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.refund")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("booking_id", req.BookingID),
	)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, domain.ErrInvalidAmount
	}

	payment, err := s.paymentRepo.GetSuccessfulByBookingID(ctx, req.BookingID)
	if err != nil {
		span.SetStatus(codes.Error, "payment lookup failed")
		return nil, err
	}
	if payment.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrNotPaymentOwner
	}

	refund, err := payment.InitiateRefund(amount, req.Reason, time.Now())
	if err != nil {
		span.SetStatus(codes.Error, "refund rejected")
		return nil, err
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Get().Info("refund initiated",
		zap.String("refund_reference", refund.RefundReference),
		zap.String("order_id", payment.OrderID),
		zap.String("amount", refund.Amount.StringFixed(2)))

	span.SetStatus(codes.Ok, "")
	return &dto.RefundResponse{
		RefundReference: refund.RefundReference,
		PaymentID:       payment.ID,
		Amount:          refund.Amount.StringFixed(2),
		Status:          string(refund.Status),
	}, nil
}

// GetPayment retrieves a payment owned by the requester
func (s *paymentService) GetPayment(ctx context.Context, paymentID, userID int64) (*dto.PaymentResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.get")
	defer span.End()

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}
	if payment.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrNotPaymentOwner
	}

	span.SetStatus(codes.Ok, "")
	return toPaymentResponse(payment), nil
}

// GetBookingPayment retrieves the settled payment of a booking owned by the
// requester
func (s *paymentService) GetBookingPayment(ctx context.Context, bookingID, userID int64) (*dto.PaymentResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.get_by_booking")
	defer span.End()

	span.SetAttributes(attribute.Int64("booking_id", bookingID))

	payment, err := s.paymentRepo.GetSuccessfulByBookingID(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}
	if payment.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrNotPaymentOwner
	}

	span.SetStatus(codes.Ok, "")
	return toPaymentResponse(payment), nil
}

// verifySignature checks the HMAC-SHA256 signature the gateway computes over
// the callback identity fields
func (s *paymentService) verifySignature(req *dto.PaymentCallbackRequest) bool {
	expected := ComputeCallbackSignature(s.webhookSecret, req.OrderID, req.GatewayPaymentID, req.Status, req.Amount)
	return hmac.Equal([]byte(expected), []byte(req.Signature))
}

// ComputeCallbackSignature derives the webhook signature for a callback.
// Exported for gateway simulators and tests.
func ComputeCallbackSignature(secret []byte, orderID, gatewayPaymentID, status, amount string) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s|%s|%s|%s", orderID, gatewayPaymentID, status, amount)
	return hex.EncodeToString(mac.Sum(nil))
}

func toPaymentResponse(payment *domain.Payment) *dto.PaymentResponse {
	return &dto.PaymentResponse{
		ID:        payment.ID,
		BookingID: payment.BookingID,
		OrderID:   payment.OrderID,
		Amount:    payment.Amount.StringFixed(2),
		Currency:  payment.Currency,
		Method:    string(payment.Method),
		Status:    string(payment.Status),
	}
}
