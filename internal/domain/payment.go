package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentGatewayStatus tracks the lifecycle of a gateway payment attempt
type PaymentGatewayStatus string

const (
	GatewayStatusInitiated       PaymentGatewayStatus = "INITIATED"
	GatewayStatusProcessing      PaymentGatewayStatus = "PROCESSING"
	GatewayStatusSuccess         PaymentGatewayStatus = "SUCCESS"
	GatewayStatusFailed          PaymentGatewayStatus = "FAILED"
	GatewayStatusRefundInitiated PaymentGatewayStatus = "REFUND_INITIATED"
	GatewayStatusRefunded        PaymentGatewayStatus = "REFUNDED"
)

// IsTerminal reports whether the gateway attempt can no longer change
// outside of the refund flow.
func (s PaymentGatewayStatus) IsTerminal() bool {
	return s == GatewayStatusSuccess || s == GatewayStatusFailed || s == GatewayStatusRefunded
}

// PaymentMethod is the instrument the customer pays with
type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodNetbanking PaymentMethod = "NETBANKING"
	PaymentMethodWallet     PaymentMethod = "WALLET"
)

// IsValid reports whether the method is one of the supported instruments
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodNetbanking, PaymentMethodWallet:
		return true
	}
	return false
}

// RefundStatus tracks an individual refund request
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "PENDING"
	RefundStatusProcessing RefundStatus = "PROCESSING"
	RefundStatusSuccess    RefundStatus = "SUCCESS"
	RefundStatusFailed     RefundStatus = "FAILED"
)

// Payment is a single gateway payment attempt for a booking. One booking may
// accumulate several FAILED attempts but at most one SUCCESS.
type Payment struct {
	ID               int64
	BookingID        int64
	UserID           int64
	OrderID          string
	GatewayPaymentID string
	IdempotencyKey   string
	Amount           decimal.Decimal
	Currency         string
	Method           PaymentMethod
	Status           PaymentGatewayStatus
	Signature        string
	FailureCode      string
	FailureReason    string
	PaidAt           *time.Time
	Refunds          []*Refund
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Refund is a (possibly partial) reversal against a successful payment
type Refund struct {
	ID              int64
	PaymentID       int64
	RefundReference string
	Amount          decimal.Decimal
	Reason          string
	Status          RefundStatus
	ProcessedAt     *time.Time
	CreatedAt       time.Time
}

// NewPayment opens an INITIATED gateway attempt for the booking
func NewPayment(bookingID, userID int64, amount decimal.Decimal, method PaymentMethod, idempotencyKey string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		BookingID:      bookingID,
		UserID:         userID,
		OrderID:        GenerateOrderID(),
		IdempotencyKey: idempotencyKey,
		Amount:         amount,
		Currency:       "INR",
		Method:         method,
		Status:         GatewayStatusInitiated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// MarkSuccess records a successful gateway callback. Replayed callbacks on an
// already successful payment are accepted without effect.
func (p *Payment) MarkSuccess(gatewayPaymentID, signature string, now time.Time) error {
	if p.Status == GatewayStatusSuccess {
		return nil
	}
	if p.Status.IsTerminal() {
		return ErrInvalidPaymentState
	}
	p.Status = GatewayStatusSuccess
	p.GatewayPaymentID = gatewayPaymentID
	p.Signature = signature
	paid := now.UTC()
	p.PaidAt = &paid
	p.UpdatedAt = paid
	return nil
}

// MarkFailed records a failed gateway callback with the gateway's reason
func (p *Payment) MarkFailed(code, reason string, now time.Time) error {
	if p.Status == GatewayStatusFailed {
		return nil
	}
	if p.Status.IsTerminal() {
		return ErrInvalidPaymentState
	}
	p.Status = GatewayStatusFailed
	p.FailureCode = code
	p.FailureReason = reason
	p.UpdatedAt = now.UTC()
	return nil
}

// RefundedAmount sums all refunds that are not FAILED
func (p *Payment) RefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		if r.Status != RefundStatusFailed {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// InitiateRefund opens a refund for the given amount. The cumulative refunded
// amount can never exceed the captured amount.
func (p *Payment) InitiateRefund(amount decimal.Decimal, reason string, now time.Time) (*Refund, error) {
	if p.Status != GatewayStatusSuccess && p.Status != GatewayStatusRefundInitiated {
		return nil, ErrInvalidPaymentState
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if p.RefundedAmount().Add(amount).GreaterThan(p.Amount) {
		return nil, ErrRefundExceedsPayment
	}
	refund := &Refund{
		PaymentID:       p.ID,
		RefundReference: "rfnd_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Amount:          amount,
		Reason:          reason,
		Status:          RefundStatusPending,
		CreatedAt:       now.UTC(),
	}
	p.Refunds = append(p.Refunds, refund)
	p.Status = GatewayStatusRefundInitiated
	p.UpdatedAt = now.UTC()
	return refund, nil
}

// GenerateOrderID returns a gateway order reference
func GenerateOrderID() string {
	return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
