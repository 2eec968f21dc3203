package repository

import (
	"context"
	"sync"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
)

// MemoryPaymentRepository implements PaymentRepository using in-memory
// storage. This is useful for testing and development.
type MemoryPaymentRepository struct {
	payments      map[int64]*domain.Payment
	byOrder       map[string]int64
	byIdempotency map[string]int64
	nextID        int64
	mu            sync.RWMutex
}

// NewMemoryPaymentRepository creates a new in-memory payment repository
func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments:      make(map[int64]*domain.Payment),
		byOrder:       make(map[string]int64),
		byIdempotency: make(map[string]int64),
	}
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	c.Refunds = make([]*domain.Refund, len(p.Refunds))
	for i, r := range p.Refunds {
		refund := *r
		c.Refunds[i] = &refund
	}
	return &c
}

// Create creates a new payment record
func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.IdempotencyKey != "" {
		if _, exists := r.byIdempotency[payment.IdempotencyKey]; exists {
			return domain.ErrConcurrentUpdate
		}
	}

	r.nextID++
	payment.ID = r.nextID

	r.payments[payment.ID] = clonePayment(payment)
	r.byOrder[payment.OrderID] = payment.ID
	if payment.IdempotencyKey != "" {
		r.byIdempotency[payment.IdempotencyKey] = payment.ID
	}
	return nil
}

// GetByID retrieves a payment by its ID
func (r *MemoryPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, exists := r.payments[id]
	if !exists {
		return nil, domain.ErrPaymentNotFound
	}
	return clonePayment(payment), nil
}

// GetByOrderID retrieves a payment by gateway order reference
func (r *MemoryPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byOrder[orderID]
	if !exists {
		return nil, domain.ErrPaymentNotFound
	}
	return clonePayment(r.payments[id]), nil
}

// GetByIdempotencyKey retrieves a payment by idempotency key
func (r *MemoryPaymentRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byIdempotency[idempotencyKey]
	if !exists {
		return nil, domain.ErrPaymentNotFound
	}
	return clonePayment(r.payments[id]), nil
}

// GetSuccessfulByBookingID retrieves the captured payment for a booking
func (r *MemoryPaymentRepository) GetSuccessfulByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payments {
		if p.BookingID == bookingID && p.Status != domain.GatewayStatusInitiated &&
			p.Status != domain.GatewayStatusFailed {
			return clonePayment(p), nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

// Update updates an existing payment
func (r *MemoryPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[payment.ID]; !exists {
		return domain.ErrPaymentNotFound
	}

	for i, refund := range payment.Refunds {
		if refund.ID == 0 {
			refund.ID = payment.ID*100 + int64(i)
			refund.PaymentID = payment.ID
		}
	}
	r.payments[payment.ID] = clonePayment(payment)
	return nil
}
