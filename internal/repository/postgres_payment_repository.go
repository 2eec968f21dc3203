package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
// with pgxpool
type PostgresPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentRepository creates a new PostgresPaymentRepository
func NewPostgresPaymentRepository(pool *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

// Create creates a new payment record. The unique index on idempotency_key
// is the last line of defense against concurrent duplicate initiations.
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("booking_id", payment.BookingID),
		attribute.String("order_id", payment.OrderID),
	)

	query := `
		INSERT INTO payments (
			booking_id, user_id, order_id, idempotency_key,
			amount, currency, method, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		payment.BookingID,
		payment.UserID,
		payment.OrderID,
		nullIfEmpty(payment.IdempotencyKey),
		payment.Amount.StringFixed(2),
		payment.Currency,
		string(payment.Method),
		string(payment.Status),
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			span.SetStatus(codes.Error, "duplicate payment")
			return domain.ErrConcurrentUpdate
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create payment: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

const paymentColumns = `
	id, booking_id, user_id, order_id, gateway_payment_id, idempotency_key,
	amount, currency, method, status, signature,
	failure_code, failure_reason, paid_at, created_at, updated_at
`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	payment := &domain.Payment{}
	var (
		amount                           string
		method, status                   string
		gatewayPaymentID, idempotencyKey *string
		signature, failCode, failReason  *string
	)

	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.UserID,
		&payment.OrderID,
		&gatewayPaymentID,
		&idempotencyKey,
		&amount,
		&payment.Currency,
		&method,
		&status,
		&signature,
		&failCode,
		&failReason,
		&payment.PaidAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.Method = domain.PaymentMethod(method)
	payment.Status = domain.PaymentGatewayStatus(status)
	if gatewayPaymentID != nil {
		payment.GatewayPaymentID = *gatewayPaymentID
	}
	if idempotencyKey != nil {
		payment.IdempotencyKey = *idempotencyKey
	}
	if signature != nil {
		payment.Signature = *signature
	}
	if failCode != nil {
		payment.FailureCode = *failCode
	}
	if failReason != nil {
		payment.FailureReason = *failReason
	}

	if payment.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	return payment, nil
}

func (r *PostgresPaymentRepository) loadRefunds(ctx context.Context, payment *domain.Payment) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, payment_id, refund_reference, amount, reason, status, processed_at, created_at
		FROM refunds
		WHERE payment_id = $1
		ORDER BY id
	`, payment.ID)
	if err != nil {
		return fmt.Errorf("failed to load refunds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		refund := &domain.Refund{}
		var amount, status string
		if err := rows.Scan(&refund.ID, &refund.PaymentID, &refund.RefundReference,
			&amount, &refund.Reason, &status, &refund.ProcessedAt, &refund.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan refund: %w", err)
		}
		refund.Status = domain.RefundStatus(status)
		if refund.Amount, err = decimal.NewFromString(amount); err != nil {
			return fmt.Errorf("invalid refund amount: %w", err)
		}
		payment.Refunds = append(payment.Refunds, refund)
	}
	return rows.Err()
}

func (r *PostgresPaymentRepository) getBy(ctx context.Context, span string, where string, arg any) (*domain.Payment, error) {
	ctx, sp := telemetry.StartSpan(ctx, span)
	defer sp.End()

	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE `+where, arg)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			sp.SetStatus(codes.Error, "not found")
			return nil, domain.ErrPaymentNotFound
		}
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if err := r.loadRefunds(ctx, payment); err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sp.SetStatus(codes.Ok, "")
	return payment, nil
}

// GetByID retrieves a payment by its ID
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.getBy(ctx, "repo.postgres.payment.get_by_id", "id = $1", id)
}

// GetByOrderID retrieves a payment by gateway order reference
func (r *PostgresPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.getBy(ctx, "repo.postgres.payment.get_by_order_id", "order_id = $1", orderID)
}

// GetByIdempotencyKey retrieves a payment by idempotency key
func (r *PostgresPaymentRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Payment, error) {
	return r.getBy(ctx, "repo.postgres.payment.get_by_idempotency_key", "idempotency_key = $1", idempotencyKey)
}

// GetSuccessfulByBookingID retrieves the captured payment for a booking
func (r *PostgresPaymentRepository) GetSuccessfulByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.get_successful_by_booking_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("booking_id", bookingID))

	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE booking_id = $1 AND status IN ($2, $3, $4)
		ORDER BY id DESC
		LIMIT 1
	`, bookingID,
		string(domain.GatewayStatusSuccess),
		string(domain.GatewayStatusRefundInitiated),
		string(domain.GatewayStatusRefunded),
	)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrPaymentNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if err := r.loadRefunds(ctx, payment); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return payment, nil
}

// Update updates an existing payment and inserts any new refunds
func (r *PostgresPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("payment_id", payment.ID),
		attribute.String("status", string(payment.Status)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE payments SET
			gateway_payment_id = $1, status = $2, signature = $3,
			failure_code = $4, failure_reason = $5, paid_at = $6, updated_at = $7
		WHERE id = $8
	`,
		nullIfEmpty(payment.GatewayPaymentID),
		string(payment.Status),
		nullIfEmpty(payment.Signature),
		nullIfEmpty(payment.FailureCode),
		nullIfEmpty(payment.FailureReason),
		payment.PaidAt,
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrPaymentNotFound
	}

	refundInsert := `
		INSERT INTO refunds (payment_id, refund_reference, amount, reason, status, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	refundUpdate := `
		UPDATE refunds SET status = $1, processed_at = $2 WHERE id = $3
	`
	for _, refund := range payment.Refunds {
		if refund.ID == 0 {
			refund.PaymentID = payment.ID
			err = tx.QueryRow(ctx, refundInsert,
				payment.ID,
				refund.RefundReference,
				refund.Amount.StringFixed(2),
				refund.Reason,
				string(refund.Status),
				refund.ProcessedAt,
				refund.CreatedAt,
			).Scan(&refund.ID)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return fmt.Errorf("failed to create refund: %w", err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, refundUpdate, string(refund.Status), refund.ProcessedAt, refund.ID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to update refund: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit payment update: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
