package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

const pgUniqueViolationCode = "23505"

// PostgresBookingRepository implements BookingRepository using PostgreSQL
// with pgxpool. Monetary columns are NUMERIC and travel as fixed-point
// strings to keep decimal arithmetic exact end to end.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// Create persists the booking and its seat assignments in one transaction
func (r *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_number", booking.BookingNumber),
		attribute.Int64("user_id", booking.UserID),
		attribute.Int64("show_id", booking.ShowID),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO bookings (
			booking_number, user_id, show_id,
			total_amount, convenience_fee, tax_amount, discount_amount, final_amount,
			status, payment_status, expires_at, version, created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11, 1, $12, $13
		)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		booking.BookingNumber,
		booking.UserID,
		booking.ShowID,
		booking.TotalAmount.StringFixed(2),
		booking.ConvenienceFee.StringFixed(2),
		booking.TaxAmount.StringFixed(2),
		booking.DiscountAmount.StringFixed(2),
		booking.FinalAmount.StringFixed(2),
		booking.Status.String(),
		string(booking.PaymentStatus),
		booking.ExpiresAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Scan(&booking.ID)
	if err != nil {
		// The partial unique index on (user_id, show_id) for active rows
		// catches concurrent initiations that raced past the existence check
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			span.SetStatus(codes.Error, "duplicate active booking")
			return domain.ErrBookingExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create booking: %w", err)
	}
	booking.Version = 1

	seatQuery := `
		INSERT INTO booked_seats (booking_id, show_id, seat_id, seat_label, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for _, seat := range booking.Seats {
		seat.BookingID = booking.ID
		err = tx.QueryRow(ctx, seatQuery,
			booking.ID,
			seat.ShowID,
			seat.SeatID,
			seat.SeatLabel,
			seat.Price.StringFixed(2),
		).Scan(&seat.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to create booked seat: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

const bookingColumns = `
	id, booking_number, user_id, show_id,
	total_amount, convenience_fee, tax_amount, discount_amount, final_amount,
	status, payment_status,
	booked_at, expires_at, cancelled_at, cancellation_reason,
	version, created_at, updated_at
`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var (
		total, fee, tax, discount, final string
		status, paymentStatus            string
		cancellationReason               *string
	)

	err := row.Scan(
		&booking.ID,
		&booking.BookingNumber,
		&booking.UserID,
		&booking.ShowID,
		&total,
		&fee,
		&tax,
		&discount,
		&final,
		&status,
		&paymentStatus,
		&booking.BookedAt,
		&booking.ExpiresAt,
		&booking.CancelledAt,
		&cancellationReason,
		&booking.Version,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.Status = domain.BookingStatus(status)
	booking.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if cancellationReason != nil {
		booking.CancellationReason = *cancellationReason
	}

	if booking.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total_amount: %w", err)
	}
	if booking.ConvenienceFee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("invalid convenience_fee: %w", err)
	}
	if booking.TaxAmount, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("invalid tax_amount: %w", err)
	}
	if booking.DiscountAmount, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("invalid discount_amount: %w", err)
	}
	if booking.FinalAmount, err = decimal.NewFromString(final); err != nil {
		return nil, fmt.Errorf("invalid final_amount: %w", err)
	}
	return booking, nil
}

func (r *PostgresBookingRepository) loadChildren(ctx context.Context, booking *domain.Booking) error {
	seatRows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, show_id, seat_id, seat_label, price
		FROM booked_seats
		WHERE booking_id = $1
		ORDER BY id
	`, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to load booked seats: %w", err)
	}
	defer seatRows.Close()

	for seatRows.Next() {
		seat := &domain.BookedSeat{}
		var price string
		if err := seatRows.Scan(&seat.ID, &seat.BookingID, &seat.ShowID, &seat.SeatID, &seat.SeatLabel, &price); err != nil {
			return fmt.Errorf("failed to scan booked seat: %w", err)
		}
		if seat.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("invalid seat price: %w", err)
		}
		booking.Seats = append(booking.Seats, seat)
	}
	if err := seatRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate booked seats: %w", err)
	}

	ticketRows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, ticket_number, seat_label, qr_payload, status, scanned_at, created_at
		FROM tickets
		WHERE booking_id = $1
		ORDER BY id
	`, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to load tickets: %w", err)
	}
	defer ticketRows.Close()

	for ticketRows.Next() {
		ticket := &domain.Ticket{}
		var status string
		if err := ticketRows.Scan(&ticket.ID, &ticket.BookingID, &ticket.TicketNumber, &ticket.SeatLabel,
			&ticket.QRPayload, &status, &ticket.ScannedAt, &ticket.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan ticket: %w", err)
		}
		ticket.Status = domain.TicketStatus(status)
		booking.Tickets = append(booking.Tickets, ticket)
	}
	if err := ticketRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return nil
}

// GetByID retrieves a booking with its seats and tickets
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("booking_id", id))

	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.loadChildren(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetByNumber retrieves a booking by its booking number
func (r *PostgresBookingRepository) GetByNumber(ctx context.Context, bookingNumber string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_number")
	defer span.End()

	span.SetAttributes(attribute.String("booking_number", bookingNumber))

	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_number = $1`, bookingNumber)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.loadChildren(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetByUserID retrieves bookings for a user, newest first
func (r *PostgresBookingRepository) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_user_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}

	for _, booking := range bookings {
		if err := r.loadChildren(ctx, booking); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// HasActiveBooking reports whether the user already holds a PENDING or
// CONFIRMED booking for the show
func (r *PostgresBookingRepository) HasActiveBooking(ctx context.Context, userID, showID int64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.has_active")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("show_id", showID),
	)

	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND show_id = $2 AND status IN ('PENDING', 'CONFIRMED')
		)
	`, userID, showID).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check active booking: %w", err)
	}

	span.SetAttributes(attribute.Bool("exists", exists))
	span.SetStatus(codes.Ok, "")
	return exists, nil
}

// Update persists a transition guarded by the stored version and inserts any
// tickets attached since the last read
func (r *PostgresBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("booking_id", booking.ID),
		attribute.String("status", booking.Status.String()),
		attribute.Int("version", booking.Version),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE bookings SET
			status = $1, payment_status = $2,
			booked_at = $3, expires_at = $4, cancelled_at = $5, cancellation_reason = $6,
			version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9
	`,
		booking.Status.String(),
		string(booking.PaymentStatus),
		booking.BookedAt,
		booking.ExpiresAt,
		booking.CancelledAt,
		nullIfEmpty(booking.CancellationReason),
		booking.UpdatedAt,
		booking.ID,
		booking.Version,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "version conflict")
		return domain.ErrConcurrentUpdate
	}

	ticketInsert := `
		INSERT INTO tickets (booking_id, ticket_number, seat_label, qr_payload, status, scanned_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	ticketUpdate := `
		UPDATE tickets SET status = $1, scanned_at = $2 WHERE id = $3
	`
	for _, ticket := range booking.Tickets {
		if ticket.ID == 0 {
			ticket.BookingID = booking.ID
			err = tx.QueryRow(ctx, ticketInsert,
				booking.ID,
				ticket.TicketNumber,
				ticket.SeatLabel,
				ticket.QRPayload,
				string(ticket.Status),
				ticket.ScannedAt,
				ticket.CreatedAt,
			).Scan(&ticket.ID)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return fmt.Errorf("failed to create ticket: %w", err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, ticketUpdate, string(ticket.Status), ticket.ScannedAt, ticket.ID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to update ticket: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit booking update: %w", err)
	}

	booking.Version++
	span.SetStatus(codes.Ok, "")
	return nil
}

// ListExpired returns PENDING bookings whose hold window passed before cutoff
func (r *PostgresBookingRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_expired")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3
	`, domain.BookingStatusPending.String(), cutoff, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list expired bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate expired bookings: %w", err)
	}

	for _, booking := range bookings {
		if err := r.loadChildren(ctx, booking); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// ListBookedSeatIDs returns seat ids held by PENDING or CONFIRMED bookings
func (r *PostgresBookingRepository) ListBookedSeatIDs(ctx context.Context, showID int64) ([]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_booked_seat_ids")
	defer span.End()

	span.SetAttributes(attribute.Int64("show_id", showID))

	rows, err := r.pool.Query(ctx, `
		SELECT bs.seat_id
		FROM booked_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE bs.show_id = $1 AND b.status IN ($2, $3)
	`, showID, domain.BookingStatusPending.String(), domain.BookingStatusConfirmed.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list booked seats: %w", err)
	}
	defer rows.Close()

	var seatIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan seat id: %w", err)
		}
		seatIDs = append(seatIDs, id)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate booked seats: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(seatIDs)))
	span.SetStatus(codes.Ok, "")
	return seatIDs, nil
}

// GetTicketByNumber retrieves a ticket by its ticket number
func (r *PostgresBookingRepository) GetTicketByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_ticket_by_number")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_number", ticketNumber))

	ticket := &domain.Ticket{}
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, booking_id, ticket_number, seat_label, qr_payload, status, scanned_at, created_at
		FROM tickets
		WHERE ticket_number = $1
	`, ticketNumber).Scan(
		&ticket.ID, &ticket.BookingID, &ticket.TicketNumber, &ticket.SeatLabel,
		&ticket.QRPayload, &status, &ticket.ScannedAt, &ticket.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTicketNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	ticket.Status = domain.TicketStatus(status)

	span.SetStatus(codes.Ok, "")
	return ticket, nil
}

// UpdateTicket persists a ticket transition
func (r *PostgresBookingRepository) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update_ticket")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_number", ticket.TicketNumber))

	tag, err := r.pool.Exec(ctx, `
		UPDATE tickets SET status = $1, scanned_at = $2 WHERE id = $3
	`, string(ticket.Status), ticket.ScannedAt, ticket.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrTicketNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
