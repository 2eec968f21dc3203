package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

// PostgresCatalogRepository implements CatalogRepository over the read-only
// catalog tables owned by the catalog system
type PostgresCatalogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalogRepository creates a new PostgresCatalogRepository
func NewPostgresCatalogRepository(pool *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{pool: pool}
}

// GetShow retrieves a show by id
func (r *PostgresCatalogRepository) GetShow(ctx context.Context, showID int64) (*domain.Show, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.get_show")
	defer span.End()

	span.SetAttributes(attribute.Int64("show_id", showID))

	show := &domain.Show{}
	var basePrice, status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_title, venue_name, screen_name,
		       show_date, start_time, end_time, base_price, status,
		       created_at, updated_at
		FROM shows
		WHERE id = $1
	`, showID).Scan(
		&show.ID, &show.EventTitle, &show.VenueName, &show.ScreenName,
		&show.ShowDate, &show.StartTime, &show.EndTime, &basePrice, &status,
		&show.CreatedAt, &show.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrShowNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get show: %w", err)
	}

	show.Status = domain.ShowStatus(status)
	if show.BasePrice, err = decimal.NewFromString(basePrice); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("invalid base price: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return show, nil
}

func scanSeat(rows pgx.Rows) (*domain.Seat, error) {
	seat := &domain.Seat{}
	var price, seatType string
	if err := rows.Scan(&seat.ID, &seat.ShowID, &seat.Label, &seat.RowName,
		&seat.Number, &seatType, &price, &seat.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan seat: %w", err)
	}
	seat.Type = domain.SeatType(seatType)
	var err error
	if seat.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid seat price: %w", err)
	}
	return seat, nil
}

// GetSeats retrieves the given seats of a show. Every requested id must
// resolve or the call fails.
func (r *PostgresCatalogRepository) GetSeats(ctx context.Context, showID int64, seatIDs []int64) ([]*domain.Seat, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.get_seats")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("show_id", showID),
		attribute.Int("requested", len(seatIDs)),
	)

	rows, err := r.pool.Query(ctx, `
		SELECT id, show_id, label, row_name, seat_number, seat_type, price, created_at
		FROM show_seats
		WHERE show_id = $1 AND id = ANY($2)
	`, showID, seatIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*domain.Seat, len(seatIDs))
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		byID[seat.ID] = seat
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate seats: %w", err)
	}

	result := make([]*domain.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, exists := byID[id]
		if !exists {
			span.SetStatus(codes.Error, "seat not found")
			return nil, domain.ErrSeatNotFound
		}
		result = append(result, seat)
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}

// ListSeats retrieves all seats of a show
func (r *PostgresCatalogRepository) ListSeats(ctx context.Context, showID int64) ([]*domain.Seat, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.list_seats")
	defer span.End()

	span.SetAttributes(attribute.Int64("show_id", showID))

	rows, err := r.pool.Query(ctx, `
		SELECT id, show_id, label, row_name, seat_number, seat_type, price, created_at
		FROM show_seats
		WHERE show_id = $1
		ORDER BY row_name, seat_number
	`, showID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	defer rows.Close()

	var seats []*domain.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate seats: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(seats)))
	span.SetStatus(codes.Ok, "")
	return seats, nil
}

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// GetByID retrieves a user by id
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.user.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", id))

	user := &domain.User{}
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, phone, status, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.FullName, &user.Phone, &status,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrUserNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Status = domain.UserStatus(status)

	span.SetStatus(codes.Ok, "")
	return user, nil
}
