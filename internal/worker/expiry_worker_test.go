package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnisamohammad/cinehub-backend/internal/dto"
)

// mockBookingService implements the slice of service.BookingService the
// worker touches
type mockBookingService struct {
	expireFn func(ctx context.Context, limit int) (int, error)
	calls    atomic.Int32
}

func (m *mockBookingService) ExpireDueBookings(ctx context.Context, limit int) (int, error) {
	m.calls.Add(1)
	if m.expireFn != nil {
		return m.expireFn(ctx, limit)
	}
	return 0, nil
}

func (m *mockBookingService) InitiateBooking(ctx context.Context, userID int64, req *dto.InitiateBookingRequest) (*dto.BookingResponse, error) {
	return nil, nil
}
func (m *mockBookingService) ConfirmBooking(ctx context.Context, bookingID int64, paidAmount decimal.Decimal) error {
	return nil
}
func (m *mockBookingService) CancelBooking(ctx context.Context, bookingID, userID int64, reason string) (*dto.BookingResponse, error) {
	return nil, nil
}
func (m *mockBookingService) GetBooking(ctx context.Context, bookingID, userID int64) (*dto.BookingResponse, error) {
	return nil, nil
}
func (m *mockBookingService) GetBookingByNumber(ctx context.Context, bookingNumber string, userID int64) (*dto.BookingResponse, error) {
	return nil, nil
}
func (m *mockBookingService) GetUserBookings(ctx context.Context, userID int64, page, pageSize int) (*dto.PaginatedResponse, error) {
	return nil, nil
}
func (m *mockBookingService) GetAvailableSeats(ctx context.Context, showID int64) (*dto.SeatAvailabilityResponse, error) {
	return nil, nil
}
func (m *mockBookingService) GetTicket(ctx context.Context, ticketNumber string, userID int64) (*dto.TicketResponse, error) {
	return nil, nil
}
func (m *mockBookingService) ScanTicket(ctx context.Context, ticketNumber string) (*dto.TicketScanResponse, error) {
	return nil, nil
}
func (m *mockBookingService) TicketQR(ctx context.Context, ticketNumber string, size int) ([]byte, error) {
	return nil, nil
}

func TestExpiryWorkerSweep(t *testing.T) {
	mock := &mockBookingService{
		expireFn: func(ctx context.Context, limit int) (int, error) {
			assert.Equal(t, 25, limit)
			return 3, nil
		},
	}

	worker, err := NewExpiryWorker(mock, &ExpiryWorkerConfig{
		Interval:  time.Hour,
		BatchSize: 25,
	})
	require.NoError(t, err)

	expired, err := worker.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, expired)
}

func TestExpiryWorkerSchedules(t *testing.T) {
	mock := &mockBookingService{}

	worker, err := NewExpiryWorker(mock, &ExpiryWorkerConfig{
		Interval:  10 * time.Millisecond,
		BatchSize: 10,
	})
	require.NoError(t, err)

	require.NoError(t, worker.Start())

	assert.Eventually(t, func() bool {
		return mock.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond, "sweep should run on every tick")

	require.NoError(t, worker.Stop())
}

func TestExpiryWorkerDefaults(t *testing.T) {
	worker, err := NewExpiryWorker(&mockBookingService{}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, worker.interval)
	assert.Equal(t, 100, worker.batchSize)
}
