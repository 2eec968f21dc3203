package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/internal/dto"
	"github.com/unnisamohammad/cinehub-backend/internal/pricing"
	"github.com/unnisamohammad/cinehub-backend/internal/repository"
)

type bookingFixture struct {
	service     BookingService
	bookingRepo *repository.MemoryBookingRepository
	lockRepo    *repository.MemorySeatLockRepository
	catalogRepo *repository.MemoryCatalogRepository
	userRepo    *repository.MemoryUserRepository
}

func newBookingFixture(t *testing.T, cfg *BookingServiceConfig) *bookingFixture {
	t.Helper()

	catalogRepo := repository.NewMemoryCatalogRepository()
	catalogRepo.AddShow(&domain.Show{
		ID:         1,
		EventTitle: "Interstellar",
		VenueName:  "Galaxy Cinemas",
		ScreenName: "Screen 2",
		ShowDate:   time.Now().Add(48 * time.Hour).Truncate(24 * time.Hour),
		StartTime:  time.Now().Add(48 * time.Hour),
		EndTime:    time.Now().Add(51 * time.Hour),
		BasePrice:  decimal.NewFromInt(200),
		Status:     domain.ShowStatusOnSale,
	})
	for i, label := range []string{"A1", "A2", "A3", "A4", "A5"} {
		catalogRepo.AddSeat(&domain.Seat{
			ID:     int64(i + 11),
			ShowID: 1,
			Label:  label,
			Type:   domain.SeatTypeRegular,
			Price:  decimal.NewFromInt(200),
		})
	}

	userRepo := repository.NewMemoryUserRepository()
	userRepo.AddUser(&domain.User{ID: 101, Email: "asha@example.com", Status: domain.UserStatusActive})
	userRepo.AddUser(&domain.User{ID: 202, Email: "ravi@example.com", Status: domain.UserStatusActive})
	userRepo.AddUser(&domain.User{ID: 303, Email: "blocked@example.com", Status: domain.UserStatusBlocked})

	bookingRepo := repository.NewMemoryBookingRepository()
	lockRepo := repository.NewMemorySeatLockRepository()

	svc := NewBookingService(
		bookingRepo, lockRepo, catalogRepo, userRepo,
		pricing.NewCalculator(pricing.DefaultConfig()),
		NewNoOpEventPublisher(),
		cfg,
	)

	return &bookingFixture{
		service:     svc,
		bookingRepo: bookingRepo,
		lockRepo:    lockRepo,
		catalogRepo: catalogRepo,
		userRepo:    userRepo,
	}
}

func TestInitiateBooking(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12},
	})
	require.NoError(t, err)

	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "400.00", resp.TotalAmount)
	assert.Equal(t, "20.00", resp.ConvenienceFee)
	assert.Equal(t, "75.60", resp.TaxAmount)
	assert.Equal(t, "495.60", resp.FinalAmount)
	assert.Len(t, resp.Seats, 2)
	require.NotNil(t, resp.ExpiresAt)

	// both seats are now locked
	for _, seatID := range []int64{11, 12} {
		available, err := f.lockRepo.IsAvailable(ctx, 1, seatID)
		require.NoError(t, err)
		assert.False(t, available)
	}
}

func TestInitiateBookingValidation(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, &BookingServiceConfig{MaxSeatsPerBooking: 3})

	tests := []struct {
		name    string
		userID  int64
		req     *dto.InitiateBookingRequest
		wantErr error
	}{
		{"no seats", 101, &dto.InitiateBookingRequest{ShowID: 1}, domain.ErrNoSeatsRequested},
		{"too many seats", 101, &dto.InitiateBookingRequest{ShowID: 1, SeatIDs: []int64{11, 12, 13, 14}}, domain.ErrMaxSeatsExceeded},
		{"duplicate seats", 101, &dto.InitiateBookingRequest{ShowID: 1, SeatIDs: []int64{11, 11}}, domain.ErrDuplicateSeats},
		{"unknown show", 101, &dto.InitiateBookingRequest{ShowID: 99, SeatIDs: []int64{11}}, domain.ErrShowNotFound},
		{"unknown seat", 101, &dto.InitiateBookingRequest{ShowID: 1, SeatIDs: []int64{999}}, domain.ErrSeatNotFound},
		{"blocked user", 303, &dto.InitiateBookingRequest{ShowID: 1, SeatIDs: []int64{11}}, domain.ErrUserBlocked},
		{"unknown user", 404, &dto.InitiateBookingRequest{ShowID: 1, SeatIDs: []int64{11}}, domain.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.InitiateBooking(ctx, tt.userID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInitiateBookingPartialRollback(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	// another user already holds seat 13
	ok, err := f.lockRepo.Acquire(ctx, 1, 13, 202, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12, 13},
	})
	assert.ErrorIs(t, err, domain.ErrSeatNotAvailable)

	// the partial acquisition rolled back completely
	owned, err := f.lockRepo.ListOwned(ctx, 1, 101)
	require.NoError(t, err)
	assert.Empty(t, owned)

	// seats 11 and 12 are bookable again
	for _, seatID := range []int64{11, 12} {
		available, err := f.lockRepo.IsAvailable(ctx, 1, seatID)
		require.NoError(t, err)
		assert.True(t, available)
	}
}

// failingBookingRepo wraps the in-memory repository and fails Create on
// demand
type failingBookingRepo struct {
	*repository.MemoryBookingRepository
	createErr error
}

func (r *failingBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryBookingRepository.Create(ctx, booking)
}

func TestInitiateBookingPersistenceFailureReleasesLocks(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	failing := &failingBookingRepo{
		MemoryBookingRepository: f.bookingRepo,
		createErr:               errors.New("connection reset by peer"),
	}
	svc := NewBookingService(
		failing, f.lockRepo, f.catalogRepo, f.userRepo,
		pricing.NewCalculator(pricing.DefaultConfig()),
		NewNoOpEventPublisher(),
		nil,
	)

	_, err := svc.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12},
	})
	require.ErrorIs(t, err, failing.createErr)

	// the locks taken before the write failed were all released
	owned, err := f.lockRepo.ListOwned(ctx, 1, 101)
	require.NoError(t, err)
	assert.Empty(t, owned)

	// and another user can take the seats immediately
	failing.createErr = nil
	_, err = svc.InitiateBooking(ctx, 202, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12},
	})
	require.NoError(t, err)
}

func TestInitiateBookingDuplicateActive(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	first, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12},
	})
	require.NoError(t, err)

	// a second hold on the same show is rejected while the first is PENDING,
	// even for disjoint seats
	_, err = f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{13, 14},
	})
	assert.ErrorIs(t, err, domain.ErrBookingExists)

	// the rejected attempt left no locks behind
	for _, seatID := range []int64{13, 14} {
		available, err := f.lockRepo.IsAvailable(ctx, 1, seatID)
		require.NoError(t, err)
		assert.True(t, available)
	}

	// a CONFIRMED booking blocks the same way
	require.NoError(t, f.service.ConfirmBooking(ctx, first.ID, decimal.RequireFromString(first.FinalAmount)))
	_, err = f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{13},
	})
	assert.ErrorIs(t, err, domain.ErrBookingExists)

	// other users are unaffected
	_, err = f.service.InitiateBooking(ctx, 202, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{13},
	})
	require.NoError(t, err)
}

func TestInitiateBookingAfterCancel(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	_, err = f.service.CancelBooking(ctx, resp.ID, 101, "changed plans")
	require.NoError(t, err)

	// a cancelled booking no longer counts against the one-active limit
	_, err = f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{12},
	})
	require.NoError(t, err)
}

func TestInitiateBookingSeatAlreadyBooked(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 202, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString(resp.FinalAmount)))

	// booked seats stay unavailable even after the lock is released
	_, err = f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	assert.ErrorIs(t, err, domain.ErrSeatNotAvailable)
}

func TestConfirmBooking(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12},
	})
	require.NoError(t, err)

	require.NoError(t, f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString("495.60")))

	confirmed, err := f.service.GetBooking(ctx, resp.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
	assert.Equal(t, "SUCCESS", confirmed.PaymentStatus)
	assert.Nil(t, confirmed.ExpiresAt)
	require.Len(t, confirmed.Tickets, 2)
	for _, ticket := range confirmed.Tickets {
		assert.Equal(t, "VALID", ticket.Status)
		assert.NotEmpty(t, ticket.QRPayload)
	}

	// the advisory locks are spent
	owned, err := f.lockRepo.ListOwned(ctx, 1, 101)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestConfirmBookingTwice(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	amount := decimal.RequireFromString(resp.FinalAmount)

	require.NoError(t, f.service.ConfirmBooking(ctx, resp.ID, amount))
	err = f.service.ConfirmBooking(ctx, resp.ID, amount)
	assert.ErrorIs(t, err, domain.ErrInvalidBookingState)

	// no duplicate tickets from the second attempt
	confirmed, err := f.service.GetBooking(ctx, resp.ID, 101)
	require.NoError(t, err)
	assert.Len(t, confirmed.Tickets, 1)
}

func TestConfirmBookingAmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)

	err = f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString("1.00"))
	assert.ErrorIs(t, err, domain.ErrPaymentMismatch)
}

func TestConfirmExpiredBooking(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, &BookingServiceConfig{HoldTTL: time.Nanosecond})

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	err = f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString(resp.FinalAmount))
	assert.ErrorIs(t, err, domain.ErrBookingExpired)

	expired, err := f.service.GetBooking(ctx, resp.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", expired.Status)

	// the seat is free for the next buyer
	available, err := f.lockRepo.IsAvailable(ctx, 1, 11)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12},
	})
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString(resp.FinalAmount)))

	cancelled, err := f.service.CancelBooking(ctx, resp.ID, 101, "plans changed")
	require.NoError(t, err)

	assert.Equal(t, "CANCELLED", cancelled.Status)
	require.Len(t, cancelled.Tickets, 2)
	for _, ticket := range cancelled.Tickets {
		assert.Equal(t, "CANCELLED", ticket.Status)
	}

	// the seats can be booked again
	_, err = f.service.InitiateBooking(ctx, 202, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12},
	})
	assert.NoError(t, err)
}

func TestCancelBookingNotOwner(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)

	_, err = f.service.CancelBooking(ctx, resp.ID, 202, "not mine")
	assert.ErrorIs(t, err, domain.ErrNotBookingOwner)
}

func TestExpireDueBookings(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, &BookingServiceConfig{HoldTTL: time.Nanosecond})

	first, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	second, err := f.service.InitiateBooking(ctx, 202, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{12},
	})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	expired, err := f.service.ExpireDueBookings(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	for _, id := range []int64{first.ID, second.ID} {
		booking, err := f.bookingRepo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusExpired, booking.Status)
	}

	// a second sweep finds nothing
	expired, err = f.service.ExpireDueBookings(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestGetAvailableSeats(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	// seat 11 owned by a confirmed booking, seat 13 locked by another user
	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString(resp.FinalAmount)))

	ok, err := f.lockRepo.Acquire(ctx, 1, 13, 202, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	availability, err := f.service.GetAvailableSeats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, availability.Seats, 5)

	byID := make(map[int64]bool)
	for _, seat := range availability.Seats {
		byID[seat.SeatID] = seat.Available
	}
	assert.False(t, byID[11], "booked seat must be unavailable")
	assert.True(t, byID[12])
	assert.False(t, byID[13], "locked seat must be unavailable")
	assert.True(t, byID[14])
	assert.True(t, byID[15])
}

func TestScanTicket(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString(resp.FinalAmount)))

	confirmed, err := f.service.GetBooking(ctx, resp.ID, 101)
	require.NoError(t, err)
	ticketNumber := confirmed.Tickets[0].TicketNumber

	scan, err := f.service.ScanTicket(ctx, ticketNumber)
	require.NoError(t, err)
	assert.Equal(t, "USED", scan.Status)
	assert.NotNil(t, scan.ScannedAt)

	// a second scan is rejected
	_, err = f.service.ScanTicket(ctx, ticketNumber)
	assert.ErrorIs(t, err, domain.ErrTicketNotValid)
}

func TestGetTicket(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString(resp.FinalAmount)))

	confirmed, err := f.service.GetBooking(ctx, resp.ID, 101)
	require.NoError(t, err)
	ticketNumber := confirmed.Tickets[0].TicketNumber

	ticket, err := f.service.GetTicket(ctx, ticketNumber, 101)
	require.NoError(t, err)
	assert.Equal(t, "A1", ticket.SeatLabel)
	assert.Equal(t, "VALID", ticket.Status)
	assert.NotEmpty(t, ticket.QRPayload)

	_, err = f.service.GetTicket(ctx, ticketNumber, 202)
	assert.ErrorIs(t, err, domain.ErrNotBookingOwner)

	_, err = f.service.GetTicket(ctx, "TKTMISSING", 101)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestTicketQR(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmBooking(ctx, resp.ID, decimal.RequireFromString(resp.FinalAmount)))

	confirmed, err := f.service.GetBooking(ctx, resp.ID, 101)
	require.NoError(t, err)
	ticketNumber := confirmed.Tickets[0].TicketNumber

	png, err := f.service.TicketQR(ctx, ticketNumber, 128)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	// used tickets no longer render
	_, err = f.service.ScanTicket(ctx, ticketNumber)
	require.NoError(t, err)
	_, err = f.service.TicketQR(ctx, ticketNumber, 128)
	assert.ErrorIs(t, err, domain.ErrTicketNotValid)

	_, err = f.service.TicketQR(ctx, "TKTMISSING", 128)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestGetUserBookings(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)

	// cancel between initiations: only one booking may be active at a time
	for _, seatID := range []int64{11, 12, 13} {
		resp, err := f.service.InitiateBooking(ctx, 101, &dto.InitiateBookingRequest{
			ShowID:  1,
			SeatIDs: []int64{seatID},
		})
		require.NoError(t, err)
		_, err = f.service.CancelBooking(ctx, resp.ID, 101, "changed seats")
		require.NoError(t, err)
	}

	page, err := f.service.GetUserBookings(ctx, 101, 1, 2)
	require.NoError(t, err)
	items := page.Items.([]*dto.BookingResponse)
	assert.Len(t, items, 2)

	page, err = f.service.GetUserBookings(ctx, 101, 2, 2)
	require.NoError(t, err)
	items = page.Items.([]*dto.BookingResponse)
	assert.Len(t, items, 1)
}
