package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/internal/dto"
	"github.com/unnisamohammad/cinehub-backend/internal/metrics"
	"github.com/unnisamohammad/cinehub-backend/internal/pricing"
	"github.com/unnisamohammad/cinehub-backend/internal/repository"
	"github.com/unnisamohammad/cinehub-backend/pkg/logger"
	"github.com/unnisamohammad/cinehub-backend/pkg/qr"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

// BookingService defines the interface for booking business logic
type BookingService interface {
	// InitiateBooking locks the requested seats and creates a PENDING
	// booking that holds them until the payment window closes
	InitiateBooking(ctx context.Context, userID int64, req *dto.InitiateBookingRequest) (*dto.BookingResponse, error)

	// ConfirmBooking moves a PENDING booking to CONFIRMED after payment
	// capture, issuing one ticket per seat. Invoked by the payment
	// coordinator, never directly by clients.
	ConfirmBooking(ctx context.Context, bookingID int64, paidAmount decimal.Decimal) error

	// CancelBooking cancels a PENDING or CONFIRMED booking owned by the
	// requester
	CancelBooking(ctx context.Context, bookingID, userID int64, reason string) (*dto.BookingResponse, error)

	// GetBooking retrieves a booking owned by the requester
	GetBooking(ctx context.Context, bookingID, userID int64) (*dto.BookingResponse, error)

	// GetBookingByNumber retrieves a booking by its booking number
	GetBookingByNumber(ctx context.Context, bookingNumber string, userID int64) (*dto.BookingResponse, error)

	// GetUserBookings retrieves a page of the requester's bookings
	GetUserBookings(ctx context.Context, userID int64, page, pageSize int) (*dto.PaginatedResponse, error)

	// GetAvailableSeats lists the seats of a show with availability. A seat
	// is unavailable when a live lock holds it or an active booking owns it.
	GetAvailableSeats(ctx context.Context, showID int64) (*dto.SeatAvailabilityResponse, error)

	// GetTicket retrieves a ticket owned by the requester
	GetTicket(ctx context.Context, ticketNumber string, userID int64) (*dto.TicketResponse, error)

	// ScanTicket marks a VALID ticket as USED at the venue gate
	ScanTicket(ctx context.Context, ticketNumber string) (*dto.TicketScanResponse, error)

	// TicketQR renders the PNG QR code of a ticket
	TicketQR(ctx context.Context, ticketNumber string, size int) ([]byte, error)

	// ExpireDueBookings sweeps PENDING bookings past their hold window,
	// marking them EXPIRED and releasing their seats. Returns the number of
	// bookings expired.
	ExpireDueBookings(ctx context.Context, limit int) (int, error)
}

// BookingServiceConfig contains configuration for the booking service
type BookingServiceConfig struct {
	HoldTTL            time.Duration
	MaxSeatsPerBooking int
}

// bookingService implements BookingService
type bookingService struct {
	bookingRepo  repository.BookingRepository
	seatLockRepo repository.SeatLockRepository
	catalogRepo  repository.CatalogRepository
	userRepo     repository.UserRepository
	calculator   *pricing.Calculator
	publisher    EventPublisher
	holdTTL      time.Duration
	maxSeats     int
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo repository.BookingRepository,
	seatLockRepo repository.SeatLockRepository,
	catalogRepo repository.CatalogRepository,
	userRepo repository.UserRepository,
	calculator *pricing.Calculator,
	publisher EventPublisher,
	cfg *BookingServiceConfig,
) BookingService {
	holdTTL := 10 * time.Minute
	maxSeats := 10
	if cfg != nil {
		if cfg.HoldTTL > 0 {
			holdTTL = cfg.HoldTTL
		}
		if cfg.MaxSeatsPerBooking > 0 {
			maxSeats = cfg.MaxSeatsPerBooking
		}
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &bookingService{
		bookingRepo:  bookingRepo,
		seatLockRepo: seatLockRepo,
		catalogRepo:  catalogRepo,
		userRepo:     userRepo,
		calculator:   calculator,
		publisher:    publisher,
		holdTTL:      holdTTL,
		maxSeats:     maxSeats,
	}
}

// InitiateBooking locks the requested seats and creates a PENDING booking
func (s *bookingService) InitiateBooking(ctx context.Context, userID int64, req *dto.InitiateBookingRequest) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.initiate")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	if userID <= 0 {
		span.SetStatus(codes.Error, "invalid user")
		return nil, domain.ErrInvalidUserID
	}
	if req == nil || req.ShowID <= 0 {
		span.SetStatus(codes.Error, "invalid show")
		return nil, domain.ErrInvalidShowID
	}
	if len(req.SeatIDs) == 0 {
		span.SetStatus(codes.Error, "no seats")
		return nil, domain.ErrNoSeatsRequested
	}
	if len(req.SeatIDs) > s.maxSeats {
		span.SetStatus(codes.Error, "too many seats")
		return nil, domain.ErrMaxSeatsExceeded
	}
	seen := make(map[int64]bool, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if seen[id] {
			span.SetStatus(codes.Error, "duplicate seats")
			return nil, domain.ErrDuplicateSeats
		}
		seen[id] = true
	}

	span.SetAttributes(
		attribute.Int64("show_id", req.ShowID),
		attribute.Int("seats", len(req.SeatIDs)),
	)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, err
	}
	if !user.IsActive() {
		span.SetStatus(codes.Error, "user blocked")
		return nil, domain.ErrUserBlocked
	}

	now := time.Now()
	show, err := s.catalogRepo.GetShow(ctx, req.ShowID)
	if err != nil {
		span.SetStatus(codes.Error, "show lookup failed")
		return nil, err
	}
	if !show.IsBookable(now) {
		span.SetStatus(codes.Error, "show not bookable")
		return nil, domain.ErrShowNotBookable
	}

	// One active booking per user per show; a second hold would let one
	// user fence off seats across parallel payment windows
	hasActive, err := s.bookingRepo.HasActiveBooking(ctx, userID, req.ShowID)
	if err != nil {
		span.SetStatus(codes.Error, "active booking lookup failed")
		return nil, err
	}
	if hasActive {
		span.SetStatus(codes.Error, "duplicate active booking")
		return nil, domain.ErrBookingExists
	}

	seats, err := s.catalogRepo.GetSeats(ctx, req.ShowID, req.SeatIDs)
	if err != nil {
		span.SetStatus(codes.Error, "seat lookup failed")
		return nil, err
	}

	// Seats owned by an active booking are gone regardless of lock state
	bookedSeatIDs, err := s.bookingRepo.ListBookedSeatIDs(ctx, req.ShowID)
	if err != nil {
		span.SetStatus(codes.Error, "booked seat lookup failed")
		return nil, err
	}
	booked := make(map[int64]bool, len(bookedSeatIDs))
	for _, id := range bookedSeatIDs {
		booked[id] = true
	}
	for _, id := range req.SeatIDs {
		if booked[id] {
			span.SetStatus(codes.Error, "seat already booked")
			return nil, domain.ErrSeatNotAvailable
		}
	}

	// All-or-nothing acquisition: on any contended seat, roll back every
	// lock taken in this attempt before failing
	var acquiredSeatIDs []int64
	rollback := func() {
		for _, seatID := range acquiredSeatIDs {
			if rerr := s.seatLockRepo.Release(ctx, req.ShowID, seatID, userID); rerr != nil {
				logger.Get().Warn("failed to roll back seat lock",
					zap.Int64("show_id", req.ShowID),
					zap.Int64("seat_id", seatID),
					zap.Error(rerr))
			}
		}
	}
	for _, id := range req.SeatIDs {
		acquired, err := s.seatLockRepo.Acquire(ctx, req.ShowID, id, userID, s.holdTTL)
		if err != nil {
			rollback()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if !acquired {
			rollback()
			span.SetStatus(codes.Error, "seat contended")
			return nil, domain.ErrSeatNotAvailable
		}
		acquiredSeatIDs = append(acquiredSeatIDs, id)
	}

	detail, err := s.calculator.Calculate(seats)
	if err != nil {
		rollback()
		span.SetStatus(codes.Error, "pricing failed")
		return nil, err
	}

	booking := domain.NewBooking(userID, req.ShowID, now.Add(s.holdTTL))
	booking.TotalAmount = detail.TotalAmount
	booking.ConvenienceFee = detail.ConvenienceFee
	booking.TaxAmount = detail.TaxAmount
	booking.DiscountAmount = detail.DiscountAmount
	booking.FinalAmount = detail.FinalAmount
	for _, seat := range seats {
		booking.AddSeat(&domain.BookedSeat{
			SeatID:    seat.ID,
			SeatLabel: seat.Label,
			Price:     seat.Price,
		})
	}

	// Explicit release on persistence failure; relying on TTL alone would
	// leave the seats unavailable with no recorded booking
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		rollback()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Get().Info("booking initiated",
		zap.String("booking_number", booking.BookingNumber),
		zap.Int64("user_id", userID),
		zap.Int64("show_id", req.ShowID),
		zap.Int("seats", len(seats)),
		zap.String("final_amount", booking.FinalAmount.StringFixed(2)))
	metrics.BookingsInitiated.Inc(ctx)

	span.SetAttributes(attribute.String("booking_number", booking.BookingNumber))
	span.SetStatus(codes.Ok, "")
	return toBookingResponse(booking), nil
}

// ConfirmBooking moves a PENDING booking to CONFIRMED after payment capture
func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID int64, paidAmount decimal.Decimal) error {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.confirm")
	defer span.End()

	span.SetAttributes(attribute.Int64("booking_id", bookingID))

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, "booking lookup failed")
		return err
	}

	now := time.Now()
	if booking.Status == domain.BookingStatusPending && booking.IsExpired(now) {
		// The hold window closed before payment settled: the booking
		// expires and the confirm call fails rather than succeeding late
		if err := s.expireBooking(ctx, booking); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Error, "booking expired")
		return domain.ErrBookingExpired
	}

	if !paidAmount.Equal(booking.FinalAmount) {
		span.SetStatus(codes.Error, "amount mismatch")
		return domain.ErrPaymentMismatch
	}

	if err := booking.Confirm(now); err != nil {
		span.SetStatus(codes.Error, "invalid state")
		return err
	}

	show, err := s.catalogRepo.GetShow(ctx, booking.ShowID)
	if err != nil {
		span.SetStatus(codes.Error, "show lookup failed")
		return err
	}
	for _, seat := range booking.Seats {
		booking.Tickets = append(booking.Tickets,
			domain.NewTicket(booking.BookingNumber, seat.SeatLabel, show.ShowDate, show.StartTime))
	}

	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// Ownership now lives in the booking record; the advisory locks are
	// spent and released owner-scoped
	for _, seat := range booking.Seats {
		if rerr := s.seatLockRepo.Release(ctx, booking.ShowID, seat.SeatID, booking.UserID); rerr != nil {
			logger.Get().Warn("failed to release seat lock after confirm",
				zap.Int64("seat_id", seat.SeatID), zap.Error(rerr))
		}
	}

	if perr := s.publisher.PublishBookingConfirmed(ctx, booking, show); perr != nil {
		logger.Get().Warn("failed to publish booking confirmed event",
			zap.String("booking_number", booking.BookingNumber), zap.Error(perr))
	}

	logger.Get().Info("booking confirmed",
		zap.String("booking_number", booking.BookingNumber),
		zap.Int("tickets", len(booking.Tickets)))
	metrics.BookingsConfirmed.Inc(ctx)

	span.SetStatus(codes.Ok, "")
	return nil
}

// CancelBooking cancels a PENDING or CONFIRMED booking owned by the requester
func (s *bookingService) CancelBooking(ctx context.Context, bookingID, userID int64, reason string) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.cancel")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("booking_id", bookingID),
		attribute.Int64("user_id", userID),
	)

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, "booking lookup failed")
		return nil, err
	}
	if booking.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrNotBookingOwner
	}

	if err := booking.Cancel(reason, time.Now()); err != nil {
		span.SetStatus(codes.Error, "invalid state")
		return nil, err
	}
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// The booking record is authoritative proof of prior ownership, so the
	// release is unconditional rather than owner-scoped
	for _, seat := range booking.Seats {
		if rerr := s.seatLockRepo.ForceRelease(ctx, booking.ShowID, seat.SeatID); rerr != nil {
			logger.Get().Warn("failed to release seat lock on cancel",
				zap.Int64("seat_id", seat.SeatID), zap.Error(rerr))
		}
	}

	if perr := s.publisher.PublishBookingCancelled(ctx, booking); perr != nil {
		logger.Get().Warn("failed to publish booking cancelled event",
			zap.String("booking_number", booking.BookingNumber), zap.Error(perr))
	}

	logger.Get().Info("booking cancelled",
		zap.String("booking_number", booking.BookingNumber),
		zap.String("reason", reason))
	metrics.BookingsCancelled.Inc(ctx)

	span.SetStatus(codes.Ok, "")
	return toBookingResponse(booking), nil
}

// expireBooking transitions one timed-out booking and releases its seats
func (s *bookingService) expireBooking(ctx context.Context, booking *domain.Booking) error {
	if err := booking.Expire(time.Now()); err != nil {
		return err
	}
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return err
	}
	for _, seat := range booking.Seats {
		if rerr := s.seatLockRepo.ForceRelease(ctx, booking.ShowID, seat.SeatID); rerr != nil {
			logger.Get().Warn("failed to release seat lock on expiry",
				zap.Int64("seat_id", seat.SeatID), zap.Error(rerr))
		}
	}
	if perr := s.publisher.PublishBookingExpired(ctx, booking); perr != nil {
		logger.Get().Warn("failed to publish booking expired event",
			zap.String("booking_number", booking.BookingNumber), zap.Error(perr))
	}
	metrics.BookingsExpired.Inc(ctx)
	return nil
}

// ExpireDueBookings sweeps PENDING bookings past their hold window
func (s *bookingService) ExpireDueBookings(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.expire_due")
	defer span.End()

	due, err := s.bookingRepo.ListExpired(ctx, time.Now(), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	expired := 0
	for _, booking := range due {
		if err := s.expireBooking(ctx, booking); err != nil {
			// A concurrent confirm or cancel won the booking; skip it
			if domain.IsConflictError(err) || domain.IsStateError(err) {
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		logger.Get().Info("expired stale bookings", zap.Int("count", expired))
	}

	span.SetAttributes(attribute.Int("expired", expired))
	span.SetStatus(codes.Ok, "")
	return expired, nil
}

// GetBooking retrieves a booking owned by the requester
func (s *bookingService) GetBooking(ctx context.Context, bookingID, userID int64) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}
	if booking.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrNotBookingOwner
	}

	span.SetStatus(codes.Ok, "")
	return toBookingResponse(booking), nil
}

// GetBookingByNumber retrieves a booking by its booking number
func (s *bookingService) GetBookingByNumber(ctx context.Context, bookingNumber string, userID int64) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_by_number")
	defer span.End()

	booking, err := s.bookingRepo.GetByNumber(ctx, bookingNumber)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}
	if booking.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrNotBookingOwner
	}

	span.SetStatus(codes.Ok, "")
	return toBookingResponse(booking), nil
}

// GetUserBookings retrieves a page of the requester's bookings
func (s *bookingService) GetUserBookings(ctx context.Context, userID int64, page, pageSize int) (*dto.PaginatedResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_user_bookings")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	bookings, err := s.bookingRepo.GetByUserID(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	items := make([]*dto.BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		items = append(items, toBookingResponse(booking))
	}

	span.SetStatus(codes.Ok, "")
	return &dto.PaginatedResponse{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetAvailableSeats lists the seats of a show with availability
func (s *bookingService) GetAvailableSeats(ctx context.Context, showID int64) (*dto.SeatAvailabilityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_available_seats")
	defer span.End()

	span.SetAttributes(attribute.Int64("show_id", showID))

	if _, err := s.catalogRepo.GetShow(ctx, showID); err != nil {
		span.SetStatus(codes.Error, "show lookup failed")
		return nil, err
	}

	seats, err := s.catalogRepo.ListSeats(ctx, showID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	lockedIDs, err := s.seatLockRepo.ListLocked(ctx, showID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	bookedIDs, err := s.bookingRepo.ListBookedSeatIDs(ctx, showID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	taken := make(map[int64]bool, len(lockedIDs)+len(bookedIDs))
	for _, id := range lockedIDs {
		taken[id] = true
	}
	for _, id := range bookedIDs {
		taken[id] = true
	}

	resp := &dto.SeatAvailabilityResponse{ShowID: showID}
	for _, seat := range seats {
		resp.Seats = append(resp.Seats, &dto.SeatResponse{
			SeatID:    seat.ID,
			Label:     seat.Label,
			Type:      string(seat.Type),
			Price:     seat.Price.StringFixed(2),
			Available: !taken[seat.ID],
		})
	}

	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// GetTicket retrieves a ticket owned by the requester
func (s *bookingService) GetTicket(ctx context.Context, ticketNumber string, userID int64) (*dto.TicketResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_ticket")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_number", ticketNumber))

	ticket, err := s.bookingRepo.GetTicketByNumber(ctx, ticketNumber)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}
	booking, err := s.bookingRepo.GetByID(ctx, ticket.BookingID)
	if err != nil {
		span.SetStatus(codes.Error, "booking lookup failed")
		return nil, err
	}
	if booking.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrNotBookingOwner
	}

	span.SetStatus(codes.Ok, "")
	return &dto.TicketResponse{
		TicketNumber: ticket.TicketNumber,
		SeatLabel:    ticket.SeatLabel,
		QRPayload:    ticket.QRPayload,
		Status:       string(ticket.Status),
		ScannedAt:    ticket.ScannedAt,
	}, nil
}

// ScanTicket marks a VALID ticket as USED at the venue gate
func (s *bookingService) ScanTicket(ctx context.Context, ticketNumber string) (*dto.TicketScanResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.scan_ticket")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_number", ticketNumber))

	ticket, err := s.bookingRepo.GetTicketByNumber(ctx, ticketNumber)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}

	if err := ticket.MarkUsed(time.Now()); err != nil {
		span.SetStatus(codes.Error, "not valid")
		return nil, err
	}
	if err := s.bookingRepo.UpdateTicket(ctx, ticket); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Get().Info("ticket scanned", zap.String("ticket_number", ticketNumber))

	span.SetStatus(codes.Ok, "")
	return &dto.TicketScanResponse{
		TicketNumber: ticket.TicketNumber,
		SeatLabel:    ticket.SeatLabel,
		Status:       string(ticket.Status),
		ScannedAt:    ticket.ScannedAt,
	}, nil
}

// TicketQR renders the PNG QR code of a ticket
func (s *bookingService) TicketQR(ctx context.Context, ticketNumber string, size int) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.ticket_qr")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_number", ticketNumber))

	ticket, err := s.bookingRepo.GetTicketByNumber(ctx, ticketNumber)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}
	if ticket.Status != domain.TicketStatusValid {
		span.SetStatus(codes.Error, "not valid")
		return nil, domain.ErrTicketNotValid
	}

	if size <= 0 {
		size = 256
	}
	png, err := qr.Encode(ticket.QRPayload, size)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return png, nil
}

func toBookingResponse(booking *domain.Booking) *dto.BookingResponse {
	resp := &dto.BookingResponse{
		ID:             booking.ID,
		BookingNumber:  booking.BookingNumber,
		UserID:         booking.UserID,
		ShowID:         booking.ShowID,
		Status:         booking.Status.String(),
		PaymentStatus:  string(booking.PaymentStatus),
		TotalAmount:    booking.TotalAmount.StringFixed(2),
		ConvenienceFee: booking.ConvenienceFee.StringFixed(2),
		TaxAmount:      booking.TaxAmount.StringFixed(2),
		DiscountAmount: booking.DiscountAmount.StringFixed(2),
		FinalAmount:    booking.FinalAmount.StringFixed(2),
		ExpiresAt:      booking.ExpiresAt,
		BookedAt:       booking.BookedAt,
		CancelledAt:    booking.CancelledAt,
		CreatedAt:      booking.CreatedAt,
	}
	for _, seat := range booking.Seats {
		resp.Seats = append(resp.Seats, &dto.BookedSeatResponse{
			SeatID:    seat.SeatID,
			SeatLabel: seat.SeatLabel,
			Price:     seat.Price.StringFixed(2),
		})
	}
	for _, ticket := range booking.Tickets {
		resp.Tickets = append(resp.Tickets, &dto.TicketResponse{
			TicketNumber: ticket.TicketNumber,
			SeatLabel:    ticket.SeatLabel,
			QRPayload:    ticket.QRPayload,
			Status:       string(ticket.Status),
			ScannedAt:    ticket.ScannedAt,
		})
	}
	return resp
}
