// Package handler exposes the booking engine over HTTP with gin.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/internal/dto"
	"github.com/unnisamohammad/cinehub-backend/internal/middleware"
	"github.com/unnisamohammad/cinehub-backend/internal/service"
	"github.com/unnisamohammad/cinehub-backend/pkg/response"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// respondDomainError maps domain errors onto HTTP statuses
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case domain.IsValidationError(err):
		response.BadRequest(c, err.Error())
	case domain.IsAuthorizationError(err):
		response.Forbidden(c, err.Error())
	case domain.IsExpiredError(err):
		response.Gone(c, err.Error())
	case errors.Is(err, domain.ErrSeatNotAvailable):
		response.Conflict(c, err.Error())
	case domain.IsConflictError(err):
		response.Conflict(c, err.Error())
	case domain.IsStateError(err) || domain.IsPaymentMismatchError(err):
		response.UnprocessableEntity(c, "INVALID_STATE", err.Error())
	case errors.Is(err, domain.ErrInvalidSignature):
		response.Unauthorized(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

// InitiateBooking handles POST /api/v1/bookings
func (h *BookingHandler) InitiateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.initiate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req dto.InitiateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	booking, err := h.bookingService.InitiateBooking(ctx, userID, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, booking)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	booking, err := h.bookingService.GetBooking(ctx, bookingID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, booking)
}

// GetBookingByNumber handles GET /api/v1/bookings/number/:number
func (h *BookingHandler) GetBookingByNumber(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get_by_number")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	booking, err := h.bookingService.GetBookingByNumber(ctx, c.Param("number"), userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, booking)
}

// GetUserBookings handles GET /api/v1/bookings
func (h *BookingHandler) GetUserBookings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	bookings, err := h.bookingService.GetUserBookings(ctx, userID, page, pageSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, bookings)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	// an empty or absent body is acceptable; the reason defaults
	var req dto.CancelBookingRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "cancelled by user"
	}

	booking, err := h.bookingService.CancelBooking(ctx, bookingID, userID, req.Reason)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, booking)
}

// GetAvailableSeats handles GET /api/v1/shows/:id/seats
func (h *BookingHandler) GetAvailableSeats(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.available_seats")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	showID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid show id")
		return
	}

	availability, err := h.bookingService.GetAvailableSeats(ctx, showID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, availability)
}

// GetTicket handles GET /api/v1/tickets/:number
func (h *BookingHandler) GetTicket(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get_ticket")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	ticket, err := h.bookingService.GetTicket(ctx, c.Param("number"), userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, ticket)
}

// ScanTicket handles POST /api/v1/tickets/:number/scan
func (h *BookingHandler) ScanTicket(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.scan_ticket")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	scan, err := h.bookingService.ScanTicket(ctx, c.Param("number"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, scan)
}

// TicketQR handles GET /api/v1/tickets/:number/qr and serves the PNG
func (h *BookingHandler) TicketQR(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.ticket_qr")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	png, err := h.bookingService.TicketQR(ctx, c.Param("number"), size)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.Data(http.StatusOK, "image/png", png)
}
