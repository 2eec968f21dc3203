package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/unnisamohammad/cinehub-backend/internal/dto"
	"github.com/unnisamohammad/cinehub-backend/internal/middleware"
	"github.com/unnisamohammad/cinehub-backend/internal/service"
	"github.com/unnisamohammad/cinehub-backend/pkg/response"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

// HeaderIdempotencyKey carries the client's payment idempotency key
const HeaderIdempotencyKey = "Idempotency-Key"

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitiatePayment handles POST /api/v1/payments
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.initiate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.InitiatePayment(ctx, userID, &req, c.GetHeader(HeaderIdempotencyKey))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, payment)
}

// HandleCallback handles POST /api/v1/payments/callback. The gateway, not
// the user, calls this; authentication is the payload signature.
func (h *PaymentHandler) HandleCallback(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.callback")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.paymentService.HandleCallback(ctx, &req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, gin.H{"acknowledged": true})
}

// Refund handles POST /api/v1/payments/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.refund")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	refund, err := h.paymentService.Refund(ctx, userID, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, refund)
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}

	payment, err := h.paymentService.GetPayment(ctx, paymentID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, payment)
}

// GetBookingPayment handles GET /api/v1/bookings/:id/payment
func (h *PaymentHandler) GetBookingPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.get_by_booking")
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

	payment, err := h.paymentService.GetBookingPayment(ctx, bookingID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondDomainError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, payment)
}
