// Package dto defines the request and response shapes of the booking API
package dto

import "time"

// InitiateBookingRequest starts a new booking attempt for a set of seats
type InitiateBookingRequest struct {
	ShowID  int64   `json:"show_id" binding:"required"`
	SeatIDs []int64 `json:"seat_ids" binding:"required,min=1"`
}

// BookedSeatResponse is one seat claimed by a booking
type BookedSeatResponse struct {
	SeatID    int64  `json:"seat_id"`
	SeatLabel string `json:"seat_label"`
	Price     string `json:"price"`
}

// TicketResponse is one issued ticket
type TicketResponse struct {
	TicketNumber string     `json:"ticket_number"`
	SeatLabel    string     `json:"seat_label"`
	QRPayload    string     `json:"qr_payload"`
	Status       string     `json:"status"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
}

// BookingResponse is the full booking view
type BookingResponse struct {
	ID             int64                 `json:"id"`
	BookingNumber  string                `json:"booking_number"`
	UserID         int64                 `json:"user_id"`
	ShowID         int64                 `json:"show_id"`
	Status         string                `json:"status"`
	PaymentStatus  string                `json:"payment_status"`
	TotalAmount    string                `json:"total_amount"`
	ConvenienceFee string                `json:"convenience_fee"`
	TaxAmount      string                `json:"tax_amount"`
	DiscountAmount string                `json:"discount_amount"`
	FinalAmount    string                `json:"final_amount"`
	Seats          []*BookedSeatResponse `json:"seats"`
	Tickets        []*TicketResponse     `json:"tickets,omitempty"`
	ExpiresAt      *time.Time            `json:"expires_at,omitempty"`
	BookedAt       *time.Time            `json:"booked_at,omitempty"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// CancelBookingRequest carries the cancellation reason
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// SeatAvailabilityResponse lists the seats of a show with availability
type SeatAvailabilityResponse struct {
	ShowID int64           `json:"show_id"`
	Seats  []*SeatResponse `json:"seats"`
}

// SeatResponse is one seat of a show
type SeatResponse struct {
	SeatID    int64  `json:"seat_id"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	Price     string `json:"price"`
	Available bool   `json:"available"`
}

// InitiatePaymentRequest opens a gateway payment attempt for a booking
type InitiatePaymentRequest struct {
	BookingID int64  `json:"booking_id" binding:"required"`
	Method    string `json:"method" binding:"required"`
}

// PaymentResponse is the payment view returned to the client
type PaymentResponse struct {
	ID        int64  `json:"id"`
	BookingID int64  `json:"booking_id"`
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
	Status    string `json:"status"`
}

// PaymentCallbackRequest is the gateway webhook body
type PaymentCallbackRequest struct {
	OrderID          string `json:"order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Status           string `json:"status" binding:"required"`
	Amount           string `json:"amount" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
	FailureCode      string `json:"failure_code"`
	FailureReason    string `json:"failure_reason"`
}

// RefundRequest opens a refund against a booking's captured payment
type RefundRequest struct {
	BookingID int64  `json:"booking_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Reason    string `json:"reason"`
}

// RefundResponse is the refund view returned to the client
type RefundResponse struct {
	RefundReference string `json:"refund_reference"`
	PaymentID       int64  `json:"payment_id"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
}

// TicketScanResponse reports the result of a venue-side ticket scan
type TicketScanResponse struct {
	TicketNumber string     `json:"ticket_number"`
	SeatLabel    string     `json:"seat_label"`
	Status       string     `json:"status"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Items      any `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items,omitempty"`
}
