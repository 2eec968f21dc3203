package domain

import "errors"

// Domain errors
var (
	// Booking errors
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingExpired      = errors.New("booking has expired")
	ErrBookingExists       = errors.New("active booking already exists for this show")
	ErrInvalidBookingState = errors.New("invalid booking state for this transition")
	ErrConcurrentUpdate    = errors.New("booking was modified concurrently")

	// Seat errors
	ErrSeatNotAvailable = errors.New("some selected seats are no longer available")
	ErrSeatNotFound     = errors.New("seat not found")

	// Validation errors
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrInvalidShowID      = errors.New("invalid show id")
	ErrNoSeatsRequested   = errors.New("at least one seat is required")
	ErrMaxSeatsExceeded   = errors.New("maximum seats per booking exceeded")
	ErrDuplicateSeats     = errors.New("duplicate seats in request")
	ErrInvalidAmount      = errors.New("amount must be non-negative")
	ErrMissingIdempotency = errors.New("idempotency key is required")

	// Show errors
	ErrShowNotFound    = errors.New("show not found")
	ErrShowNotBookable = errors.New("show is not available for booking")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserBlocked  = errors.New("user is not allowed to book")

	// Authorization errors
	ErrNotBookingOwner = errors.New("not authorized to access this booking")
	ErrNotTicketOwner  = errors.New("not authorized to access this ticket")
	ErrNotPaymentOwner = errors.New("not authorized to access this payment")

	// Payment errors
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentMismatch      = errors.New("payment amount does not match booking amount")
	ErrInvalidPaymentState  = errors.New("invalid payment state for this transition")
	ErrInvalidSignature     = errors.New("payment signature verification failed")
	ErrRefundExceedsPayment = errors.New("refund amount exceeds payment amount")

	// Ticket errors
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketNotValid = errors.New("ticket is not in a scannable state")
)

// IsNotFoundError reports whether err is a missing-resource error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrSeatNotFound) ||
		errors.Is(err, ErrShowNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrTicketNotFound)
}

// IsValidationError reports whether err is a malformed-input error,
// rejected before any lock is attempted
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidShowID) ||
		errors.Is(err, ErrNoSeatsRequested) ||
		errors.Is(err, ErrMaxSeatsExceeded) ||
		errors.Is(err, ErrDuplicateSeats) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingIdempotency)
}

// IsConflictError reports whether err is a contention error, rejected after
// a lock attempt with full rollback of any partial acquisition
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSeatNotAvailable) ||
		errors.Is(err, ErrBookingExists) ||
		errors.Is(err, ErrConcurrentUpdate)
}

// IsStateError reports whether err is a wrong-state transition error
func IsStateError(err error) bool {
	return errors.Is(err, ErrInvalidBookingState) ||
		errors.Is(err, ErrInvalidPaymentState) ||
		errors.Is(err, ErrTicketNotValid) ||
		errors.Is(err, ErrShowNotBookable)
}

// IsAuthorizationError reports whether err is an ownership error
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotBookingOwner) ||
		errors.Is(err, ErrNotTicketOwner) ||
		errors.Is(err, ErrNotPaymentOwner) ||
		errors.Is(err, ErrUserBlocked)
}

// IsExpiredError reports whether err is a hold-window expiry error
func IsExpiredError(err error) bool {
	return errors.Is(err, ErrBookingExpired)
}

// IsPaymentMismatchError reports whether err is an amount-mismatch error;
// the booking stays PENDING after one of these
func IsPaymentMismatchError(err error) bool {
	return errors.Is(err, ErrPaymentMismatch) || errors.Is(err, ErrInvalidSignature)
}
