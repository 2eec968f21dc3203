package domain

import "time"

// UserStatus represents account standing
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusBlocked  UserStatus = "BLOCKED"
)

// User is a registered customer account
type User struct {
	ID        int64
	Email     string
	FullName  string
	Phone     string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the account may initiate bookings
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
