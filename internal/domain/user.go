package domain

import (
	"time"
)

// User represents a registered learner. Accounts are created implicitly the
// first time an email requests a one-time code.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"-"`
	DeletedAt *time.Time `json:"-"`
}

// OTP is a short-lived one-time login code bound to an email address.
type OTP struct {
	ID        int64
	Email     string
	Code      string
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsValid reports whether the code can still be redeemed at the given time.
func (o *OTP) IsValid(now time.Time) bool {
	return !o.Used && now.Before(o.ExpiresAt)
}
