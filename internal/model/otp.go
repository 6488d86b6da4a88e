package model

import "time"

// OneTimeCode mirrors a row of `password_reset_codes`. A code is consulted
// once: after it is marked used, or after ExpiresAt, it is never accepted.
type OneTimeCode struct {
	ID        uint64
	Phone     string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Expired reports whether the code is past its expiry at now.
func (c OneTimeCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
