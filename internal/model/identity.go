package model

import "time"

// Role is the single role an identity holds.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleStaff     Role = "staff"
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleDriver, RolePassenger:
		return true
	}
	return false
}

// Identity mirrors a row of the `identities` table. One row per account;
// the phone number is the login key.
//
// ActiveSessionToken is nil unless a driver is signed in on exactly one
// device. It is the only mutable state shared between devices and is
// written last-writer-wins.
type Identity struct {
	ID                 string     `json:"id"`
	Phone              string     `json:"phone"`
	Email              *string    `json:"email,omitempty"`
	FullName           string     `json:"full_name"`
	Role               Role       `json:"role"`
	IsDriver           bool       `json:"is_driver"`
	IsPassenger        bool       `json:"is_passenger"`
	IsVerified         bool       `json:"is_verified"`
	IsPremium          bool       `json:"is_premium"`
	PremiumExpiresAt   *time.Time `json:"premium_expires_at,omitempty"`
	ActiveSessionToken *string    `json:"-"`
	LastActiveAt       *time.Time `json:"last_active_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// EnforcesExclusivity reports whether the identity is bound to a single
// device. Only driver accounts are; passenger, staff and admin accounts may
// sign in from any number of devices.
func (i Identity) EnforcesExclusivity() bool {
	return i.IsDriver || i.Role == RoleDriver
}

// Credential mirrors a row of the `credentials` table: the login-capable
// secret behind an identity. It shares its ID with the identity row.
// PasswordHash holds either a bcrypt hash or, for accounts created before
// hashing was introduced, the plaintext password.
type Credential struct {
	ID           string
	Email        *string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
