package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialScheme identifies how a stored credential must be verified.
type CredentialScheme int

const (
	// SchemeMalformed is an empty credential. It never verifies.
	SchemeMalformed CredentialScheme = iota
	// SchemeBcrypt is the only scheme new credentials are written in.
	SchemeBcrypt
	// SchemeLegacyPlaintext is a pre-migration account whose password was
	// stored as-is. It is accepted for verification only.
	SchemeLegacyPlaintext
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// DetectScheme classifies a stored credential by its prefix.
func DetectScheme(credential string) CredentialScheme {
	if credential == "" {
		return SchemeMalformed
	}
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(credential, p) {
			return SchemeBcrypt
		}
	}
	// anything else predates hashing, including passwords that happen to
	// start with "$"
	return SchemeLegacyPlaintext
}

// PasswordHasher hashes new passwords and verifies supplied ones.
type PasswordHasher struct {
	Cost int
}

// NewPasswordHasher clamps cost into bcrypt's accepted range.
func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return PasswordHasher{Cost: cost}
}

// MaxPasswordBytes is the longest password bcrypt accepts. Longer input is
// a validation error, checked by callers before any store access.
const MaxPasswordBytes = 72

// PasswordTooLong reports whether plain exceeds MaxPasswordBytes.
func PasswordTooLong(plain string) bool {
	return len(plain) > MaxPasswordBytes
}

// Hash returns a bcrypt hash using the configured cost.
func (h PasswordHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches credential. A malformed credential
// never matches and never returns an error to the caller.
func (h PasswordHasher) Verify(plain, credential string) bool {
	switch DetectScheme(credential) {
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(credential), []byte(plain)) == nil
	case SchemeLegacyPlaintext:
		return subtle.ConstantTimeCompare([]byte(credential), []byte(plain)) == 1
	}
	return false
}

// NeedsUpgrade reports whether credential should be rehashed after the
// next successful verification.
func (h PasswordHasher) NeedsUpgrade(credential string) bool {
	return DetectScheme(credential) == SchemeLegacyPlaintext
}
