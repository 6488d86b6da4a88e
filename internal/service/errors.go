package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request missing a required field. Wrapped errors
	// carry the field-specific message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is deliberately vague: unknown phone and wrong
	// password look the same to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrPhoneTaken = errors.New("phone number already registered")
	ErrEmailTaken = errors.New("email already registered")
	ErrDuplicate  = errors.New("account already exists")

	// ErrForbidden is a plain authorization denial.
	ErrForbidden = errors.New("permission denied")

	ErrNotStaff          = errors.New("identity is not a staff account")
	ErrUnknownPermission = errors.New("unknown permission")

	// ErrAuthzUnavailable is returned with a denial when the store could not
	// be read. The caller must treat it as no access.
	ErrAuthzUnavailable = errors.New("authorization unavailable")

	// ErrInconclusive is returned by session revalidation when the server
	// token could not be read. It never means the session is invalid.
	ErrInconclusive = errors.New("session state could not be determined")

	ErrPhoneUnknown   = errors.New("phone number not found")
	ErrNoMatchingCode = errors.New("no matching unused code")
	ErrCodeExpired    = errors.New("code expired")
)

// validationError builds an ErrValidation with a readable message.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IncompleteStaffError reports that a staff identity was created or updated
// but a later step failed. The identity row persists; the operator can retry
// just the failed step.
type IncompleteStaffError struct {
	IdentityID string
	Step       string
	Err        error
}

func (e *IncompleteStaffError) Error() string {
	return fmt.Sprintf("staff account %s exists without full grants (%s step failed): %v",
		e.IdentityID, e.Step, e.Err)
}

func (e *IncompleteStaffError) Unwrap() error { return e.Err }

// CompensationError reports a provisioning failure after a credential was
// created. Cause is the original failure; Cleanup is non-nil when deleting
// the credential also failed, leaving an orphan behind.
type CompensationError struct {
	CredentialID string
	Cause        error
	Cleanup      error
}

func (e *CompensationError) Error() string {
	if e.Cleanup != nil {
		return fmt.Sprintf("staff creation failed and credential %s could not be removed: %v",
			e.CredentialID, errors.Join(e.Cause, e.Cleanup))
	}
	return fmt.Sprintf("staff creation failed, credential %s rolled back: %v", e.CredentialID, e.Cause)
}

func (e *CompensationError) Unwrap() []error {
	if e.Cleanup != nil {
		return []error{e.Cause, e.Cleanup}
	}
	return []error{e.Cause}
}

// Orphaned reports whether a login-capable credential was left behind.
func (e *CompensationError) Orphaned() bool { return e.Cleanup != nil }
