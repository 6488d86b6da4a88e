// Package service holds the identity and access control logic: credential
// authentication, driver session exclusivity, role/permission checks,
// auditing, staff provisioning and password reset. Services depend on the
// store interfaces below; the MySQL repositories and the in-memory fakes
// both satisfy them.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// IdentityStore is the identity half of the credential store adapter.
type IdentityStore interface {
	GetByID(ctx context.Context, id string) (model.Identity, error)
	GetByPhone(ctx context.Context, phone string) (model.Identity, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, i model.Identity) error
	UpdateProfile(ctx context.Context, id, fullName, phone string) error
	SetRole(ctx context.Context, id string, role model.Role) error
	SetPremium(ctx context.Context, id string, premium bool, until *time.Time) error
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
	SessionTokenStore
}

// SessionTokenStore is the single-writer register holding each driver's
// active session token.
type SessionTokenStore interface {
	SetSessionToken(ctx context.Context, id string, token *string, at time.Time) error
	GetSessionToken(ctx context.Context, id string) (*string, error)
}

// CredentialStore is the secret half of the credential store adapter.
type CredentialStore interface {
	Create(ctx context.Context, c model.Credential) error
	GetByID(ctx context.Context, id string) (model.Credential, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	SetPhone(ctx context.Context, id, phone string) error
	Delete(ctx context.Context, id string) error
}

// GrantStore persists staff permission grants.
type GrantStore interface {
	ListByIdentity(ctx context.Context, identityID string) ([]model.Permission, error)
	Has(ctx context.Context, identityID string, p model.Permission) (bool, error)
	Replace(ctx context.Context, identityID string, perms []model.Permission, grantedBy string) error
	DeleteAll(ctx context.Context, identityID string) error
}

// AuditStore is the append-only ledger.
type AuditStore interface {
	Append(ctx context.Context, e *model.AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]model.AuditEntry, error)
}

// CodeStore persists password reset codes.
type CodeStore interface {
	Insert(ctx context.Context, c model.OneTimeCode) error
	FindUnused(ctx context.Context, phone, code string) (model.OneTimeCode, error)
	MarkUsed(ctx context.Context, id uint64) (bool, error)
}

// ModerationStore covers the marketplace rows admins mutate directly.
type ModerationStore interface {
	DeleteBanner(ctx context.Context, id uint64) error
	DeleteReview(ctx context.Context, id uint64) error
	DeleteMessage(ctx context.Context, id uint64) error
	SetMessageStatus(ctx context.Context, id uint64, status model.MessageStatus) (model.MessageStatus, error)
}

// CodeSender hands a one-time code to the SMS collaborator.
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}
