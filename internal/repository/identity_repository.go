package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/carpool-identity/internal/model"
)

const identityColumns = `id, phone, email, full_name, role, is_driver, is_passenger,
	is_verified, is_premium, premium_expires_at, active_session_token,
	last_active_at, created_at`

// IdentityRepo reads and writes the `identities` table.
type IdentityRepo struct{ DB *sql.DB }

// NewIdentityRepo returns an IdentityRepo backed by db. The identity row is
// the source of truth for role, phone and the active session token.
func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{DB: db} }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (model.Identity, error) {
	var (
		i       model.Identity
		role    string
		email   sql.NullString
		token   sql.NullString
		premium sql.NullTime
		active  sql.NullTime
	)
	err := row.Scan(&i.ID, &i.Phone, &email, &i.FullName, &role, &i.IsDriver,
		&i.IsPassenger, &i.IsVerified, &i.IsPremium, &premium, &token,
		&active, &i.CreatedAt)
	if err != nil {
		return model.Identity{}, translate(err)
	}
	i.Role = model.Role(role)
	if email.Valid {
		i.Email = &email.String
	}
	if token.Valid {
		i.ActiveSessionToken = &token.String
	}
	if premium.Valid {
		i.PremiumExpiresAt = &premium.Time
	}
	if active.Valid {
		i.LastActiveAt = &active.Time
	}
	return i, nil
}

// GetByID fetches an identity by primary key.
func (r *IdentityRepo) GetByID(ctx context.Context, id string) (model.Identity, error) {
	return scanIdentity(r.DB.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identities WHERE id=? LIMIT 1", id))
}

// GetByPhone fetches an identity by its login phone number.
func (r *IdentityRepo) GetByPhone(ctx context.Context, phone string) (model.Identity, error) {
	return scanIdentity(r.DB.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identities WHERE phone=? LIMIT 1",
		strings.TrimSpace(phone)))
}

// PhoneExists reports whether any identity already uses phone.
func (r *IdentityRepo) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM identities WHERE phone=? LIMIT 1", strings.TrimSpace(phone))
}

// EmailExists reports whether any identity already uses email.
func (r *IdentityRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM identities WHERE email=? LIMIT 1", normalizeEmail(email))
}

func (r *IdentityRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert creates the identity row. The caller supplies the ID, which must
// match an existing credential.
func (r *IdentityRepo) Insert(ctx context.Context, i model.Identity) error {
	var email any
	if i.Email != nil {
		email = normalizeEmail(*i.Email)
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO identities (id, phone, email, full_name, role, is_driver, is_passenger, is_verified, is_premium)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		i.ID, strings.TrimSpace(i.Phone), email, i.FullName, string(i.Role),
		i.IsDriver, i.IsPassenger, i.IsVerified, i.IsPremium)
	return translate(err)
}

// UpdateProfile rewrites the display name and phone.
func (r *IdentityRepo) UpdateProfile(ctx context.Context, id, fullName, phone string) error {
	return expectOne(r.DB.ExecContext(ctx,
		"UPDATE identities SET full_name=?, phone=? WHERE id=?",
		fullName, strings.TrimSpace(phone), id))
}

// SetRole overwrites the role column.
func (r *IdentityRepo) SetRole(ctx context.Context, id string, role model.Role) error {
	return expectOne(r.DB.ExecContext(ctx,
		"UPDATE identities SET role=? WHERE id=?", string(role), id))
}

// SetSessionToken stores token (nil clears it) and stamps last_active_at.
// Last writer wins: no compare is made against the previous value.
func (r *IdentityRepo) SetSessionToken(ctx context.Context, id string, token *string, at time.Time) error {
	var v any
	if token != nil {
		v = *token
	}
	return expectOne(r.DB.ExecContext(ctx,
		"UPDATE identities SET active_session_token=?, last_active_at=? WHERE id=?",
		v, at.UTC(), id))
}

// GetSessionToken returns the server-side session token, nil when cleared.
func (r *IdentityRepo) GetSessionToken(ctx context.Context, id string) (*string, error) {
	var token sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT active_session_token FROM identities WHERE id=? LIMIT 1", id).Scan(&token)
	if err != nil {
		return nil, translate(err)
	}
	if !token.Valid {
		return nil, nil
	}
	return &token.String, nil
}

// SetPremium toggles the premium flag and its expiry.
func (r *IdentityRepo) SetPremium(ctx context.Context, id string, premium bool, until *time.Time) error {
	var v any
	if until != nil {
		v = until.UTC()
	}
	return expectOne(r.DB.ExecContext(ctx,
		"UPDATE identities SET is_premium=?, premium_expires_at=? WHERE id=?", premium, v, id))
}

// SetVerified toggles the verification flag.
func (r *IdentityRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	return expectOne(r.DB.ExecContext(ctx,
		"UPDATE identities SET is_verified=? WHERE id=?", verified, id))
}

// Delete removes the identity row.
func (r *IdentityRepo) Delete(ctx context.Context, id string) error {
	return expectOne(r.DB.ExecContext(ctx, "DELETE FROM identities WHERE id=?", id))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
