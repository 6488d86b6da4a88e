package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// CredentialRepo persists login-capable credentials. A credential row
// without a matching identity row must never outlive a failed provisioning.
type CredentialRepo struct{ DB *sql.DB }

// NewCredentialRepo returns a CredentialRepo backed by db. The credential
// ID is shared with the identity row it authenticates.
func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{DB: db} }

// Create inserts the credential. PasswordHash must already be hashed and the
// email, when present, is stored lower-cased. A duplicate ID, email or
// phone is reported as ErrDuplicate.
func (r *CredentialRepo) Create(ctx context.Context, c model.Credential) error {
	var email any
	if c.Email != nil {
		email = normalizeEmail(*c.Email)
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO credentials (id, email, phone, password_hash) VALUES (?,?,?,?)",
		c.ID, email, c.Phone, c.PasswordHash)
	return translate(err)
}

// GetByID fetches a credential. A missing row is ErrNotFound.
func (r *CredentialRepo) GetByID(ctx context.Context, id string) (model.Credential, error) {
	var (
		c     model.Credential
		email sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, email, phone, password_hash, created_at, updated_at FROM credentials WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &email, &c.Phone, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Credential{}, translate(err)
	}
	if email.Valid {
		c.Email = &email.String
	}
	return c, nil
}

// EmailExists reports whether a credential already uses email.
func (r *CredentialRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM credentials WHERE email=? LIMIT 1", normalizeEmail(email)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetPasswordHash replaces the stored secret.
func (r *CredentialRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	return expectOne(r.DB.ExecContext(ctx,
		"UPDATE credentials SET password_hash=?, updated_at=? WHERE id=?",
		hash, time.Now().UTC(), id))
}

// SetPhone keeps the credential's copy of the login phone in step with the
// identity row. The identity is authoritative; this column only mirrors it.
func (r *CredentialRepo) SetPhone(ctx context.Context, id, phone string) error {
	return expectOne(r.DB.ExecContext(ctx,
		"UPDATE credentials SET phone=?, updated_at=? WHERE id=?",
		phone, time.Now().UTC(), id))
}

// Delete removes the credential.
func (r *CredentialRepo) Delete(ctx context.Context, id string) error {
	return expectOne(r.DB.ExecContext(ctx, "DELETE FROM credentials WHERE id=?", id))
}
