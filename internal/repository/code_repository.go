package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// CodeRepo persists password reset one-time codes.
type CodeRepo struct{ DB *sql.DB }

// NewCodeRepo returns a CodeRepo backed by db. Codes are never deleted;
// a consumed code keeps its row with used=1 so replays can be told apart
// from unknown codes.
func NewCodeRepo(db *sql.DB) *CodeRepo { return &CodeRepo{DB: db} }

// Insert stores a freshly issued code as unused. Earlier codes for the same
// phone stay valid until they expire or are used.
func (r *CodeRepo) Insert(ctx context.Context, c model.OneTimeCode) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_codes (phone, code, expires_at, used) VALUES (?,?,?,0)",
		c.Phone, c.Code, c.ExpiresAt.UTC())
	return err
}

// FindUnused returns the newest unused code matching (phone, code). Expiry
// is not filtered here so callers can tell an expired code from a wrong one.
func (r *CodeRepo) FindUnused(ctx context.Context, phone, code string) (model.OneTimeCode, error) {
	var c model.OneTimeCode
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, phone, code, expires_at, used, created_at FROM password_reset_codes
		 WHERE phone=? AND code=? AND used=0 ORDER BY id DESC LIMIT 1`,
		phone, code).Scan(&c.ID, &c.Phone, &c.Code, &c.ExpiresAt, &c.Used, &c.CreatedAt)
	if err != nil {
		return model.OneTimeCode{}, translate(err)
	}
	return c, nil
}

// MarkUsed flips the used flag if it is still clear. claimed is false when
// another request consumed the code first.
func (r *CodeRepo) MarkUsed(ctx context.Context, id uint64) (claimed bool, err error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_reset_codes SET used=1 WHERE id=? AND used=0", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
