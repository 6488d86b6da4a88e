package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// GrantRepo persists staff permission grants (`permission_grants`).
type GrantRepo struct{ DB *sql.DB }

// NewGrantRepo returns a GrantRepo backed by db. Grants only matter for
// staff identities; admins pass every check and other roles pass none.
func NewGrantRepo(db *sql.DB) *GrantRepo { return &GrantRepo{DB: db} }

// ListByIdentity returns every permission granted to the identity.
func (r *GrantRepo) ListByIdentity(ctx context.Context, identityID string) ([]model.Permission, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT permission FROM permission_grants WHERE identity_id=? ORDER BY permission",
		identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := []model.Permission{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, model.Permission(p))
	}
	return perms, rows.Err()
}

// Has reports whether a grant row exists for (identity, permission).
func (r *GrantRepo) Has(ctx context.Context, identityID string, p model.Permission) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM permission_grants WHERE identity_id=? AND permission=? LIMIT 1",
		identityID, string(p)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Replace deletes every grant of the identity and inserts perms. The set is
// never patched: two concurrent edits resolve to whichever ran last.
func (r *GrantRepo) Replace(ctx context.Context, identityID string, perms []model.Permission, grantedBy string) error {
	if err := r.DeleteAll(ctx, identityID); err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(perms))
	args := make([]any, 0, len(perms)*3)
	for _, p := range perms {
		placeholders = append(placeholders, "(?,?,?)")
		args = append(args, identityID, string(p), grantedBy)
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO permission_grants (identity_id, permission, granted_by) VALUES "+
			strings.Join(placeholders, ","), args...)
	return translate(err)
}

// DeleteAll removes every grant of the identity. Deleting nothing is fine.
func (r *GrantRepo) DeleteAll(ctx context.Context, identityID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM permission_grants WHERE identity_id=?", identityID)
	return err
}
