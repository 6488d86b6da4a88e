package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// ModerationRepo covers the handful of marketplace rows that admins and
// staff mutate directly: banners, reviews and contact messages.
type ModerationRepo struct{ DB *sql.DB }

// NewModerationRepo returns a ModerationRepo backed by db. Every mutation
// targets exactly one row and reports ErrNotFound when it is absent.
func NewModerationRepo(db *sql.DB) *ModerationRepo { return &ModerationRepo{DB: db} }

// DeleteBanner removes a promotional banner.
func (r *ModerationRepo) DeleteBanner(ctx context.Context, id uint64) error {
	return expectOne(r.DB.ExecContext(ctx, "DELETE FROM banners WHERE id=?", id))
}

// DeleteReview removes a trip review.
func (r *ModerationRepo) DeleteReview(ctx context.Context, id uint64) error {
	return expectOne(r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id))
}

// DeleteMessage removes a contact message.
func (r *ModerationRepo) DeleteMessage(ctx context.Context, id uint64) error {
	return expectOne(r.DB.ExecContext(ctx, "DELETE FROM messages WHERE id=?", id))
}

// SetMessageStatus writes the new status and returns the previous one so
// the transition can be audited.
func (r *ModerationRepo) SetMessageStatus(ctx context.Context, id uint64, status model.MessageStatus) (model.MessageStatus, error) {
	var old string
	err := r.DB.QueryRowContext(ctx, "SELECT status FROM messages WHERE id=? LIMIT 1", id).Scan(&old)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}
	if err := expectOne(r.DB.ExecContext(ctx,
		"UPDATE messages SET status=? WHERE id=?", string(status), id)); err != nil {
		return "", err
	}
	return model.MessageStatus(old), nil
}
