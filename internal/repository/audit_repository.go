package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// AuditRepo appends to and reads from `audit_logs`. There is deliberately
// no update or delete method.
type AuditRepo struct{ DB *sql.DB }

// NewAuditRepo wraps db. The audit log is append-only, so the repository
// exposes Append and List and nothing else.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Append inserts the entry and fills in its ID and CreatedAt.
func (r *AuditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var rid any
	if e.ResourceID != nil {
		rid = *e.ResourceID
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO audit_logs (actor_id, action, resource_type, resource_id, detail, created_at)
		 VALUES (?,?,?,?,?,?)`,
		e.ActorID, string(e.Action), e.ResourceType, rid, e.Detail, e.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// List returns one page of entries, newest first. Ties on created_at are
// broken by id so paging stays stable while new entries arrive. An empty
// page is an empty slice, never nil.
func (r *AuditRepo) List(ctx context.Context, limit, offset int) ([]model.AuditEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, actor_id, action, resource_type, resource_id, detail, created_at
		 FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AuditEntry{}
	for rows.Next() {
		var (
			e      model.AuditEntry
			action string
			rid    sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.ResourceType, &rid, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = model.AuditAction(action)
		if rid.Valid {
			e.ResourceID = &rid.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
