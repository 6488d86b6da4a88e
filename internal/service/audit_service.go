package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// AuditLogger appends privileged mutations to the ledger. The write is
// best-effort relative to the mutation it describes: a failure is logged
// at error level for operators and returned, but the caller never undoes
// the mutation because of it.
type AuditLogger struct {
	store   AuditStore
	log     *zap.SugaredLogger
	now     func() time.Time
	maxList int
}

// NewAuditLogger builds the logger. maxList caps a single List page.
func NewAuditLogger(store AuditStore, log *zap.SugaredLogger, maxList int) *AuditLogger {
	if store == nil {
		panic("nil audit store passed to NewAuditLogger")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if maxList <= 0 {
		maxList = 200
	}
	return &AuditLogger{store: store, log: log, now: time.Now, maxList: maxList}
}

// Record appends one entry.
func (a *AuditLogger) Record(ctx context.Context, actorID string, action model.AuditAction,
	resourceType string, resourceID *string, detail model.AuditDetail) error {
	entry := &model.AuditEntry{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
		CreatedAt:    a.now().UTC(),
	}
	if entry.Detail == nil {
		entry.Detail = model.AuditDetail{}
	}
	if !action.Valid() {
		err := fmt.Errorf("invalid audit action %q", action)
		a.failed(entry, err)
		return err
	}
	if err := a.store.Append(ctx, entry); err != nil {
		a.failed(entry, err)
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (a *AuditLogger) failed(e *model.AuditEntry, err error) {
	rid := ""
	if e.ResourceID != nil {
		rid = *e.ResourceID
	}
	a.log.Errorw("audit write failed",
		"actor_id", e.ActorID,
		"action", string(e.Action),
		"resource_type", e.ResourceType,
		"resource_id", rid,
		"detail", map[string]any(e.Detail),
		"error", err,
	)
}

// List returns entries newest first. limit is clamped to (0, maxList].
func (a *AuditLogger) List(ctx context.Context, limit, offset int) ([]model.AuditEntry, error) {
	if limit <= 0 || limit > a.maxList {
		limit = a.maxList
	}
	if offset < 0 {
		offset = 0
	}
	return a.store.List(ctx, limit, offset)
}

// ID is a small helper for the optional resource id argument.
func ID(v string) *string { return &v }
