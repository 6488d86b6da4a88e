package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository"
)

// Moderator runs the privileged admin mutations outside staff management.
// Every call follows the same order: authorize, mutate, audit. A denied or
// failed check never reaches the store; an audit failure never undoes the
// mutation.
type Moderator struct {
	authz      *Authorizer
	identities IdentityStore
	rows       ModerationStore
	audit      *AuditLogger
	now        func() time.Time
	log        *zap.SugaredLogger
}

// ModeratorOption configures a Moderator.
type ModeratorOption func(*Moderator)

// WithModeratorClock replaces time.Now (tests).
func WithModeratorClock(now func() time.Time) ModeratorOption {
	return func(m *Moderator) { m.now = now }
}

// NewModerator wires authorization, the mutable marketplace rows and the
// audit log. Every mutation it performs is checked first and audited after.
func NewModerator(authz *Authorizer, identities IdentityStore, rows ModerationStore,
	audit *AuditLogger, log *zap.SugaredLogger, opts ...ModeratorOption) *Moderator {
	if authz == nil || identities == nil || rows == nil || audit == nil {
		panic("nil dependency passed to NewModerator")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Moderator{authz: authz, identities: identities, rows: rows, audit: audit, now: time.Now, log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// authorize maps a Check result onto a single error: nil, ErrForbidden,
// ErrAuthzUnavailable or ErrUnknownPermission.
func (m *Moderator) authorize(ctx context.Context, actorID string, p model.Permission) error {
	ok, err := m.authz.Check(ctx, actorID, p)
	if err != nil {
		m.log.Errorw("authorization check failed", "actor_id", actorID, "permission", string(p), "error", err)
		return err
	}
	if !ok {
		m.log.Warnw("permission denied", "actor_id", actorID, "permission", string(p))
		return ErrForbidden
	}
	return nil
}

// SetDriverPremium toggles the premium flag. Enabling it requires until to
// lie in the future; disabling clears the expiry.
func (m *Moderator) SetDriverPremium(ctx context.Context, actorID, driverID string, premium bool, until *time.Time) error {
	if driverID == "" {
		return validationError("driver id required")
	}
	if premium && (until == nil || !until.After(m.now())) {
		return validationError("premium expiry must be in the future")
	}
	if err := m.authorize(ctx, actorID, model.PermDriversPremium); err != nil {
		return err
	}
	driver, err := m.loadDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if !premium {
		until = nil
	}
	if err := m.identities.SetPremium(ctx, driverID, premium, until); err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	detail := model.AuditDetail{"from": driver.IsPremium, "to": premium}
	if until != nil {
		detail["expires_at"] = until.UTC().Format(time.RFC3339)
	}
	_ = m.audit.Record(ctx, actorID, model.AuditUpdate, "driver_premium", ID(driverID), detail)
	return nil
}

// SetDriverVerified toggles the verification flag.
func (m *Moderator) SetDriverVerified(ctx context.Context, actorID, driverID string, verified bool) error {
	if driverID == "" {
		return validationError("driver id required")
	}
	if err := m.authorize(ctx, actorID, model.PermDriversVerify); err != nil {
		return err
	}
	driver, err := m.loadDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if err := m.identities.SetVerified(ctx, driverID, verified); err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	_ = m.audit.Record(ctx, actorID, model.AuditUpdate, "driver_verification", ID(driverID),
		model.AuditDetail{"from": driver.IsVerified, "to": verified})
	return nil
}

func (m *Moderator) loadDriver(ctx context.Context, id string) (model.Identity, error) {
	i, err := m.identities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, err
		}
		return model.Identity{}, fmt.Errorf("load driver: %w", err)
	}
	if !i.IsDriver && i.Role != model.RoleDriver {
		return model.Identity{}, validationError("identity %s is not a driver", id)
	}
	return i, nil
}

func (m *Moderator) DeleteBanner(ctx context.Context, actorID string, id uint64) error {
	return m.remove(ctx, actorID, model.PermBannersManage, "banner", id, m.rows.DeleteBanner)
}

func (m *Moderator) DeleteReview(ctx context.Context, actorID string, id uint64) error {
	return m.remove(ctx, actorID, model.PermReviewsDelete, "review", id, m.rows.DeleteReview)
}

// DeleteMessage is gated on messages:reply; there is no dedicated delete key.
func (m *Moderator) DeleteMessage(ctx context.Context, actorID string, id uint64) error {
	return m.remove(ctx, actorID, model.PermMessagesReply, "message", id, m.rows.DeleteMessage)
}

func (m *Moderator) remove(ctx context.Context, actorID string, p model.Permission, resource string,
	id uint64, del func(context.Context, uint64) error) error {
	if id == 0 {
		return validationError("%s id required", resource)
	}
	if err := m.authorize(ctx, actorID, p); err != nil {
		return err
	}
	if err := del(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete %s: %w", resource, err)
	}
	_ = m.audit.Record(ctx, actorID, model.AuditDelete, resource, ID(strconv.FormatUint(id, 10)), nil)
	return nil
}

// SetMessageStatus moves a contact message through its workflow.
func (m *Moderator) SetMessageStatus(ctx context.Context, actorID string, id uint64, status model.MessageStatus) error {
	if id == 0 {
		return validationError("message id required")
	}
	if !status.Valid() {
		return validationError("unknown message status %q", status)
	}
	if err := m.authorize(ctx, actorID, model.PermMessagesReply); err != nil {
		return err
	}
	old, err := m.rows.SetMessageStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("set message status: %w", err)
	}
	_ = m.audit.Record(ctx, actorID, model.AuditUpdate, "message", ID(strconv.FormatUint(id, 10)),
		model.AuditDetail{"from": string(old), "to": string(status)})
	return nil
}
