package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/logger"
	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

const (
	codeDigits      = 6
	defaultCodeTTL  = 5 * time.Minute
	sendCodeTimeout = 10 * time.Second
)

// PasswordResetter issues and redeems one-time codes for password reset.
type PasswordResetter struct {
	identities  IdentityStore
	credentials CredentialStore
	codes       CodeStore
	sender      CodeSender
	hasher      utils.PasswordHasher
	ttl         time.Duration
	now         func() time.Time
	newCode     func() (string, error)
	log         *zap.SugaredLogger
}

// ResetOption configures a PasswordResetter.
type ResetOption func(*PasswordResetter)

// WithResetClock replaces time.Now (tests).
func WithResetClock(now func() time.Time) ResetOption {
	return func(r *PasswordResetter) { r.now = now }
}

// WithCodeSource replaces the random code generator (tests).
func WithCodeSource(gen func() (string, error)) ResetOption {
	return func(r *PasswordResetter) { r.newCode = gen }
}

// WithCodeTTL overrides the five minute code lifetime.
func WithCodeTTL(ttl time.Duration) ResetOption {
	return func(r *PasswordResetter) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewPasswordResetter issues and redeems one-time reset codes. Codes go out
// through sender; a send failure is logged and does not fail the request.
func NewPasswordResetter(identities IdentityStore, credentials CredentialStore, codes CodeStore,
	sender CodeSender, hasher utils.PasswordHasher, log *zap.SugaredLogger, opts ...ResetOption) *PasswordResetter {
	if identities == nil || credentials == nil || codes == nil || sender == nil {
		panic("nil dependency passed to NewPasswordResetter")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &PasswordResetter{
		identities:  identities,
		credentials: credentials,
		codes:       codes,
		sender:      sender,
		hasher:      hasher,
		ttl:         defaultCodeTTL,
		now:         time.Now,
		newCode:     func() (string, error) { return utils.NewNumericCode(codeDigits) },
		log:         log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue creates a code for phone and hands it to the SMS collaborator
// without waiting for delivery.
func (r *PasswordResetter) Issue(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return validationError("phone required")
	}
	if _, err := r.identities.GetByPhone(ctx, phone); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPhoneUnknown
		}
		return fmt.Errorf("load identity: %w", err)
	}
	code, err := r.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	now := r.now().UTC()
	if err := r.codes.Insert(ctx, model.OneTimeCode{
		Phone:     phone,
		Code:      code,
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	go r.dispatch(phone, code)
	return nil
}

// dispatch runs detached from the request; delivery failures are the SMS
// collaborator's concern and are only logged.
func (r *PasswordResetter) dispatch(phone, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendCodeTimeout)
	defer cancel()
	if err := r.sender.SendCode(ctx, phone, code); err != nil {
		r.log.Warnw("send code failed", "phone", logger.MaskPhone(phone), "error", err)
	}
}

// VerifyAndReset redeems (phone, otp) and sets newPassword. The code is
// claimed before the credential is written so that two concurrent requests
// cannot both redeem it.
func (r *PasswordResetter) VerifyAndReset(ctx context.Context, phone, otp, newPassword string) error {
	phone = strings.TrimSpace(phone)
	otp = strings.TrimSpace(otp)
	if phone == "" || otp == "" || newPassword == "" {
		return validationError("phone, otp and newPassword required")
	}
	if utils.PasswordTooLong(newPassword) {
		return validationError("newPassword must be at most %d bytes", utils.MaxPasswordBytes)
	}

	code, err := r.codes.FindUnused(ctx, phone, otp)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoMatchingCode
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}
	if code.Expired(r.now().UTC()) {
		return ErrCodeExpired
	}

	identity, err := r.identities.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoMatchingCode
		}
		return fmt.Errorf("load identity: %w", err)
	}
	hash, err := r.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	claimed, err := r.codes.MarkUsed(ctx, code.ID)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	if !claimed {
		return ErrNoMatchingCode
	}
	if err := r.credentials.SetPasswordHash(ctx, identity.ID, hash); err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	r.log.Infow("password reset", "identity_id", identity.ID, "phone", logger.MaskPhone(phone))
	return nil
}
