package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/logger"
	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

// LoginResult is what a successful login hands back to the client. The
// session token is set only for driver identities; the client persists it
// next to the identity snapshot.
type LoginResult struct {
	Identity     model.Identity
	Access       utils.AccessToken
	SessionToken string
}

// Authenticator verifies phone/password pairs and opens sessions.
type Authenticator struct {
	identities  IdentityStore
	credentials CredentialStore
	hasher      utils.PasswordHasher
	sessions    *SessionManager
	jwtSecret   string
	accessTTL   int
	log         *zap.SugaredLogger
}

// AuthConfig carries the token settings of the Authenticator.
type AuthConfig struct {
	JWTSecret    string
	AccessTTLMin int
}

func NewAuthenticator(identities IdentityStore, credentials CredentialStore, hasher utils.PasswordHasher,
	sessions *SessionManager, cfg AuthConfig, log *zap.SugaredLogger) *Authenticator {
	if identities == nil || credentials == nil || sessions == nil {
		panic("nil dependency passed to NewAuthenticator")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Authenticator{
		identities:  identities,
		credentials: credentials,
		hasher:      hasher,
		sessions:    sessions,
		jwtSecret:   cfg.JWTSecret,
		accessTTL:   cfg.AccessTTLMin,
		log:         log,
	}
}

// Login checks the password and, for drivers, mints the device-exclusive
// session token.
func (a *Authenticator) Login(ctx context.Context, phone, password string) (LoginResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return LoginResult{}, validationError("phone/password required")
	}

	identity, err := a.identities.GetByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load identity: %w", err)
	}
	cred, err := a.credentials.GetByID(ctx, identity.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load credential: %w", err)
	}
	if !a.hasher.Verify(password, cred.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if a.hasher.NeedsUpgrade(cred.PasswordHash) {
		a.upgrade(ctx, identity.ID, password)
	}

	access, err := utils.NewAccessToken(a.jwtSecret, identity.ID, string(identity.Role), a.accessTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue access token: %w", err)
	}
	res := LoginResult{Identity: identity, Access: access}
	if identity.EnforcesExclusivity() {
		token, err := a.sessions.Login(ctx, identity.ID)
		if err != nil {
			return LoginResult{}, err
		}
		res.SessionToken = token
		a.log.Infow("driver session opened", "identity_id", identity.ID, "phone", logger.MaskPhone(phone))
	}
	return res, nil
}

// upgrade rewrites a legacy plaintext credential as bcrypt. The login has
// already succeeded, so a failure here is only logged.
func (a *Authenticator) upgrade(ctx context.Context, id, password string) {
	hash, err := a.hasher.Hash(password)
	if err == nil {
		err = a.credentials.SetPasswordHash(ctx, id, hash)
	}
	if err != nil {
		a.log.Warnw("legacy credential upgrade failed", "identity_id", id, "error", err)
		return
	}
	a.log.Infow("legacy credential upgraded", "identity_id", id)
}

// Logout ends the identity's device session. Non-driver identities hold no
// server-side session token, so there is nothing to clear.
func (a *Authenticator) Logout(ctx context.Context, identityID string) error {
	identity, err := a.identities.GetByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if !identity.EnforcesExclusivity() {
		return nil
	}
	return a.sessions.Logout(ctx, identityID)
}
