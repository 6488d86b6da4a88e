package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

// SessionStatus is the outcome of a revalidation.
type SessionStatus string

const (
	SessionValid       SessionStatus = "valid"
	SessionInvalidated SessionStatus = "invalidated"
	// SessionUnknown accompanies ErrInconclusive.
	SessionUnknown SessionStatus = "unknown"
)

// SessionManager enforces that a driver identity is signed in on at most
// one device. The server-side token is a single-writer register: each login
// overwrites it, and any device still holding an older value discovers the
// mismatch on its next revalidation. Nothing is locked.
type SessionManager struct {
	tokens   SessionTokenStore
	newToken func() (string, error)
	now      func() time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionClock replaces time.Now (tests).
func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// WithTokenSource replaces the random token generator (tests).
func WithTokenSource(gen func() (string, error)) SessionOption {
	return func(m *SessionManager) { m.newToken = gen }
}

func NewSessionManager(tokens SessionTokenStore, opts ...SessionOption) *SessionManager {
	if tokens == nil {
		panic("nil token store passed to NewSessionManager")
	}
	m := &SessionManager{tokens: tokens, newToken: utils.NewSessionToken, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login mints a fresh token, stores it as the identity's active token and
// returns it. A previous holder is silently invalidated.
func (m *SessionManager) Login(ctx context.Context, identityID string) (string, error) {
	token, err := m.newToken()
	if err != nil {
		return "", fmt.Errorf("mint session token: %w", err)
	}
	if err := m.tokens.SetSessionToken(ctx, identityID, &token, m.now()); err != nil {
		return "", fmt.Errorf("store session token: %w", err)
	}
	return token, nil
}

// Revalidate compares the locally held token with the server's copy.
// A failed read yields SessionUnknown and ErrInconclusive; only a
// successful read proving a mismatch invalidates.
func (m *SessionManager) Revalidate(ctx context.Context, identityID, localToken string) (SessionStatus, error) {
	if localToken == "" {
		return SessionInvalidated, nil
	}
	server, err := m.tokens.GetSessionToken(ctx, identityID)
	if errors.Is(err, repository.ErrNotFound) {
		// the identity is gone, which is as conclusive as a mismatch
		return SessionInvalidated, nil
	}
	if err != nil {
		return SessionUnknown, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	if server == nil || *server != localToken {
		return SessionInvalidated, nil
	}
	return SessionValid, nil
}

// Logout clears the server-side token. Calling it twice is harmless.
func (m *SessionManager) Logout(ctx context.Context, identityID string) error {
	if err := m.tokens.SetSessionToken(ctx, identityID, nil, m.now()); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}
