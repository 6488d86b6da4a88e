package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

// recordingSender captures codes handed to the SMS collaborator.
type recordingSender struct {
	sent chan [2]string
	err  error
}

func newSender() *recordingSender { return &recordingSender{sent: make(chan [2]string, 8)} }

func (r *recordingSender) SendCode(_ context.Context, phone, code string) error {
	r.sent <- [2]string{phone, code}
	return r.err
}

func newResetter(s *stores, sender service.CodeSender, clock *fakeClock) *service.PasswordResetter {
	return service.NewPasswordResetter(s.identities, s.credentials, s.codes, sender, hasher, nop,
		service.WithResetClock(clock.Now),
		service.WithCodeSource(func() (string, error) { return "123456", nil }))
}

func TestPasswordResetter_Issue(t *testing.T) {
	s := newStores()
	s.seed(t, "p1", "0900000002", model.RolePassenger, "old")
	clock := newClock()
	sender := newSender()
	reset := newResetter(s, sender, clock)

	t.Run("missing phone", func(t *testing.T) {
		require.ErrorIs(t, reset.Issue(ctx, ""), service.ErrValidation)
	})

	t.Run("unknown phone", func(t *testing.T) {
		require.ErrorIs(t, reset.Issue(ctx, "0999"), service.ErrPhoneUnknown)
	})

	t.Run("code stored with a five minute expiry and sent", func(t *testing.T) {
		require.NoError(t, reset.Issue(ctx, "0900000002"))
		code, ok := s.codes.Latest("0900000002")
		require.True(t, ok)
		require.Equal(t, "123456", code.Code)
		require.Equal(t, clock.Now().Add(5*time.Minute), code.ExpiresAt)

		select {
		case got := <-sender.sent:
			require.Equal(t, [2]string{"0900000002", "123456"}, got)
		case <-time.After(time.Second):
			t.Fatal("code was not dispatched")
		}
	})

	t.Run("persistence failure", func(t *testing.T) {
		s.codes.Fail("Insert", errors.New("table full"))
		defer s.codes.Fail("Insert", nil)
		err := reset.Issue(ctx, "0900000002")
		require.Error(t, err)
		require.NotErrorIs(t, err, service.ErrValidation)
	})
}

func TestPasswordResetter_SendFailureDoesNotFailIssue(t *testing.T) {
	s := newStores()
	s.seed(t, "p1", "0900000002", model.RolePassenger, "old")
	sender := newSender()
	sender.err = errors.New("sms gateway down")
	reset := newResetter(s, sender, newClock())

	require.NoError(t, reset.Issue(ctx, "0900000002"))
	<-sender.sent
}

func TestPasswordResetter_CodeAcceptedExactlyOnce(t *testing.T) {
	s := newStores()
	s.seed(t, "p1", "0900000002", model.RolePassenger, "old")
	auth, _ := newAuthenticator(s)
	reset := newResetter(s, newSender(), newClock())
	require.NoError(t, reset.Issue(ctx, "0900000002"))

	require.NoError(t, reset.VerifyAndReset(ctx, "0900000002", "123456", "brand-new"))
	err := reset.VerifyAndReset(ctx, "0900000002", "123456", "again")
	require.ErrorIs(t, err, service.ErrNoMatchingCode)
	require.Contains(t, err.Error(), "no matching unused code")

	_, err = auth.Login(ctx, "0900000002", "brand-new")
	require.NoError(t, err)
	_, err = auth.Login(ctx, "0900000002", "again")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestPasswordResetter_ExpiredCode(t *testing.T) {
	s := newStores()
	s.seed(t, "p1", "0900000002", model.RolePassenger, "old")
	clock := newClock()
	reset := newResetter(s, newSender(), clock)
	require.NoError(t, reset.Issue(ctx, "0900000002"))

	clock.Advance(5*time.Minute + time.Second)
	err := reset.VerifyAndReset(ctx, "0900000002", "123456", "brand-new")
	require.ErrorIs(t, err, service.ErrCodeExpired)

	cred, err := s.credentials.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "old", cred.PasswordHash)
}

func TestPasswordResetter_VerifyRejections(t *testing.T) {
	s := newStores()
	s.seed(t, "p1", "0900000002", model.RolePassenger, "old")
	reset := newResetter(s, newSender(), newClock())
	require.NoError(t, reset.Issue(ctx, "0900000002"))

	require.ErrorIs(t, reset.VerifyAndReset(ctx, "0900000002", "", "x"), service.ErrValidation)
	require.ErrorIs(t, reset.VerifyAndReset(ctx, "0900000002", "123456", ""), service.ErrValidation)
	require.ErrorIs(t, reset.VerifyAndReset(ctx, "0900000002", "654321", "x"), service.ErrNoMatchingCode)
	require.ErrorIs(t, reset.VerifyAndReset(ctx, "0900000003", "123456", "x"), service.ErrNoMatchingCode)
}

func TestPasswordResetter_OverlongPasswordKeepsCode(t *testing.T) {
	s := newStores()
	s.seed(t, "p1", "0900000002", model.RolePassenger, "old")
	reset := newResetter(s, newSender(), newClock())
	require.NoError(t, reset.Issue(ctx, "0900000002"))

	err := reset.VerifyAndReset(ctx, "0900000002", "123456", strings.Repeat("x", utils.MaxPasswordBytes+1))
	require.ErrorIs(t, err, service.ErrValidation)

	// the code was not consumed by the rejected attempt
	require.NoError(t, reset.VerifyAndReset(ctx, "0900000002", "123456", "short-enough"))
}
