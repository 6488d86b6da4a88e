package service_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

func newAuthenticator(s *stores) (*service.Authenticator, *service.SessionManager) {
	sessions := service.NewSessionManager(s.identities)
	auth := service.NewAuthenticator(s.identities, s.credentials, hasher, sessions,
		service.AuthConfig{JWTSecret: "test-secret", AccessTTLMin: 15}, nop)
	return auth, sessions
}

func TestAuthenticator_Login(t *testing.T) {
	s := newStores()
	s.seedHashed(t, "d1", "0900000001", model.RoleDriver, "driverpw")
	s.seedHashed(t, "p1", "0900000002", model.RolePassenger, "riderpw")
	auth, sessions := newAuthenticator(s)

	t.Run("driver receives a session token", func(t *testing.T) {
		res, err := auth.Login(ctx, "0900000001", "driverpw")
		require.NoError(t, err)
		require.NotEmpty(t, res.SessionToken)
		sub, role, err := utils.ParseAccessToken("test-secret", res.Access.Token)
		require.NoError(t, err)
		require.Equal(t, "d1", sub)
		require.Equal(t, "driver", role)

		status, err := sessions.Revalidate(ctx, "d1", res.SessionToken)
		require.NoError(t, err)
		require.Equal(t, service.SessionValid, status)
	})

	t.Run("passenger has no device session", func(t *testing.T) {
		res, err := auth.Login(ctx, "0900000002", "riderpw")
		require.NoError(t, err)
		require.Empty(t, res.SessionToken)
		tok, err := s.identities.GetSessionToken(ctx, "p1")
		require.NoError(t, err)
		require.Nil(t, tok)
	})

	t.Run("unknown phone and wrong password look the same", func(t *testing.T) {
		_, err := auth.Login(ctx, "0999999999", "driverpw")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
		_, err = auth.Login(ctx, "0900000001", "wrong")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
		require.Equal(t, service.ErrInvalidCredentials.Error(), err.Error())
	})

	t.Run("missing fields are rejected before the store", func(t *testing.T) {
		s.identities.Fail("GetByPhone", errors.New("must not be called"))
		defer s.identities.Fail("GetByPhone", nil)
		_, err := auth.Login(ctx, " ", "x")
		require.ErrorIs(t, err, service.ErrValidation)
		_, err = auth.Login(ctx, "0900000001", "")
		require.ErrorIs(t, err, service.ErrValidation)
	})
}

func TestAuthenticator_UpgradesLegacyCredential(t *testing.T) {
	s := newStores()
	s.seed(t, "p1", "0900000002", model.RolePassenger, "plainpw")
	auth, _ := newAuthenticator(s)

	_, err := auth.Login(ctx, "0900000002", "plainpw")
	require.NoError(t, err)

	cred, err := s.credentials.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, utils.SchemeBcrypt, utils.DetectScheme(cred.PasswordHash))

	// the upgraded credential still verifies
	_, err = auth.Login(ctx, "0900000002", "plainpw")
	require.NoError(t, err)
}

func TestAuthenticator_UpgradeFailureDoesNotFailLogin(t *testing.T) {
	s := newStores()
	s.seed(t, "p1", "0900000002", model.RolePassenger, "plainpw")
	s.credentials.Fail("SetPasswordHash", errors.New("read only"))
	auth, _ := newAuthenticator(s)

	_, err := auth.Login(ctx, "0900000002", "plainpw")
	require.NoError(t, err)
	cred, err := s.credentials.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "plainpw", cred.PasswordHash)
}

func TestAuthenticator_Logout(t *testing.T) {
	s := newStores()
	s.seedHashed(t, "d1", "0900000001", model.RoleDriver, "driverpw")
	s.seedHashed(t, "p1", "0900000002", model.RolePassenger, "riderpw")
	auth, sessions := newAuthenticator(s)

	res, err := auth.Login(ctx, "0900000001", "driverpw")
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx, "d1"))
	require.NoError(t, auth.Logout(ctx, "d1"))
	status, err := sessions.Revalidate(ctx, "d1", res.SessionToken)
	require.NoError(t, err)
	require.Equal(t, service.SessionInvalidated, status)

	require.NoError(t, auth.Logout(ctx, "p1"))
}
