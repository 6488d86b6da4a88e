package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/service"
)

func newModerator(s *stores, clock *fakeClock) *service.Moderator {
	authz := service.NewAuthorizer(s.identities, s.grants)
	audit := service.NewAuditLogger(s.audit, nop, 0)
	return service.NewModerator(authz, s.identities, s.moderation, audit, nop,
		service.WithModeratorClock(clock.Now))
}

func TestModerator_AuthorizeMutateAudit(t *testing.T) {
	s := newStores()
	s.seed(t, "admin", "0911", model.RoleAdmin, "pw")
	s.seed(t, "staff", "0922", model.RoleStaff, "pw")
	s.seed(t, "d1", "0933", model.RoleDriver, "pw")
	s.moderation.Banners[1] = true
	s.moderation.Reviews[2] = true
	s.moderation.Messages[3] = model.MessageNew
	clock := newClock()
	mod := newModerator(s, clock)

	t.Run("staff without the grant is denied and nothing changes", func(t *testing.T) {
		err := mod.DeleteBanner(ctx, "staff", 1)
		require.ErrorIs(t, err, service.ErrForbidden)
		require.True(t, s.moderation.Banners[1])
		require.Empty(t, s.audit.All())
	})

	t.Run("granted staff deletes and is audited", func(t *testing.T) {
		require.NoError(t, s.grants.Replace(ctx, "staff", []model.Permission{model.PermBannersManage}, "admin"))
		require.NoError(t, mod.DeleteBanner(ctx, "staff", 1))
		require.False(t, s.moderation.Banners[1])
		last := s.audit.All()[len(s.audit.All())-1]
		require.Equal(t, "staff", last.ActorID)
		require.Equal(t, model.AuditDelete, last.Action)
		require.Equal(t, "banner", last.ResourceType)
		require.Equal(t, "1", *last.ResourceID)
	})

	t.Run("admin deletes a review", func(t *testing.T) {
		require.NoError(t, mod.DeleteReview(ctx, "admin", 2))
		require.ErrorIs(t, mod.DeleteReview(ctx, "admin", 2), repository.ErrNotFound)
	})

	t.Run("message status transition records both ends", func(t *testing.T) {
		require.NoError(t, mod.SetMessageStatus(ctx, "admin", 3, model.MessageReplied))
		last := s.audit.All()[len(s.audit.All())-1]
		require.Equal(t, "new", last.Detail["from"])
		require.Equal(t, "replied", last.Detail["to"])
		require.ErrorIs(t, mod.SetMessageStatus(ctx, "admin", 3, "lost"), service.ErrValidation)
	})

	t.Run("premium toggle", func(t *testing.T) {
		until := clock.Now().Add(30 * 24 * time.Hour)
		require.NoError(t, mod.SetDriverPremium(ctx, "admin", "d1", true, &until))
		d, err := s.identities.GetByID(ctx, "d1")
		require.NoError(t, err)
		require.True(t, d.IsPremium)
		require.Equal(t, until, *d.PremiumExpiresAt)

		past := clock.Now().Add(-time.Hour)
		require.ErrorIs(t, mod.SetDriverPremium(ctx, "admin", "d1", true, &past), service.ErrValidation)

		require.NoError(t, mod.SetDriverPremium(ctx, "admin", "d1", false, nil))
		d, err = s.identities.GetByID(ctx, "d1")
		require.NoError(t, err)
		require.False(t, d.IsPremium)
		require.Nil(t, d.PremiumExpiresAt)
	})

	t.Run("verification toggle on a non-driver", func(t *testing.T) {
		require.ErrorIs(t, mod.SetDriverVerified(ctx, "admin", "staff", true), service.ErrValidation)
		require.NoError(t, mod.SetDriverVerified(ctx, "admin", "d1", true))
	})
}

func TestModerator_StoreFailureDenies(t *testing.T) {
	s := newStores()
	s.seed(t, "staff", "0922", model.RoleStaff, "pw")
	s.moderation.Reviews[2] = true
	s.grants.Fail("Has", errors.New("timeout"))
	mod := newModerator(s, newClock())

	err := mod.DeleteReview(ctx, "staff", 2)
	require.ErrorIs(t, err, service.ErrAuthzUnavailable)
	require.True(t, s.moderation.Reviews[2])
}

func TestModerator_AuditFailureKeepsMutation(t *testing.T) {
	s := newStores()
	s.seed(t, "admin", "0911", model.RoleAdmin, "pw")
	s.moderation.Banners[9] = true
	s.audit.Fail("Append", errors.New("audit down"))
	mod := newModerator(s, newClock())

	require.NoError(t, mod.DeleteBanner(ctx, "admin", 9))
	require.False(t, s.moderation.Banners[9])
}
