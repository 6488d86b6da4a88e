package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carpool-identity/internal/model"
)

func TestPermissionEnumeration(t *testing.T) {
	all := model.AllPermissions()
	require.Len(t, all, 19)
	for _, p := range all {
		require.True(t, p.Valid(), p)
		require.NotEqual(t, string(p), p.Label(), "missing label for %s", p)
	}

	all[0] = "mutated"
	require.Equal(t, model.PermUsersView, model.AllPermissions()[0])

	require.False(t, model.Permission("trips:fly").Valid())
	require.Equal(t, "trips:fly", model.Permission("trips:fly").Label())
}

func TestParsePermissions(t *testing.T) {
	t.Run("dedupes and keeps order", func(t *testing.T) {
		perms, bad, ok := model.ParsePermissions([]string{"trips:view", "trips:delete", "trips:view"})
		require.True(t, ok)
		require.Empty(t, bad)
		require.Equal(t, []model.Permission{model.PermTripsView, model.PermTripsDelete}, perms)
	})

	t.Run("reports the first unknown key", func(t *testing.T) {
		_, bad, ok := model.ParsePermissions([]string{"trips:view", "trips:fly", "x"})
		require.False(t, ok)
		require.Equal(t, "trips:fly", bad)
	})

	t.Run("empty input is an empty grant set", func(t *testing.T) {
		perms, _, ok := model.ParsePermissions(nil)
		require.True(t, ok)
		require.Empty(t, perms)
	})
}

func TestTemplates(t *testing.T) {
	require.Equal(t, []string{"customer_support", "manager", "moderator"}, model.TemplateNames())
	for _, name := range model.TemplateNames() {
		perms, ok := model.ExpandTemplate(name)
		require.True(t, ok)
		for _, p := range perms {
			require.True(t, p.Valid())
		}
	}
	_, ok := model.ExpandTemplate("superuser")
	require.False(t, ok)
}

func TestRoleAndExclusivity(t *testing.T) {
	require.True(t, model.RoleStaff.Valid())
	require.False(t, model.Role("owner").Valid())

	require.True(t, model.Identity{Role: model.RoleDriver}.EnforcesExclusivity())
	require.True(t, model.Identity{Role: model.RolePassenger, IsDriver: true}.EnforcesExclusivity())
	require.False(t, model.Identity{Role: model.RolePassenger, IsPassenger: true}.EnforcesExclusivity())
	require.False(t, model.Identity{Role: model.RoleAdmin}.EnforcesExclusivity())
}

func TestOneTimeCodeExpired(t *testing.T) {
	exp := time.Date(2025, 1, 1, 12, 5, 0, 0, time.UTC)
	c := model.OneTimeCode{ExpiresAt: exp}
	require.False(t, c.Expired(exp.Add(-time.Second)))
	require.True(t, c.Expired(exp))
	require.True(t, c.Expired(exp.Add(time.Minute)))
}
