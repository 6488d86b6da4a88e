package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/carpool-identity/internal/utils"
)

func TestDetectScheme(t *testing.T) {
	cases := map[string]utils.CredentialScheme{
		"":                 utils.SchemeMalformed,
		"$ecret99":         utils.SchemeLegacyPlaintext,
		"$2a$10$abc":       utils.SchemeBcrypt,
		"$2b$10$abc":       utils.SchemeBcrypt,
		"$2y$10$abc":       utils.SchemeBcrypt,
		"hunter2":          utils.SchemeLegacyPlaintext,
	}
	for in, want := range cases {
		require.Equal(t, want, utils.DetectScheme(in), "credential %q", in)
	}
}

func TestPasswordHasher_Verify(t *testing.T) {
	h := utils.NewPasswordHasher(bcrypt.MinCost)
	hashed, err := h.Hash("s3cret!")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hashed, "$2"))

	t.Run("legacy and modern both accept the password", func(t *testing.T) {
		require.True(t, h.Verify("s3cret!", "s3cret!"))
		require.True(t, h.Verify("s3cret!", hashed))
	})

	t.Run("legacy and modern both reject another password", func(t *testing.T) {
		require.False(t, h.Verify("S3cret!", "s3cret!"))
		require.False(t, h.Verify("S3cret!", hashed))
		require.False(t, h.Verify("", hashed))
	})

	t.Run("malformed credential fails closed", func(t *testing.T) {
		require.False(t, h.Verify("anything", ""))
		require.False(t, h.Verify("", ""))
		require.False(t, h.Verify("s3cret!", "$2a$10$truncated"))
	})

	t.Run("legacy password starting with a dollar sign", func(t *testing.T) {
		require.True(t, h.Verify("$ecret99", "$ecret99"))
		require.False(t, h.Verify("$ecret98", "$ecret99"))
		require.True(t, h.NeedsUpgrade("$ecret99"))
	})

	t.Run("only legacy credentials need an upgrade", func(t *testing.T) {
		require.True(t, h.NeedsUpgrade("s3cret!"))
		require.False(t, h.NeedsUpgrade(hashed))
		require.False(t, h.NeedsUpgrade(""))
	})

	t.Run("hashing never yields a legacy credential", func(t *testing.T) {
		again, err := h.Hash("s3cret!")
		require.NoError(t, err)
		require.Equal(t, utils.SchemeBcrypt, utils.DetectScheme(again))
		require.NotEqual(t, hashed, again)
	})
}

func TestPasswordTooLong(t *testing.T) {
	require.False(t, utils.PasswordTooLong(strings.Repeat("a", utils.MaxPasswordBytes)))
	require.True(t, utils.PasswordTooLong(strings.Repeat("a", utils.MaxPasswordBytes+1)))

	_, err := utils.NewPasswordHasher(bcrypt.MinCost).Hash(strings.Repeat("a", utils.MaxPasswordBytes+1))
	require.Error(t, err)
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	require.Equal(t, bcrypt.DefaultCost, utils.NewPasswordHasher(1).Cost)
	require.Equal(t, bcrypt.DefaultCost, utils.NewPasswordHasher(99).Cost)
	require.Equal(t, 12, utils.NewPasswordHasher(12).Cost)
}
