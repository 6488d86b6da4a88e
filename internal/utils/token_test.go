package utils_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carpool-identity/internal/utils"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", "id-1", "staff", 15)
	require.NoError(t, err)

	sub, role, err := utils.ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	require.Equal(t, "id-1", sub)
	require.Equal(t, "staff", role)

	_, _, err = utils.ParseAccessToken("other", tok.Token)
	require.Error(t, err)
}

func TestAccessToken_Expired(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", "id-1", "driver", -1)
	require.NoError(t, err)
	_, _, err = utils.ParseAccessToken("secret", tok.Token)
	require.Error(t, err)
}

func TestNewSessionToken(t *testing.T) {
	a, err := utils.NewSessionToken()
	require.NoError(t, err)
	b, err := utils.NewSessionToken()
	require.NoError(t, err)
	require.Len(t, a, 64)
	require.NotEqual(t, a, b)
}

func TestNewNumericCode(t *testing.T) {
	six := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 200; i++ {
		code, err := utils.NewNumericCode(6)
		require.NoError(t, err)
		require.Regexp(t, six, code)
	}
}
