package utils // package utils provides hashing and token helpers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed JWT along with its expiry. Token is the compact
// serialized form sent in the Authorization header; Exp is the UTC instant
// after which the token is rejected. Access tokens are short lived and do
// not by themselves keep a driver signed in: the session token does that.
type AccessToken struct {
	Token string    // serialized JWT
	Exp   time.Time // UTC expiry
}

// NewAccessToken builds and signs an HS256 JWT for an identity. It takes the
// signing secret, the identity ID, its role at issue time and a lifetime in
// minutes. The token carries the subject (sub), role, expiry (exp) and
// issued-at (iat) claims. The role claim is informational only: every
// authorization decision re-reads the role from the store.
func NewAccessToken(secret, identityID, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  identityID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and returns its subject and
// role claims. Only HS256 is accepted, so a token signed with another
// algorithm (including "none") fails. Expired tokens, tokens with foreign
// claims and tokens without a subject all return an error.
func ParseAccessToken(secret, raw string) (sub, role string, err error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return "", "", fmt.Errorf("invalid claims")
	}
	sub, _ = claims["sub"].(string)
	role, _ = claims["role"].(string)
	if sub == "" {
		return "", "", fmt.Errorf("missing subject")
	}
	return sub, role, nil
}

// sessionTokenBytes gives 256 bits of entropy.
const sessionTokenBytes = 32

// NewSessionToken returns an opaque, unguessable session token. The value is
// 64 hex characters drawn from crypto/rand. Driver sessions store exactly
// one such token per identity, so issuing a new one ends every other device.
func NewSessionToken() (string, error) {
	return randomHex(sessionTokenBytes)
}

// NewNumericCode returns a uniformly distributed decimal code of n digits,
// zero padded. It samples crypto/rand over [0, 10^n) so no digit pattern is
// more likely than another. It is used for one-time password reset codes.
func NewNumericCode(n int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
