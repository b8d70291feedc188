package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeToken_RoundTrip(t *testing.T) {
	tok, err := MakeToken("u1", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
}

func TestMakeToken_NoSecret(t *testing.T) {
	_, err := MakeToken("u1", "", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := MakeToken("u1", "secret", time.Hour)
	require.NoError(t, err)
	expired, err := MakeToken("u1", "secret", -time.Minute)
	require.NoError(t, err)
	noUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("secret"))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		raw    string
		secret string
	}{
		{name: "wrong secret", raw: valid, secret: "other"},
		{name: "expired", raw: expired, secret: "secret"},
		{name: "missing uid", raw: noUID, secret: "secret"},
		{name: "alg none", raw: unsigned, secret: "secret"},
		{name: "garbage", raw: "not.a.token", secret: "secret"},
		{name: "empty", raw: "", secret: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseToken(tt.raw, tt.secret)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}
