package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestDecode(t *testing.T) {
	codec := NewCodec(zap.NewNop())

	t.Run("maps well-known claim keys", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Unix()
		iat := time.Now().Unix()
		raw := signedToken(t, jwt.MapClaims{
			"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier": "7",
			"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name":           "Ana Torres",
			"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress":   "ana@example.com",
			"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/mobilephone":    "3001234567",
			"IsActive":     "True",
			"Specialities": "Administración",
			"exp":          exp,
			"iat":          iat,
		})

		claims := codec.Decode(raw)
		require.NotNil(t, claims)
		assert.Equal(t, "7", claims.UserID)
		assert.Equal(t, "Ana Torres", claims.UserName)
		assert.Equal(t, "ana@example.com", claims.Email)
		assert.Equal(t, "3001234567", claims.Phone)
		assert.True(t, claims.IsActive)
		assert.Equal(t, "Administración", claims.Specialities)
		assert.Equal(t, exp, claims.ExpiresAt)
		assert.Equal(t, iat, claims.IssuedAt)
	})

	t.Run("IsActive requires exact True", func(t *testing.T) {
		for _, v := range []string{"true", "TRUE", "1", ""} {
			raw := signedToken(t, jwt.MapClaims{"IsActive": v})
			claims := codec.Decode(raw)
			require.NotNil(t, claims)
			assert.False(t, claims.IsActive, "IsActive=%q must not activate", v)
		}
	})

	t.Run("absent claims default to zero values", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{})
		claims := codec.Decode(raw)
		require.NotNil(t, claims)
		assert.Empty(t, claims.UserID)
		assert.Zero(t, claims.ExpiresAt)
	})

	t.Run("rejects malformed tokens", func(t *testing.T) {
		for _, raw := range []string{"", "just-one-segment", "two.segments", "a.b.c.d", "a.!!!notbase64.c"} {
			assert.Nil(t, codec.Decode(raw), "token %q must not decode", raw)
		}
	})
}

func TestWellFormed(t *testing.T) {
	assert.True(t, WellFormed("a.b.c"))
	assert.False(t, WellFormed("a.b"))
	assert.False(t, WellFormed("a.b.c.d"))
	assert.False(t, WellFormed(""))
}
