package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "medinauts/pkg/domain-errors"
)

var issuedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func serviceAt(now time.Time) *JWTService {
	return NewJWTService("test-signing-key", 30*time.Minute, WithClock(func() time.Time { return now }))
}

func Test_GenerateAccessToken(t *testing.T) {
	token, err := serviceAt(issuedAt).GenerateAccessToken("dr.who")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := serviceAt(issuedAt.Add(time.Minute)).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dr.who", subject)
}

func Test_GenerateAccessToken_RequiresUsername(t *testing.T) {
	_, err := serviceAt(issuedAt).GenerateAccessToken("  ")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := serviceAt(issuedAt).ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthRequired))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := serviceAt(issuedAt).GenerateAccessToken("dr.who")
	require.NoError(t, err)

	_, err = serviceAt(issuedAt.Add(31 * time.Minute)).ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSessionExpired))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token, err := serviceAt(issuedAt).GenerateAccessToken("dr.who")
	require.NoError(t, err)

	other := NewJWTService("another-key", time.Minute, WithClock(func() time.Time { return issuedAt }))
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthRequired))
}

func Test_ValidateToken_RejectsAlgorithmConfusion(t *testing.T) {
	claims := AccessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "dr.who",
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = serviceAt(issuedAt).ValidateToken(unsigned)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthRequired))
}

func Test_ValidateToken_RequiresExpiry(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "dr.who",
	}}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = serviceAt(issuedAt).ValidateToken(token)
	require.Error(t, err)
}

func Test_NewJWTService_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewJWTService("k", 0).TTL())
}
