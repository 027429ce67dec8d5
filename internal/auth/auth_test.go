package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cr3t-password")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "s3cr3t-password"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestJWTManagerGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("test-secret", 5*time.Minute)

	token, expiresAt, err := m.GenerateToken("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestJWTManagerRejectsWrongSecret(t *testing.T) {
	token, _, err := NewJWTManager("secret-a", time.Minute).GenerateToken("user-1")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Minute).VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTManagerRejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)
	token, _, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTManagerRejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: "user-1"}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager("test-secret", time.Minute).VerifyToken(signed)
	assert.Error(t, err)
}

func TestResetCode(t *testing.T) {
	code, err := NewResetCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	assert.Equal(t, HashResetCode(code), HashResetCode(code))
	assert.NotEqual(t, code, HashResetCode(code))
	assert.Len(t, HashResetCode(code), 64)
}
