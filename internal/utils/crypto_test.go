// internal/utils/crypto_test.go
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTransactionID(t *testing.T) {
	id, err := GenerateTransactionID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "EVT_"))
	assert.Len(t, id, 24)

	other, err := GenerateTransactionID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestGenerateRefundID(t *testing.T) {
	id, err := GenerateRefundID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "EVR_"))
	assert.Len(t, id, 24)
}

func TestGenerateAccessToken(t *testing.T) {
	token := GenerateAccessToken()
	assert.True(t, strings.HasPrefix(token, "evdt_"))
	assert.Len(t, token, 37)
	assert.NotEqual(t, token, GenerateAccessToken())
}

func TestGenerateAPIKey(t *testing.T) {
	key := GenerateAPIKey()
	assert.True(t, strings.HasPrefix(key, "evdata_"))
	assert.NotEqual(t, key, GenerateAPIKey())
}

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateJWT(42, "consumer@example.com", "Fleet Analytics Co", "DATA_CONSUMER", 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "consumer@example.com", claims.Email)
	assert.Equal(t, "DATA_CONSUMER", claims.Role)

	// A token signed with another secret is rejected
	SetJWTSecret("rotated-secret")
	_, err = ValidateJWT(token)
	require.Error(t, err)
}
