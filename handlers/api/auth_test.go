package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("gatekeeper", "admin", "jwt-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "gatekeeper", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("gatekeeper", "admin", "jwt-secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestSessionTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("gatekeeper", "admin", "jwt-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "jwt-secret")
	assert.Error(t, err)
}

func TestSealTokenRoundTrip(t *testing.T) {
	sealed, err := SealToken("backend-bearer-token", "encryption-key")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "backend-bearer-token")

	plain, err := OpenToken(sealed, "encryption-key")
	require.NoError(t, err)
	assert.Equal(t, "backend-bearer-token", plain)
}

func TestOpenTokenRejectsWrongKey(t *testing.T) {
	sealed, err := SealToken("backend-bearer-token", "encryption-key")
	require.NoError(t, err)

	_, err = OpenToken(sealed, "wrong-key")
	assert.Error(t, err)
}

func TestOpenTokenRejectsGarbage(t *testing.T) {
	for _, sealed := range []string{"", "not base64 ***", "c2hvcnQ="} {
		_, err := OpenToken(sealed, "encryption-key")
		assert.Error(t, err, "input %q", sealed)
	}
}
