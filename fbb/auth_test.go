package fbb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthChallengeRoundTrip(t *testing.T) {
	nonce, ok := isAuthChallenge(";PQ 12345678")
	require.True(t, ok)
	assert.Equal(t, "12345678", nonce)

	resp := authResponse(nonce, "swordfish")
	assert.True(t, len(resp) > len(authResponsePrefix))
	assert.NoError(t, checkAuthResponse(resp, nonce, "swordfish"))
}

func TestAuthChallengeRejectsWrongSecret(t *testing.T) {
	resp := authResponse("12345678", "swordfish")
	err := checkAuthResponse(resp, "12345678", "wrong-secret")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestIsAuthChallengeFalseForOtherLines(t *testing.T) {
	_, ok := isAuthChallenge("FQ")
	assert.False(t, ok)
}

func TestCheckAuthResponseMalformed(t *testing.T) {
	err := checkAuthResponse("FQ", "12345678", "swordfish")
	assert.ErrorIs(t, err, ErrProtocol)
}
