package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityToken(t *testing.T) {
	token, err := GenerateIdentityToken("alice", "admin", "s3cret", time.Minute, "identity")
	require.NoError(t, err)

	claims, err := ParseIdentityToken(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseIdentityToken(token, "other")
	assert.Error(t, err)

	expired, err := GenerateIdentityToken("alice", "client", "s3cret", -time.Minute, "identity")
	require.NoError(t, err)
	_, err = ParseIdentityToken(expired, "s3cret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
