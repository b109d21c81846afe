package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer("", DefaultTokenTTL)
	assert.Error(t, err)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", DefaultTokenTTL)
	require.NoError(t, err)

	token, err := issuer.Sign(42, "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer1, err := NewIssuer("secret-1", DefaultTokenTTL)
	require.NoError(t, err)
	issuer2, err := NewIssuer("secret-2", DefaultTokenTTL)
	require.NoError(t, err)

	token, err := issuer1.Sign(1, "a@x.com")
	require.NoError(t, err)

	_, err = issuer2.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_ExpiredToken(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Nanosecond)
	require.NoError(t, err)

	token, err := issuer.Sign(1, "a@x.com")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	issuer, err := NewIssuer("secret", DefaultTokenTTL)
	require.NoError(t, err)

	_, err = issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
