package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	ti, err := NewTokenIssuer("", time.Hour)
	require.NoError(t, err)

	token, err := ti.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "JWT состоит из трёх частей")

	claims, err := ti.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Operator)
	assert.Equal(t, "sprite-engine", claims.Issuer)

	_, err = ti.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenIssuer("", time.Hour)
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "Чужой ключ")
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti, err := NewTokenIssuer("", time.Nanosecond)
	require.NoError(t, err)

	token, err := ti.Issue("bob")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = ti.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Secrets(t *testing.T) {
	_, err := NewTokenIssuer(base64.StdEncoding.EncodeToString([]byte("short")), 0)
	assert.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewTokenIssuer("%%%", 0)
	assert.Error(t, err)

	secret, err := GenerateSecureSecret()
	require.NoError(t, err)
	a, err := NewTokenIssuer(secret, 0)
	require.NoError(t, err)
	b, err := NewTokenIssuer(secret, 0)
	require.NoError(t, err)

	token, err := a.Issue("carol")
	require.NoError(t, err)
	_, err = b.Validate(token)
	assert.NoError(t, err, "Один ключ - общие токены")
}

func TestAuthenticator(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "nope"))

	ti, err := NewTokenIssuer("", 0)
	require.NoError(t, err)
	a := NewAuthenticator(ti, map[string]string{"admin": hash})
	assert.True(t, a.Enabled())

	_, err = a.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = a.Login("ghost", "s3cret")
	assert.ErrorIs(t, err, ErrBadCredentials)

	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)
	name, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", name)

	// Токен с тем же ключом, но для неизвестного оператора
	forged, err := ti.Issue("intruder")
	require.NoError(t, err)
	_, err = a.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	var disabled *Authenticator
	assert.False(t, disabled.Enabled())
	assert.False(t, NewAuthenticator(ti, nil).Enabled())
}
