package sessiontoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
)

func genKey(t *testing.T) accesskey.AccessKey {
	t.Helper()
	k, err := accesskey.Generate()
	require.NoError(t, err)
	return k
}

func TestIssueAndValidate(t *testing.T) {
	issuer, err := NewIssuer([]byte("test-secret"))
	require.NoError(t, err)

	subject := genKey(t)
	session := genKey(t)

	token, expiry, err := issuer.Issue(subject.PublicKey(), session.PublicKey(), time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Second)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, subject.PublicKey().String(), claims.Subject)
	assert.Equal(t, session.PublicKey().String(), claims.SessionKey)
}

func TestValidateRejectsExpired(t *testing.T) {
	issuer, err := NewIssuer([]byte("test-secret"))
	require.NoError(t, err)

	subject := genKey(t)
	session := genKey(t)

	token, _, err := issuer.Issue(subject.PublicKey(), session.PublicKey(), -time.Second)
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuerA, err := NewIssuer([]byte("secret-a"))
	require.NoError(t, err)
	issuerB, err := NewIssuer([]byte("secret-b"))
	require.NoError(t, err)

	subject := genKey(t)
	session := genKey(t)

	token, _, err := issuerA.Issue(subject.PublicKey(), session.PublicKey(), time.Hour)
	require.NoError(t, err)

	_, err = issuerB.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer, err := NewIssuer([]byte("test-secret"))
	require.NoError(t, err)

	_, err = issuer.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRejectsEmptySecret(t *testing.T) {
	_, err := NewIssuer(nil)
	assert.Error(t, err)
}
