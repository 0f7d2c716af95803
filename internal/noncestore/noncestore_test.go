package noncestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
)

func genKey(t *testing.T) accesskey.PublicKey {
	t.Helper()
	k, err := accesskey.Generate()
	require.NoError(t, err)
	return k.PublicKey()
}

func TestIssueThenConsume(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	pk := genKey(t)
	nonce, err := s.Issue(pk)
	require.NoError(t, err)

	got, ok := s.Consume(nonce)
	require.True(t, ok)
	assert.True(t, got.Equal(pk))
}

func TestNonceSingleUse(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	pk := genKey(t)
	nonce, err := s.Issue(pk)
	require.NoError(t, err)

	_, ok := s.Consume(nonce)
	require.True(t, ok)

	_, ok = s.Consume(nonce)
	assert.False(t, ok, "a nonce must be accepted at most once")
}

func TestUnknownNonceRejected(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	_, ok := s.Consume("0xdeadbeef")
	assert.False(t, ok)
}

func TestExpiredNonceRejected(t *testing.T) {
	s := New(time.Millisecond)
	defer s.Close()

	pk := genKey(t)
	nonce, err := s.Issue(pk)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, ok := s.Consume(nonce)
	assert.False(t, ok)
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	s := New(2 * time.Millisecond)
	defer s.Close()

	pk := genKey(t)
	nonce, err := s.Issue(pk)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		_, present := s.entries[nonce]
		s.mu.Unlock()
		return !present
	}, time.Second, 2*time.Millisecond)
}
