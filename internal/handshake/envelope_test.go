package handshake_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/dcnet/internal/handshake"
)

const freshnessWindow = 300 * time.Second

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestBuildAndOpenEnvelopeRoundTrip(t *testing.T) {
	alice := generateTestKey(t)
	bob := generateTestKey(t)

	seed, err := handshake.NewNonce()
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	env, err := handshake.BuildEnvelope(alice, &bob.PublicKey, seed, now)
	require.NoError(t, err)

	got, err := handshake.OpenEnvelope(bob, &alice.PublicKey, env, now, freshnessWindow)
	require.NoError(t, err)
	require.Equal(t, 0, seed.Cmp(got))
}

func TestOpenEnvelopeRejectsStaleTimestamp(t *testing.T) {
	alice := generateTestKey(t)
	bob := generateTestKey(t)

	seed, err := handshake.NewNonce()
	require.NoError(t, err)

	sent := time.Unix(1_700_000_000, 0)
	env, err := handshake.BuildEnvelope(alice, &bob.PublicKey, seed, sent)
	require.NoError(t, err)

	// Spec section 8, scenario S4: a 1000-second-old envelope must be
	// rejected under the default 300-second freshness window.
	received := sent.Add(1000 * time.Second)
	_, err = handshake.OpenEnvelope(bob, &alice.PublicKey, env, received, freshnessWindow)
	require.Error(t, err)
}

func TestOpenEnvelopeRejectsWrongSigner(t *testing.T) {
	alice := generateTestKey(t)
	bob := generateTestKey(t)
	mallory := generateTestKey(t)

	seed, err := handshake.NewNonce()
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	env, err := handshake.BuildEnvelope(alice, &bob.PublicKey, seed, now)
	require.NoError(t, err)

	// Bob opens the envelope expecting it to have come from Mallory's
	// key instead of Alice's: the signature check must fail.
	_, err = handshake.OpenEnvelope(bob, &mallory.PublicKey, env, now, freshnessWindow)
	require.Error(t, err)
}

func TestOpenEnvelopeRejectsTamperedCiphertext(t *testing.T) {
	alice := generateTestKey(t)
	bob := generateTestKey(t)

	seed, err := handshake.NewNonce()
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	env, err := handshake.BuildEnvelope(alice, &bob.PublicKey, seed, now)
	require.NoError(t, err)

	env.Ciphertext = "00" + env.Ciphertext[2:]
	_, err = handshake.OpenEnvelope(bob, &alice.PublicKey, env, now, freshnessWindow)
	require.Error(t, err)
}
