package wire_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/dcnet/pkg/party"
	"github.com/luxfi/dcnet/pkg/wire"
)

func TestJoinRoundTrip(t *testing.T) {
	env := wire.NewJoin("test", "Alice", "password")
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded wire.Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, wire.TypeJoin, decoded.Type)
	require.Equal(t, "test", decoded.Group)
	require.Equal(t, party.ID("Alice"), decoded.Participant)
	require.Equal(t, "password", decoded.Password)
}

func TestAnonymousBroadcastShareSurvivesLargeIntegers(t *testing.T) {
	huge, ok := new(big.Int).SetString("1"+stringRepeat("0", 700), 10)
	require.True(t, ok)

	env := wire.NewAnonymousBroadcastShare(42, huge)
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded wire.Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	idx, err := decoded.IndexValue()
	require.NoError(t, err)
	require.Equal(t, uint64(42), idx)

	value, err := decoded.ShareValue()
	require.NoError(t, err)
	require.Equal(t, 0, huge.Cmp(value), "arbitrary-precision integers must round-trip exactly through JSON")
}

func TestAnonymousBroadcastResultMessagesMap(t *testing.T) {
	messages := map[party.ID]*big.Int{
		"Alice": big.NewInt(123),
		"Bob":   big.NewInt(456),
	}
	env := wire.NewAnonymousBroadcastResult(7, messages)
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded wire.Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Messages, 2)
	require.Equal(t, 0, big.NewInt(123).Cmp(decoded.Messages["Alice"]))
}

func TestDecodeMessageOnEmptyPayloadErrors(t *testing.T) {
	env := wire.NewGenerateSecrets()
	var dst wire.HandshakeEnvelope
	require.Error(t, env.DecodeMessage(&dst))
}

func TestIndexValueMissingErrors(t *testing.T) {
	env := wire.NewSecretsGenerated()
	_, err := env.IndexValue()
	require.Error(t, err)
}

func stringRepeat(s string, n int) string {
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
