package share_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/dcnet/internal/share"
)

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hi", "hello, anonymous world"} {
		m, err := share.EncodeMessage(s)
		require.NoError(t, err)
		require.Equal(t, -1, m.Cmp(new(big.Int).Lsh(big.NewInt(1), uint(8*share.PayloadBytes))))
		require.Equal(t, s, share.DecodeMessage(m))
	}
}

func TestEncodeMessageRejectsOversizedPayload(t *testing.T) {
	oversized := make([]byte, share.PayloadBytes+1)
	_, err := share.EncodeMessage(string(oversized))
	require.Error(t, err)
}

func TestPaddingWidthIsTwicePeerCount(t *testing.T) {
	require.Equal(t, 4, share.PaddingWidth(2))
	require.Equal(t, 0, share.PaddingWidth(0))
	require.Equal(t, 2, share.PadBitsToSet(4))
}

func TestShareWidthBits(t *testing.T) {
	require.Equal(t, 8*share.PayloadBytes+4, share.ShareWidthBits(4))
}

func TestMaskIsDeterministicInSecretAndIndex(t *testing.T) {
	secret := big.NewInt(0xDEADBEEF)
	a, err := share.Mask(secret, 7, 64)
	require.NoError(t, err)
	b, err := share.Mask(secret, 7, 64)
	require.NoError(t, err)
	require.Equal(t, 0, a.Cmp(b), "same (secret, index) must always produce the same mask")

	c, err := share.Mask(secret, 8, 64)
	require.NoError(t, err)
	require.NotEqual(t, 0, a.Cmp(c), "different round index must change the mask with overwhelming probability")
}

func TestMaskRespectsRequestedWidth(t *testing.T) {
	secret := big.NewInt(12345)
	m, err := share.Mask(secret, 1, 10)
	require.NoError(t, err)
	require.True(t, m.BitLen() <= 10)
}

func TestCollisionPadRoundTrip(t *testing.T) {
	paddingWidth, bitsToSet := 8, 4
	m := big.NewInt(98765)
	padded, err := share.ApplyCollisionPad(m, paddingWidth, bitsToSet)
	require.NoError(t, err)

	pad := share.ExtractPad(padded, paddingWidth)
	require.Equal(t, bitsToSet, share.Popcount(pad, paddingWidth))

	stripped := share.StripPad(padded, paddingWidth)
	require.Equal(t, 0, m.Cmp(stripped))
}

func TestApplyCollisionPadLeavesZeroMessageUnpadded(t *testing.T) {
	padded, err := share.ApplyCollisionPad(big.NewInt(0), 8, 4)
	require.NoError(t, err)
	require.Equal(t, 0, padded.Sign(), "the all-zero 'no content' marker carries no pad")
}

func TestXORReconstructionInvariant(t *testing.T) {
	// Spec section 8, property 1: XOR of shares == XOR of raw encoded
	// messages once pairwise masks cancel.
	secretAB := big.NewInt(111)
	secretAC := big.NewInt(222)
	secretBC := big.NewInt(333)
	const index = 5
	const width = 64

	maskAB, err := share.Mask(secretAB, index, width)
	require.NoError(t, err)
	maskAC, err := share.Mask(secretAC, index, width)
	require.NoError(t, err)
	maskBC, err := share.Mask(secretBC, index, width)
	require.NoError(t, err)

	mA := big.NewInt(7)
	mB := big.NewInt(0)
	mC := big.NewInt(0)

	shareA := new(big.Int).Xor(new(big.Int).Xor(mA, maskAB), maskAC)
	shareB := new(big.Int).Xor(new(big.Int).Xor(mB, maskAB), maskBC)
	shareC := new(big.Int).Xor(new(big.Int).Xor(mC, maskAC), maskBC)

	d := new(big.Int)
	d.Xor(d, shareA)
	d.Xor(d, shareB)
	d.Xor(d, shareC)

	require.Equal(t, 0, d.Cmp(mA), "masks must cancel pairwise leaving the XOR of raw messages")
}
