package share

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/chacha20"
)

// Mask derives the deterministic W-bit pseudorandom mask two peers
// sharing secret agree on for round index, per spec section 4.3 step
// 5: "seed a deterministic pseudorandom generator with the 256-bit
// integer value secret[Q] XOR i, draw W bits". Design notes (spec
// section 9) name ChaCha20 as "a stronger alternative" to the
// reference implementation's non-cryptographic PRG; we adopt it
// outright; both peers must call Mask identically for their shares to
// cancel correctly.
//
// The combined seed becomes the 256-bit ChaCha20 key; the nonce is
// held at the all-zero value since the round index is already mixed
// into the key, keeping the stream a pure function of (secret, index).
func Mask(secret *big.Int, index uint64, widthBits int) (*big.Int, error) {
	if secret.Sign() < 0 {
		return nil, fmt.Errorf("share: mask secret must be non-negative")
	}
	combined := new(big.Int).Xor(secret, new(big.Int).SetUint64(index))

	var key [chacha20.KeySize]byte
	keyBytes := combined.Bytes()
	if len(keyBytes) > len(key) {
		return nil, fmt.Errorf("share: combined handshake secret exceeds %d bytes", len(key))
	}
	copy(key[len(key)-len(keyBytes):], keyBytes)

	var nonce [chacha20.NonceSize]byte
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("share: constructing mask stream: %w", err)
	}

	numBytes := (widthBits + 7) / 8
	keystream := make([]byte, numBytes)
	cipher.XORKeyStream(keystream, keystream)

	if extraBits := numBytes*8 - widthBits; extraBits > 0 {
		keystream[0] &= 0xFF >> uint(extraBits)
	}
	return new(big.Int).SetBytes(keystream), nil
}
