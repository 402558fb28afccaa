package share

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// SelectPadBits draws bitsToSet distinct bit positions from
// {0,...,paddingWidth-1} uniformly at random without replacement,
// using a cryptographic RNG, and returns the integer with exactly
// those bits set (spec section 4.3 step 2).
func SelectPadBits(paddingWidth, bitsToSet int) (*big.Int, error) {
	if bitsToSet > paddingWidth {
		return nil, fmt.Errorf("share: cannot set %d bits out of %d", bitsToSet, paddingWidth)
	}
	positions := make([]int, paddingWidth)
	for i := range positions {
		positions[i] = i
	}
	pad := new(big.Int)
	for i := 0; i < bitsToSet; i++ {
		remaining := len(positions) - i
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(remaining)))
		if err != nil {
			return nil, fmt.Errorf("share: sampling pad bit: %w", err)
		}
		j := i + int(idx.Int64())
		positions[i], positions[j] = positions[j], positions[i]
		pad.SetBit(pad, positions[i], 1)
	}
	return pad, nil
}

// ApplyCollisionPad shifts the payload integer m left by paddingWidth
// bits and, unless m is the "no content" zero marker, ORs in a
// freshly-sampled popcount-bitsToSet padding vector in the low
// paddingWidth bits (spec section 4.3 step 2).
func ApplyCollisionPad(m *big.Int, paddingWidth, bitsToSet int) (*big.Int, error) {
	shifted := new(big.Int).Lsh(m, uint(paddingWidth))
	if m.Sign() == 0 {
		return shifted, nil
	}
	pad, err := SelectPadBits(paddingWidth, bitsToSet)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Or(shifted, pad), nil
}

// ExtractPad returns the low paddingWidth bits of m, the collision pad
// (spec section 4.4 step 5).
func ExtractPad(m *big.Int, paddingWidth int) *big.Int {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(paddingWidth)), big.NewInt(1))
	return new(big.Int).And(m, mask)
}

// StripPad removes the low paddingWidth bits, recovering the payload
// integer (spec section 4.4 step 5).
func StripPad(m *big.Int, paddingWidth int) *big.Int {
	return new(big.Int).Rsh(m, uint(paddingWidth))
}

// Popcount counts the set bits among the low bits bits of x.
func Popcount(x *big.Int, bits int) int {
	count := 0
	for i := 0; i < bits; i++ {
		if x.Bit(i) == 1 {
			count++
		}
	}
	return count
}

// SampleCollisionTimeout draws a uniform random integer in [0,
// paddingWidth) using a cryptographic RNG, the backoff a participant
// sits out after detecting its own message collided with another
// sender's (spec section 4.4 step 4). The range includes 0 — an
// immediate retry is possible — which spec section 9 preserves
// verbatim as a known livelock hot-spot under persistent two-sender
// contention rather than something this implementation silently fixes.
func SampleCollisionTimeout(paddingWidth int) (int, error) {
	if paddingWidth <= 0 {
		return 0, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(paddingWidth)))
	if err != nil {
		return 0, fmt.Errorf("share: sampling collision timeout: %w", err)
	}
	return int(n.Int64()), nil
}
