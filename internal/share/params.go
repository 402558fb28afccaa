// Package share implements the per-round DC-net share construction and
// decoding described in spec section 4.3 ("Participant share
// construction") and 4.4 ("Result decoding and collision handling"):
// message encoding, collision padding, the pseudorandom mask stream
// derived from a pairwise secret, and the popcount-based collision
// detector.
package share

// PayloadBytes is B, the maximum payload size per round in bytes
// (spec section 4.3).
const PayloadBytes = 280

// PaddingWidth computes P, the collision-padding bit width, from N,
// the number of peers this participant holds a pairwise secret with.
// spec.md section 4.3 normalizes the historically inconsistent source
// on P = 2*N (an earlier iteration used N+1, see spec section 9's
// Open Questions); exposing it as a function rather than a baked-in
// constant keeps that normative choice visibly a tunable shared by
// every participant, as section 9 recommends, rather than a magic
// number scattered through the codebase.
func PaddingWidth(peerCount int) int {
	return 2 * peerCount
}

// PadBitsToSet computes K, the number of collision-padding bits that
// must be set, from P: K = P / 2 (integer division).
func PadBitsToSet(paddingWidth int) int {
	return paddingWidth / 2
}

// ShareWidthBits computes W, the full share width in bits: W = 8*B + P.
func ShareWidthBits(paddingWidth int) int {
	return 8*PayloadBytes + paddingWidth
}
