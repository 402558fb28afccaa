package share

import (
	"fmt"
	"math/big"
	"strings"
)

// EncodeMessage converts a plaintext string to the little-endian
// unsigned integer representation of spec section 4.3 step 1: ASCII
// bytes, right-padded (conceptually) to PayloadBytes with NUL,
// interpreted little-endian.
func EncodeMessage(s string) (*big.Int, error) {
	if len(s) > PayloadBytes {
		return nil, fmt.Errorf("share: message of %d bytes exceeds the %d byte payload budget", len(s), PayloadBytes)
	}
	buf := make([]byte, PayloadBytes)
	copy(buf, s)
	reverseInPlace(buf)
	return new(big.Int).SetBytes(buf), nil
}

// DecodeMessage performs the inverse of EncodeMessage: serialize m to
// PayloadBytes little-endian bytes, decode as ASCII, and trim trailing
// NULs (spec section 4.4 step 5, "peer message" branch).
func DecodeMessage(m *big.Int) string {
	be := m.Bytes()
	if len(be) > PayloadBytes {
		be = be[len(be)-PayloadBytes:]
	}
	buf := make([]byte, PayloadBytes)
	copy(buf[PayloadBytes-len(be):], be)
	reverseInPlace(buf)
	return strings.TrimRight(string(buf), "\x00")
}

func reverseInPlace(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
