// Package persist writes and reads coordinator debug snapshots to
// disk. This is strictly an operator convenience — inspecting a group
// stuck mid-round (spec section 8, scenario S6) without attaching a
// debugger — and never touches the wire protocol, which stays
// arbitrary-precision decimal JSON per spec section 6. CBOR is used
// here instead of JSON because the snapshot's nested big.Int round
// maps serialize far more compactly than the wire format needs to, and
// because the teacher's own protocol package (pkg/protocol.MultiHandler)
// already reaches for fxamacker/cbor for exactly this kind of internal,
// non-interoperable binary encoding.
package persist

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/dcnet/internal/coordinator"
)

// WriteSnapshot serializes the given coordinator group snapshots to
// path as CBOR.
func WriteSnapshot(path string, snapshots []coordinator.GroupSnapshot) error {
	data, err := cbor.Marshal(snapshots)
	if err != nil {
		return fmt.Errorf("persist: encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("persist: writing snapshot %q: %w", path, err)
	}
	return nil
}

// ReadSnapshot loads a CBOR snapshot file previously written by
// WriteSnapshot.
func ReadSnapshot(path string) ([]coordinator.GroupSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persist: reading snapshot %q: %w", path, err)
	}
	var snapshots []coordinator.GroupSnapshot
	if err := cbor.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("persist: decoding snapshot %q: %w", path, err)
	}
	return snapshots, nil
}
