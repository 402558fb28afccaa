package coordinator

import (
	"math/big"

	"github.com/luxfi/dcnet/pkg/party"
)

// GroupSnapshot is a read-only, point-in-time copy of one group's
// round-slot history: everything the coordinator has ever aggregated
// for that group, plus who is currently bound. It exists purely as a
// debugging/persistence seam (internal/persist serializes these) — it
// plays no part in the protocol itself (spec section 1 excludes
// "persistent logging" from scope, but an operator inspecting stuck
// rounds still needs a way to look at coordinator state offline).
type GroupSnapshot struct {
	Name   string
	Active party.IDSlice
	Slots  []map[party.ID]*big.Int
}

// Snapshot captures the current state of every group this coordinator
// serves. Safe to call concurrently with normal traffic; each group is
// locked only for the duration of its own copy.
func (c *Coordinator) Snapshot() []GroupSnapshot {
	names := c.Groups()
	out := make([]GroupSnapshot, 0, len(names))
	for _, name := range names {
		gs, ok := c.group(name)
		if !ok {
			continue
		}
		gs.mu.Lock()
		snap := GroupSnapshot{
			Name:   name,
			Active: gs.activeParticipants(),
			Slots:  make([]map[party.ID]*big.Int, len(gs.slots)),
		}
		for i, sl := range gs.slots {
			snap.Slots[i] = sl.toWireMap()
		}
		gs.mu.Unlock()
		out = append(out, snap)
	}
	return out
}
