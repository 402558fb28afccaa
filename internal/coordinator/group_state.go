package coordinator

import (
	"math/big"
	"sync"

	"github.com/luxfi/dcnet/pkg/group"
	"github.com/luxfi/dcnet/pkg/party"
)

// slot is one round's accumulating share map (spec section 3, "Round
// slot"). It is terminal once its size equals the group's roster size.
type slot struct {
	shares map[party.ID]*big.Int
}

func newSlot() *slot {
	return &slot{shares: make(map[party.ID]*big.Int)}
}

func (s *slot) complete(rosterSize int) bool {
	return len(s.shares) == rosterSize
}

func (s *slot) toWireMap() map[party.ID]*big.Int {
	out := make(map[party.ID]*big.Int, len(s.shares))
	for id, v := range s.shares {
		out[id] = v
	}
	return out
}

// groupState is the coordinator's mutable view of one configured
// group: which identities are currently bound to a session, which of
// those have completed the pairwise handshake, and the append-only
// round slot list (spec sections 4.1, 4.5, 5). Every mutation funnels
// through mu, held across the full "accept share -> check completeness
// -> broadcast" sequence as section 5 requires of any preemptively
// threaded reimplementation.
type groupState struct {
	mu sync.Mutex

	def *group.Group

	bound          map[party.ID]*session
	handshakeReady map[party.ID]bool
	slots          []*slot

	// wasFullyPresent remembers whether the roster was fully bound as
	// of the last join/disconnect, so generate_secrets (spec section
	// 4.2) fires only on the false -> true transition rather than on
	// every join once the group is already complete.
	wasFullyPresent bool
}

func newGroupState(def *group.Group) *groupState {
	return &groupState{
		def:            def,
		bound:          make(map[party.ID]*session),
		handshakeReady: make(map[party.ID]bool),
	}
}

// activeParticipants returns the currently-bound identities in roster
// order, the "active_participants" field of success/active_participant_update.
func (g *groupState) activeParticipants() party.IDSlice {
	active := make(party.IDSlice, 0, len(g.bound))
	for _, name := range g.def.Roster {
		if _, ok := g.bound[name]; ok {
			active = append(active, name)
		}
	}
	return active
}

func (g *groupState) fullyPresent() bool {
	return len(g.bound) == g.def.Size()
}

// fullyHandshaken reports whether every roster member is both present
// and has announced secrets_generated (spec section 4.1, "start
// opening rounds").
func (g *groupState) fullyHandshaken() bool {
	if !g.fullyPresent() {
		return false
	}
	for _, name := range g.def.Roster {
		if !g.handshakeReady[name] {
			return false
		}
	}
	return true
}

// openRound appends a new empty slot and returns its index, the next
// value equal to the prior slot count (spec section 4.1, "Round
// scheduling"); index monotonicity follows directly from append-only
// growth.
func (g *groupState) openRound() uint64 {
	g.slots = append(g.slots, newSlot())
	return uint64(len(g.slots) - 1)
}

func (g *groupState) slotAt(index uint64) (*slot, bool) {
	if index >= uint64(len(g.slots)) {
		return nil, false
	}
	return g.slots[index], true
}

// boundSessions returns a snapshot of the currently-bound sessions.
// Callers hold g.mu while taking the snapshot, then release it before
// writing to any of the returned connections, so that slow or blocked
// I/O on one session never stalls the group's lock.
func (g *groupState) boundSessions() []*session {
	out := make([]*session, 0, len(g.bound))
	for _, s := range g.bound {
		out = append(out, s)
	}
	return out
}
