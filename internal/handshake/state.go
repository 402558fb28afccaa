package handshake

import (
	"math/big"
	"sync"

	"github.com/luxfi/dcnet/pkg/party"
)

// Progress tracks how far the pairwise handshake with one peer has
// advanced (spec section 3, "Handshake progress").
type Progress int

const (
	ProgressNone   Progress = 0
	ProgressOneWay Progress = 1
	ProgressBoth   Progress = 2
)

type peerEntry struct {
	secret *big.Int
	sentInWindow bool
	recvInWindow bool
}

// State holds the per-peer pairwise secrets and handshake progress for
// one local participant across one "handshake window" — the interval
// between a generate_secrets trigger and every roster member
// confirming secrets_generated (spec's Glossary entry for "Handshake
// window"). Re-keying (a new window) resets all peer entries, which
// is the spec's documented answer to the Open Question on roster
// membership changes: restart the handshake phase from scratch rather
// than attempt incremental re-keying.
type State struct {
	mu      sync.Mutex
	window  uint64
	entries map[party.ID]*peerEntry
}

// NewState returns an empty handshake State, initially in window 0
// with no peers.
func NewState() *State {
	return &State{entries: make(map[party.ID]*peerEntry)}
}

// BeginWindow starts a fresh handshake window, discarding all
// in-progress peer secrets and progress. It returns the new window
// number, which callers can use to tag outbound envelopes if a
// transport-level replay window is desired (spec section 4.2 and the
// Open Question on duplicate-envelope guarding: acceptance is keyed by
// (peer, window), not globally).
func (s *State) BeginWindow() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window++
	s.entries = make(map[party.ID]*peerEntry)
	return s.window
}

func (s *State) entry(peer party.ID) *peerEntry {
	e, ok := s.entries[peer]
	if !ok {
		e = &peerEntry{secret: big.NewInt(0)}
		s.entries[peer] = e
	}
	return e
}

// RecordSent XORs our own outbound nonce into the pairwise secret with
// peer and advances our local view of progress with peer by one, as
// spec section 4.2 requires ("P also increments its own
// handshake_progress[Q] when it sends its outbound envelope to Q").
// Idempotent within a window: a retransmitted outbound envelope (e.g.
// after a transport retry) does not XOR the nonce in twice.
func (s *State) RecordSent(peer party.ID, nonce *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(peer)
	if e.sentInWindow {
		return
	}
	e.sentInWindow = true
	e.secret.Xor(e.secret, nonce)
}

// RecordReceived XORs a verified peer seed into the pairwise secret
// with peer and advances progress, but only the first time within the
// current window: accepting the same peer's envelope twice would XOR
// its nonce in again and silently break the symmetry invariant of
// spec section 3 ("secret_A[B] == secret_B[A]"), which section 4.2's
// Open Questions flags explicitly as something a correct
// implementation must guard against. It reports whether this call
// actually advanced state (false means a harmless duplicate).
func (s *State) RecordReceived(peer party.ID, seed *big.Int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(peer)
	if e.recvInWindow {
		return false
	}
	e.recvInWindow = true
	e.secret.Xor(e.secret, seed)
	return true
}

// Progress reports how far the handshake with peer has advanced.
func (s *State) Progress(peer party.ID) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[peer]
	if !ok {
		return ProgressNone
	}
	n := 0
	if e.sentInWindow {
		n++
	}
	if e.recvInWindow {
		n++
	}
	return Progress(n)
}

// Complete reports whether every peer in peers has reached
// ProgressBoth, i.e. this participant's setup is done for the current
// window (spec section 3).
func (s *State) Complete(peers party.IDSlice) bool {
	for _, p := range peers {
		if s.Progress(p) != ProgressBoth {
			return false
		}
	}
	return true
}

// Secret returns the current pairwise secret with peer, and whether
// any progress has been recorded for that peer at all.
func (s *State) Secret(peer party.ID) (*big.Int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[peer]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(e.secret), true
}

// Window returns the current handshake window number.
func (s *State) Window() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}
