package coordinator

import (
	"fmt"

	"github.com/luxfi/dcnet/pkg/wire"
)

// handleJoin implements the join transition of spec section 4.1:
// Unjoined -> Joined(participant), on an existing group, an existing
// roster identity, the correct password, and an unbound identity.
func (c *Coordinator) handleJoin(s *session, env *wire.Envelope) error {
	if s.joined() {
		return errAlreadyJoined
	}
	gs, ok := c.group(env.Group)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownGroup, env.Group)
	}

	gs.mu.Lock()
	if env.Password != gs.def.Password {
		gs.mu.Unlock()
		return errWrongPassword
	}
	if _, ok := gs.def.Participant(env.Participant); !ok {
		gs.mu.Unlock()
		return fmt.Errorf("%w: %q", errUnknownParticipant, env.Participant)
	}
	if _, bound := gs.bound[env.Participant]; bound {
		gs.mu.Unlock()
		return fmt.Errorf("%w: %q", errIdentityBound, env.Participant)
	}

	gs.bound[env.Participant] = s
	s.group = env.Group
	s.self = env.Participant

	active := gs.activeParticipants()
	all := gs.def.Roster
	others := make([]*session, 0, len(gs.bound))
	for name, bound := range gs.bound {
		if name != s.self {
			others = append(others, bound)
		}
	}

	justBecameFull := gs.fullyPresent() && !gs.wasFullyPresent
	gs.wasFullyPresent = gs.fullyPresent()
	var handshakeTargets []*session
	if justBecameFull {
		handshakeTargets = gs.boundSessions()
	}
	gs.mu.Unlock()

	broadcast(others, wire.NewActiveParticipantUpdate(active))

	_ = s.conn.WriteMessage(wire.NewSuccess(active, all))

	if justBecameFull {
		broadcast(handshakeTargets, wire.NewGenerateSecrets())
	}
	return nil
}

// handleRelay implements send_to_peer and
// send_to_peer_secret_handshake (spec section 4.1): relay the message
// to the named peer if present, ack the sender. The coordinator never
// inspects the payload either way.
func (c *Coordinator) handleRelay(s *session, env *wire.Envelope, handshake bool) error {
	if !s.joined() {
		return errNotJoined
	}
	gs, ok := c.group(s.group)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownGroup, s.group)
	}

	gs.mu.Lock()
	peer, ok := gs.bound[env.Participant]
	gs.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownPeer, env.Participant)
	}

	var relay *wire.Envelope
	if handshake {
		relay = &wire.Envelope{
			Type:    wire.TypeReceiveFromPeerSecretHandshake,
			From:    s.self,
			Message: env.Message,
		}
	} else {
		relay = wire.NewReceiveFromPeer(s.self, env.Message)
	}
	if err := peer.conn.WriteMessage(relay); err != nil {
		return fmt.Errorf("%w: %q", errUnknownPeer, env.Participant)
	}
	return s.conn.WriteMessage(wire.NewSuccess(nil, nil))
}

// handleSecretsGenerated marks this session's identity handshake-ready
// (spec section 4.1). Round opening itself is driven by the periodic
// pacing task (pacing.go), which checks fullyHandshaken() on its own
// schedule rather than being triggered synchronously here.
func (c *Coordinator) handleSecretsGenerated(s *session) error {
	if !s.joined() {
		return errNotJoined
	}
	gs, ok := c.group(s.group)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownGroup, s.group)
	}
	gs.mu.Lock()
	gs.handshakeReady[s.self] = true
	gs.mu.Unlock()
	return s.conn.WriteMessage(wire.NewSuccess(nil, nil))
}

// handleAnonymousBroadcast implements spec section 4.5: accept the
// share into slot index, enforce one-share-per-identity-per-slot, and
// when the slot is complete emit the full result to every present
// member.
func (c *Coordinator) handleAnonymousBroadcast(s *session, env *wire.Envelope) error {
	if !s.joined() {
		return errNotJoined
	}
	gs, ok := c.group(s.group)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownGroup, s.group)
	}
	index, err := env.IndexValue()
	if err != nil {
		return err
	}
	value, err := env.ShareValue()
	if err != nil {
		return err
	}

	gs.mu.Lock()
	sl, ok := gs.slotAt(index)
	if !ok {
		gs.mu.Unlock()
		return fmt.Errorf("%w: %d", errUnknownSlot, index)
	}
	if _, dup := sl.shares[s.self]; dup {
		gs.mu.Unlock()
		return errDuplicateShare
	}
	sl.shares[s.self] = value

	var result *wire.Envelope
	var targets []*session
	if sl.complete(gs.def.Size()) {
		result = wire.NewAnonymousBroadcastResult(index, sl.toWireMap())
		targets = gs.boundSessions()
	}
	gs.mu.Unlock()

	if result != nil {
		broadcast(targets, result)
	}
	return s.conn.WriteMessage(wire.NewSuccess(nil, nil))
}
