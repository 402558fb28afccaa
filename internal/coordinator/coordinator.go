// Package coordinator implements the server half of the protocol: the
// authoritative owner of group membership, round indices, and
// aggregation state described in spec section 2 ("Coordinator
// (server)"). It is stateless across process restarts — everything
// here lives only as long as the process runs. The state-machine and
// message-dispatch shape is grounded on the teacher's
// protocols/lss/dealer.BootstrapDealer (a mutex-guarded struct with a
// switch-on-message-type Handle method) and pkg/protocol.MultiHandler
// (accept/store/duplicate/finalize).
package coordinator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/dcnet/internal/transport"
	"github.com/luxfi/dcnet/pkg/group"
	"github.com/luxfi/dcnet/pkg/party"
	"github.com/luxfi/dcnet/pkg/wire"
)

// Coordinator serves any number of configured groups (spec section 6,
// "group configuration"). The groups map is read-only after
// construction; only the per-group state inside each *groupState
// mutates, each under its own mutex (spec section 5).
type Coordinator struct {
	mu     sync.RWMutex
	groups map[string]*groupState
	log    *logrus.Entry
}

// New constructs a Coordinator serving the given group definitions.
func New(groups []*group.Group) *Coordinator {
	c := &Coordinator{
		groups: make(map[string]*groupState, len(groups)),
		log:    logrus.WithField("component", "coordinator"),
	}
	for _, g := range groups {
		c.groups[g.Name] = newGroupState(g)
	}
	return c
}

// Groups returns the names of every group this coordinator serves, in
// no particular order; useful for wiring a pacing task over all of
// them (see pacing.go).
func (c *Coordinator) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	return names
}

func (c *Coordinator) group(name string) (*groupState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	gs, ok := c.groups[name]
	return gs, ok
}

// HandleConnection drives one session's entire lifetime: read,
// dispatch, reply, repeat, until the transport errors out (spec
// section 5, "per-connection ordering" — messages on a single
// connection are processed strictly in arrival order). It blocks until
// the connection closes, so callers typically invoke it in its own
// goroutine per accepted connection.
func (c *Coordinator) HandleConnection(conn transport.Conn) {
	s := &session{conn: conn}
	defer c.cleanup(s)

	for {
		env, err := conn.ReadMessage()
		if err != nil {
			var decodeErr *transport.DecodeError
			if errors.As(err, &decodeErr) {
				_ = conn.WriteMessage(wire.NewError(decodeErr.Error()))
				continue
			}
			return
		}
		if err := c.dispatch(s, env); err != nil {
			_ = conn.WriteMessage(wire.NewError(err.Error()))
		}
	}
}

// cleanup runs on every connection teardown. It frees the identity
// binding (if any) and, per section 9's guidance on re-keying, resets
// the group's handshake-ready set: a departed member invalidates every
// pairwise secret that involved it, so a fresh generate_secrets cycle
// is required before round opening resumes (spec section 8, scenario
// S6).
func (c *Coordinator) cleanup(s *session) {
	_ = s.conn.Close()
	if !s.joined() {
		return
	}
	gs, ok := c.group(s.group)
	if !ok {
		return
	}
	gs.mu.Lock()
	delete(gs.bound, s.self)
	gs.handshakeReady = make(map[party.ID]bool)
	gs.wasFullyPresent = false
	active := gs.activeParticipants()
	targets := gs.boundSessions()
	gs.mu.Unlock()

	broadcast(targets, wire.NewActiveParticipantUpdate(active))
}

// broadcast fans a single envelope out to every target session
// concurrently, so one slow or blocked connection never delays
// delivery to the rest of the group (spec section 5's concurrency
// guidance). Write errors are swallowed here: a dead peer connection
// is discovered and cleaned up by its own HandleConnection loop, not
// by whoever happened to be broadcasting to it.
func broadcast(targets []*session, env *wire.Envelope) {
	var g errgroup.Group
	for _, t := range targets {
		t := t
		g.Go(func() error {
			_ = t.conn.WriteMessage(env)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Coordinator) dispatch(s *session, env *wire.Envelope) error {
	switch env.Type {
	case wire.TypeJoin:
		return c.handleJoin(s, env)
	case wire.TypeSendToPeer:
		return c.handleRelay(s, env, false)
	case wire.TypeSendToPeerSecretHandshake:
		return c.handleRelay(s, env, true)
	case wire.TypeSecretsGenerated:
		return c.handleSecretsGenerated(s)
	case wire.TypeAnonymousBroadcast:
		return c.handleAnonymousBroadcast(s, env)
	default:
		return fmt.Errorf("%w: %q", errUnknownType, env.Type)
	}
}
