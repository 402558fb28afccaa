// Package engine implements the participant (client) protocol engine
// of spec section 2: join, the pairwise handshake, per-round share
// emission, and result decoding. It is the Go counterpart of the
// Client class in the Python prototype this system was distilled
// from, minus the GUI (out of scope per spec section 1) and plus the
// stricter join/handshake semantics spec.md mandates.
package engine

import (
	"crypto/rsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luxfi/dcnet/internal/handshake"
	"github.com/luxfi/dcnet/internal/share"
	"github.com/luxfi/dcnet/internal/transport"
	"github.com/luxfi/dcnet/pkg/party"
	"github.com/luxfi/dcnet/pkg/wire"
)

// DefaultFreshnessWindow is T, the maximum age a handshake envelope's
// timestamp may have before it is rejected (spec section 4.2).
const DefaultFreshnessWindow = 300 * time.Second

// PublicKeySource resolves a roster member's RSA public key, typically
// backed by the group's configured key directory (pkg/group).
type PublicKeySource func(party.ID) (*rsa.PublicKey, error)

// Delivery is a decoded message handed upward to the application: the
// plaintext and whether it was this participant's own transmission
// (spec section 4.4). This is the non-GUI equivalent of the Python
// prototype's unhandled_anon_messages queue.
type Delivery struct {
	Text string
	Own  bool
}

// Engine is one participant's live protocol state: identity, pending
// handshakes, send queue, and round bookkeeping (spec section 3's
// per-participant data model in full: pairwise secrets, handshake
// progress, send queue, sent-index map, collision timeout).
type Engine struct {
	self       party.ID
	conn       transport.Conn
	privateKey *rsa.PrivateKey
	publicKeys PublicKeySource
	freshness  time.Duration
	log        *logrus.Entry

	mu                 sync.Mutex
	roster             party.IDSlice // the full group roster ("all_participants")
	activeParticipants party.IDSlice
	sendQueue          []string
	sentMessages       map[uint64]*big.Int
	collisionTimeout   int

	handshakeState *handshake.State

	pendingAck chan *wire.Envelope
	deliveries chan Delivery

	closeOnce sync.Once
	done      chan struct{}
}

// New constructs an Engine bound to an open transport connection.
// privateKey is this participant's own RSA key; publicKeys resolves
// peers' public keys (spec section 6, "Group configuration").
func New(self party.ID, conn transport.Conn, privateKey *rsa.PrivateKey, publicKeys PublicKeySource) *Engine {
	return &Engine{
		self:           self,
		conn:           conn,
		privateKey:     privateKey,
		publicKeys:     publicKeys,
		freshness:      DefaultFreshnessWindow,
		log:            logrus.WithField("participant", string(self)),
		sentMessages:   make(map[uint64]*big.Int),
		handshakeState: handshake.NewState(),
		pendingAck:     make(chan *wire.Envelope, 1),
		deliveries:     make(chan Delivery, 16),
		done:           make(chan struct{}),
	}
}

// Deliveries returns the channel on which decoded own/peer broadcast
// messages are published, the programmatic equivalent of the Python
// prototype's chat window (spec section 1 keeps the actual UI out of
// scope; this channel is the seam a UI would consume).
func (e *Engine) Deliveries() <-chan Delivery {
	return e.deliveries
}

// Enqueue queues a plaintext string for anonymous broadcast whenever a
// slot becomes available (spec section 3, "Send queue").
func (e *Engine) Enqueue(text string) error {
	if len(text) > share.PayloadBytes {
		return fmt.Errorf("engine: message of %d bytes exceeds the %d byte payload budget", len(text), share.PayloadBytes)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendQueue = append(e.sendQueue, text)
	return nil
}

// Run drives the engine's single read loop: every inbound message is
// processed in arrival order (spec section 5, "per-connection
// ordering"), dispatched to the relevant handler. It returns when the
// connection closes or Close is called.
func (e *Engine) Run() error {
	for {
		env, err := e.conn.ReadMessage()
		if err != nil {
			select {
			case <-e.done:
				return nil
			default:
			}
			return fmt.Errorf("engine: read loop: %w", err)
		}
		if err := e.dispatch(env); err != nil {
			e.log.WithError(err).Warn("engine: dropping malformed or rejected message")
		}
	}
}

// Close tears down the underlying connection and stops Run.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	return e.conn.Close()
}

func (e *Engine) dispatch(env *wire.Envelope) error {
	switch env.Type {
	case wire.TypeSuccess, wire.TypeError:
		select {
		case e.pendingAck <- env:
		default:
			e.log.Warn("engine: received ack with no pending request")
		}
		return nil
	case wire.TypeActiveParticipantUpdate:
		e.mu.Lock()
		e.activeParticipants = env.ActiveParticipants
		e.mu.Unlock()
		return nil
	case wire.TypeGenerateSecrets:
		return e.handleGenerateSecrets()
	case wire.TypeReceiveFromPeer:
		e.log.WithField("from", env.From).Debug("engine: received peer message")
		return nil
	case wire.TypeReceiveFromPeerSecretHandshake:
		return e.handleHandshakeEnvelope(env)
	case wire.TypeAnonymousBroadcastRequest:
		index, err := env.IndexValue()
		if err != nil {
			return err
		}
		return e.handleAnonymousBroadcastRequest(index)
	case wire.TypeAnonymousBroadcast:
		index, err := env.IndexValue()
		if err != nil {
			return err
		}
		return e.handleAnonymousBroadcastResult(index, env.Messages)
	default:
		return fmt.Errorf("engine: unrecognized message type %q", env.Type)
	}
}

func (e *Engine) request(env *wire.Envelope) (*wire.Envelope, error) {
	if err := e.conn.WriteMessage(env); err != nil {
		return nil, fmt.Errorf("engine: sending %q: %w", env.Type, err)
	}
	reply := <-e.pendingAck
	if reply.Type == wire.TypeError {
		return nil, fmt.Errorf("engine: %s", reply.Description)
	}
	return reply, nil
}

// Join sends the join request of spec section 4.1 and waits for the
// coordinator's success/error reply.
func (e *Engine) Join(group string, password string) error {
	reply, err := e.request(wire.NewJoin(group, e.self, password))
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.activeParticipants = reply.ActiveParticipants
	e.roster = reply.AllParticipants
	e.mu.Unlock()
	return nil
}

// SendToPeer relays an arbitrary payload to another roster member via
// the coordinator (spec section 6, send_to_peer/receive_from_peer).
func (e *Engine) SendToPeer(peer party.ID, payload interface{}) error {
	_, err := e.request(wire.NewSendToPeer(peer, payload))
	return err
}

func (e *Engine) otherPeers() party.IDSlice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roster.Without(e.self)
}
