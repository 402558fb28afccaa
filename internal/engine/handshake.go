package engine

import (
	"math/big"
	"time"

	"github.com/luxfi/dcnet/internal/handshake"
	"github.com/luxfi/dcnet/pkg/party"
	"github.com/luxfi/dcnet/pkg/wire"
)

// handleGenerateSecrets reacts to the coordinator's generate_secrets
// trigger (spec section 4.2): begin a fresh handshake window, draw one
// new nonce for this window, and send every current peer a
// freshly-sealed envelope carrying that nonce.
// Per the Open Question on roster-change re-keying (spec section 9),
// every generate_secrets received — whether this is the first time the
// group became fully present or a later re-key after a
// disconnect/reconnect cycle — restarts the handshake from scratch.
func (e *Engine) handleGenerateSecrets() error {
	e.handshakeState.BeginWindow()
	nonce, err := handshake.NewNonce()
	if err != nil {
		return err
	}
	peers := e.otherPeers()
	for _, peer := range peers {
		if err := e.sendHandshakeEnvelope(peer, nonce); err != nil {
			e.log.WithError(err).WithField("peer", peer).Warn("engine: failed to send handshake envelope")
		}
	}
	return e.maybeSendSecretsGenerated(peers)
}

func (e *Engine) sendHandshakeEnvelope(peer party.ID, nonce *big.Int) error {
	peerPub, err := e.publicKeys(peer)
	if err != nil {
		return err
	}
	env, err := handshake.BuildEnvelope(e.privateKey, peerPub, nonce, time.Now())
	if err != nil {
		return err
	}
	if err := e.conn.WriteMessage(wire.NewSendToPeerSecretHandshake(peer, env)); err != nil {
		return err
	}
	e.handshakeState.RecordSent(peer, nonce)
	return nil
}

// handleHandshakeEnvelope processes an inbound handshake relay (spec
// section 4.2, "On receiving a handshake envelope from Q"). Any
// decrypt, freshness, or signature failure is logged and the envelope
// is silently dropped without advancing state — handshake progress is
// the peer's responsibility to retry.
func (e *Engine) handleHandshakeEnvelope(env *wire.Envelope) error {
	var payload wire.HandshakeEnvelope
	if err := env.DecodeMessage(&payload); err != nil {
		return err
	}
	peerPub, err := e.publicKeys(env.From)
	if err != nil {
		e.log.WithError(err).WithField("peer", env.From).Warn("engine: no public key for handshake peer")
		return nil
	}
	seed, err := handshake.OpenEnvelope(e.privateKey, peerPub, payload, time.Now(), e.freshness)
	if err != nil {
		e.log.WithError(err).WithField("peer", env.From).Warn("engine: rejecting handshake envelope")
		return nil
	}
	if !e.handshakeState.RecordReceived(env.From, seed) {
		e.log.WithField("peer", env.From).Debug("engine: ignoring duplicate handshake envelope")
		return nil
	}
	return e.maybeSendSecretsGenerated(e.otherPeers())
}

// maybeSendSecretsGenerated sends secrets_generated once this
// participant's handshake progress with every current peer has
// reached ProgressBoth (spec section 4.2: "When handshake_progress[Q]
// == 2 for every active peer Q != P, P sends secrets_generated{}").
func (e *Engine) maybeSendSecretsGenerated(peers party.IDSlice) error {
	if !e.handshakeState.Complete(peers) {
		return nil
	}
	return e.conn.WriteMessage(wire.NewSecretsGenerated())
}

// PairwiseSecret exposes the current pairwise secret with peer, for
// testing the symmetry invariant of spec section 3 and section 8
// property 2.
func (e *Engine) PairwiseSecret(peer party.ID) (*big.Int, bool) {
	return e.handshakeState.Secret(peer)
}
