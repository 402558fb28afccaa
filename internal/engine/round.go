package engine

import (
	"fmt"
	"math/big"

	"github.com/luxfi/dcnet/internal/share"
	"github.com/luxfi/dcnet/pkg/party"
	"github.com/luxfi/dcnet/pkg/wire"
)

// handleAnonymousBroadcastRequest builds and sends this participant's
// share for round index (spec section 4.3). Steps follow the spec
// numbering in comments below.
func (e *Engine) handleAnonymousBroadcastRequest(index uint64) error {
	peers := e.otherPeers()
	paddingWidth := share.PaddingWidth(len(peers))
	bitsToSet := share.PadBitsToSet(paddingWidth)
	widthBits := share.ShareWidthBits(paddingWidth)

	m, attempted, err := e.takeMessageToSend()
	if err != nil {
		return err
	}

	// Step 2: left-shift m by P bits and apply the collision pad
	// (no-op on the all-zero "silent round" marker).
	padded, err := share.ApplyCollisionPad(m, paddingWidth, bitsToSet)
	if err != nil {
		return err
	}

	// Step 3: record what we attempted to send this round, but only
	// when we actually had something queued — sentMessages must stay
	// empty for rounds where we contributed nothing but the all-zero
	// marker, or handleAnonymousBroadcastResult can never tell "we
	// sent zero" apart from "we sent nothing."
	e.mu.Lock()
	if attempted {
		e.sentMessages[index] = new(big.Int).Set(padded)
	}
	// Step 4: decrement the collision timeout, even when emitting zero.
	if e.collisionTimeout > 0 {
		e.collisionTimeout--
	}
	e.mu.Unlock()

	// Step 5: XOR in every peer's deterministic per-round mask.
	value := new(big.Int).Set(padded)
	for _, peer := range peers {
		secret, ok := e.handshakeState.Secret(peer)
		if !ok {
			return fmt.Errorf("engine: no pairwise secret with %q for round %d", peer, index)
		}
		mask, err := share.Mask(secret, index, widthBits)
		if err != nil {
			return err
		}
		value.Xor(value, mask)
	}

	// The queue head is only popped once the coordinator's result
	// confirms clean delivery; see handleAnonymousBroadcastResult.
	return e.conn.WriteMessage(wire.NewAnonymousBroadcastShare(index, value))
}

// takeMessageToSend implements spec section 4.3 step 1: peek (not
// pop) the send queue head if non-empty and collision_timeout == 0,
// otherwise emit the all-zero marker. attempted reports which of the
// two happened, so the caller knows whether this round belongs in
// sentMessages at all.
func (e *Engine) takeMessageToSend() (m *big.Int, attempted bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sendQueue) > 0 && e.collisionTimeout == 0 {
		m, err = share.EncodeMessage(e.sendQueue[0])
		return m, true, err
	}
	return big.NewInt(0), false, nil
}

// handleAnonymousBroadcastResult implements spec section 4.4: XOR
// every contributed share, then decide whether this was a silent
// round, our own successful transmission, a collision on our own
// send, a peer's message, or a peer-vs-peer collision.
func (e *Engine) handleAnonymousBroadcastResult(index uint64, messages map[party.ID]*big.Int) error {
	peers := e.otherPeers()
	paddingWidth := share.PaddingWidth(len(peers))
	bitsToSet := share.PadBitsToSet(paddingWidth)

	// Step 1: every roster member but us must have contributed.
	active := len(messages) - 1
	if active != len(peers) {
		return fmt.Errorf("engine: round %d missing peer broadcast: have %d others, want %d", index, active, len(peers))
	}

	// Step 2: masks cancel pairwise; what remains is the XOR of raw
	// encoded integers.
	d := new(big.Int)
	for _, v := range messages {
		d.Xor(d, v)
	}

	// Step 3: silent round.
	if d.Sign() == 0 {
		return nil
	}

	e.mu.Lock()
	sent, weSent := e.sentMessages[index]
	e.mu.Unlock()

	if weSent {
		if sent.Cmp(d) == 0 {
			// Step 4, clean transmission: pop the queue head and
			// surface it as our own message.
			e.mu.Lock()
			var text string
			if len(e.sendQueue) > 0 {
				text = e.sendQueue[0]
				e.sendQueue = e.sendQueue[1:]
			}
			e.mu.Unlock()
			e.publish(Delivery{Text: text, Own: true})
			return nil
		}
		// Step 4, collision with at least one other sender.
		timeout, err := share.SampleCollisionTimeout(paddingWidth)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.collisionTimeout = timeout
		e.mu.Unlock()
		e.log.WithField("round", index).WithField("timeout", timeout).Warn("engine: collision on own message, backing off")
		return nil
	}

	// Step 5: we did not send this round.
	pad := share.ExtractPad(d, paddingWidth)
	if share.Popcount(pad, paddingWidth) != bitsToSet {
		e.log.WithField("round", index).Warn("engine: discarding message with unexpected pad popcount (peer collision)")
		return nil
	}
	payload := share.StripPad(d, paddingWidth)
	e.publish(Delivery{Text: share.DecodeMessage(payload), Own: false})
	return nil
}

func (e *Engine) publish(d Delivery) {
	select {
	case e.deliveries <- d:
	default:
		e.log.Warn("engine: delivery channel full, dropping decoded message")
	}
}
