package coordinator

import (
	"context"
	"time"

	"github.com/luxfi/dcnet/pkg/wire"
)

// DefaultPacingInterval is the reference round-opening cadence (spec
// section 4.1, "Pacing interval is a design parameter (reference: 1
// second)").
const DefaultPacingInterval = time.Second

// RunPacing drives the periodic round-opening task for every group
// this coordinator serves (spec section 4.1, "Round scheduling"). It
// blocks until ctx is cancelled, so callers run it in its own
// goroutine alongside the connection-accept loop — the concurrency
// shape spec section 9 maps directly onto goroutines.
func (c *Coordinator) RunPacing(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick inspects every group once and opens a round for each that is
// fully present and fully handshake-ready. A group missing even one
// roster member is skipped entirely: any slot already in flight stays
// pending forever, which spec section 4.1 accepts explicitly rather
// than introducing a reconfiguration protocol.
func (c *Coordinator) tick() {
	for _, name := range c.Groups() {
		gs, ok := c.group(name)
		if !ok {
			continue
		}
		c.maybeOpenRound(gs)
	}
}

func (c *Coordinator) maybeOpenRound(gs *groupState) {
	gs.mu.Lock()
	if !gs.fullyHandshaken() {
		gs.mu.Unlock()
		return
	}
	index := gs.openRound()
	targets := gs.boundSessions()
	gs.mu.Unlock()

	broadcast(targets, wire.NewAnonymousBroadcastRequest(index))
}
