// Package transport implements the bidirectional, reliable, ordered
// JSON-text message channel assumed by spec section 6. The reference
// transport is WebSocket; this package wraps gorilla/websocket for the
// real coordinator/client binaries and additionally provides an
// in-process pipe implementation used by tests that want to exercise
// the full protocol without opening a socket.
package transport

import (
	"fmt"

	"github.com/luxfi/dcnet/pkg/wire"
)

// Conn is a single logical connection over which wire.Envelope
// messages are exchanged in order. Implementations must be safe for
// one concurrent reader and any number of concurrent writers: each
// connection has a single read loop, but the coordinator writes to a
// session from that session's handler, from other sessions' handlers
// and from the pacing task, so both implementations here serialize
// writes with a mutex.
type Conn interface {
	// ReadMessage blocks until the next inbound message is available,
	// or returns an error (including on close) otherwise.
	ReadMessage() (*wire.Envelope, error)
	// WriteMessage sends a message. It does not block on delivery
	// acknowledgement, only on local buffering, matching the
	// transport's assumed bounded buffering (spec section 5).
	WriteMessage(*wire.Envelope) error
	// Close tears down the connection. Safe to call more than once.
	Close() error
}

// ErrClosed is returned by WriteMessage after Close, and by the
// in-memory Conn's ReadMessage once either end is closed; a WebSocket
// Conn's ReadMessage reports the underlying socket error instead.
var ErrClosed = fmt.Errorf("transport: connection closed")

// DecodeError wraps a failure to parse an inbound frame as a
// wire.Envelope (non-JSON, or JSON that isn't an object). Unlike other
// ReadMessage errors, a DecodeError does not mean the connection is
// dead: the frame was received fine, it just wasn't a valid envelope.
// Callers should reply with a protocol-format error (spec section 7)
// and keep reading, rather than treating it as a disconnect.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("transport: decoding frame: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
