package transport

import (
	"sync"

	"github.com/luxfi/dcnet/pkg/wire"
)

// memoryConn is an in-process, channel-backed Conn. A pair of
// memoryConns created by NewMemoryPipe are cross-wired so that a
// WriteMessage on one is observed by a ReadMessage on the other,
// letting tests drive the coordinator and several participant engines
// against each other without a real socket, in the spirit of the
// teacher's channel-based network simulation in
// protocols/lss/keygen/network_test.go. Closing either end closes the
// channel it writes to, so the peer's next ReadMessage sees the
// closure too — matching how a real socket's Close propagates to the
// remote side as a read error.
type memoryConn struct {
	writeMtx  sync.Mutex
	out       chan *wire.Envelope
	in        <-chan *wire.Envelope
	closed    bool
	localDone chan struct{}
}

// NewMemoryPipe returns two connected Conns: messages written to a are
// read from b and vice versa.
func NewMemoryPipe(buffer int) (a, b Conn) {
	ab := make(chan *wire.Envelope, buffer)
	ba := make(chan *wire.Envelope, buffer)
	return &memoryConn{out: ab, in: ba, localDone: make(chan struct{})},
		&memoryConn{out: ba, in: ab, localDone: make(chan struct{})}
}

func (c *memoryConn) ReadMessage() (*wire.Envelope, error) {
	select {
	case env, ok := <-c.in:
		if !ok {
			return nil, ErrClosed
		}
		return env, nil
	case <-c.localDone:
		return nil, ErrClosed
	}
}

func (c *memoryConn) WriteMessage(env *wire.Envelope) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.out <- env
	return nil
}

func (c *memoryConn) Close() error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.out)
	close(c.localDone)
	return nil
}
