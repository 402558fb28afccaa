package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luxfi/dcnet/pkg/wire"
)

// wsConn adapts a *websocket.Conn to Conn. Writes are serialized with
// a mutex because gorilla/websocket forbids concurrent writers on one
// connection; reads are naturally single-goroutine per the protocol's
// per-connection ordering guarantee (spec section 5).
type wsConn struct {
	ws       *websocket.Conn
	writeMtx sync.Mutex
	closed   bool
}

// NewWebSocketConn wraps an already-established websocket connection.
func NewWebSocketConn(ws *websocket.Conn) Conn {
	return &wsConn{ws: ws}
}

// ReadMessage reads one frame and decodes it itself, rather than using
// gorilla's ReadJSON, so that a malformed frame (spec section 7's
// "protocol-format errors") surfaces as a *DecodeError the caller can
// answer with an error{} reply, instead of being indistinguishable from
// a dead connection.
func (c *wsConn) ReadMessage() (*wire.Envelope, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &env, nil
}

func (c *wsConn) WriteMessage(env *wire.Envelope) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.ws.WriteJSON(env)
}

func (c *wsConn) Close() error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// Upgrade upgrades an incoming HTTP request to a websocket connection,
// for use inside the coordinator's connection handler.
func Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocketConn(ws), nil
}

// Dial opens a client connection to a coordinator listening at url
// (e.g. "ws://host:port/").
func Dial(url string) (Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocketConn(ws), nil
}
