package coordinator

import (
	"github.com/luxfi/dcnet/internal/transport"
	"github.com/luxfi/dcnet/pkg/party"
)

// session is one live transport connection: Unjoined until a
// successful join binds it to a participant identity, Joined
// thereafter (spec section 4.1). It is created on connect and
// discarded on disconnect, at which point the binding it held (if any)
// is freed.
type session struct {
	conn  transport.Conn
	group string
	self  party.ID // empty while Unjoined
}

func (s *session) joined() bool { return s.self != "" }
