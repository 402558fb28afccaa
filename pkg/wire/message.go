// Package wire defines the JSON-text message envelope exchanged over
// the coordinator/client transport described in spec section 6
// ("External interfaces"). Every message is a single UTF-8 JSON object
// carrying a "type" discriminator; fields not relevant to a given type
// are omitted rather than sent as null/zero values.
package wire

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/luxfi/dcnet/pkg/party"
)

// Type discriminates the kind of message carried by an Envelope.
type Type string

const (
	TypeJoin                          Type = "join"
	TypeSuccess                       Type = "success"
	TypeError                         Type = "error"
	TypeActiveParticipantUpdate       Type = "active_participant_update"
	TypeGenerateSecrets               Type = "generate_secrets"
	TypeSendToPeer                    Type = "send_to_peer"
	TypeReceiveFromPeer               Type = "receive_from_peer"
	TypeSendToPeerSecretHandshake     Type = "send_to_peer_secret_handshake"
	TypeReceiveFromPeerSecretHandshake Type = "receive_from_peer_secret_handshake"
	TypeSecretsGenerated              Type = "secrets_generated"
	TypeAnonymousBroadcastRequest     Type = "anonymous_broadcast_request"
	TypeAnonymousBroadcast            Type = "anonymous_broadcast"
)

// Envelope is the superset wire shape. Only the fields relevant to
// Type are populated by any given constructor; the rest are left at
// their zero value and elided by "omitempty" on marshal.
type Envelope struct {
	Type Type `json:"type"`

	// join
	Group       string    `json:"group,omitempty"`
	Participant party.ID  `json:"participant,omitempty"`
	Password    string    `json:"password,omitempty"`

	// error
	Description string `json:"description,omitempty"`

	// success, active_participant_update
	ActiveParticipants []party.ID `json:"active_participants,omitempty"`
	AllParticipants    []party.ID `json:"all_participants,omitempty"`

	// receive_from_peer, receive_from_peer_secret_handshake
	From party.ID `json:"from,omitempty"`

	// send_to_peer / receive_from_peer (arbitrary payload) and
	// send_to_peer_secret_handshake / receive_from_peer_secret_handshake
	// (a HandshakeEnvelope) and the outbound anonymous_broadcast share
	// (a big.Int). Polymorphic on Type; decode with DecodeMessage.
	Message json.RawMessage `json:"message,omitempty"`

	// anonymous_broadcast_request, anonymous_broadcast (both directions)
	Index *uint64 `json:"index,omitempty"`

	// anonymous_broadcast (coordinator -> client, inbound/result)
	Messages map[party.ID]*big.Int `json:"messages,omitempty"`
}

// HandshakeEnvelope is the payload of send_to_peer_secret_handshake /
// receive_from_peer_secret_handshake: a hex-encoded RSA-OAEP-wrapped
// AES session key plus an AEAD-sealed JSON handshake body (spec
// section 4.2, steps 3-5).
type HandshakeEnvelope struct {
	SessionKey  string `json:"session_key"`
	Ciphertext  string `json:"ciphertext"`
	CipherNonce string `json:"cipher_nonce"`
	Tag         string `json:"tag"`
}

func marshalMessage(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		// Only programmer error (an un-marshalable Go value) reaches
		// here; every caller passes a concrete, json-safe type.
		panic(fmt.Sprintf("wire: marshal message: %v", err))
	}
	return raw
}

// DecodeMessage unmarshals the polymorphic Message field into dst.
func (e *Envelope) DecodeMessage(dst interface{}) error {
	if len(e.Message) == 0 {
		return fmt.Errorf("wire: message %q has no message payload", e.Type)
	}
	if err := json.Unmarshal(e.Message, dst); err != nil {
		return fmt.Errorf("wire: decoding message payload for %q: %w", e.Type, err)
	}
	return nil
}

// IndexValue returns the round index carried by Index, erroring if
// absent.
func (e *Envelope) IndexValue() (uint64, error) {
	if e.Index == nil {
		return 0, fmt.Errorf("wire: message %q is missing required field \"index\"", e.Type)
	}
	return *e.Index, nil
}

// --- Constructors ---

func NewJoin(group string, participant party.ID, password string) *Envelope {
	return &Envelope{Type: TypeJoin, Group: group, Participant: participant, Password: password}
}

func NewSuccess(active, all []party.ID) *Envelope {
	return &Envelope{Type: TypeSuccess, ActiveParticipants: active, AllParticipants: all}
}

func NewError(description string) *Envelope {
	return &Envelope{Type: TypeError, Description: description}
}

func NewActiveParticipantUpdate(active []party.ID) *Envelope {
	return &Envelope{Type: TypeActiveParticipantUpdate, ActiveParticipants: active}
}

func NewGenerateSecrets() *Envelope {
	return &Envelope{Type: TypeGenerateSecrets}
}

func NewSendToPeer(participant party.ID, message interface{}) *Envelope {
	return &Envelope{Type: TypeSendToPeer, Participant: participant, Message: marshalMessage(message)}
}

func NewReceiveFromPeer(from party.ID, message json.RawMessage) *Envelope {
	return &Envelope{Type: TypeReceiveFromPeer, From: from, Message: message}
}

func NewSendToPeerSecretHandshake(participant party.ID, env HandshakeEnvelope) *Envelope {
	return &Envelope{Type: TypeSendToPeerSecretHandshake, Participant: participant, Message: marshalMessage(env)}
}

func NewReceiveFromPeerSecretHandshake(from party.ID, env HandshakeEnvelope) *Envelope {
	return &Envelope{Type: TypeReceiveFromPeerSecretHandshake, From: from, Message: marshalMessage(env)}
}

func NewSecretsGenerated() *Envelope {
	return &Envelope{Type: TypeSecretsGenerated}
}

func NewAnonymousBroadcastRequest(index uint64) *Envelope {
	return &Envelope{Type: TypeAnonymousBroadcastRequest, Index: &index}
}

// NewAnonymousBroadcastShare builds the client -> coordinator
// contribution for round index carrying a single W-bit share value.
func NewAnonymousBroadcastShare(index uint64, share *big.Int) *Envelope {
	return &Envelope{
		Type:    TypeAnonymousBroadcast,
		Index:   &index,
		Message: marshalMessage(share),
	}
}

// NewAnonymousBroadcastResult builds the coordinator -> clients
// delivery of a completed round slot.
func NewAnonymousBroadcastResult(index uint64, messages map[party.ID]*big.Int) *Envelope {
	return &Envelope{
		Type:     TypeAnonymousBroadcast,
		Index:    &index,
		Messages: messages,
	}
}

// ShareValue decodes the outbound anonymous_broadcast share carried in
// Message as a big.Int.
func (e *Envelope) ShareValue() (*big.Int, error) {
	n := new(big.Int)
	if err := e.DecodeMessage(n); err != nil {
		return nil, err
	}
	return n, nil
}
