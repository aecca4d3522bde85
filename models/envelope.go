package models

import "github.com/google/uuid"

// EnvelopeType tags the kind of ciphertext carried by an envelope. The
// server never interprets the payload; the type is forwarded verbatim so the
// receiving client knows how to decrypt it.
type EnvelopeType uint32

const (
	EnvelopeTypeUnknown EnvelopeType = iota
	EnvelopeTypeCiphertext
	EnvelopeTypePreKeyMessage
)

// MessageKind is the discriminator of frames on the websocket session, for
// both directions.
type MessageKind uint32

const (
	MessageKindUnknown MessageKind = iota
	MessageKindAck
	MessageKindError
	MessageKindMessage
)

// ServerEnvelope is one queued, server-addressed message: an opaque payload
// plus routing metadata. It is created when a client envelope is fanned out
// to a destination device and deleted on ack or account teardown.
type ServerEnvelope struct {
	// ID is the server-assigned message id. Ids are UUIDv7, so their byte
	// order follows enqueue order.
	ID uuid.UUID

	Type EnvelopeType

	DestAccountID uuid.UUID
	DestDeviceID  uint32

	SrcAccountID uuid.UUID
	SrcDeviceID  uint32

	// Content is the opaque ciphertext. The server must not interpret it.
	Content []byte
}

// DestAddr returns the destination routing address of the envelope.
func (e ServerEnvelope) DestAddr() Address {
	return Address{AccountID: e.DestAccountID, DeviceID: e.DestDeviceID}
}

// ClientEnvelope is a client-submitted message addressed to every listed
// device of one destination account. The content map is keyed by the
// recipient's device id; each entry becomes one ServerEnvelope.
type ClientEnvelope struct {
	Type EnvelopeType

	DestAccountID uuid.UUID

	SrcAccountID uuid.UUID
	SrcDeviceID  uint32

	// Content maps destination device id to the ciphertext encrypted for
	// that device.
	Content map[uint32][]byte
}

// ClientMessage is one inbound frame of the websocket session: either an ack
// of a previously delivered envelope or a new envelope to relay.
type ClientMessage struct {
	Kind MessageKind

	// ID is the acked message id. Only meaningful for MessageKindAck.
	ID uuid.UUID

	// Message carries the envelope for MessageKindMessage frames.
	Message *ClientEnvelope
}

// ServerMessage is one outbound frame of the websocket session.
type ServerMessage struct {
	Kind MessageKind

	// ID is the id of the delivered envelope.
	ID uuid.UUID

	// Message carries the envelope for MessageKindMessage frames.
	Message *ServerEnvelope
}
