// SPDX-License-Identifier: Apache-2.0

// Package wire encodes and decodes the binary frames of the messaging
// session. Frames carry ClientMessage and ServerMessage values in
// protobuf wire format, assembled field by field with the protowire
// primitives; the schema is small and stable enough that no generated
// stubs are needed.
package wire

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/sam-im/sam-server/models"
)

// ErrProtocol is wrapped around every decode failure. A session receiving
// it closes the connection with a protocol-error code.
var ErrProtocol = errors.New("protocol error")

// Field numbers of the frame messages.
const (
	msgFieldKind    = 1
	msgFieldID      = 2
	msgFieldMessage = 3
)

// Field numbers of ClientEnvelope.
const (
	clientEnvFieldType        = 1
	clientEnvFieldDestAccount = 2
	clientEnvFieldSrcAccount  = 3
	clientEnvFieldSrcDevice   = 4
	clientEnvFieldContent     = 5
)

// Field numbers of ServerEnvelope.
const (
	serverEnvFieldType        = 1
	serverEnvFieldDestAccount = 2
	serverEnvFieldDestDevice  = 3
	serverEnvFieldSrcAccount  = 4
	serverEnvFieldSrcDevice   = 5
	serverEnvFieldContent     = 6
	serverEnvFieldID          = 7
)

// Field numbers of a content map entry (standard protobuf map encoding).
const (
	mapEntryFieldKey   = 1
	mapEntryFieldValue = 2
)

// EncodeServerMessage serializes one outbound frame.
func EncodeServerMessage(msg models.ServerMessage) []byte {
	var buf []byte

	buf = protowire.AppendTag(buf, msgFieldKind, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(msg.Kind))

	buf = protowire.AppendTag(buf, msgFieldID, protowire.BytesType)
	buf = protowire.AppendBytes(buf, msg.ID[:])

	if msg.Message != nil {
		buf = protowire.AppendTag(buf, msgFieldMessage, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeServerEnvelope(*msg.Message))
	}

	return buf
}

// EncodeClientMessage serializes one inbound-format frame. The server only
// emits these in tests; clients are the production encoder.
func EncodeClientMessage(msg models.ClientMessage) []byte {
	var buf []byte

	buf = protowire.AppendTag(buf, msgFieldKind, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(msg.Kind))

	buf = protowire.AppendTag(buf, msgFieldID, protowire.BytesType)
	buf = protowire.AppendBytes(buf, msg.ID[:])

	if msg.Message != nil {
		buf = protowire.AppendTag(buf, msgFieldMessage, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeClientEnvelope(*msg.Message))
	}

	return buf
}

func encodeClientEnvelope(env models.ClientEnvelope) []byte {
	var buf []byte

	buf = protowire.AppendTag(buf, clientEnvFieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(env.Type))

	buf = protowire.AppendTag(buf, clientEnvFieldDestAccount, protowire.BytesType)
	buf = protowire.AppendBytes(buf, env.DestAccountID[:])

	buf = protowire.AppendTag(buf, clientEnvFieldSrcAccount, protowire.BytesType)
	buf = protowire.AppendBytes(buf, env.SrcAccountID[:])

	buf = protowire.AppendTag(buf, clientEnvFieldSrcDevice, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(env.SrcDeviceID))

	for deviceID, content := range env.Content {
		var entry []byte
		entry = protowire.AppendTag(entry, mapEntryFieldKey, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(deviceID))
		entry = protowire.AppendTag(entry, mapEntryFieldValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, content)

		buf = protowire.AppendTag(buf, clientEnvFieldContent, protowire.BytesType)
		buf = protowire.AppendBytes(buf, entry)
	}

	return buf
}

func encodeServerEnvelope(env models.ServerEnvelope) []byte {
	var buf []byte

	buf = protowire.AppendTag(buf, serverEnvFieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(env.Type))

	buf = protowire.AppendTag(buf, serverEnvFieldDestAccount, protowire.BytesType)
	buf = protowire.AppendBytes(buf, env.DestAccountID[:])

	buf = protowire.AppendTag(buf, serverEnvFieldDestDevice, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(env.DestDeviceID))

	buf = protowire.AppendTag(buf, serverEnvFieldSrcAccount, protowire.BytesType)
	buf = protowire.AppendBytes(buf, env.SrcAccountID[:])

	buf = protowire.AppendTag(buf, serverEnvFieldSrcDevice, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(env.SrcDeviceID))

	buf = protowire.AppendTag(buf, serverEnvFieldContent, protowire.BytesType)
	buf = protowire.AppendBytes(buf, env.Content)

	buf = protowire.AppendTag(buf, serverEnvFieldID, protowire.BytesType)
	buf = protowire.AppendBytes(buf, env.ID[:])

	return buf
}

// DecodeClientMessage parses one inbound frame. Every malformation,
// including unknown wire types on known fields and bad UUID lengths, is
// reported as [ErrProtocol].
func DecodeClientMessage(data []byte) (models.ClientMessage, error) {
	var msg models.ClientMessage

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case msgFieldKind:
			if typ != protowire.VarintType {
				return fmt.Errorf("field %d: unexpected wire type", num)
			}
			msg.Kind = models.MessageKind(varint)
		case msgFieldID:
			id, err := parseUUID(typ, value)
			if err != nil {
				return fmt.Errorf("field %d: %w", num, err)
			}
			msg.ID = id
		case msgFieldMessage:
			if typ != protowire.BytesType {
				return fmt.Errorf("field %d: unexpected wire type", num)
			}
			env, err := decodeClientEnvelope(value)
			if err != nil {
				return err
			}
			msg.Message = &env
		}
		return nil
	})
	if err != nil {
		return models.ClientMessage{}, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	return msg, nil
}

// DecodeServerMessage parses one outbound-format frame. Used by tests and
// by client implementations sharing this package.
func DecodeServerMessage(data []byte) (models.ServerMessage, error) {
	var msg models.ServerMessage

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case msgFieldKind:
			if typ != protowire.VarintType {
				return fmt.Errorf("field %d: unexpected wire type", num)
			}
			msg.Kind = models.MessageKind(varint)
		case msgFieldID:
			id, err := parseUUID(typ, value)
			if err != nil {
				return fmt.Errorf("field %d: %w", num, err)
			}
			msg.ID = id
		case msgFieldMessage:
			if typ != protowire.BytesType {
				return fmt.Errorf("field %d: unexpected wire type", num)
			}
			env, err := decodeServerEnvelope(value)
			if err != nil {
				return err
			}
			msg.Message = &env
		}
		return nil
	})
	if err != nil {
		return models.ServerMessage{}, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	return msg, nil
}

func decodeClientEnvelope(data []byte) (models.ClientEnvelope, error) {
	env := models.ClientEnvelope{Content: make(map[uint32][]byte)}

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case clientEnvFieldType:
			if typ != protowire.VarintType {
				return fmt.Errorf("envelope field %d: unexpected wire type", num)
			}
			env.Type = models.EnvelopeType(varint)
		case clientEnvFieldDestAccount:
			id, err := parseUUID(typ, value)
			if err != nil {
				return fmt.Errorf("envelope field %d: %w", num, err)
			}
			env.DestAccountID = id
		case clientEnvFieldSrcAccount:
			id, err := parseUUID(typ, value)
			if err != nil {
				return fmt.Errorf("envelope field %d: %w", num, err)
			}
			env.SrcAccountID = id
		case clientEnvFieldSrcDevice:
			if typ != protowire.VarintType {
				return fmt.Errorf("envelope field %d: unexpected wire type", num)
			}
			env.SrcDeviceID = uint32(varint)
		case clientEnvFieldContent:
			if typ != protowire.BytesType {
				return fmt.Errorf("envelope field %d: unexpected wire type", num)
			}
			deviceID, content, err := decodeContentEntry(value)
			if err != nil {
				return err
			}
			env.Content[deviceID] = content
		}
		return nil
	})
	if err != nil {
		return models.ClientEnvelope{}, err
	}

	return env, nil
}

func decodeServerEnvelope(data []byte) (models.ServerEnvelope, error) {
	var env models.ServerEnvelope

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case serverEnvFieldType:
			if typ != protowire.VarintType {
				return fmt.Errorf("envelope field %d: unexpected wire type", num)
			}
			env.Type = models.EnvelopeType(varint)
		case serverEnvFieldDestAccount:
			id, err := parseUUID(typ, value)
			if err != nil {
				return fmt.Errorf("envelope field %d: %w", num, err)
			}
			env.DestAccountID = id
		case serverEnvFieldDestDevice:
			if typ != protowire.VarintType {
				return fmt.Errorf("envelope field %d: unexpected wire type", num)
			}
			env.DestDeviceID = uint32(varint)
		case serverEnvFieldSrcAccount:
			id, err := parseUUID(typ, value)
			if err != nil {
				return fmt.Errorf("envelope field %d: %w", num, err)
			}
			env.SrcAccountID = id
		case serverEnvFieldSrcDevice:
			if typ != protowire.VarintType {
				return fmt.Errorf("envelope field %d: unexpected wire type", num)
			}
			env.SrcDeviceID = uint32(varint)
		case serverEnvFieldContent:
			if typ != protowire.BytesType {
				return fmt.Errorf("envelope field %d: unexpected wire type", num)
			}
			env.Content = append([]byte(nil), value...)
		case serverEnvFieldID:
			id, err := parseUUID(typ, value)
			if err != nil {
				return fmt.Errorf("envelope field %d: %w", num, err)
			}
			env.ID = id
		}
		return nil
	})
	if err != nil {
		return models.ServerEnvelope{}, err
	}

	return env, nil
}

func decodeContentEntry(data []byte) (uint32, []byte, error) {
	var deviceID uint32
	var content []byte

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case mapEntryFieldKey:
			if typ != protowire.VarintType {
				return fmt.Errorf("content entry key: unexpected wire type")
			}
			deviceID = uint32(varint)
		case mapEntryFieldValue:
			if typ != protowire.BytesType {
				return fmt.Errorf("content entry value: unexpected wire type")
			}
			content = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return deviceID, content, nil
}

// walkFields iterates the top-level fields of a wire-format message,
// calling visit with the parsed payload. Bytes fields pass value; varint
// fields pass varint. Unknown fields are skipped, matching protobuf
// semantics.
func walkFields(data []byte, visit func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error) error {
	for len(data) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(data)
		if tagLen < 0 {
			return fmt.Errorf("malformed tag: %w", protowire.ParseError(tagLen))
		}
		data = data[tagLen:]

		var value []byte
		var varint uint64
		var fieldLen int

		switch typ {
		case protowire.VarintType:
			varint, fieldLen = protowire.ConsumeVarint(data)
		case protowire.BytesType:
			value, fieldLen = protowire.ConsumeBytes(data)
		case protowire.Fixed32Type:
			_, fieldLen = protowire.ConsumeFixed32(data)
		case protowire.Fixed64Type:
			_, fieldLen = protowire.ConsumeFixed64(data)
		default:
			return fmt.Errorf("unsupported wire type %d", typ)
		}
		if fieldLen < 0 {
			return fmt.Errorf("malformed field %d: %w", num, protowire.ParseError(fieldLen))
		}
		data = data[fieldLen:]

		if err := visit(num, typ, value, varint); err != nil {
			return err
		}
	}
	return nil
}

func parseUUID(typ protowire.Type, value []byte) (uuid.UUID, error) {
	if typ != protowire.BytesType {
		return uuid.Nil, fmt.Errorf("uuid field: unexpected wire type")
	}
	id, err := uuid.FromBytes(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("uuid field: %w", err)
	}
	return id, nil
}
