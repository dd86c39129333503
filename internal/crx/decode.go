package crx

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// FieldMapping names the length-delimited fields a caller wants back from Decode.
type FieldMapping map[protowire.Number]string

// Message holds raw payloads of mapped fields keyed by their names.
// Payloads alias the decoded buffer.
type Message map[string][]byte

// Decode scans a protobuf-encoded container and returns the payloads of every
// length-delimited field listed in mapping. Varint, fixed64 and fixed32 fields
// are skipped without looking at their values, unmapped fields are consumed
// and dropped. Nested containers are returned as opaque bytes. When a mapped
// field repeats, the last occurrence wins.
func Decode(data []byte, mapping FieldMapping) (Message, error) {
	msg := make(Message, len(mapping))

	for offset := 0; offset < len(data); {
		key, n := protowire.ConsumeVarint(data[offset:])
		if n < 0 {
			return nil, truncated(offset, "field key", n)
		}

		tagOffset := offset
		offset += n

		// DecodeTag reports -1 for numbers beyond int32 and hides the wire type;
		// the low 3 bits are taken directly so every tag reaches the switch.
		number, _ := protowire.DecodeTag(key)
		wireType := protowire.Type(key & 7)

		switch wireType {
		case protowire.VarintType:
			_, n = protowire.ConsumeVarint(data[offset:])
		case protowire.Fixed64Type:
			_, n = protowire.ConsumeFixed64(data[offset:])
		case protowire.Fixed32Type:
			_, n = protowire.ConsumeFixed32(data[offset:])
		case protowire.BytesType:
			var payload []byte

			payload, n = protowire.ConsumeBytes(data[offset:])
			if n >= 0 {
				if name, ok := mapping[number]; ok {
					msg[name] = payload
				}
			}
		default:
			return nil, &InvalidWireTypeError{
				WireType: wireType,
				Offset:   tagOffset,
			}
		}

		if n < 0 {
			return nil, truncated(offset, fmt.Sprintf("field %d", number), n)
		}

		offset += n
	}

	return msg, nil
}

// truncated turns a negative protowire length into ErrMalformedContainer.
func truncated(offset int, what string, n int) error {
	return fmt.Errorf("%w: %s at offset %d: %w", ErrMalformedContainer, what, offset, protowire.ParseError(n))
}
