package crx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// appendBytesField appends a length-delimited field.
func appendBytesField(b []byte, num protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, payload)
}

// TestDecode_Empty verifies an empty buffer yields an empty mapping.
func TestDecode_Empty(t *testing.T) {
	t.Parallel()

	msg, err := Decode(nil, FieldMapping{1: "one"})
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Empty(t, msg)
}

// TestDecode_MultiByteLength checks that a two-byte varint length (0xAC 0x02) reads as 300.
func TestDecode_MultiByteLength(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0x80}, 300)
	data := append([]byte{0x0a, 0xac, 0x02}, payload...)

	msg, err := Decode(data, FieldMapping{1: "blob"})
	require.NoError(t, err)
	require.Len(t, msg["blob"], 300)
	require.Equal(t, payload, msg["blob"])
}

// TestDecode_SkipsScalarFields verifies varint, fixed64 and fixed32 fields are skipped by size only.
func TestDecode_SkipsScalarFields(t *testing.T) {
	t.Parallel()

	var data []byte

	data = protowire.AppendTag(data, 2, protowire.VarintType)
	data = protowire.AppendVarint(data, 1<<40)
	// Fixed payloads full of bytes that would look like tags or continuation bits.
	data = protowire.AppendTag(data, 3, protowire.Fixed64Type)
	data = append(data, 0x0a, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x0a)
	data = protowire.AppendTag(data, 4, protowire.Fixed32Type)
	data = append(data, 0x0a, 0x80, 0x80, 0x0a)
	data = appendBytesField(data, 5, []byte("tail"))

	msg, err := Decode(data, FieldMapping{5: "tail"})
	require.NoError(t, err)
	require.Equal(t, Message{"tail": []byte("tail")}, msg)
}

// TestDecode_UnknownFieldsDropped ensures unmapped fields keep the cursor aligned and are not returned.
func TestDecode_UnknownFieldsDropped(t *testing.T) {
	t.Parallel()

	var data []byte

	data = appendBytesField(data, 7, []byte{0x08, 0x96, 0x01})
	data = appendBytesField(data, 1, []byte("known"))
	data = appendBytesField(data, 10000, []byte("also unknown"))

	msg, err := Decode(data, FieldMapping{1: "known"})
	require.NoError(t, err)
	require.Len(t, msg, 1)
	require.Equal(t, []byte("known"), msg["known"])
}

// TestDecode_LastOccurrenceWins documents the behavior for repeated mapped fields.
func TestDecode_LastOccurrenceWins(t *testing.T) {
	t.Parallel()

	var data []byte

	data = appendBytesField(data, 1, []byte("first"))
	data = appendBytesField(data, 1, []byte("second"))

	msg, err := Decode(data, FieldMapping{1: "value"})
	require.NoError(t, err)
	require.Equal(t, []byte("second"), msg["value"])
}

// TestDecode_FieldBoundariesRoundTrip re-encodes decoded payloads and expects the original bytes.
func TestDecode_FieldBoundariesRoundTrip(t *testing.T) {
	t.Parallel()

	fields := []struct {
		num     protowire.Number
		name    string
		payload []byte
	}{
		{1, "short", []byte("a")},
		{2, "empty", []byte{}},
		{15, "edge", bytes.Repeat([]byte{0x7f}, 127)},
		{16, "wide", bytes.Repeat([]byte{0xff}, 128)},
		{10000, "large", bytes.Repeat([]byte("crx"), 1000)},
	}

	var (
		data    []byte
		mapping = make(FieldMapping, len(fields))
	)

	for _, f := range fields {
		data = appendBytesField(data, f.num, f.payload)
		mapping[f.num] = f.name
	}

	msg, err := Decode(data, mapping)
	require.NoError(t, err)

	var encoded []byte
	for _, f := range fields {
		require.Len(t, msg[f.name], len(f.payload))
		encoded = appendBytesField(encoded, f.num, msg[f.name])
	}

	require.Equal(t, data, encoded)
}

// TestDecode_InvalidWireType verifies start/end group and undefined wire types fail.
func TestDecode_InvalidWireType(t *testing.T) {
	t.Parallel()

	for _, wireType := range []protowire.Type{3, 4, 6, 7} {
		prefix := appendBytesField(nil, 1, []byte("ok"))
		data := append(prefix, byte(2<<3)|byte(wireType), 0x00)

		msg, err := Decode(data, FieldMapping{1: "ok"})
		require.ErrorIs(t, err, ErrInvalidWireType)
		require.Nil(t, msg)

		var wireErr *InvalidWireTypeError

		require.ErrorAs(t, err, &wireErr)
		require.Equal(t, wireType, wireErr.WireType)
		require.Equal(t, len(prefix), wireErr.Offset)
	}
}

// TestDecode_Truncated verifies short reads and varints past 10 bytes are reported as a malformed container.
func TestDecode_Truncated(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"key continuation":    {0x80},
		"varint value":        {0x08, 0xff},
		"fixed64 short":       {0x09, 1, 2, 3, 4, 5, 6, 7},
		"fixed32 short":       {0x0d, 1, 2, 3},
		"length missing":      {0x0a},
		"payload past end":    {0x0a, 0x05, 'a', 'b'},
		"huge length":         {0x0a, 0xff, 0xff, 0xff, 0xff, 0x0f},
		"unterminated length": {0x0a, 0xac},
		"overlong varint":     {0x08, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00},
	}

	for name, data := range cases {
		msg, err := Decode(data, FieldMapping{1: "one"})
		require.ErrorIs(t, err, ErrMalformedContainer, name)
		require.NotErrorIs(t, err, ErrInvalidWireType, name)
		require.Nil(t, msg, name)
	}
}

// TestDecode_DoesNotMutateMapping ensures the caller's mapping stays untouched.
func TestDecode_DoesNotMutateMapping(t *testing.T) {
	t.Parallel()

	mapping := FieldMapping{1: "one"}
	data := appendBytesField(appendBytesField(nil, 2, []byte("x")), 1, []byte("y"))

	_, err := Decode(data, mapping)
	require.NoError(t, err)
	require.Equal(t, FieldMapping{1: "one"}, mapping)
}
