// Package crxtest builds minimal CRX3 files for tests.
package crxtest

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"
)

// formatVersion is the CRX3 format version written after the magic.
const formatVersion = 3

// SignedData returns a SignedData message carrying id as crx_id.
func SignedData(id []byte) []byte {
	var b []byte

	b = protowire.AppendTag(b, 1, protowire.BytesType)

	return protowire.AppendBytes(b, id)
}

// Header returns a CrxFileHeader with a dummy RSA proof followed by
// signed_header_data wrapping id.
func Header(id []byte) []byte {
	var proof []byte

	proof = protowire.AppendTag(proof, 1, protowire.BytesType)
	proof = protowire.AppendBytes(proof, []byte("public-key"))
	proof = protowire.AppendTag(proof, 2, protowire.BytesType)
	proof = protowire.AppendBytes(proof, []byte("signature"))

	var b []byte

	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, proof)
	b = protowire.AppendTag(b, 10000, protowire.BytesType)

	return protowire.AppendBytes(b, SignedData(id))
}

// File frames header as a CRX3 file and appends a fake archive body.
func File(header []byte) []byte {
	b := []byte("Cr24")
	b = binary.LittleEndian.AppendUint32(b, formatVersion)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(header))) //nolint:gosec // Test headers are tiny.
	b = append(b, header...)

	return append(b, "PK\x03\x04"...)
}

// Build returns a complete CRX3 file whose extension id is id.
func Build(id []byte) []byte {
	return File(Header(id))
}
