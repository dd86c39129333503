package crx

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// IDLength is the size of the binary extension id.
	IDLength = 16

	// headerSize covers the magic and the format version. Neither is inspected.
	headerSize = 8

	// fieldSignedHeaderData is CrxFileHeader.signed_header_data.
	fieldSignedHeaderData = 10000
	// fieldCrxID is SignedData.crx_id.
	fieldCrxID = 1
)

var (
	fileHeaderFields   = FieldMapping{fieldSignedHeaderData: "signed_header_data"}
	signedHeaderFields = FieldMapping{fieldCrxID: "crx_id"}

	errNoPEMBlock         = errors.New("no PEM block found")
	errUnsupportedKeyType = errors.New("unsupported private key type")
)

// ExtensionID reads a CRX3 stream up to the end of its header block and
// returns the extension id stored in the signed header. The leading magic
// and format version are skipped without validation.
func ExtensionID(r io.Reader) (string, error) {
	if _, err := io.CopyN(io.Discard, r, headerSize); err != nil {
		return "", fmt.Errorf("%w: read file header: %w", ErrMalformedContainer, err)
	}

	var headerLength uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLength); err != nil {
		return "", fmt.Errorf("%w: read header length: %w", ErrMalformedContainer, err)
	}

	headerBlock := make([]byte, headerLength)
	if _, err := io.ReadFull(r, headerBlock); err != nil {
		return "", fmt.Errorf("%w: read header block of %d bytes: %w", ErrMalformedContainer, headerLength, err)
	}

	return IDFromHeader(headerBlock)
}

// IDFromHeader extracts the extension id from a serialized CrxFileHeader.
func IDFromHeader(headerBlock []byte) (string, error) {
	fileHeader, err := Decode(headerBlock, fileHeaderFields)
	if err != nil {
		return "", fmt.Errorf("decode file header: %w", err)
	}

	signedData, ok := fileHeader["signed_header_data"]
	if !ok {
		return "", fmt.Errorf("%w: signed_header_data is missing", ErrMalformedContainer)
	}

	signedHeader, err := Decode(signedData, signedHeaderFields)
	if err != nil {
		return "", fmt.Errorf("decode signed header data: %w", err)
	}

	id, ok := signedHeader["crx_id"]
	if !ok {
		return "", fmt.Errorf("%w: crx_id is missing", ErrMalformedContainer)
	}

	if len(id) != IDLength {
		return "", fmt.Errorf("%w: crx_id has %d bytes, want %d", ErrMalformedContainer, len(id), IDLength)
	}

	return EncodeID(id), nil
}

// ReadExtensionID opens a CRX file and returns its extension id.
func ReadExtensionID(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	id, err := ExtensionID(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	return id, nil
}

// EncodeID renders bytes two characters per byte, high nibble first,
// mapping nibble values 0..15 to 'a'..'p'.
func EncodeID(id []byte) string {
	out := make([]byte, 0, len(id)*2)
	for _, b := range id {
		out = append(out, 'a'+(b>>4), 'a'+(b&0x0f))
	}

	return string(out)
}

// IDFromPublicKey derives the extension id from a DER-encoded
// SubjectPublicKeyInfo: the first 16 bytes of its SHA-256 digest.
func IDFromPublicKey(der []byte) string {
	sum := sha256.Sum256(der)

	return EncodeID(sum[:IDLength])
}

// IDFromPEMFile derives the extension id from the private key the browser
// generated when packing the extension.
func IDFromPEMFile(path string) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	block, _ := pem.Decode(contents)
	if block == nil {
		return "", fmt.Errorf("%s: %w", path, errNoPEMBlock)
	}

	var key any

	key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("parse private key %s: %w", path, err)
		}
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return "", fmt.Errorf("%s: %w: %T", path, errUnsupportedKeyType, key)
	}

	der, err := x509.MarshalPKIXPublicKey(&rsaKey.PublicKey)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}

	return IDFromPublicKey(der), nil
}
