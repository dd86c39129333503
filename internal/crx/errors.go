package crx

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrInvalidWireType is matched by every InvalidWireTypeError.
	ErrInvalidWireType = errors.New("invalid wire type")
	// ErrMalformedContainer reports truncated input or a missing expected field.
	ErrMalformedContainer = errors.New("malformed container")
)

// InvalidWireTypeError is returned when a field tag carries a wire type
// other than varint, fixed64, bytes or fixed32.
type InvalidWireTypeError struct {
	// WireType is the offending value taken from the low 3 bits of the tag.
	WireType protowire.Type
	// Offset is the position of the tag in the scanned buffer.
	Offset int
}

// Error implements the error interface.
func (e *InvalidWireTypeError) Error() string {
	return fmt.Sprintf("invalid wire type: %d (offset %d)", e.WireType, e.Offset)
}

// Is makes errors.Is(err, ErrInvalidWireType) hold.
func (e *InvalidWireTypeError) Is(target error) bool {
	return target == ErrInvalidWireType
}
