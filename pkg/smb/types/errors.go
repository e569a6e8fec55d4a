package types

import (
	"errors"
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

var (
	// ErrBufferTooSmall indicates the buffer is too small for the message
	ErrBufferTooSmall = encoding.ErrTruncatedBuffer

	// ErrInvalidProtocolID is returned when a header does not start with the SMB2 magic
	ErrInvalidProtocolID = errors.New("invalid SMB2 protocol ID")

	// ErrStructureSize is returned when a body's StructureSize field does not match its command
	ErrStructureSize = errors.New("invalid structure size")

	// ErrBadOffset is returned when an offset/length pair points outside the message
	ErrBadOffset = errors.New("offset out of range")

	// ErrContextChain is returned for create or negotiate context chains that
	// run out of bounds, loop, or exceed the hop limit
	ErrContextChain = errors.New("malformed context chain")
)

// checkStructureSize verifies that buf holds the fixed part of a body and that
// its leading StructureSize field equals want.
func checkStructureSize(buf []byte, want uint16) error {
	if err := encoding.Need(buf, fixedSize(want)); err != nil {
		return err
	}
	if got := encoding.Uint16LE(buf); got != want {
		return fmt.Errorf("%w: got %d, want %d", ErrStructureSize, got, want)
	}
	return nil
}

// fixedSize strips the one-byte variable buffer counted by odd StructureSize values.
func fixedSize(structureSize uint16) int {
	return int(structureSize &^ 1)
}

// bodyBuffer copies the variable section at a message-relative offset out of
// a body that starts right after the 64-byte header.
func bodyBuffer(body []byte, offset, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	start := int64(offset) - SMB2HeaderSize
	if start < 0 || start+int64(length) > int64(len(body)) {
		return nil, fmt.Errorf("%w: offset %d length %d in %d-byte body",
			ErrBadOffset, offset, length, len(body))
	}
	out := make([]byte, length)
	copy(out, body[start:start+int64(length)])
	return out, nil
}

// minBody pads an encoded body to its StructureSize when the variable part
// is empty. Servers reject requests that omit the one-byte buffer.
func minBody(buf []byte, structureSize uint16) []byte {
	for len(buf) < int(structureSize) {
		buf = append(buf, 0)
	}
	return buf
}
