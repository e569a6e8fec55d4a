package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// ErrorResponse is the body servers send with a failing status for any
// command. ErrorData is usually empty; symlink and buffer-too-small errors
// put context there.
type ErrorResponse struct {
	// Cmd records the command this error answers; it is not on the wire.
	Cmd               Command
	ErrorContextCount uint8
	ErrorData         []byte
}

func (r *ErrorResponse) Command() Command { return r.Cmd }
func (r *ErrorResponse) Size() int        { return 8 }

// Marshal serializes the error response
func (r *ErrorResponse) Marshal() []byte {
	buf := make([]byte, 8+len(r.ErrorData))
	encoding.PutUint16LE(buf[0:2], 9)
	buf[2] = r.ErrorContextCount
	encoding.PutUint32LE(buf[4:8], uint32(len(r.ErrorData)))
	copy(buf[8:], r.ErrorData)
	return minBody(buf, 9)
}

// Unmarshal deserializes the error response
func (r *ErrorResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 9); err != nil {
		return err
	}
	r.ErrorContextCount = buf[2]
	n := encoding.Uint32LE(buf[4:8])
	r.ErrorData = nil
	if n > 0 {
		data, err := encoding.Slice(buf, 8, int(n))
		if err != nil {
			return fmt.Errorf("error data: %w", err)
		}
		r.ErrorData = append([]byte(nil), data...)
	}
	return nil
}

// IsErrorResponse reports whether body looks like an ERROR response
// (StructureSize 9). A few successful responses share that size, so callers
// only apply it to failing statuses.
func IsErrorResponse(body []byte) bool {
	return len(body) >= 8 && encoding.Uint16LE(body) == 9
}
