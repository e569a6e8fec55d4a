package smb1

import (
	"errors"
	"fmt"

	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

var (
	// ErrInvalidProtocolID is returned when a header does not start with 0xFF 'SMB'
	ErrInvalidProtocolID = errors.New("invalid SMB1 protocol ID")

	// ErrIncorrectParamsLength is returned when a block's word count runs past the buffer
	ErrIncorrectParamsLength = errors.New("incorrect SMB1 parameter length")

	// ErrIncorrectMessageLength is returned when a block's byte count runs past the buffer
	ErrIncorrectMessageLength = errors.New("incorrect SMB1 message length")

	// ErrWordCount is returned when a block has fewer parameter words than the command needs
	ErrWordCount = errors.New("unexpected SMB1 word count")

	// ErrNoDialect is returned when the server accepts none of the offered dialects
	ErrNoDialect = errors.New("no SMB1 dialect accepted")
)

// ResponseError is a non-success status carried in an SMB1 response header.
type ResponseError struct {
	Command Command
	NT      bool
	Status  types.NTStatus
	Class   uint8
	Code    uint16
}

func (e *ResponseError) Error() string {
	if e.NT {
		return fmt.Sprintf("%s: %s (%s)", e.Command, e.Status, e.Status.Info().Description)
	}
	return fmt.Sprintf("%s: DOS error class %d code %d", e.Command, e.Class, e.Code)
}
