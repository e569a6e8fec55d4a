package smb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// Common SMB errors
var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrAccessDenied     = errors.New("access denied")
	ErrNotFound         = errors.New("object not found")
	ErrAlreadyExists    = errors.New("object already exists")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotConnected     = errors.New("not connected")
	ErrInvalidState     = errors.New("operation not valid in current state")
	ErrSessionExpired   = errors.New("session expired")
	ErrBadNetworkName   = errors.New("bad network name")
	ErrNotSupported     = errors.New("operation not supported")
	ErrSharingViolation = errors.New("sharing violation")
	ErrCancelled        = errors.New("request cancelled")
)

// Decode errors
var (
	// ErrStructural matches every malformed-wire-data error.
	ErrStructural = errors.New("malformed SMB message")

	// ErrBadHeader is returned for buffers that carry no recognisable SMB magic.
	ErrBadHeader = errors.New("bad SMB header")

	// ErrIncompatibleHeader is returned when a message of one protocol
	// version arrives where the other was expected.
	ErrIncompatibleHeader = errors.New("incompatible SMB header")

	// ErrInvalidCommand is returned for SMB2 headers carrying an unknown command code.
	ErrInvalidCommand = errors.New("invalid SMB2 command")

	// ErrTimeout is returned when a request's deadline passes before its response arrives.
	ErrTimeout = fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
)

// structuralErrors lists the package-level sentinels that describe
// malformed input. Anything wrapping one of them is structural.
var structuralErrors = []error{
	encoding.ErrTruncatedBuffer,
	types.ErrInvalidProtocolID,
	types.ErrStructureSize,
	types.ErrBadOffset,
	types.ErrContextChain,
	types.ErrNoLocks,
	smb1.ErrInvalidProtocolID,
	smb1.ErrIncorrectParamsLength,
	smb1.ErrIncorrectMessageLength,
	smb1.ErrWordCount,
	ErrBadHeader,
	ErrIncompatibleHeader,
}

// DecodeError wraps a failure to parse wire data.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes every DecodeError match ErrStructural.
func (e *DecodeError) Is(target error) bool {
	return target == ErrStructural
}

// decodeErr tags err as structural when it comes from a codec sentinel.
// Other errors pass through untouched.
func decodeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	for _, s := range structuralErrors {
		if errors.Is(err, s) {
			return &DecodeError{Op: op, Err: err}
		}
	}
	return err
}

// StatusError is a syntactically valid response carrying a failing NTSTATUS.
type StatusError struct {
	Command types.Command
	Status  types.NTStatus
	Info    types.StatusInfo
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (0x%08X): %s", e.Command, e.Info.Name, uint32(e.Status), e.Info.Description)
}

// Category returns the catalog category of the status.
func (e *StatusError) Category() types.StatusCategory {
	return e.Info.Category
}

// Is maps the status category onto the package sentinels so callers can
// write errors.Is(err, smb.ErrNotFound).
func (e *StatusError) Is(target error) bool {
	s, ok := categorySentinels[e.Info.Category]
	return ok && s == target
}

var categorySentinels = map[types.StatusCategory]error{
	types.CategoryNotFound:         ErrNotFound,
	types.CategoryAlreadyExists:    ErrAlreadyExists,
	types.CategoryAccessDenied:     ErrAccessDenied,
	types.CategoryAuthFailure:      ErrAuthFailed,
	types.CategoryInvalidParameter: ErrInvalidParameter,
	types.CategoryNotSupported:     ErrNotSupported,
	types.CategoryBadNetworkName:   ErrBadNetworkName,
	types.CategorySessionExpired:   ErrSessionExpired,
	types.CategorySharingViolation: ErrSharingViolation,
	types.CategoryCancelled:        ErrCancelled,
}

// NewStatusError creates a StatusError for cmd with the catalog entry for status.
func NewStatusError(cmd types.Command, status types.NTStatus) *StatusError {
	return &StatusError{Command: cmd, Status: status, Info: types.LookupStatus(status)}
}

// StatusToError converts an NT status to an error, or nil when the status
// does not indicate failure.
func StatusToError(cmd types.Command, status types.NTStatus) error {
	if !status.Failed() {
		return nil
	}
	return NewStatusError(cmd, status)
}

// TransportError wraps a failure of the underlying byte stream. Once one is
// returned the connection is unusable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsStructural reports whether err describes malformed wire data.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural)
}

// IsTransport reports whether err came from the byte stream.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
