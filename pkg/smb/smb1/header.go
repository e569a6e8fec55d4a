// Package smb1 implements SMB1 (NT LM 0.12) protocol support for legacy systems.
package smb1

import (
	"bytes"
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// SMB1 header flags
const (
	FlagsLockAndRead   uint8 = 0x01
	FlagsReceiveBufAvl uint8 = 0x02
	FlagsCaseless      uint8 = 0x08
	FlagsCanonical     uint8 = 0x10
	FlagsOplock        uint8 = 0x20
	FlagsNotify        uint8 = 0x40
	FlagsResponse      uint8 = 0x80
)

// SMB1 header flags2
const (
	Flags2LongNames    uint16 = 0x0001
	Flags2EAS          uint16 = 0x0002
	Flags2SecuritySig  uint16 = 0x0004
	Flags2ExtendedSec  uint16 = 0x0800
	Flags2DFSPathnames uint16 = 0x1000
	Flags2ReadIfExec   uint16 = 0x2000
	Flags2NTStatusCode uint16 = 0x4000
	Flags2Unicode      uint16 = 0x8000
)

// DOS error classes used when Flags2NTStatusCode is clear.
const (
	ErrClassSuccess  uint8 = 0x00
	ErrClassDOS      uint8 = 0x01
	ErrClassServer   uint8 = 0x02
	ErrClassHardware uint8 = 0x03
	ErrClassCommand  uint8 = 0xFF
)

// HeaderSize is the fixed SMB1 header length.
const HeaderSize = 32

// ProtocolID is the SMB1 magic: 0xFF 'S' 'M' 'B'.
var ProtocolID = [4]byte{0xFF, 'S', 'M', 'B'}

// Header represents an SMB1 header (32 bytes).
//
// Status holds the raw 4 status bytes. With Flags2NTStatusCode set they are
// a little-endian NTSTATUS; otherwise byte 0 is the error class, byte 1 is
// reserved and bytes 2-3 are the error code.
type Header struct {
	Protocol    [4]byte
	Command     Command
	Status      uint32
	Flags       uint8
	Flags2      uint16
	PIDHigh     uint16
	SecuritySig [8]byte
	Reserved    uint16
	TID         uint16
	PIDLow      uint16
	UID         uint16
	MID         uint16
}

// NewHeader creates a new SMB1 header
func NewHeader(cmd Command, mid uint16) *Header {
	return &Header{
		Protocol: ProtocolID,
		Command:  cmd,
		Flags:    FlagsCaseless | FlagsCanonical,
		Flags2:   Flags2LongNames | Flags2ExtendedSec | Flags2NTStatusCode | Flags2Unicode,
		MID:      mid,
	}
}

func (h *Header) Size() int { return HeaderSize }

// Marshal serializes the header to bytes
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Protocol[:])
	buf[4] = byte(h.Command)
	encoding.PutUint32LE(buf[5:9], h.Status)
	buf[9] = h.Flags
	encoding.PutUint16LE(buf[10:12], h.Flags2)
	encoding.PutUint16LE(buf[12:14], h.PIDHigh)
	copy(buf[14:22], h.SecuritySig[:])
	encoding.PutUint16LE(buf[22:24], h.Reserved)
	encoding.PutUint16LE(buf[24:26], h.TID)
	encoding.PutUint16LE(buf[26:28], h.PIDLow)
	encoding.PutUint16LE(buf[28:30], h.UID)
	encoding.PutUint16LE(buf[30:32], h.MID)
	return buf
}

// Unmarshal parses bytes into the header
func (h *Header) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, HeaderSize); err != nil {
		return err
	}
	if !bytes.Equal(buf[0:4], ProtocolID[:]) {
		return fmt.Errorf("%w: % X", ErrInvalidProtocolID, buf[0:4])
	}
	copy(h.Protocol[:], buf[0:4])
	h.Command = Command(buf[4])
	h.Status = encoding.Uint32LE(buf[5:9])
	h.Flags = buf[9]
	h.Flags2 = encoding.Uint16LE(buf[10:12])
	h.PIDHigh = encoding.Uint16LE(buf[12:14])
	copy(h.SecuritySig[:], buf[14:22])
	h.Reserved = encoding.Uint16LE(buf[22:24])
	h.TID = encoding.Uint16LE(buf[24:26])
	h.PIDLow = encoding.Uint16LE(buf[26:28])
	h.UID = encoding.Uint16LE(buf[28:30])
	h.MID = encoding.Uint16LE(buf[30:32])
	return nil
}

// IsResponse returns true if this is a response message
func (h *Header) IsResponse() bool {
	return h.Flags&FlagsResponse != 0
}

// UsesNTStatus reports whether Status is an NTSTATUS rather than a DOS
// class/code pair.
func (h *Header) UsesNTStatus() bool {
	return h.Flags2&Flags2NTStatusCode != 0
}

// NTStatus returns the raw status as an NTSTATUS.
func (h *Header) NTStatus() types.NTStatus {
	return types.NTStatus(h.Status)
}

// SetNTStatus stores s and switches the header to NT status mode.
func (h *Header) SetNTStatus(s types.NTStatus) {
	h.Status = uint32(s)
	h.Flags2 |= Flags2NTStatusCode
}

// DOSError splits the raw status into a DOS error class and code.
func (h *Header) DOSError() (class uint8, code uint16) {
	return uint8(h.Status), uint16(h.Status >> 16)
}

// SetDOSError stores a DOS class/code pair and clears NT status mode.
func (h *Header) SetDOSError(class uint8, code uint16) {
	h.Status = uint32(class) | uint32(code)<<16
	h.Flags2 &^= Flags2NTStatusCode
}

// PID returns the 32-bit process id assembled from PIDHigh and PIDLow.
func (h *Header) PID() uint32 {
	return uint32(h.PIDHigh)<<16 | uint32(h.PIDLow)
}

// SetPID splits pid into PIDHigh and PIDLow.
func (h *Header) SetPID(pid uint32) {
	h.PIDHigh = uint16(pid >> 16)
	h.PIDLow = uint16(pid)
}

// IsSuccess returns true if the status indicates success.
// STATUS_MORE_PROCESSING_REQUIRED counts as success since session setup
// continues with it.
func (h *Header) IsSuccess() bool {
	if !h.UsesNTStatus() {
		class, _ := h.DOSError()
		return class == ErrClassSuccess
	}
	s := h.NTStatus()
	return s == types.StatusSuccess || s == types.StatusMoreProcessingReq
}

// Err returns a *ResponseError for a failed response and nil otherwise.
func (h *Header) Err() error {
	if h.IsSuccess() {
		return nil
	}
	e := &ResponseError{Command: h.Command, NT: h.UsesNTStatus()}
	if e.NT {
		e.Status = h.NTStatus()
	} else {
		e.Class, e.Code = h.DOSError()
	}
	return e
}

func (h *Header) String() string {
	if h.UsesNTStatus() {
		return fmt.Sprintf("SMB1 %s mid=%d uid=%d tid=%d pid=%d status=%s",
			h.Command, h.MID, h.UID, h.TID, h.PID(), h.NTStatus())
	}
	class, code := h.DOSError()
	return fmt.Sprintf("SMB1 %s mid=%d uid=%d tid=%d pid=%d dos=%d/%d",
		h.Command, h.MID, h.UID, h.TID, h.PID(), class, code)
}
