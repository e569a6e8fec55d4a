package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// Header represents an SMB2 message header (64 bytes)
type Header struct {
	ProtocolID    [4]byte     // 0xFE 'S' 'M' 'B'
	StructureSize uint16      // Always 64
	CreditCharge  uint16      // Number of credits consumed
	Status        NTStatus    // NT Status code (response) / ChannelSequence (request)
	Command       Command     // Command code
	CreditRequest uint16      // Credits requested (request) / Credits granted (response)
	Flags         HeaderFlags // Flags
	NextCommand   uint32      // Offset to next command (for compounding)
	MessageID     uint64      // Message identifier
	Reserved      uint32      // Reserved, or low half of AsyncID
	TreeID        uint32      // Tree identifier, or high half of AsyncID
	SessionID     uint64      // Session identifier
	Signature     [16]byte    // Signature for signed messages
}

// NewHeader creates a new SMB2 header with default values
func NewHeader(cmd Command, messageID uint64) *Header {
	return &Header{
		ProtocolID:    SMB2ProtocolID,
		StructureSize: SMB2HeaderSize,
		CreditCharge:  1, // Required for SMB 2.1+
		Command:       cmd,
		MessageID:     messageID,
		CreditRequest: 1,
	}
}

// Size returns the fixed header length.
func (h *Header) Size() int {
	return SMB2HeaderSize
}

// Marshal serializes the header to bytes
func (h *Header) Marshal() []byte {
	buf := make([]byte, SMB2HeaderSize)

	copy(buf[0:4], h.ProtocolID[:])
	encoding.PutUint16LE(buf[4:6], h.StructureSize)
	encoding.PutUint16LE(buf[6:8], h.CreditCharge)
	encoding.PutUint32LE(buf[8:12], uint32(h.Status))
	encoding.PutUint16LE(buf[12:14], uint16(h.Command))
	encoding.PutUint16LE(buf[14:16], h.CreditRequest)
	encoding.PutUint32LE(buf[16:20], uint32(h.Flags))
	encoding.PutUint32LE(buf[20:24], h.NextCommand)
	encoding.PutUint64LE(buf[24:32], h.MessageID)
	encoding.PutUint32LE(buf[32:36], h.Reserved)
	encoding.PutUint32LE(buf[36:40], h.TreeID)
	encoding.PutUint64LE(buf[40:48], h.SessionID)
	copy(buf[48:64], h.Signature[:])

	return buf
}

// Unmarshal deserializes a header from bytes
func (h *Header) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, SMB2HeaderSize); err != nil {
		return err
	}

	copy(h.ProtocolID[:], buf[0:4])
	if h.ProtocolID != SMB2ProtocolID {
		return fmt.Errorf("%w: % X", ErrInvalidProtocolID, buf[0:4])
	}

	h.StructureSize = encoding.Uint16LE(buf[4:6])
	if h.StructureSize != SMB2HeaderSize {
		return fmt.Errorf("%w: header %d", ErrStructureSize, h.StructureSize)
	}
	h.CreditCharge = encoding.Uint16LE(buf[6:8])
	h.Status = NTStatus(encoding.Uint32LE(buf[8:12]))
	h.Command = Command(encoding.Uint16LE(buf[12:14]))
	h.CreditRequest = encoding.Uint16LE(buf[14:16])
	h.Flags = HeaderFlags(encoding.Uint32LE(buf[16:20]))
	h.NextCommand = encoding.Uint32LE(buf[20:24])
	h.MessageID = encoding.Uint64LE(buf[24:32])
	h.Reserved = encoding.Uint32LE(buf[32:36])
	h.TreeID = encoding.Uint32LE(buf[36:40])
	h.SessionID = encoding.Uint64LE(buf[40:48])
	copy(h.Signature[:], buf[48:64])

	return nil
}

// AsyncID returns the 64-bit async identifier carried in the Reserved (low)
// and TreeID (high) fields. Only meaningful when IsAsync is true.
func (h *Header) AsyncID() uint64 {
	return uint64(h.TreeID)<<32 | uint64(h.Reserved)
}

// SetAsyncID stores id across Reserved and TreeID and sets the async flag.
func (h *Header) SetAsyncID(id uint64) {
	h.Reserved = uint32(id)
	h.TreeID = uint32(id >> 32)
	h.Flags |= FlagsAsyncCommand
}

// IsResponse returns true if this is a response from the server
func (h *Header) IsResponse() bool {
	return h.Flags&FlagsServerToRedir != 0
}

// IsSigned returns true if the message is signed
func (h *Header) IsSigned() bool {
	return h.Flags&FlagsSigned != 0
}

// IsAsync returns true if this is an async response
func (h *Header) IsAsync() bool {
	return h.Flags&FlagsAsyncCommand != 0
}

// IsRelated returns true if this message is part of a related compound chain
func (h *Header) IsRelated() bool {
	return h.Flags&FlagsRelatedOps != 0
}

func (h *Header) String() string {
	dir := "request"
	if h.IsResponse() {
		dir = "response"
	}
	return fmt.Sprintf("SMB2 %s %s mid=%d status=%s", h.Command, dir, h.MessageID, h.Status)
}
