package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// SessionSetupFlags for SESSION_SETUP requests
const (
	SessionSetupFlagBinding uint8 = 0x01
)

// SessionFlags returned in SESSION_SETUP responses
const (
	SessionFlagIsGuest     uint16 = 0x0001
	SessionFlagIsNull      uint16 = 0x0002
	SessionFlagEncryptData uint16 = 0x0004
)

// SessionSetupRequest represents an SMB2 SESSION_SETUP request
type SessionSetupRequest struct {
	Flags             uint8
	SecurityMode      SecurityMode
	Capabilities      Capabilities
	Channel           uint32
	PreviousSessionID uint64
	SecurityBuffer    []byte // SPNEGO/NTLMSSP token
}

// NewSessionSetupRequest creates a new session setup request
func NewSessionSetupRequest(securityBuffer []byte) *SessionSetupRequest {
	return &SessionSetupRequest{
		SecurityMode:   NegotiateSigningEnabled,
		Capabilities:   GlobalCapDFS,
		SecurityBuffer: securityBuffer,
	}
}

func (r *SessionSetupRequest) Command() Command { return CommandSessionSetup }
func (r *SessionSetupRequest) Size() int        { return 24 }

// Marshal serializes the session setup request
func (r *SessionSetupRequest) Marshal() []byte {
	buf := make([]byte, 24+len(r.SecurityBuffer))

	encoding.PutUint16LE(buf[0:2], 25)
	buf[2] = r.Flags
	buf[3] = byte(r.SecurityMode)
	encoding.PutUint32LE(buf[4:8], uint32(r.Capabilities))
	encoding.PutUint32LE(buf[8:12], r.Channel)
	// SecurityBufferOffset is from start of SMB2 header
	encoding.PutUint16LE(buf[12:14], SMB2HeaderSize+24)
	encoding.PutUint16LE(buf[14:16], uint16(len(r.SecurityBuffer)))
	encoding.PutUint64LE(buf[16:24], r.PreviousSessionID)
	copy(buf[24:], r.SecurityBuffer)

	return minBody(buf, 25)
}

// Unmarshal deserializes a session setup request
func (r *SessionSetupRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 25); err != nil {
		return err
	}

	r.Flags = buf[2]
	r.SecurityMode = SecurityMode(buf[3])
	r.Capabilities = Capabilities(encoding.Uint32LE(buf[4:8]))
	r.Channel = encoding.Uint32LE(buf[8:12])
	offset := encoding.Uint16LE(buf[12:14])
	length := encoding.Uint16LE(buf[14:16])
	r.PreviousSessionID = encoding.Uint64LE(buf[16:24])

	sec, err := bodyBuffer(buf, uint32(offset), uint32(length))
	if err != nil {
		return fmt.Errorf("security buffer: %w", err)
	}
	r.SecurityBuffer = sec
	return nil
}

// SessionSetupResponse represents an SMB2 SESSION_SETUP response
type SessionSetupResponse struct {
	SessionFlags   uint16
	SecurityBuffer []byte // SPNEGO/NTLMSSP token
}

func (r *SessionSetupResponse) Command() Command { return CommandSessionSetup }
func (r *SessionSetupResponse) Size() int        { return 8 }

// Marshal serializes the session setup response
func (r *SessionSetupResponse) Marshal() []byte {
	buf := make([]byte, 8+len(r.SecurityBuffer))
	encoding.PutUint16LE(buf[0:2], 9)
	encoding.PutUint16LE(buf[2:4], r.SessionFlags)
	encoding.PutUint16LE(buf[4:6], SMB2HeaderSize+8)
	encoding.PutUint16LE(buf[6:8], uint16(len(r.SecurityBuffer)))
	copy(buf[8:], r.SecurityBuffer)
	return minBody(buf, 9)
}

// Unmarshal deserializes a session setup response
func (r *SessionSetupResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 9); err != nil {
		return err
	}

	r.SessionFlags = encoding.Uint16LE(buf[2:4])
	offset := encoding.Uint16LE(buf[4:6])
	length := encoding.Uint16LE(buf[6:8])

	sec, err := bodyBuffer(buf, uint32(offset), uint32(length))
	if err != nil {
		return fmt.Errorf("security buffer: %w", err)
	}
	r.SecurityBuffer = sec
	return nil
}

// IsGuest returns true if this is a guest session
func (r *SessionSetupResponse) IsGuest() bool {
	return r.SessionFlags&SessionFlagIsGuest != 0
}

// IsNull returns true if this is a null/anonymous session
func (r *SessionSetupResponse) IsNull() bool {
	return r.SessionFlags&SessionFlagIsNull != 0
}

// LogoffRequest represents an SMB2 LOGOFF request
type LogoffRequest struct{ empty4 }

func (r *LogoffRequest) Command() Command { return CommandLogoff }

// LogoffResponse represents an SMB2 LOGOFF response
type LogoffResponse struct{ empty4 }

func (r *LogoffResponse) Command() Command { return CommandLogoff }

// empty4 is the four-byte body shared by LOGOFF, TREE_DISCONNECT, ECHO,
// CANCEL, FLUSH and LOCK responses: StructureSize 4 plus a reserved word.
type empty4 struct{}

func (empty4) Size() int { return 4 }

func (empty4) Marshal() []byte {
	buf := make([]byte, 4)
	encoding.PutUint16LE(buf[0:2], 4)
	return buf
}

func (empty4) Unmarshal(buf []byte) error {
	return checkStructureSize(buf, 4)
}
