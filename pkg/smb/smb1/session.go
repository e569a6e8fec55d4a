package smb1

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// sessionSetupDataOffset is where SESSION_SETUP_ANDX request data starts:
// header, word count, 12 words, byte count.
const sessionSetupDataOffset = HeaderSize + 1 + 24 + 2

// SessionSetupAndXRequest represents an extended-security SESSION_SETUP_ANDX request
type SessionSetupAndXRequest struct {
	MaxBufferSize uint16
	MaxMpxCount   uint16
	VcNumber      uint16
	SessionKey    uint32
	Capabilities  uint32
	SecurityBlob  []byte
	NativeOS      string
	NativeLanMan  string
}

// Block encodes the request
func (r *SessionSetupAndXRequest) Block() Block {
	w := encoding.NewWriter(24)
	w.WriteUint8(uint8(CommandNoAndX))
	w.WriteUint8(0)
	w.WriteUint16(0) // AndXOffset
	w.WriteUint16(r.MaxBufferSize)
	w.WriteUint16(r.MaxMpxCount)
	w.WriteUint16(r.VcNumber)
	w.WriteUint32(r.SessionKey)
	w.WriteUint16(uint16(len(r.SecurityBlob)))
	w.WriteUint32(0)
	w.WriteUint32(r.Capabilities)

	data := append([]byte(nil), r.SecurityBlob...)
	data = appendString(data, sessionSetupDataOffset+len(data), r.NativeOS, true)
	data = appendString(data, sessionSetupDataOffset+len(data), r.NativeLanMan, true)
	return NewBlock(w.Bytes(), data)
}

// SessionSetupAndXResponse represents a SESSION_SETUP_ANDX response
type SessionSetupAndXResponse struct {
	AndXCommand   Command
	AndXOffset    uint16
	Action        uint16
	SecurityBlob  []byte
	NativeOS      string
	NativeLanMan  string
	PrimaryDomain string
}

// Decode parses the session setup response
func (r *SessionSetupAndXResponse) Decode(m *Message) error {
	b, err := m.First()
	if err != nil {
		return err
	}
	p, err := b.params(CommandSessionSetupAndX, 4)
	if err != nil {
		return err
	}
	r.AndXCommand = Command(p.ReadUint8())
	p.Skip(1)
	r.AndXOffset = p.ReadUint16()
	r.Action = p.ReadUint16()
	blobLen := int(p.ReadUint16())
	if err := p.Err(); err != nil {
		return err
	}

	blob, err := encoding.Slice(b.Data, 0, blobLen)
	if err != nil {
		return fmt.Errorf("%w: security blob %d bytes, data %d", ErrIncorrectMessageLength, blobLen, len(b.Data))
	}
	r.SecurityBlob = nil
	if blobLen > 0 {
		r.SecurityBlob = append([]byte(nil), blob...)
	}

	unicode := m.Header.Flags2&Flags2Unicode != 0
	base := m.DataOffset(0)
	pos := blobLen
	r.NativeOS, pos = readString(b.Data, pos, base, unicode)
	r.NativeLanMan, pos = readString(b.Data, pos, base, unicode)
	r.PrimaryDomain, _ = readString(b.Data, pos, base, unicode)
	return nil
}

// IsGuestLogon returns true if this is a guest logon
func (r *SessionSetupAndXResponse) IsGuestLogon() bool {
	return r.Action&0x01 != 0
}

// logoffBlock is the LOGOFF_ANDX request: an AndX header and nothing else.
func logoffBlock() Block {
	return Block{Params: []uint16{uint16(CommandNoAndX), 0}}
}
