package smb1

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// Dialect strings for SMB1 negotiate
const (
	DialectNTLM012 = "NT LM 0.12"
	// Offering these in an SMB1 NEGOTIATE asks an SMB2-capable server to
	// answer with an SMB2 NEGOTIATE response instead.
	DialectSMB2002     = "SMB 2.002"
	DialectSMB2Unknown = "SMB 2.???"
)

// noDialectIndex is returned by a server that accepts none of the dialects.
const noDialectIndex = 0xFFFF

// Capability flags
const (
	CapRawMode         uint32 = 0x00000001
	CapMpxMode         uint32 = 0x00000002
	CapUnicode         uint32 = 0x00000004
	CapLargeFiles      uint32 = 0x00000008
	CapNTSMBs          uint32 = 0x00000010
	CapRPCRemoteAPIs   uint32 = 0x00000020
	CapNTStatusCodes   uint32 = 0x00000040
	CapLevel2Oplocks   uint32 = 0x00000080
	CapLockAndRead     uint32 = 0x00000100
	CapNTFind          uint32 = 0x00000200
	CapDFS             uint32 = 0x00001000
	CapInfoLevelPassth uint32 = 0x00002000
	CapLargeReadX      uint32 = 0x00004000
	CapLargeWriteX     uint32 = 0x00008000
	CapLWIO            uint32 = 0x00010000
	CapUnix            uint32 = 0x00800000
	CapCompressed      uint32 = 0x02000000
	CapDynamicReauth   uint32 = 0x20000000
	CapExtendedSec     uint32 = 0x80000000
)

// NegotiateRequest represents an SMB1 negotiate request
type NegotiateRequest struct {
	Dialects []string
}

// Block encodes the dialect list. Each entry is 0x02 followed by a
// null-terminated ASCII name; there are no parameter words.
func (r *NegotiateRequest) Block() Block {
	var data []byte
	for _, d := range r.Dialects {
		data = append(data, 0x02)
		data = append(data, d...)
		data = append(data, 0x00)
	}
	return Block{Data: data}
}

// Decode parses the dialect list of a NEGOTIATE request.
func (r *NegotiateRequest) Decode(m *Message) error {
	b, err := m.First()
	if err != nil {
		return err
	}
	r.Dialects = nil
	data := b.Data
	for len(data) > 0 {
		if data[0] != 0x02 {
			return fmt.Errorf("%w: dialect buffer format 0x%02X", ErrIncorrectMessageLength, data[0])
		}
		s, next := readString(data, 1, 0, false)
		r.Dialects = append(r.Dialects, s)
		data = data[next:]
	}
	return nil
}

// NegotiateResponse represents an SMB1 negotiate response
type NegotiateResponse struct {
	DialectIndex    uint16
	SecurityMode    uint8
	MaxMpxCount     uint16
	MaxNumberVcs    uint16
	MaxBufferSize   uint32
	MaxRawSize      uint32
	SessionKey      uint32
	Capabilities    uint32
	SystemTime      types.Filetime
	ServerTimeZone  int16
	ChallengeLength uint8

	// Extended security
	ServerGUID   encoding.GUID
	SecurityBlob []byte

	// Non-extended security
	Challenge  []byte
	DomainName string
	ServerName string
}

// Decode parses the negotiate response
func (r *NegotiateResponse) Decode(m *Message) error {
	b, err := m.First()
	if err != nil {
		return err
	}
	if len(b.Params) == 1 && b.Params[0] == noDialectIndex {
		return ErrNoDialect
	}
	p, err := b.params(CommandNegotiate, 17)
	if err != nil {
		return err
	}

	r.DialectIndex = p.ReadUint16()
	r.SecurityMode = p.ReadUint8()
	r.MaxMpxCount = p.ReadUint16()
	r.MaxNumberVcs = p.ReadUint16()
	r.MaxBufferSize = p.ReadUint32()
	r.MaxRawSize = p.ReadUint32()
	r.SessionKey = p.ReadUint32()
	r.Capabilities = p.ReadUint32()
	r.SystemTime = types.Filetime(p.ReadUint64())
	r.ServerTimeZone = int16(p.ReadUint16())
	r.ChallengeLength = p.ReadUint8()
	if err := p.Err(); err != nil {
		return err
	}
	if r.DialectIndex == noDialectIndex {
		return ErrNoDialect
	}

	if r.SupportsExtendedSecurity() {
		d := encoding.NewReader(b.Data)
		r.ServerGUID = d.ReadGUID()
		if err := d.Err(); err != nil {
			return fmt.Errorf("server GUID: %w", err)
		}
		r.SecurityBlob = nil
		if n := d.Remaining(); n > 0 {
			r.SecurityBlob = d.ReadBytes(n)
		}
		return nil
	}

	challenge, err := encoding.Slice(b.Data, 0, int(r.ChallengeLength))
	if err != nil {
		return fmt.Errorf("challenge: %w", err)
	}
	r.Challenge = append([]byte(nil), challenge...)
	unicode := m.Header.Flags2&Flags2Unicode != 0
	base := m.DataOffset(0)
	pos := int(r.ChallengeLength)
	r.DomainName, pos = readString(b.Data, pos, base, unicode)
	r.ServerName, _ = readString(b.Data, pos, base, unicode)
	return nil
}

// Block encodes the response; used by tests and the decode tool.
func (r *NegotiateResponse) Block() Block {
	w := encoding.NewWriter(34)
	w.WriteUint16(r.DialectIndex)
	w.WriteUint8(r.SecurityMode)
	w.WriteUint16(r.MaxMpxCount)
	w.WriteUint16(r.MaxNumberVcs)
	w.WriteUint32(r.MaxBufferSize)
	w.WriteUint32(r.MaxRawSize)
	w.WriteUint32(r.SessionKey)
	w.WriteUint32(r.Capabilities)
	w.WriteUint64(uint64(r.SystemTime))
	w.WriteUint16(uint16(r.ServerTimeZone))
	w.WriteUint8(uint8(len(r.Challenge)))

	var data []byte
	if r.SupportsExtendedSecurity() {
		data = append(data, r.ServerGUID[:]...)
		data = append(data, r.SecurityBlob...)
	} else {
		data = append(data, r.Challenge...)
	}
	return NewBlock(w.Bytes(), data)
}

// SupportsExtendedSecurity returns true if server supports extended security
func (r *NegotiateResponse) SupportsExtendedSecurity() bool {
	return r.Capabilities&CapExtendedSec != 0
}

// SupportsUnicode returns true if server supports Unicode
func (r *NegotiateResponse) SupportsUnicode() bool {
	return r.Capabilities&CapUnicode != 0
}
