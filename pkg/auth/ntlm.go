package auth

import (
	"errors"
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// ntlmSignature opens every NTLMSSP message.
var ntlmSignature = [8]byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}

// NTLMSSP message types
const (
	NtLmNegotiate    uint32 = 0x00000001
	NtLmChallenge    uint32 = 0x00000002
	NtLmAuthenticate uint32 = 0x00000003
)

// NTLMSSP negotiate flags
const (
	NtlmsspNegotiateUnicode                 uint32 = 0x00000001
	NtlmsspNegotiateOEM                     uint32 = 0x00000002
	NtlmsspRequestTarget                    uint32 = 0x00000004
	NtlmsspNegotiateSign                    uint32 = 0x00000010
	NtlmsspNegotiateSeal                    uint32 = 0x00000020
	NtlmsspNegotiateLmKey                   uint32 = 0x00000080
	NtlmsspNegotiateNTLM                    uint32 = 0x00000200
	NtlmsspNegotiateAnonymous               uint32 = 0x00000800
	NtlmsspNegotiateOEMDomainSupplied       uint32 = 0x00001000
	NtlmsspNegotiateOEMWorkstationSupplied  uint32 = 0x00002000
	NtlmsspNegotiateAlwaysSign              uint32 = 0x00008000
	NtlmsspTargetTypeDomain                 uint32 = 0x00010000
	NtlmsspTargetTypeServer                 uint32 = 0x00020000
	NtlmsspNegotiateExtendedSessionSecurity uint32 = 0x00080000
	NtlmsspNegotiateIdentify                uint32 = 0x00100000
	NtlmsspRequestNonNTSessionKey           uint32 = 0x00400000
	NtlmsspNegotiateTargetInfo              uint32 = 0x00800000
	NtlmsspNegotiateVersion                 uint32 = 0x02000000
	NtlmsspNegotiate128                     uint32 = 0x20000000
	NtlmsspNegotiateKeyExchange             uint32 = 0x40000000
	NtlmsspNegotiate56                      uint32 = 0x80000000
)

// DefaultNegotiateFlags for NTLMv2 authentication
var DefaultNegotiateFlags = encoding.Union(
	NtlmsspNegotiateUnicode,
	NtlmsspRequestTarget,
	NtlmsspNegotiateNTLM,
	NtlmsspNegotiateAlwaysSign,
	NtlmsspNegotiateExtendedSessionSecurity,
	NtlmsspNegotiateTargetInfo,
	NtlmsspNegotiateVersion,
	NtlmsspNegotiate128,
	NtlmsspNegotiateKeyExchange,
	NtlmsspNegotiate56,
)

var (
	// ErrBadNTLMMessage is returned for NTLMSSP messages that fail to parse.
	ErrBadNTLMMessage = errors.New("malformed NTLMSSP message")
)

// Version is the 8-byte VERSION structure.
type Version struct {
	ProductMajorVersion uint8
	ProductMinorVersion uint8
	ProductBuild        uint16
	NTLMRevisionCurrent uint8
}

// DefaultVersion reports Windows 10 with NTLMSSP_REVISION_W2K3.
func DefaultVersion() Version {
	return Version{
		ProductMajorVersion: 10,
		ProductBuild:        19041,
		NTLMRevisionCurrent: 15,
	}
}

func (v Version) write(w *encoding.Writer) {
	w.WriteUint8(v.ProductMajorVersion)
	w.WriteUint8(v.ProductMinorVersion)
	w.WriteUint16(v.ProductBuild)
	w.WriteZeros(3)
	w.WriteUint8(v.NTLMRevisionCurrent)
}

func readVersion(r *encoding.Reader) Version {
	var v Version
	v.ProductMajorVersion = r.ReadUint8()
	v.ProductMinorVersion = r.ReadUint8()
	v.ProductBuild = r.ReadUint16()
	r.Skip(3)
	v.NTLMRevisionCurrent = r.ReadUint8()
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d rev %d", v.ProductMajorVersion, v.ProductMinorVersion, v.ProductBuild, v.NTLMRevisionCurrent)
}

// payload lays out the variable fields of an NTLMSSP message. Each field's
// 8-byte Len/MaxLen/Offset descriptor is backpatched once the fixed part
// is complete.
type payload struct {
	fields [][]byte
	slots  []int
}

// reserve writes an empty descriptor for b and remembers where it is.
func (p *payload) reserve(w *encoding.Writer, b []byte) {
	p.slots = append(p.slots, w.Len())
	p.fields = append(p.fields, b)
	w.WriteZeros(8)
}

// flush appends every field and fills in its descriptor.
func (p *payload) flush(w *encoding.Writer) {
	for i, b := range p.fields {
		off := p.slots[i]
		w.WriteUint16At(off, uint16(len(b)))
		w.WriteUint16At(off+2, uint16(len(b)))
		w.WriteUint32At(off+4, uint32(w.Len()))
		w.WriteBytes(b)
	}
}

// readField reads a descriptor at the reader's position and returns a copy
// of the bytes it points to in msg.
func readField(r *encoding.Reader, msg []byte, name string) ([]byte, error) {
	n := r.ReadUint16()
	r.Skip(2)
	off := r.ReadUint32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s descriptor: %v", ErrBadNTLMMessage, name, err)
	}
	if n == 0 {
		return nil, nil
	}
	b, err := encoding.Slice(msg, int(off), int(n))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadNTLMMessage, name, err)
	}
	return append([]byte(nil), b...), nil
}

// readHeader checks the signature and message type.
func readHeader(r *encoding.Reader, want uint32) error {
	var sig [8]byte
	r.ReadInto(sig[:])
	typ := r.ReadUint32()
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadNTLMMessage, err)
	}
	if sig != ntlmSignature {
		return fmt.Errorf("%w: bad signature % X", ErrBadNTLMMessage, sig[:])
	}
	if typ != want {
		return fmt.Errorf("%w: message type %d, want %d", ErrBadNTLMMessage, typ, want)
	}
	return nil
}

// AvPair is one AV_PAIR entry of a challenge's TargetInfo.
type AvPair struct {
	AvID  uint16
	Value []byte
}

// AV_PAIR IDs
const (
	MsvAvEOL             uint16 = 0x0000
	MsvAvNbComputerName  uint16 = 0x0001
	MsvAvNbDomainName    uint16 = 0x0002
	MsvAvDnsComputerName uint16 = 0x0003
	MsvAvDnsDomainName   uint16 = 0x0004
	MsvAvDnsTreeName     uint16 = 0x0005
	MsvAvFlags           uint16 = 0x0006
	MsvAvTimestamp       uint16 = 0x0007
	MsvAvSingleHost      uint16 = 0x0008
	MsvAvTargetName      uint16 = 0x0009
	MsvAvChannelBindings uint16 = 0x000A
)

// ParseAvPairs parses an AV_PAIR list up to MsvAvEOL. A truncated list
// yields the pairs read so far.
func ParseAvPairs(data []byte) []AvPair {
	var pairs []AvPair
	r := encoding.NewReader(data)
	for {
		id := r.ReadUint16()
		n := r.ReadUint16()
		if r.Err() != nil || id == MsvAvEOL {
			return pairs
		}
		v := r.ReadBytes(int(n))
		if r.Err() != nil {
			return pairs
		}
		pairs = append(pairs, AvPair{AvID: id, Value: v})
	}
}

// MarshalAvPairs serializes pairs followed by MsvAvEOL.
func MarshalAvPairs(pairs []AvPair) []byte {
	w := encoding.NewWriter(64)
	for _, p := range pairs {
		w.WriteUint16(p.AvID)
		w.WriteUint16(uint16(len(p.Value)))
		w.WriteBytes(p.Value)
	}
	w.WriteZeros(4)
	return w.Bytes()
}

// FindAvPair finds an AV_PAIR by ID
func FindAvPair(pairs []AvPair, id uint16) *AvPair {
	for i := range pairs {
		if pairs[i].AvID == id {
			return &pairs[i]
		}
	}
	return nil
}
