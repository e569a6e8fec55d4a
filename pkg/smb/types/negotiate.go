package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// NegotiateContextType identifies an SMB 3.1.1 negotiate context.
type NegotiateContextType uint16

const (
	PreauthIntegrityCapabilities NegotiateContextType = 0x0001
	EncryptionCapabilities       NegotiateContextType = 0x0002
	CompressionCapabilities      NegotiateContextType = 0x0003
	NetnameNegotiateContextID    NegotiateContextType = 0x0005
	TransportCapabilities        NegotiateContextType = 0x0006
	RDMATransformCapabilities    NegotiateContextType = 0x0007
	SigningCapabilities          NegotiateContextType = 0x0008
)

// HashAlgorithmSHA512 is the only preauth integrity hash defined for 3.1.1.
const HashAlgorithmSHA512 uint16 = 0x0001

// NegotiateContext is one entry of the 3.1.1 negotiate context list. Data is
// kept raw; PreauthIntegrity decodes the common case.
type NegotiateContext struct {
	ContextType NegotiateContextType
	Data        []byte
}

// NewPreauthIntegrityContext builds a PREAUTH_INTEGRITY_CAPABILITIES context
// offering SHA-512 with the given salt.
func NewPreauthIntegrityContext(salt []byte) NegotiateContext {
	w := encoding.NewWriter(4 + 2 + len(salt))
	w.WriteUint16(1)
	w.WriteUint16(uint16(len(salt)))
	w.WriteUint16(HashAlgorithmSHA512)
	w.WriteBytes(salt)
	return NegotiateContext{ContextType: PreauthIntegrityCapabilities, Data: w.Bytes()}
}

// NewNetnameContext builds a NETNAME_NEGOTIATE_CONTEXT_ID naming the server.
func NewNetnameContext(server string) NegotiateContext {
	return NegotiateContext{ContextType: NetnameNegotiateContextID, Data: encoding.ToUTF16LE(server)}
}

// PreauthIntegrity decodes a PREAUTH_INTEGRITY_CAPABILITIES context.
func (c NegotiateContext) PreauthIntegrity() (hashes []uint16, salt []byte, err error) {
	if c.ContextType != PreauthIntegrityCapabilities {
		return nil, nil, fmt.Errorf("negotiate context 0x%04X is not preauth integrity", uint16(c.ContextType))
	}
	r := encoding.NewReader(c.Data)
	count := int(r.ReadUint16())
	saltLen := int(r.ReadUint16())
	for i := 0; i < count && r.Err() == nil; i++ {
		hashes = append(hashes, r.ReadUint16())
	}
	salt = r.ReadBytes(saltLen)
	if r.Err() != nil {
		return nil, nil, r.Err()
	}
	return hashes, salt, nil
}

// writeNegotiateContexts appends the list, each entry aligned to 8 bytes
// relative to the message start. w must already be positioned on an 8-byte
// message boundary.
func writeNegotiateContexts(w *encoding.Writer, ctxs []NegotiateContext) {
	for i, c := range ctxs {
		if i > 0 {
			w.Pad(8)
		}
		w.WriteUint16(uint16(c.ContextType))
		w.WriteUint16(uint16(len(c.Data)))
		w.WriteUint32(0)
		w.WriteBytes(c.Data)
	}
}

// parseNegotiateContexts reads count contexts starting at a message-relative
// offset in a body that follows the 64-byte header.
func parseNegotiateContexts(body []byte, offset uint32, count uint16) ([]NegotiateContext, error) {
	if count == 0 {
		return nil, nil
	}
	pos := int64(offset) - SMB2HeaderSize
	if pos < 0 || pos > int64(len(body)) {
		return nil, fmt.Errorf("%w: negotiate context offset %d", ErrBadOffset, offset)
	}

	ctxs := make([]NegotiateContext, 0, count)
	p := int(pos)
	for i := 0; i < int(count); i++ {
		if i > 0 {
			// Alignment is relative to the message, and the body starts at 64.
			p = encoding.Align(p, 8)
		}
		if p+8 > len(body) {
			return nil, fmt.Errorf("%w: negotiate context %d at %d overruns body", ErrContextChain, i, p)
		}
		typ := NegotiateContextType(encoding.Uint16LE(body[p:]))
		n := int(encoding.Uint16LE(body[p+2:]))
		data, err := encoding.Slice(body, p+8, n)
		if err != nil {
			return nil, fmt.Errorf("%w: negotiate context %d data: %v", ErrContextChain, i, err)
		}
		ctxs = append(ctxs, NegotiateContext{ContextType: typ, Data: append([]byte(nil), data...)})
		p += 8 + n
	}
	return ctxs, nil
}

// NegotiateRequest represents an SMB2 NEGOTIATE request
type NegotiateRequest struct {
	SecurityMode SecurityMode
	Capabilities Capabilities
	ClientGUID   encoding.GUID
	Dialects     []Dialect
	// Contexts is sent only when Dialects includes 3.1.1.
	Contexts []NegotiateContext
}

// NewNegotiateRequest creates a negotiate request with standard dialects
func NewNegotiateRequest(clientGUID encoding.GUID) *NegotiateRequest {
	return &NegotiateRequest{
		SecurityMode: NegotiateSigningEnabled,
		Capabilities: GlobalCapDFS | GlobalCapLargeMTU,
		ClientGUID:   clientGUID,
		Dialects: []Dialect{
			DialectSMB2_0_2,
			DialectSMB2_1,
			DialectSMB3_0,
			DialectSMB3_0_2,
		},
	}
}

func (r *NegotiateRequest) Command() Command { return CommandNegotiate }
func (r *NegotiateRequest) Size() int        { return 36 }

// Marshal serializes the negotiate request
func (r *NegotiateRequest) Marshal() []byte {
	w := encoding.NewWriter(36 + len(r.Dialects)*2)

	w.WriteUint16(36)
	w.WriteUint16(uint16(len(r.Dialects)))
	w.WriteUint16(uint16(r.SecurityMode))
	w.WriteUint16(0)
	w.WriteUint32(uint32(r.Capabilities))
	w.WriteGUID(r.ClientGUID)
	// NegotiateContextOffset / Count, backpatched below
	w.WriteUint32(0)
	w.WriteUint16(uint16(len(r.Contexts)))
	w.WriteUint16(0)

	for _, d := range r.Dialects {
		w.WriteUint16(uint16(d))
	}

	if len(r.Contexts) > 0 {
		// Body offset 0 is message offset 64, so body alignment equals message alignment.
		w.Pad(8)
		w.WriteUint32At(28, uint32(SMB2HeaderSize+w.Len()))
		writeNegotiateContexts(w, r.Contexts)
	}

	return w.Bytes()
}

// Unmarshal deserializes a negotiate request
func (r *NegotiateRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 36); err != nil {
		return err
	}

	count := int(encoding.Uint16LE(buf[2:4]))
	r.SecurityMode = SecurityMode(encoding.Uint16LE(buf[4:6]))
	r.Capabilities = Capabilities(encoding.Uint32LE(buf[8:12]))
	copy(r.ClientGUID[:], buf[12:28])
	ctxOffset := encoding.Uint32LE(buf[28:32])
	ctxCount := encoding.Uint16LE(buf[32:34])

	if err := encoding.Need(buf, 36+count*2); err != nil {
		return fmt.Errorf("dialect list: %w", err)
	}
	r.Dialects = nil
	offers311 := false
	for i := 0; i < count; i++ {
		d := Dialect(encoding.Uint16LE(buf[36+i*2:]))
		offers311 = offers311 || d == DialectSMB3_1_1
		r.Dialects = append(r.Dialects, d)
	}

	// Without 3.1.1 the offset/count fields hold ClientStartTime.
	r.Contexts = nil
	if offers311 {
		ctxs, err := parseNegotiateContexts(buf, ctxOffset, ctxCount)
		if err != nil {
			return err
		}
		r.Contexts = ctxs
	}
	return nil
}

// NegotiateResponse represents an SMB2 NEGOTIATE response
type NegotiateResponse struct {
	SecurityMode    SecurityMode
	DialectRevision Dialect
	ServerGUID      encoding.GUID
	Capabilities    Capabilities
	MaxTransactSize uint32
	MaxReadSize     uint32
	MaxWriteSize    uint32
	SystemTime      Filetime
	ServerStartTime Filetime
	SecurityBuffer  []byte // GSS token (SPNEGO)
	Contexts        []NegotiateContext
}

func (r *NegotiateResponse) Command() Command { return CommandNegotiate }
func (r *NegotiateResponse) Size() int        { return 64 }

// Marshal serializes the negotiate response
func (r *NegotiateResponse) Marshal() []byte {
	w := encoding.NewWriter(64 + len(r.SecurityBuffer))

	w.WriteUint16(65)
	w.WriteUint16(uint16(r.SecurityMode))
	w.WriteUint16(uint16(r.DialectRevision))
	w.WriteUint16(uint16(len(r.Contexts)))
	w.WriteGUID(r.ServerGUID)
	w.WriteUint32(uint32(r.Capabilities))
	w.WriteUint32(r.MaxTransactSize)
	w.WriteUint32(r.MaxReadSize)
	w.WriteUint32(r.MaxWriteSize)
	w.WriteUint64(uint64(r.SystemTime))
	w.WriteUint64(uint64(r.ServerStartTime))
	if len(r.SecurityBuffer) > 0 {
		w.WriteUint16(SMB2HeaderSize + 64)
	} else {
		w.WriteUint16(0)
	}
	w.WriteUint16(uint16(len(r.SecurityBuffer)))
	w.WriteUint32(0)
	w.WriteBytes(r.SecurityBuffer)

	if len(r.Contexts) > 0 {
		w.Pad(8)
		w.WriteUint32At(60, uint32(SMB2HeaderSize+w.Len()))
		writeNegotiateContexts(w, r.Contexts)
	}
	return minBody(w.Bytes(), 65)
}

// Unmarshal deserializes a negotiate response
func (r *NegotiateResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 65); err != nil {
		return err
	}

	r.SecurityMode = SecurityMode(encoding.Uint16LE(buf[2:4]))
	r.DialectRevision = Dialect(encoding.Uint16LE(buf[4:6]))
	ctxCount := encoding.Uint16LE(buf[6:8])
	copy(r.ServerGUID[:], buf[8:24])
	r.Capabilities = Capabilities(encoding.Uint32LE(buf[24:28]))
	r.MaxTransactSize = encoding.Uint32LE(buf[28:32])
	r.MaxReadSize = encoding.Uint32LE(buf[32:36])
	r.MaxWriteSize = encoding.Uint32LE(buf[36:40])
	r.SystemTime = Filetime(encoding.Uint64LE(buf[40:48]))
	r.ServerStartTime = Filetime(encoding.Uint64LE(buf[48:56]))
	secOffset := encoding.Uint16LE(buf[56:58])
	secLength := encoding.Uint16LE(buf[58:60])
	ctxOffset := encoding.Uint32LE(buf[60:64])

	sec, err := bodyBuffer(buf, uint32(secOffset), uint32(secLength))
	if err != nil {
		return fmt.Errorf("security buffer: %w", err)
	}
	r.SecurityBuffer = sec

	// Only 3.1.1 reuses the count field; older dialects leave it reserved.
	r.Contexts = nil
	if r.DialectRevision == DialectSMB3_1_1 {
		ctxs, err := parseNegotiateContexts(buf, ctxOffset, ctxCount)
		if err != nil {
			return err
		}
		r.Contexts = ctxs
	}
	return nil
}

// SupportsDialect checks if the response supports a specific dialect
func (r *NegotiateResponse) SupportsDialect(d Dialect) bool {
	return r.DialectRevision >= d
}

// IsSMB3 returns true if SMB3.x was negotiated
func (r *NegotiateResponse) IsSMB3() bool {
	return r.DialectRevision >= DialectSMB3_0
}

// RequiresSigning returns true if signing is required
func (r *NegotiateResponse) RequiresSigning() bool {
	return r.SecurityMode&NegotiateSigningRequired != 0
}
