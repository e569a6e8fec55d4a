package types

import (
	"fmt"
	"net"
	"strings"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// IoctlPayload is the protocol-specific input or output of an IOCTL.
type IoctlPayload interface {
	Marshal() []byte
	Unmarshal(buf []byte) error
}

// DecodeIoctlOutput selects the response payload decoder by control code.
// An empty buffer or an unrecognized code yields nil, nil.
func DecodeIoctlOutput(code CtlCode, buf []byte) (IoctlPayload, error) {
	if len(buf) == 0 {
		return nil, nil
	}

	var p IoctlPayload
	switch code {
	case FsctlSrvCopyChunk, FsctlSrvCopyChunkWrite:
		p = &SrvCopyChunkResponse{}
	case FsctlSrvEnumerateSnapshots:
		p = &SrvSnapshotArray{}
	case FsctlSrvRequestResumeKey:
		p = &SrvRequestResumeKey{}
	case FsctlQueryNetworkInterfaceInfo:
		p = &NetworkInterfaceInfoList{}
	case FsctlValidateNegotiateInfo:
		p = &ValidateNegotiateInfoResponse{}
	case FsctlSrvReadHash:
		p = &SrvReadHashResponse{}
	default:
		return nil, nil
	}
	if err := p.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("%s output: %w", code, err)
	}
	return p, nil
}

// SrvCopyChunk describes one range of a server-side copy.
type SrvCopyChunk struct {
	SourceOffset uint64
	TargetOffset uint64
	Length       uint32
}

// SrvCopyChunkCopy is the input of FSCTL_SRV_COPYCHUNK(_WRITE).
type SrvCopyChunkCopy struct {
	SourceKey [24]byte
	Chunks    []SrvCopyChunk
}

// Marshal serializes the copychunk request
func (p *SrvCopyChunkCopy) Marshal() []byte {
	buf := make([]byte, 32+24*len(p.Chunks))
	copy(buf[0:24], p.SourceKey[:])
	encoding.PutUint32LE(buf[24:28], uint32(len(p.Chunks)))
	for i, c := range p.Chunks {
		off := 32 + i*24
		encoding.PutUint64LE(buf[off:], c.SourceOffset)
		encoding.PutUint64LE(buf[off+8:], c.TargetOffset)
		encoding.PutUint32LE(buf[off+16:], c.Length)
	}
	return buf
}

// Unmarshal deserializes the copychunk request
func (p *SrvCopyChunkCopy) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, 32); err != nil {
		return err
	}
	copy(p.SourceKey[:], buf[0:24])
	n := int(encoding.Uint32LE(buf[24:28]))
	if err := encoding.Need(buf, 32+24*n); err != nil {
		return err
	}
	p.Chunks = nil
	for i := 0; i < n; i++ {
		off := 32 + i*24
		p.Chunks = append(p.Chunks, SrvCopyChunk{
			SourceOffset: encoding.Uint64LE(buf[off:]),
			TargetOffset: encoding.Uint64LE(buf[off+8:]),
			Length:       encoding.Uint32LE(buf[off+16:]),
		})
	}
	return nil
}

// SrvCopyChunkResponse is the output of FSCTL_SRV_COPYCHUNK(_WRITE). On
// STATUS_INVALID_PARAMETER the fields carry the server's limits instead.
type SrvCopyChunkResponse struct {
	ChunksWritten     uint32
	ChunkBytesWritten uint32
	TotalBytesWritten uint32
}

func (p *SrvCopyChunkResponse) Marshal() []byte {
	buf := make([]byte, 12)
	encoding.PutUint32LE(buf[0:4], p.ChunksWritten)
	encoding.PutUint32LE(buf[4:8], p.ChunkBytesWritten)
	encoding.PutUint32LE(buf[8:12], p.TotalBytesWritten)
	return buf
}

func (p *SrvCopyChunkResponse) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, 12); err != nil {
		return err
	}
	p.ChunksWritten = encoding.Uint32LE(buf[0:4])
	p.ChunkBytesWritten = encoding.Uint32LE(buf[4:8])
	p.TotalBytesWritten = encoding.Uint32LE(buf[8:12])
	return nil
}

// SrvSnapshotArray is the output of FSCTL_SRV_ENUMERATE_SNAPSHOTS.
// Snapshots are "@GMT-YYYY.MM.DD-HH.MM.SS" tokens.
type SrvSnapshotArray struct {
	NumberOfSnapshots uint32
	Snapshots         []string
}

func (p *SrvSnapshotArray) Marshal() []byte {
	var names []byte
	for _, s := range p.Snapshots {
		names = append(names, encoding.ToUTF16LEWithNull(s)...)
	}
	names = append(names, 0, 0)

	buf := make([]byte, 12, 12+len(names))
	encoding.PutUint32LE(buf[0:4], p.NumberOfSnapshots)
	encoding.PutUint32LE(buf[4:8], uint32(len(p.Snapshots)))
	encoding.PutUint32LE(buf[8:12], uint32(len(names)))
	return append(buf, names...)
}

func (p *SrvSnapshotArray) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, 12); err != nil {
		return err
	}
	p.NumberOfSnapshots = encoding.Uint32LE(buf[0:4])
	returned := int(encoding.Uint32LE(buf[4:8]))
	size := int(encoding.Uint32LE(buf[8:12]))
	names, err := encoding.Slice(buf, 12, size)
	if err != nil {
		// Servers answer a too-small MaxOutputResponse with only the counts.
		if returned == 0 {
			p.Snapshots = nil
			return nil
		}
		return err
	}

	p.Snapshots = nil
	for _, s := range strings.Split(encoding.FromUTF16LE(names), "\x00") {
		if s != "" && len(p.Snapshots) < returned {
			p.Snapshots = append(p.Snapshots, s)
		}
	}
	return nil
}

// SrvRequestResumeKey is the output of FSCTL_SRV_REQUEST_RESUME_KEY.
type SrvRequestResumeKey struct {
	ResumeKey [24]byte
	Context   []byte
}

func (p *SrvRequestResumeKey) Marshal() []byte {
	buf := make([]byte, 28+len(p.Context))
	copy(buf[0:24], p.ResumeKey[:])
	encoding.PutUint32LE(buf[24:28], uint32(len(p.Context)))
	copy(buf[28:], p.Context)
	return buf
}

func (p *SrvRequestResumeKey) Unmarshal(buf []byte) error {
	r := encoding.NewReader(buf)
	r.ReadInto(p.ResumeKey[:])
	n := int(r.ReadUint32())
	p.Context = nil
	if n > 0 {
		p.Context = r.ReadBytes(n)
	}
	return r.Err()
}

// Hash retrieval values for FSCTL_SRV_READ_HASH.
const (
	SrvHashTypePeerDist      uint32 = 0x00000001
	SrvHashVer1              uint32 = 0x00000001
	SrvHashVer2              uint32 = 0x00000002
	SrvHashRetrieveHashBased uint32 = 0x00000001
	SrvHashRetrieveFileBased uint32 = 0x00000002
)

// SrvReadHashRequest is the input of FSCTL_SRV_READ_HASH.
type SrvReadHashRequest struct {
	HashType          uint32
	HashVersion       uint32
	HashRetrievalType uint32
	Length            uint32
	Offset            uint64
}

func (p *SrvReadHashRequest) Marshal() []byte {
	buf := make([]byte, 24)
	encoding.PutUint32LE(buf[0:4], p.HashType)
	encoding.PutUint32LE(buf[4:8], p.HashVersion)
	encoding.PutUint32LE(buf[8:12], p.HashRetrievalType)
	encoding.PutUint32LE(buf[12:16], p.Length)
	encoding.PutUint64LE(buf[16:24], p.Offset)
	return buf
}

func (p *SrvReadHashRequest) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, 24); err != nil {
		return err
	}
	p.HashType = encoding.Uint32LE(buf[0:4])
	p.HashVersion = encoding.Uint32LE(buf[4:8])
	p.HashRetrievalType = encoding.Uint32LE(buf[8:12])
	p.Length = encoding.Uint32LE(buf[12:16])
	p.Offset = encoding.Uint64LE(buf[16:24])
	return nil
}

// SrvReadHashResponse is the output of FSCTL_SRV_READ_HASH. The hash blob
// is kept opaque.
type SrvReadHashResponse struct {
	Offset uint32
	Buffer []byte
}

func (p *SrvReadHashResponse) Marshal() []byte {
	buf := make([]byte, 8+len(p.Buffer))
	encoding.PutUint32LE(buf[0:4], p.Offset)
	encoding.PutUint32LE(buf[4:8], uint32(len(p.Buffer)))
	copy(buf[8:], p.Buffer)
	return buf
}

func (p *SrvReadHashResponse) Unmarshal(buf []byte) error {
	r := encoding.NewReader(buf)
	p.Offset = r.ReadUint32()
	n := int(r.ReadUint32())
	p.Buffer = nil
	if n > 0 {
		p.Buffer = r.ReadBytes(n)
	}
	return r.Err()
}

// Network interface capability bits.
const (
	InterfaceCapRSS  uint32 = 0x00000001
	InterfaceCapRDMA uint32 = 0x00000002
)

const (
	networkInterfaceInfoSize = 152
	sockaddrFamilyInet       = 0x0002
	sockaddrFamilyInet6      = 0x0017
)

// NetworkInterfaceInfo is one NETWORK_INTERFACE_INFO entry.
type NetworkInterfaceInfo struct {
	IfIndex    uint32
	Capability uint32
	LinkSpeed  uint64
	Family     uint16
	Port       uint16
	IP         net.IP
	FlowInfo   uint32 // IPv6 only
	ScopeID    uint32 // IPv6 only
}

// NetworkInterfaceInfoList is the output of FSCTL_QUERY_NETWORK_INTERFACE_INFO.
type NetworkInterfaceInfoList struct {
	Interfaces []NetworkInterfaceInfo
}

func (p *NetworkInterfaceInfoList) Marshal() []byte {
	buf := make([]byte, networkInterfaceInfoSize*len(p.Interfaces))
	for i, ifc := range p.Interfaces {
		e := buf[i*networkInterfaceInfoSize:]
		if i < len(p.Interfaces)-1 {
			encoding.PutUint32LE(e[0:4], networkInterfaceInfoSize)
		}
		encoding.PutUint32LE(e[4:8], ifc.IfIndex)
		encoding.PutUint32LE(e[8:12], ifc.Capability)
		encoding.PutUint64LE(e[16:24], ifc.LinkSpeed)
		sa := e[24:152]
		encoding.PutUint16LE(sa[0:2], ifc.Family)
		// Port is big-endian, as in a sockaddr
		sa[2], sa[3] = byte(ifc.Port>>8), byte(ifc.Port)
		switch ifc.Family {
		case sockaddrFamilyInet:
			copy(sa[4:8], ifc.IP.To4())
		case sockaddrFamilyInet6:
			encoding.PutUint32LE(sa[4:8], ifc.FlowInfo)
			copy(sa[8:24], ifc.IP.To16())
			encoding.PutUint32LE(sa[24:28], ifc.ScopeID)
		}
	}
	return buf
}

func (p *NetworkInterfaceInfoList) Unmarshal(buf []byte) error {
	p.Interfaces = nil
	pos := 0
	for hop := 0; ; hop++ {
		if hop >= DefaultMaxContextHops {
			return fmt.Errorf("%w: more than %d interfaces", ErrContextChain, DefaultMaxContextHops)
		}
		if pos+networkInterfaceInfoSize > len(buf) {
			return fmt.Errorf("%w: interface %d at %d overruns %d-byte buffer", ErrContextChain, hop, pos, len(buf))
		}
		e := buf[pos:]
		next := encoding.Uint32LE(e[0:4])
		sa := e[24:152]
		ifc := NetworkInterfaceInfo{
			IfIndex:    encoding.Uint32LE(e[4:8]),
			Capability: encoding.Uint32LE(e[8:12]),
			LinkSpeed:  encoding.Uint64LE(e[16:24]),
			Family:     encoding.Uint16LE(sa[0:2]),
			Port:       uint16(sa[2])<<8 | uint16(sa[3]),
		}
		switch ifc.Family {
		case sockaddrFamilyInet:
			ifc.IP = net.IP(append([]byte(nil), sa[4:8]...))
		case sockaddrFamilyInet6:
			ifc.FlowInfo = encoding.Uint32LE(sa[4:8])
			ifc.IP = net.IP(append([]byte(nil), sa[8:24]...))
			ifc.ScopeID = encoding.Uint32LE(sa[24:28])
		}
		p.Interfaces = append(p.Interfaces, ifc)

		if next == 0 {
			return nil
		}
		if next < networkInterfaceInfoSize {
			return fmt.Errorf("%w: interface %d next %d does not advance", ErrContextChain, hop, next)
		}
		pos += int(next)
	}
}

// ValidateNegotiateInfoRequest is the input of FSCTL_VALIDATE_NEGOTIATE_INFO.
type ValidateNegotiateInfoRequest struct {
	Capabilities Capabilities
	GUID         encoding.GUID
	SecurityMode SecurityMode
	Dialects     []Dialect
}

func (p *ValidateNegotiateInfoRequest) Marshal() []byte {
	w := encoding.NewWriter(24 + 2*len(p.Dialects))
	w.WriteUint32(uint32(p.Capabilities))
	w.WriteGUID(p.GUID)
	w.WriteUint16(uint16(p.SecurityMode))
	w.WriteUint16(uint16(len(p.Dialects)))
	for _, d := range p.Dialects {
		w.WriteUint16(uint16(d))
	}
	return w.Bytes()
}

func (p *ValidateNegotiateInfoRequest) Unmarshal(buf []byte) error {
	r := encoding.NewReader(buf)
	p.Capabilities = Capabilities(r.ReadUint32())
	p.GUID = r.ReadGUID()
	p.SecurityMode = SecurityMode(r.ReadUint16())
	n := int(r.ReadUint16())
	p.Dialects = nil
	for i := 0; i < n && r.Err() == nil; i++ {
		p.Dialects = append(p.Dialects, Dialect(r.ReadUint16()))
	}
	return r.Err()
}

// ValidateNegotiateInfoResponse is the output of FSCTL_VALIDATE_NEGOTIATE_INFO.
type ValidateNegotiateInfoResponse struct {
	Capabilities Capabilities
	GUID         encoding.GUID
	SecurityMode SecurityMode
	Dialect      Dialect
}

func (p *ValidateNegotiateInfoResponse) Marshal() []byte {
	w := encoding.NewWriter(24)
	w.WriteUint32(uint32(p.Capabilities))
	w.WriteGUID(p.GUID)
	w.WriteUint16(uint16(p.SecurityMode))
	w.WriteUint16(uint16(p.Dialect))
	return w.Bytes()
}

func (p *ValidateNegotiateInfoResponse) Unmarshal(buf []byte) error {
	r := encoding.NewReader(buf)
	p.Capabilities = Capabilities(r.ReadUint32())
	p.GUID = r.ReadGUID()
	p.SecurityMode = SecurityMode(r.ReadUint16())
	p.Dialect = Dialect(r.ReadUint16())
	return r.Err()
}
