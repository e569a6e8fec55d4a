package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// DefaultMaxContextHops bounds create-context chain walks.
const DefaultMaxContextHops = 64

// Well-known create context names.
const (
	CreateContextEABuffer           = "ExtA"
	CreateContextSecurityDesc       = "SecD"
	CreateContextDurableRequest     = "DHnQ"
	CreateContextDurableReconnect   = "DHnC"
	CreateContextDurableRequestV2   = "DH2Q"
	CreateContextDurableReconnectV2 = "DH2C"
	CreateContextAllocationSize     = "AlSi"
	CreateContextMaximalAccess      = "MxAc"
	CreateContextTimewarpToken      = "TWrp"
	CreateContextQueryOnDiskID      = "QFid"
	CreateContextRequestLease       = "RqLs"
)

// createContextHeaderSize is Next(4) NameOffset(2) NameLength(2)
// Reserved(2) DataOffset(2) DataLength(4).
const createContextHeaderSize = 16

// CreateContext is one element of a CREATE request or response context list.
// The name is a short ASCII tag such as "MxAc"; Data is left opaque.
type CreateContext struct {
	Name string
	Data []byte
}

// MarshalCreateContexts encodes the list as a chain. Each element starts on an
// 8-byte boundary and Next holds the distance to the following element.
func MarshalCreateContexts(ctxs []CreateContext) []byte {
	w := encoding.NewWriter(64 * len(ctxs))
	for i, c := range ctxs {
		start := w.Len()
		w.WriteUint32(0) // Next, patched once the element is written
		w.WriteUint16(createContextHeaderSize)
		w.WriteUint16(uint16(len(c.Name)))
		w.WriteUint16(0)
		dataOffsetPos := w.Len()
		w.WriteUint16(0)
		w.WriteUint32(uint32(len(c.Data)))
		w.WriteBytes([]byte(c.Name))
		if len(c.Data) > 0 {
			w.Pad(8)
			w.WriteUint16At(dataOffsetPos, uint16(w.Len()-start))
			w.WriteBytes(c.Data)
		}
		if i < len(ctxs)-1 {
			w.Pad(8)
			w.WriteUint32At(start, uint32(w.Len()-start))
		}
	}
	return w.Bytes()
}

// ParseCreateContexts walks a context chain held in buf. The walk stops at
// the first element whose Next is zero. Elements that run past buf, a Next
// that does not move forward, or more than maxHops elements fail with
// ErrContextChain. maxHops <= 0 selects DefaultMaxContextHops.
func ParseCreateContexts(buf []byte, maxHops int) ([]CreateContext, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxContextHops
	}

	var ctxs []CreateContext
	pos := 0
	for hop := 0; ; hop++ {
		if hop >= maxHops {
			return nil, fmt.Errorf("%w: more than %d contexts", ErrContextChain, maxHops)
		}
		if pos+createContextHeaderSize > len(buf) {
			return nil, fmt.Errorf("%w: element %d at %d overruns %d-byte buffer", ErrContextChain, hop, pos, len(buf))
		}
		elem := buf[pos:]
		next := encoding.Uint32LE(elem[0:4])
		nameOff := int(encoding.Uint16LE(elem[4:6]))
		nameLen := int(encoding.Uint16LE(elem[6:8]))
		dataOff := int(encoding.Uint16LE(elem[10:12]))
		dataLen := int(encoding.Uint32LE(elem[12:16]))

		limit := len(elem)
		if next != 0 {
			if int64(next) > int64(len(elem)) {
				return nil, fmt.Errorf("%w: element %d next %d out of bounds", ErrContextChain, hop, next)
			}
			if next < createContextHeaderSize {
				return nil, fmt.Errorf("%w: element %d next %d does not advance", ErrContextChain, hop, next)
			}
			limit = int(next)
		}

		name, err := encoding.Slice(elem[:limit], nameOff, nameLen)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d name: %v", ErrContextChain, hop, err)
		}
		var data []byte
		if dataLen > 0 {
			d, err := encoding.Slice(elem[:limit], dataOff, dataLen)
			if err != nil {
				return nil, fmt.Errorf("%w: element %d data: %v", ErrContextChain, hop, err)
			}
			data = append([]byte(nil), d...)
		}
		ctxs = append(ctxs, CreateContext{Name: string(name), Data: data})

		if next == 0 {
			return ctxs, nil
		}
		pos += int(next)
	}
}

// FindCreateContext returns the first context with the given name.
func FindCreateContext(ctxs []CreateContext, name string) (CreateContext, bool) {
	for _, c := range ctxs {
		if c.Name == name {
			return c, true
		}
	}
	return CreateContext{}, false
}

// MaximalAccessResponse is the data of an "MxAc" response context.
type MaximalAccessResponse struct {
	QueryStatus   NTStatus
	MaximalAccess AccessMask
}

// ParseMaximalAccess decodes an "MxAc" response context.
func ParseMaximalAccess(data []byte) (MaximalAccessResponse, error) {
	if err := encoding.Need(data, 8); err != nil {
		return MaximalAccessResponse{}, err
	}
	return MaximalAccessResponse{
		QueryStatus:   NTStatus(encoding.Uint32LE(data[0:4])),
		MaximalAccess: AccessMask(encoding.Uint32LE(data[4:8])),
	}, nil
}

// QueryOnDiskIDResponse is the data of a "QFid" response context.
type QueryOnDiskIDResponse struct {
	DiskFileID [8]byte
	VolumeID   [8]byte
}

// ParseQueryOnDiskID decodes a "QFid" response context.
func ParseQueryOnDiskID(data []byte) (QueryOnDiskIDResponse, error) {
	var q QueryOnDiskIDResponse
	if err := encoding.Need(data, 32); err != nil {
		return q, err
	}
	copy(q.DiskFileID[:], data[0:8])
	copy(q.VolumeID[:], data[8:16])
	return q, nil
}

// NewMaximalAccessContext asks the server to report the caller's maximal access.
func NewMaximalAccessContext() CreateContext {
	return CreateContext{Name: CreateContextMaximalAccess}
}

// NewQueryOnDiskIDContext asks the server for the on-disk file id.
func NewQueryOnDiskIDContext() CreateContext {
	return CreateContext{Name: CreateContextQueryOnDiskID}
}

// NewDurableHandleContext requests a durable (v1) handle.
func NewDurableHandleContext() CreateContext {
	return CreateContext{Name: CreateContextDurableRequest, Data: make([]byte, 16)}
}

// NewAllocationSizeContext sets the initial allocation size of a new file.
func NewAllocationSizeContext(size uint64) CreateContext {
	return CreateContext{Name: CreateContextAllocationSize, Data: encoding.AppendUint64LE(nil, size)}
}

// NewTimewarpContext opens the snapshot taken at t.
func NewTimewarpContext(t Filetime) CreateContext {
	return CreateContext{Name: CreateContextTimewarpToken, Data: encoding.AppendUint64LE(nil, uint64(t))}
}
