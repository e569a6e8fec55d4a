package types

import (
	"errors"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// LockFlags for SMB2_LOCK_ELEMENT
type LockFlags uint32

const (
	LockFlagSharedLock      LockFlags = 0x00000001
	LockFlagExclusiveLock   LockFlags = 0x00000002
	LockFlagUnlock          LockFlags = 0x00000004
	LockFlagFailImmediately LockFlags = 0x00000010
)

// LockElement is one byte range in a LOCK request.
type LockElement struct {
	Offset uint64
	Length uint64
	Flags  LockFlags
}

// ErrNoLocks is returned for a LOCK request without any lock element.
var ErrNoLocks = errors.New("lock request needs at least one element")

// LockRequest represents an SMB2 LOCK request
type LockRequest struct {
	// LockSequence packs a 4-bit sequence number and 28-bit index (2.1+).
	LockSequence uint32
	FileID       FileID
	Locks        []LockElement
}

func (r *LockRequest) Command() Command { return CommandLock }
func (r *LockRequest) Size() int        { return 48 }

// Marshal serializes the LOCK request
func (r *LockRequest) Marshal() []byte {
	buf := make([]byte, 24+24*len(r.Locks))
	encoding.PutUint16LE(buf[0:2], 48)
	encoding.PutUint16LE(buf[2:4], uint16(len(r.Locks)))
	encoding.PutUint32LE(buf[4:8], r.LockSequence)
	r.FileID.put(buf[8:24])
	for i, l := range r.Locks {
		off := 24 + i*24
		encoding.PutUint64LE(buf[off:], l.Offset)
		encoding.PutUint64LE(buf[off+8:], l.Length)
		encoding.PutUint32LE(buf[off+16:], uint32(l.Flags))
	}
	return buf
}

// Unmarshal deserializes a LOCK request
func (r *LockRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 48); err != nil {
		return err
	}
	count := int(encoding.Uint16LE(buf[2:4]))
	if count == 0 {
		return ErrNoLocks
	}
	if err := encoding.Need(buf, 24+24*count); err != nil {
		return err
	}
	r.LockSequence = encoding.Uint32LE(buf[4:8])
	r.FileID = fileID(buf[8:24])
	r.Locks = make([]LockElement, count)
	for i := range r.Locks {
		off := 24 + i*24
		r.Locks[i] = LockElement{
			Offset: encoding.Uint64LE(buf[off:]),
			Length: encoding.Uint64LE(buf[off+8:]),
			Flags:  LockFlags(encoding.Uint32LE(buf[off+16:])),
		}
	}
	return nil
}

// LockResponse represents an SMB2 LOCK response
type LockResponse struct{ empty4 }

func (r *LockResponse) Command() Command { return CommandLock }
