package types

import (
	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// ChangeNotify flags
const (
	WatchTree uint16 = 0x0001
)

// CompletionFilter bits for CHANGE_NOTIFY
const (
	FileNotifyChangeFileName    uint32 = 0x00000001
	FileNotifyChangeDirName     uint32 = 0x00000002
	FileNotifyChangeAttributes  uint32 = 0x00000004
	FileNotifyChangeSize        uint32 = 0x00000008
	FileNotifyChangeLastWrite   uint32 = 0x00000010
	FileNotifyChangeLastAccess  uint32 = 0x00000020
	FileNotifyChangeCreation    uint32 = 0x00000040
	FileNotifyChangeEA          uint32 = 0x00000080
	FileNotifyChangeSecurity    uint32 = 0x00000100
	FileNotifyChangeStreamName  uint32 = 0x00000200
	FileNotifyChangeStreamSize  uint32 = 0x00000400
	FileNotifyChangeStreamWrite uint32 = 0x00000800
)

// FILE_NOTIFY_INFORMATION actions
const (
	FileActionAdded          uint32 = 0x00000001
	FileActionRemoved        uint32 = 0x00000002
	FileActionModified       uint32 = 0x00000003
	FileActionRenamedOldName uint32 = 0x00000004
	FileActionRenamedNewName uint32 = 0x00000005
)

// ChangeNotifyRequest represents an SMB2 CHANGE_NOTIFY request
type ChangeNotifyRequest struct {
	Flags              uint16
	OutputBufferLength uint32
	FileID             FileID
	CompletionFilter   uint32
}

func (r *ChangeNotifyRequest) Command() Command { return CommandChangeNotify }
func (r *ChangeNotifyRequest) Size() int        { return 32 }

// Marshal serializes the CHANGE_NOTIFY request
func (r *ChangeNotifyRequest) Marshal() []byte {
	buf := make([]byte, 32)
	encoding.PutUint16LE(buf[0:2], 32)
	encoding.PutUint16LE(buf[2:4], r.Flags)
	encoding.PutUint32LE(buf[4:8], r.OutputBufferLength)
	r.FileID.put(buf[8:24])
	encoding.PutUint32LE(buf[24:28], r.CompletionFilter)
	return buf
}

// Unmarshal deserializes a CHANGE_NOTIFY request
func (r *ChangeNotifyRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 32); err != nil {
		return err
	}
	r.Flags = encoding.Uint16LE(buf[2:4])
	r.OutputBufferLength = encoding.Uint32LE(buf[4:8])
	r.FileID = fileID(buf[8:24])
	r.CompletionFilter = encoding.Uint32LE(buf[24:28])
	return nil
}

// ChangeNotifyResponse represents an SMB2 CHANGE_NOTIFY response
type ChangeNotifyResponse struct {
	OutputBuffer []byte
}

func (r *ChangeNotifyResponse) Command() Command { return CommandChangeNotify }
func (r *ChangeNotifyResponse) Size() int        { return 8 }

// Marshal serializes the CHANGE_NOTIFY response
func (r *ChangeNotifyResponse) Marshal() []byte {
	return marshalOutputBuffer(r.OutputBuffer)
}

// Unmarshal deserializes a CHANGE_NOTIFY response
func (r *ChangeNotifyResponse) Unmarshal(buf []byte) error {
	out, err := unmarshalOutputBuffer(buf)
	r.OutputBuffer = out
	return err
}

// FileNotifyInfo is one FILE_NOTIFY_INFORMATION record.
type FileNotifyInfo struct {
	Action   uint32
	FileName string
}

// Changes decodes the FILE_NOTIFY_INFORMATION records in the output buffer.
func (r *ChangeNotifyResponse) Changes() ([]FileNotifyInfo, error) {
	var out []FileNotifyInfo
	err := walkEntries(r.OutputBuffer, 12, func(e []byte) {
		n := encoding.Uint32LE(e[8:12])
		out = append(out, FileNotifyInfo{
			Action:   encoding.Uint32LE(e[4:8]),
			FileName: entryName(e, 12, n),
		})
	})
	return out, err
}

// OplockBreak is the 24-byte OPLOCK_BREAK body. The same layout serves as
// the server notification, the client acknowledgment and the server reply.
type OplockBreak struct {
	OplockLevel OplockLevel
	FileID      FileID
}

func (b *OplockBreak) Command() Command { return CommandOplockBreak }
func (b *OplockBreak) Size() int        { return 24 }

// Marshal serializes the oplock break body
func (b *OplockBreak) Marshal() []byte {
	buf := make([]byte, 24)
	encoding.PutUint16LE(buf[0:2], 24)
	buf[2] = byte(b.OplockLevel)
	b.FileID.put(buf[8:24])
	return buf
}

// Unmarshal deserializes the oplock break body
func (b *OplockBreak) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 24); err != nil {
		return err
	}
	b.OplockLevel = OplockLevel(buf[2])
	b.FileID = fileID(buf[8:24])
	return nil
}

// Lease state bits
const (
	LeaseReadCaching   uint32 = 0x01
	LeaseHandleCaching uint32 = 0x02
	LeaseWriteCaching  uint32 = 0x04
)

// LeaseBreakNotification is the 44-byte server-initiated OPLOCK_BREAK form
// used for leases.
type LeaseBreakNotification struct {
	NewEpoch          uint16
	Flags             uint32
	LeaseKey          [16]byte
	CurrentLeaseState uint32
	NewLeaseState     uint32
	BreakReason       uint32
	AccessMaskHint    uint32
	ShareMaskHint     uint32
}

func (n *LeaseBreakNotification) Command() Command { return CommandOplockBreak }
func (n *LeaseBreakNotification) Size() int        { return 44 }

// Marshal serializes the lease break notification
func (n *LeaseBreakNotification) Marshal() []byte {
	buf := make([]byte, 44)
	encoding.PutUint16LE(buf[0:2], 44)
	encoding.PutUint16LE(buf[2:4], n.NewEpoch)
	encoding.PutUint32LE(buf[4:8], n.Flags)
	copy(buf[8:24], n.LeaseKey[:])
	encoding.PutUint32LE(buf[24:28], n.CurrentLeaseState)
	encoding.PutUint32LE(buf[28:32], n.NewLeaseState)
	encoding.PutUint32LE(buf[32:36], n.BreakReason)
	encoding.PutUint32LE(buf[36:40], n.AccessMaskHint)
	encoding.PutUint32LE(buf[40:44], n.ShareMaskHint)
	return buf
}

// Unmarshal deserializes the lease break notification
func (n *LeaseBreakNotification) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 44); err != nil {
		return err
	}
	n.NewEpoch = encoding.Uint16LE(buf[2:4])
	n.Flags = encoding.Uint32LE(buf[4:8])
	copy(n.LeaseKey[:], buf[8:24])
	n.CurrentLeaseState = encoding.Uint32LE(buf[24:28])
	n.NewLeaseState = encoding.Uint32LE(buf[28:32])
	n.BreakReason = encoding.Uint32LE(buf[32:36])
	n.AccessMaskHint = encoding.Uint32LE(buf[36:40])
	n.ShareMaskHint = encoding.Uint32LE(buf[40:44])
	return nil
}
