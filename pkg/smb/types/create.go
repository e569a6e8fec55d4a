package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// FileID represents a 16-byte file handle
type FileID struct {
	Persistent uint64
	Volatile   uint64
}

// Size returns the encoded length.
func (f *FileID) Size() int { return 16 }

// Marshal serializes the FileID
func (f *FileID) Marshal() []byte {
	buf := make([]byte, 16)
	f.put(buf)
	return buf
}

func (f *FileID) put(buf []byte) {
	encoding.PutUint64LE(buf[0:8], f.Persistent)
	encoding.PutUint64LE(buf[8:16], f.Volatile)
}

// Unmarshal deserializes a FileID
func (f *FileID) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, 16); err != nil {
		return err
	}
	f.Persistent = encoding.Uint64LE(buf[0:8])
	f.Volatile = encoding.Uint64LE(buf[8:16])
	return nil
}

// IsZero returns true if the FileID is zero/invalid
func (f FileID) IsZero() bool {
	return f == FileID{}
}

func (f FileID) String() string {
	return fmt.Sprintf("%016x:%016x", f.Persistent, f.Volatile)
}

// fileID reads a FileID from a slice already known to hold 16 bytes.
func fileID(buf []byte) FileID {
	return FileID{Persistent: encoding.Uint64LE(buf[0:8]), Volatile: encoding.Uint64LE(buf[8:16])}
}

// CreateAction values
const (
	FileSuperseded  uint32 = 0
	FileOpened      uint32 = 1
	FileCreated     uint32 = 2
	FileOverwritten uint32 = 3
)

// CreateRequest represents an SMB2 CREATE request
type CreateRequest struct {
	SecurityFlags        uint8
	RequestedOplockLevel OplockLevel
	ImpersonationLevel   ImpersonationLevel
	SmbCreateFlags       uint64
	DesiredAccess        AccessMask
	FileAttributes       FileAttributes
	ShareAccess          ShareAccess
	CreateDisposition    CreateDisposition
	CreateOptions        CreateOptions
	Name                 string // Path relative to the share, no leading backslash
	Contexts             []CreateContext
}

// NewCreateRequest creates a CREATE request for a file or directory
func NewCreateRequest(name string, access AccessMask, disposition CreateDisposition, options CreateOptions) *CreateRequest {
	return &CreateRequest{
		ImpersonationLevel: ImpersonationImpersonation,
		DesiredAccess:      access,
		FileAttributes:     FileAttributeNormal,
		ShareAccess:        FileShareRead | FileShareWrite | FileShareDelete,
		CreateDisposition:  disposition,
		CreateOptions:      options,
		Name:               name,
	}
}

// NewCreatePipeRequest creates a CREATE request for named pipes.
// Pipes take no attributes and no delete sharing.
func NewCreatePipeRequest(name string, access AccessMask) *CreateRequest {
	return &CreateRequest{
		ImpersonationLevel: ImpersonationImpersonation,
		DesiredAccess:      access,
		ShareAccess:        FileShareRead | FileShareWrite,
		CreateDisposition:  FileOpen,
		Name:               name,
	}
}

func (r *CreateRequest) Command() Command { return CommandCreate }
func (r *CreateRequest) Size() int        { return 56 }

// Marshal serializes the CREATE request
func (r *CreateRequest) Marshal() []byte {
	name := encoding.ToUTF16LE(r.Name)
	w := encoding.NewWriter(57 + len(name))

	w.WriteUint16(57)
	w.WriteUint8(r.SecurityFlags)
	w.WriteUint8(uint8(r.RequestedOplockLevel))
	w.WriteUint32(uint32(r.ImpersonationLevel))
	w.WriteUint64(r.SmbCreateFlags)
	w.WriteUint64(0)
	w.WriteUint32(uint32(r.DesiredAccess))
	w.WriteUint32(uint32(r.FileAttributes))
	w.WriteUint32(uint32(r.ShareAccess))
	w.WriteUint32(uint32(r.CreateDisposition))
	w.WriteUint32(uint32(r.CreateOptions))
	// NameOffset is 64 + 56 = 0x78 even for an empty name
	w.WriteUint16(SMB2HeaderSize + 56)
	w.WriteUint16(uint16(len(name)))
	w.WriteUint32(0) // CreateContextsOffset
	w.WriteUint32(0) // CreateContextsLength
	w.WriteBytes(name)

	if len(r.Contexts) > 0 {
		w.Pad(8)
		ctx := MarshalCreateContexts(r.Contexts)
		w.WriteUint32At(48, uint32(SMB2HeaderSize+w.Len()))
		w.WriteUint32At(52, uint32(len(ctx)))
		w.WriteBytes(ctx)
	}

	return minBody(w.Bytes(), 57)
}

// Unmarshal deserializes a CREATE request
func (r *CreateRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 57); err != nil {
		return err
	}

	r.SecurityFlags = buf[2]
	r.RequestedOplockLevel = OplockLevel(buf[3])
	r.ImpersonationLevel = ImpersonationLevel(encoding.Uint32LE(buf[4:8]))
	r.SmbCreateFlags = encoding.Uint64LE(buf[8:16])
	r.DesiredAccess = AccessMask(encoding.Uint32LE(buf[24:28]))
	r.FileAttributes = FileAttributes(encoding.Uint32LE(buf[28:32]))
	r.ShareAccess = ShareAccess(encoding.Uint32LE(buf[32:36]))
	r.CreateDisposition = CreateDisposition(encoding.Uint32LE(buf[36:40]))
	r.CreateOptions = CreateOptions(encoding.Uint32LE(buf[40:44]))

	name, err := bodyBuffer(buf, uint32(encoding.Uint16LE(buf[44:46])), uint32(encoding.Uint16LE(buf[46:48])))
	if err != nil {
		return fmt.Errorf("name: %w", err)
	}
	r.Name = encoding.FromUTF16LE(name)

	ctx, err := bodyBuffer(buf, encoding.Uint32LE(buf[48:52]), encoding.Uint32LE(buf[52:56]))
	if err != nil {
		return fmt.Errorf("create contexts: %w", err)
	}
	r.Contexts, err = ParseCreateContexts(ctx, DefaultMaxContextHops)
	return err
}

// CreateResponse represents an SMB2 CREATE response
type CreateResponse struct {
	OplockLevel    OplockLevel
	Flags          uint8
	CreateAction   uint32
	CreationTime   Filetime
	LastAccessTime Filetime
	LastWriteTime  Filetime
	ChangeTime     Filetime
	AllocationSize uint64
	EndOfFile      uint64
	FileAttributes FileAttributes
	FileID         FileID
	Contexts       []CreateContext

	// MaxContextHops overrides DefaultMaxContextHops when decoding.
	MaxContextHops int
}

func (r *CreateResponse) Command() Command { return CommandCreate }
func (r *CreateResponse) Size() int        { return 88 }

// Marshal serializes the CREATE response
func (r *CreateResponse) Marshal() []byte {
	buf := make([]byte, 88)

	encoding.PutUint16LE(buf[0:2], 89)
	buf[2] = byte(r.OplockLevel)
	buf[3] = r.Flags
	encoding.PutUint32LE(buf[4:8], r.CreateAction)
	encoding.PutUint64LE(buf[8:16], uint64(r.CreationTime))
	encoding.PutUint64LE(buf[16:24], uint64(r.LastAccessTime))
	encoding.PutUint64LE(buf[24:32], uint64(r.LastWriteTime))
	encoding.PutUint64LE(buf[32:40], uint64(r.ChangeTime))
	encoding.PutUint64LE(buf[40:48], r.AllocationSize)
	encoding.PutUint64LE(buf[48:56], r.EndOfFile)
	encoding.PutUint32LE(buf[56:60], uint32(r.FileAttributes))
	r.FileID.put(buf[64:80])

	if len(r.Contexts) > 0 {
		// 64 + 88 = 152 is already 8-byte aligned
		ctx := MarshalCreateContexts(r.Contexts)
		encoding.PutUint32LE(buf[80:84], SMB2HeaderSize+88)
		encoding.PutUint32LE(buf[84:88], uint32(len(ctx)))
		buf = append(buf, ctx...)
	}

	return minBody(buf, 89)
}

// Unmarshal deserializes a CREATE response
func (r *CreateResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 89); err != nil {
		return err
	}

	r.OplockLevel = OplockLevel(buf[2])
	r.Flags = buf[3]
	r.CreateAction = encoding.Uint32LE(buf[4:8])
	r.CreationTime = Filetime(encoding.Uint64LE(buf[8:16]))
	r.LastAccessTime = Filetime(encoding.Uint64LE(buf[16:24]))
	r.LastWriteTime = Filetime(encoding.Uint64LE(buf[24:32]))
	r.ChangeTime = Filetime(encoding.Uint64LE(buf[32:40]))
	r.AllocationSize = encoding.Uint64LE(buf[40:48])
	r.EndOfFile = encoding.Uint64LE(buf[48:56])
	r.FileAttributes = FileAttributes(encoding.Uint32LE(buf[56:60]))
	r.FileID = fileID(buf[64:80])

	ctx, err := bodyBuffer(buf, encoding.Uint32LE(buf[80:84]), encoding.Uint32LE(buf[84:88]))
	if err != nil {
		return fmt.Errorf("create contexts: %w", err)
	}
	r.Contexts, err = ParseCreateContexts(ctx, r.MaxContextHops)
	return err
}

// CloseFlags
const (
	CloseFlagPostQueryAttrib uint16 = 0x0001
)

// CloseRequest represents an SMB2 CLOSE request
type CloseRequest struct {
	Flags  uint16
	FileID FileID
}

// NewCloseRequest creates a CLOSE request
func NewCloseRequest(fileID FileID) *CloseRequest {
	return &CloseRequest{FileID: fileID}
}

func (r *CloseRequest) Command() Command { return CommandClose }
func (r *CloseRequest) Size() int        { return 24 }

// Marshal serializes the CLOSE request
func (r *CloseRequest) Marshal() []byte {
	buf := make([]byte, 24)
	encoding.PutUint16LE(buf[0:2], 24)
	encoding.PutUint16LE(buf[2:4], r.Flags)
	r.FileID.put(buf[8:24])
	return buf
}

// Unmarshal deserializes a CLOSE request
func (r *CloseRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 24); err != nil {
		return err
	}
	r.Flags = encoding.Uint16LE(buf[2:4])
	r.FileID = fileID(buf[8:24])
	return nil
}

// CloseResponse represents an SMB2 CLOSE response
type CloseResponse struct {
	Flags          uint16
	CreationTime   Filetime
	LastAccessTime Filetime
	LastWriteTime  Filetime
	ChangeTime     Filetime
	AllocationSize uint64
	EndOfFile      uint64
	FileAttributes FileAttributes
}

func (r *CloseResponse) Command() Command { return CommandClose }
func (r *CloseResponse) Size() int        { return 60 }

// Marshal serializes the CLOSE response
func (r *CloseResponse) Marshal() []byte {
	buf := make([]byte, 60)
	encoding.PutUint16LE(buf[0:2], 60)
	encoding.PutUint16LE(buf[2:4], r.Flags)
	encoding.PutUint64LE(buf[8:16], uint64(r.CreationTime))
	encoding.PutUint64LE(buf[16:24], uint64(r.LastAccessTime))
	encoding.PutUint64LE(buf[24:32], uint64(r.LastWriteTime))
	encoding.PutUint64LE(buf[32:40], uint64(r.ChangeTime))
	encoding.PutUint64LE(buf[40:48], r.AllocationSize)
	encoding.PutUint64LE(buf[48:56], r.EndOfFile)
	encoding.PutUint32LE(buf[56:60], uint32(r.FileAttributes))
	return buf
}

// Unmarshal deserializes a CLOSE response
func (r *CloseResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 60); err != nil {
		return err
	}

	r.Flags = encoding.Uint16LE(buf[2:4])
	r.CreationTime = Filetime(encoding.Uint64LE(buf[8:16]))
	r.LastAccessTime = Filetime(encoding.Uint64LE(buf[16:24]))
	r.LastWriteTime = Filetime(encoding.Uint64LE(buf[24:32]))
	r.ChangeTime = Filetime(encoding.Uint64LE(buf[32:40]))
	r.AllocationSize = encoding.Uint64LE(buf[40:48])
	r.EndOfFile = encoding.Uint64LE(buf[48:56])
	r.FileAttributes = FileAttributes(encoding.Uint32LE(buf[56:60]))

	return nil
}
