package smb1

import (
	"context"
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// NT_CREATE_ANDX request flags
const (
	NTCreateRequestOplock           uint32 = 0x00000002
	NTCreateRequestOpbatch          uint32 = 0x00000004
	NTCreateOpenTargetDir           uint32 = 0x00000008
	NTCreateRequestExtendedResponse uint32 = 0x00000010
)

// maxReadAndX keeps READ_ANDX replies inside one 16-bit byte count.
const maxReadAndX = 0xF000

// OpenOptions groups the NT_CREATE_ANDX arguments for Tree.CreateFile.
type OpenOptions struct {
	Access      types.AccessMask
	Share       types.ShareAccess
	Disposition types.CreateDisposition
	Options     types.CreateOptions
}

// File represents an open SMB1 file handle
type File struct {
	FID    uint16
	TID    uint16
	client *Client
}

// NTCreateAndXRequest represents SMB_COM_NT_CREATE_ANDX request
type NTCreateAndXRequest struct {
	Flags              uint32
	RootDirectoryFID   uint32
	DesiredAccess      types.AccessMask
	AllocationSize     uint64
	ExtFileAttributes  types.FileAttributes
	ShareAccess        types.ShareAccess
	CreateDisposition  types.CreateDisposition
	CreateOptions      types.CreateOptions
	ImpersonationLevel types.ImpersonationLevel
	SecurityFlags      uint8
	FileName           string
}

// Block encodes the request. The name follows one pad byte so that it
// starts on an even offset.
func (r *NTCreateAndXRequest) Block() Block {
	name := encoding.ToUTF16LEWithNull(r.FileName)

	w := encoding.NewWriter(48)
	w.WriteUint8(uint8(CommandNoAndX))
	w.WriteUint8(0)
	w.WriteUint16(0)
	w.WriteUint8(0)
	w.WriteUint16(uint16(len(name)))
	w.WriteUint32(r.Flags)
	w.WriteUint32(r.RootDirectoryFID)
	w.WriteUint32(uint32(r.DesiredAccess))
	w.WriteUint64(r.AllocationSize)
	w.WriteUint32(uint32(r.ExtFileAttributes))
	w.WriteUint32(uint32(r.ShareAccess))
	w.WriteUint32(uint32(r.CreateDisposition))
	w.WriteUint32(uint32(r.CreateOptions))
	w.WriteUint32(uint32(r.ImpersonationLevel))
	w.WriteUint8(r.SecurityFlags)

	data := make([]byte, 1, 1+len(name))
	return NewBlock(w.Bytes(), append(data, name...))
}

// NTCreateAndXResponse represents SMB_COM_NT_CREATE_ANDX response
type NTCreateAndXResponse struct {
	OpLockLevel       uint8
	FID               uint16
	CreateAction      uint32
	CreationTime      types.Filetime
	LastAccessTime    types.Filetime
	LastWriteTime     types.Filetime
	ChangeTime        types.Filetime
	ExtFileAttributes types.FileAttributes
	AllocationSize    uint64
	EndOfFile         uint64
	FileType          uint16
	DeviceState       uint16
	Directory         bool
}

// Decode parses NT_CREATE_ANDX response
func (r *NTCreateAndXResponse) Decode(m *Message) error {
	b, err := m.First()
	if err != nil {
		return err
	}
	// Windows sends 42 words for the extended form; the first 34 match.
	p, err := b.params(CommandNTCreateAndX, 34)
	if err != nil {
		return err
	}
	p.Skip(4)
	r.OpLockLevel = p.ReadUint8()
	r.FID = p.ReadUint16()
	r.CreateAction = p.ReadUint32()
	r.CreationTime = types.Filetime(p.ReadUint64())
	r.LastAccessTime = types.Filetime(p.ReadUint64())
	r.LastWriteTime = types.Filetime(p.ReadUint64())
	r.ChangeTime = types.Filetime(p.ReadUint64())
	r.ExtFileAttributes = types.FileAttributes(p.ReadUint32())
	r.AllocationSize = p.ReadUint64()
	r.EndOfFile = p.ReadUint64()
	r.FileType = p.ReadUint16()
	r.DeviceState = p.ReadUint16()
	r.Directory = p.ReadUint8() != 0
	return p.Err()
}

// ReadAndXRequest represents SMB_COM_READ_ANDX request
type ReadAndXRequest struct {
	FID       uint16
	Offset    uint64
	MaxCount  uint16
	MinCount  uint16
	Remaining uint16
}

// Block encodes the 12-word form, which carries a 64-bit offset.
func (r *ReadAndXRequest) Block() Block {
	w := encoding.NewWriter(24)
	w.WriteUint8(uint8(CommandNoAndX))
	w.WriteUint8(0)
	w.WriteUint16(0)
	w.WriteUint16(r.FID)
	w.WriteUint32(uint32(r.Offset))
	w.WriteUint16(r.MaxCount)
	w.WriteUint16(r.MinCount)
	w.WriteUint32(0) // Timeout / MaxCountHigh
	w.WriteUint16(r.Remaining)
	w.WriteUint32(uint32(r.Offset >> 32))
	return NewBlock(w.Bytes(), nil)
}

// readAndXData extracts the payload of a READ_ANDX response. DataOffset is
// measured from the start of the header.
func readAndXData(m *Message) ([]byte, error) {
	b, err := m.First()
	if err != nil {
		return nil, err
	}
	p, err := b.params(CommandReadAndX, 12)
	if err != nil {
		return nil, err
	}
	p.Skip(4 + 2 + 2 + 2) // AndX, Available, DataCompactionMode, Reserved
	length := int(p.ReadUint16())
	offset := int(p.ReadUint16())
	length |= int(p.ReadUint16()) << 16
	if err := p.Err(); err != nil {
		return nil, err
	}
	data, err := encoding.Slice(b.Data, offset-m.DataOffset(0), length)
	if err != nil {
		return nil, fmt.Errorf("%w: read data offset %d length %d", ErrIncorrectMessageLength, offset, length)
	}
	return append([]byte(nil), data...), nil
}

// WriteAndXRequest represents SMB_COM_WRITE_ANDX request
type WriteAndXRequest struct {
	FID       uint16
	Offset    uint64
	WriteMode uint16
	Remaining uint16
	Data      []byte
}

// Block encodes the 14-word form. Data follows one pad byte, which puts it
// at offset 64 from the header.
func (r *WriteAndXRequest) Block() Block {
	const dataOffset = HeaderSize + 1 + 28 + 2 + 1

	w := encoding.NewWriter(28)
	w.WriteUint8(uint8(CommandNoAndX))
	w.WriteUint8(0)
	w.WriteUint16(0)
	w.WriteUint16(r.FID)
	w.WriteUint32(uint32(r.Offset))
	w.WriteUint32(0) // Timeout
	w.WriteUint16(r.WriteMode)
	w.WriteUint16(r.Remaining)
	w.WriteUint16(uint16(len(r.Data) >> 16))
	w.WriteUint16(uint16(len(r.Data)))
	w.WriteUint16(dataOffset)
	w.WriteUint32(uint32(r.Offset >> 32))

	data := make([]byte, 1, 1+len(r.Data))
	return NewBlock(w.Bytes(), append(data, r.Data...))
}

// writeAndXCount extracts the byte count from a WRITE_ANDX response.
func writeAndXCount(m *Message) (int, error) {
	b, err := m.First()
	if err != nil {
		return 0, err
	}
	p, err := b.params(CommandWriteAndX, 6)
	if err != nil {
		return 0, err
	}
	p.Skip(4)
	count := int(p.ReadUint16())
	p.Skip(2) // Available
	count |= int(p.ReadUint16()) << 16
	return count, p.Err()
}

// closeBlock is SMB_COM_CLOSE; a LastTimeModified of all ones leaves the
// timestamp alone.
func closeBlock(fid uint16) Block {
	return Block{Params: []uint16{fid, 0xFFFF, 0xFFFF}}
}

// CreateFile opens a file or pipe on tree tid
func (c *Client) CreateFile(ctx context.Context, tid uint16, path string, access types.AccessMask,
	share types.ShareAccess, disposition types.CreateDisposition, options types.CreateOptions) (*File, error) {
	req := &NTCreateAndXRequest{
		Flags:              NTCreateRequestOplock | NTCreateRequestOpbatch,
		DesiredAccess:      access,
		ExtFileAttributes:  types.FileAttributeNormal,
		ShareAccess:        share,
		CreateDisposition:  disposition,
		CreateOptions:      options,
		ImpersonationLevel: types.ImpersonationImpersonation,
		FileName:           path,
	}

	h := NewHeader(CommandNTCreateAndX, c.nextMID())
	h.TID = tid
	resp, err := c.call(ctx, h, req.Block())
	if err != nil {
		return nil, err
	}

	var createResp NTCreateAndXResponse
	if err := createResp.Decode(resp); err != nil {
		return nil, fmt.Errorf("failed to parse create response: %w", err)
	}
	return &File{FID: createResp.FID, TID: tid, client: c}, nil
}

// ReadFile reads up to length bytes at offset
func (c *Client) ReadFile(ctx context.Context, tid, fid uint16, offset uint64, length uint32) ([]byte, error) {
	if length > maxReadAndX {
		length = maxReadAndX
	}
	req := &ReadAndXRequest{
		FID:      fid,
		Offset:   offset,
		MaxCount: uint16(length),
		MinCount: uint16(length),
	}

	h := NewHeader(CommandReadAndX, c.nextMID())
	h.TID = tid
	resp, err := c.call(ctx, h, req.Block())
	if err != nil {
		return nil, err
	}
	return readAndXData(resp)
}

// WriteFile writes data at offset and returns the count the server accepted
func (c *Client) WriteFile(ctx context.Context, tid, fid uint16, offset uint64, data []byte) (int, error) {
	req := &WriteAndXRequest{FID: fid, Offset: offset, Data: data}

	h := NewHeader(CommandWriteAndX, c.nextMID())
	h.TID = tid
	resp, err := c.call(ctx, h, req.Block())
	if err != nil {
		return 0, err
	}
	return writeAndXCount(resp)
}

// CloseFile closes an open file
func (c *Client) CloseFile(ctx context.Context, tid, fid uint16) error {
	h := NewHeader(CommandClose, c.nextMID())
	h.TID = tid
	_, err := c.call(ctx, h, closeBlock(fid))
	return err
}

// ReadAt reads from the file at offset
func (f *File) ReadAt(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	return f.client.ReadFile(ctx, f.TID, f.FID, offset, length)
}

// WriteAt writes to the file at offset
func (f *File) WriteAt(ctx context.Context, offset uint64, data []byte) (int, error) {
	return f.client.WriteFile(ctx, f.TID, f.FID, offset, data)
}

// Close closes the file
func (f *File) Close(ctx context.Context) error {
	return f.client.CloseFile(ctx, f.TID, f.FID)
}
