package smb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// defaultIOSize is the largest single READ or WRITE on dialects without
// multi-credit support.
const defaultIOSize = 64 * 1024

// securityDescriptorMax is the output buffer offered for security descriptors.
const securityDescriptorMax = 64 * 1024

// File represents an open file, directory or named pipe handle
type File struct {
	tree       *Tree
	fileID     types.FileID
	name       string
	size       uint64
	attributes types.FileAttributes
	contexts   []types.CreateContext
	offset     int64
	isDir      bool
	closed     bool
	smb1       *smb1.File
}

// statusOf returns the NTSTATUS carried by err, if any.
func statusOf(err error) (types.NTStatus, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return 0, false
}

// ioSize bounds a single transfer to the negotiated limit.
func (f *File) ioSize(negotiated uint32) int {
	s := f.tree.session
	limit := uint32(defaultIOSize)
	if s.smb1 == nil && s.negResult.Dialect >= types.DialectSMB2_1 &&
		s.negResult.Capabilities&types.GlobalCapLargeMTU != 0 {
		limit = negotiated
	}
	if negotiated != 0 && negotiated < limit {
		limit = negotiated
	}
	return int(limit)
}

// Read reads data from the file
func (f *File) Read(p []byte) (int, error) {
	if f.isDir {
		return 0, fmt.Errorf("read %s: %w: is a directory", f.name, ErrInvalidParameter)
	}
	n, err := f.ReadAtContext(context.Background(), p, f.offset)
	f.offset += int64(n)
	return n, err
}

// ReadAt reads data at a specific offset
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext fills p from off, issuing as many READs as needed. It
// returns io.EOF when the end of the file is reached before p is full.
func (f *File) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read %s: %w: negative offset", f.name, ErrInvalidParameter)
	}
	chunk := f.ioSize(f.tree.session.MaxReadSize())
	total := 0
	for total < len(p) {
		want := min(len(p)-total, chunk)
		data, err := f.readChunk(ctx, uint64(off)+uint64(total), uint32(want))
		if err != nil {
			return total, err
		}
		if len(data) == 0 {
			return total, io.EOF
		}
		total += copy(p[total:], data)
		if len(data) < want && f.tree.IsPipe() {
			break
		}
	}
	return total, nil
}

func (f *File) readChunk(ctx context.Context, off uint64, length uint32) ([]byte, error) {
	if f.smb1 != nil {
		data, err := f.smb1.ReadAt(ctx, off, length)
		if err != nil {
			var re *smb1.ResponseError
			if errors.As(err, &re) && re.Status == types.StatusEndOfFile {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read %s: %w", f.name, err)
		}
		return data, nil
	}

	m, err := f.tree.session.call(ctx, f.tree.id, types.NewReadRequest(f.fileID, off, length), int(length))
	if st, ok := statusOf(err); ok && st == types.StatusEndOfFile {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.name, err)
	}
	resp, err := bodyAs[*types.ReadResponse](m)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Write writes data to the file
func (f *File) Write(p []byte) (int, error) {
	if f.isDir {
		return 0, fmt.Errorf("write %s: %w: is a directory", f.name, ErrInvalidParameter)
	}
	n, err := f.WriteAtContext(context.Background(), p, f.offset)
	f.offset += int64(n)
	return n, err
}

// WriteAt writes data at a specific offset
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	return f.WriteAtContext(context.Background(), p, off)
}

// WriteAtContext writes p at off in chunks of the negotiated write size.
func (f *File) WriteAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("write %s: %w: negative offset", f.name, ErrInvalidParameter)
	}
	chunk := f.ioSize(f.tree.session.MaxWriteSize())
	total := 0
	for total < len(p) {
		end := min(len(p), total+chunk)
		n, err := f.writeChunk(ctx, uint64(off)+uint64(total), p[total:end])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	if end := uint64(off) + uint64(total); end > f.size {
		f.size = end
	}
	return total, nil
}

func (f *File) writeChunk(ctx context.Context, off uint64, data []byte) (int, error) {
	if f.smb1 != nil {
		n, err := f.smb1.WriteAt(ctx, off, data)
		if err != nil {
			return n, fmt.Errorf("write %s: %w", f.name, err)
		}
		return n, nil
	}

	m, err := f.tree.session.call(ctx, f.tree.id, types.NewWriteRequest(f.fileID, off, data), len(data))
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", f.name, err)
	}
	resp, err := bodyAs[*types.WriteResponse](m)
	if err != nil {
		return 0, err
	}
	return int(min(resp.Count, uint32(len(data)))), nil
}

// Seek sets the file offset
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.offset + offset
	case io.SeekEnd:
		abs = int64(f.size) + offset
	default:
		return 0, fmt.Errorf("seek: %w: whence %d", ErrInvalidParameter, whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("seek: %w: negative position", ErrInvalidParameter)
	}
	f.offset = abs
	return abs, nil
}

// Close closes the file handle
func (f *File) Close() error {
	return f.CloseContext(context.Background())
}

// CloseContext closes the handle. Closing twice is a no-op.
func (f *File) CloseContext(ctx context.Context) error {
	if f.closed {
		return nil
	}
	var err error
	if f.smb1 != nil {
		err = f.smb1.Close(ctx)
	} else {
		_, err = f.tree.session.call(ctx, f.tree.id, types.NewCloseRequest(f.fileID), 0)
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", f.name, err)
	}
	f.closed = true
	return nil
}

// smb2Only rejects operations the SMB1 path does not carry.
func (f *File) smb2Only(op string) error {
	if f.smb1 != nil {
		return fmt.Errorf("%s %s: %w over SMB1", op, f.name, ErrNotSupported)
	}
	return nil
}

// Flush asks the server to write cached data for the handle to disk.
func (f *File) Flush(ctx context.Context) error {
	if err := f.smb2Only("flush"); err != nil {
		return err
	}
	if _, err := f.tree.session.call(ctx, f.tree.id, &types.FlushRequest{FileID: f.fileID}, 0); err != nil {
		return fmt.Errorf("flush %s: %w", f.name, err)
	}
	return nil
}

// Lock takes a byte-range lock. With wait false the server fails at once
// instead of queueing the request behind a conflicting lock.
func (f *File) Lock(ctx context.Context, off, length uint64, exclusive, wait bool) error {
	flags := types.LockFlagSharedLock
	if exclusive {
		flags = types.LockFlagExclusiveLock
	}
	if !wait {
		flags |= types.LockFlagFailImmediately
	}
	return f.lock(ctx, "lock", types.LockElement{Offset: off, Length: length, Flags: flags})
}

// Unlock releases a byte-range lock taken with Lock.
func (f *File) Unlock(ctx context.Context, off, length uint64) error {
	return f.lock(ctx, "unlock", types.LockElement{Offset: off, Length: length, Flags: types.LockFlagUnlock})
}

func (f *File) lock(ctx context.Context, op string, e types.LockElement) error {
	if err := f.smb2Only(op); err != nil {
		return err
	}
	req := &types.LockRequest{FileID: f.fileID, Locks: []types.LockElement{e}}
	if _, err := f.tree.session.call(ctx, f.tree.id, req, 0); err != nil {
		return fmt.Errorf("%s %s: %w", op, f.name, err)
	}
	return nil
}

// Ioctl sends an FSCTL on the handle. The decoded payload is nil for
// control codes without a known output structure; raw output is always
// returned.
func (f *File) Ioctl(ctx context.Context, code types.CtlCode, in types.IoctlPayload, maxOut uint32) (types.IoctlPayload, []byte, error) {
	if err := f.smb2Only("ioctl"); err != nil {
		return nil, nil, err
	}
	return f.tree.session.ioctl(ctx, f.tree.id, f.fileID, code, in, maxOut)
}

// Transact writes in to a message-mode pipe and reads the reply in one
// round trip.
func (f *File) Transact(ctx context.Context, in []byte, maxOut uint32) ([]byte, error) {
	if err := f.smb2Only("transact"); err != nil {
		return nil, err
	}
	req := types.NewIoctlRequest(types.FsctlPipeTransceive, f.fileID, nil, maxOut)
	req.Input = in
	m, err := f.tree.session.call(ctx, f.tree.id, req, len(in)+int(maxOut))
	if err != nil {
		return nil, fmt.Errorf("transact %s: %w", f.name, err)
	}
	resp, err := bodyAs[*types.IoctlResponse](m)
	if err != nil {
		return nil, err
	}
	return resp.Output, nil
}

func (s *Session) ioctl(ctx context.Context, treeID uint32, fid types.FileID, code types.CtlCode, in types.IoctlPayload, maxOut uint32) (types.IoctlPayload, []byte, error) {
	req := types.NewIoctlRequest(code, fid, in, maxOut)
	m, err := s.call(ctx, treeID, req, len(req.Input)+int(maxOut))
	if err != nil {
		return nil, nil, fmt.Errorf("ioctl %s: %w", code, err)
	}
	resp, err := bodyAs[*types.IoctlResponse](m)
	if err != nil {
		return nil, nil, err
	}
	p, err := types.DecodeIoctlOutput(code, resp.Output)
	if err != nil {
		return nil, resp.Output, decodeErr(fmt.Sprintf("decode %s output", code), err)
	}
	return p, resp.Output, nil
}

// QueryInfo returns the raw output of a QUERY_INFO request.
func (f *File) QueryInfo(ctx context.Context, infoType, class uint8, additional, maxOut uint32) ([]byte, error) {
	if err := f.smb2Only("query info"); err != nil {
		return nil, err
	}
	req := types.NewQueryInfoRequest(f.fileID, infoType, class, additional, maxOut)
	m, err := f.tree.session.call(ctx, f.tree.id, req, int(maxOut))
	if err != nil {
		return nil, fmt.Errorf("query info %s: %w", f.name, err)
	}
	resp, err := bodyAs[*types.QueryInfoResponse](m)
	if err != nil {
		return nil, err
	}
	return resp.OutputBuffer, nil
}

// BasicInfo returns the timestamps and attributes of the file.
func (f *File) BasicInfo(ctx context.Context) (*types.FileBasicInfo, error) {
	buf, err := f.QueryInfo(ctx, types.InfoTypeFile, types.FileBasicInformation, 0, 40)
	if err != nil {
		return nil, err
	}
	info := new(types.FileBasicInfo)
	if err := info.Unmarshal(buf); err != nil {
		return nil, decodeErr("decode basic info", err)
	}
	return info, nil
}

// StandardInfo returns size, link count and delete state of the file.
func (f *File) StandardInfo(ctx context.Context) (*types.FileStandardInfo, error) {
	buf, err := f.QueryInfo(ctx, types.InfoTypeFile, types.FileStandardInformation, 0, 24)
	if err != nil {
		return nil, err
	}
	info := new(types.FileStandardInfo)
	if err := info.Unmarshal(buf); err != nil {
		return nil, decodeErr("decode standard info", err)
	}
	f.size = info.EndOfFile
	return info, nil
}

// GetSecurityDescriptor retrieves the owner, group and DACL of the file
// as a self-relative security descriptor.
func (f *File) GetSecurityDescriptor(ctx context.Context) ([]byte, error) {
	sd, err := f.QueryInfo(ctx, types.InfoTypeSecurity, 0,
		types.OwnerSecurityInformation|types.GroupSecurityInformation|types.DACLSecurityInformation,
		securityDescriptorMax)
	if err != nil {
		return nil, err
	}
	if len(sd) == 0 {
		return nil, fmt.Errorf("security descriptor %s: %w: empty", f.name, ErrStructural)
	}
	return sd, nil
}

// setInfo sends a SET_INFO for a file information class.
func (f *File) setInfo(ctx context.Context, class uint8, buf []byte) error {
	if err := f.smb2Only("set info"); err != nil {
		return err
	}
	req := types.NewSetInfoRequest(f.fileID, types.InfoTypeFile, class, buf)
	if _, err := f.tree.session.call(ctx, f.tree.id, req, len(buf)); err != nil {
		return fmt.Errorf("set info %s: %w", f.name, err)
	}
	return nil
}

// SetTimes sets the file timestamps. Nil times are left unchanged.
func (f *File) SetTimes(ctx context.Context, created, accessed, modified *time.Time) error {
	var info types.FileBasicInfo
	if created != nil {
		info.CreationTime = types.NewFiletime(*created)
	}
	if accessed != nil {
		info.LastAccessTime = types.NewFiletime(*accessed)
	}
	if modified != nil {
		info.LastWriteTime = types.NewFiletime(*modified)
		info.ChangeTime = info.LastWriteTime
	}
	return f.setInfo(ctx, types.FileBasicInformation, info.Marshal())
}

// Truncate sets the end of file.
func (f *File) Truncate(ctx context.Context, size uint64) error {
	if err := f.setInfo(ctx, types.FileEndOfFileInformation, types.FileEndOfFileInfo(size)); err != nil {
		return err
	}
	f.size = size
	return nil
}

// Notify waits for a change under a directory handle. The request usually
// goes async on the server; cancelling ctx sends CANCEL for it.
func (f *File) Notify(ctx context.Context, filter uint32, recursive bool) ([]types.FileNotifyInfo, error) {
	if err := f.smb2Only("change notify"); err != nil {
		return nil, err
	}
	if !f.isDir {
		return nil, fmt.Errorf("change notify %s: %w: not a directory", f.name, ErrInvalidParameter)
	}
	req := &types.ChangeNotifyRequest{
		OutputBufferLength: defaultIOSize,
		FileID:             f.fileID,
		CompletionFilter:   filter,
	}
	if recursive {
		req.Flags = types.WatchTree
	}
	m, err := f.tree.session.call(ctx, f.tree.id, req, defaultIOSize)
	if err != nil {
		return nil, fmt.Errorf("change notify %s: %w", f.name, err)
	}
	resp, err := bodyAs[*types.ChangeNotifyResponse](m)
	if err != nil {
		return nil, err
	}
	changes, err := resp.Changes()
	if err != nil {
		return nil, decodeErr("decode change notify", err)
	}
	return changes, nil
}

// Name returns the file name
func (f *File) Name() string {
	return f.name
}

// Size returns the file size
func (f *File) Size() int64 {
	return int64(f.size)
}

// IsDirectory returns true if this is a directory
func (f *File) IsDirectory() bool {
	return f.isDir
}

// FileID returns the SMB file ID
func (f *File) FileID() types.FileID {
	return f.fileID
}

// Attributes returns the file attributes
func (f *File) Attributes() types.FileAttributes {
	return f.attributes
}

// CreateContexts returns the contexts the server attached to the CREATE response.
func (f *File) CreateContexts() []types.CreateContext {
	return f.contexts
}
