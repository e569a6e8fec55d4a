package smb

import (
	"context"
	"fmt"
	"time"

	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// FileInfo represents information about a file or directory
type FileInfo struct {
	Name           string
	Size           int64
	IsDir          bool
	Attributes     types.FileAttributes
	CreationTime   time.Time
	LastAccessTime time.Time
	LastWriteTime  time.Time
	ChangeTime     time.Time
}

func fileInfoFrom(e types.FileBothDirInfo) FileInfo {
	return FileInfo{
		Name:           e.FileName,
		Size:           int64(e.EndOfFile),
		IsDir:          e.FileAttributes&types.FileAttributeDirectory != 0,
		Attributes:     e.FileAttributes,
		CreationTime:   e.CreationTime.Time(),
		LastAccessTime: e.LastAccessTime.Time(),
		LastWriteTime:  e.LastWriteTime.Time(),
		ChangeTime:     e.ChangeTime.Time(),
	}
}

// ListDirectory lists the contents of a directory
func (t *Tree) ListDirectory(ctx context.Context, path string) ([]FileInfo, error) {
	return t.ListDirectoryWithPattern(ctx, path, "*")
}

// ListDirectoryWithPattern lists directory contents matching a pattern.
// The "." and ".." entries are left out.
func (t *Tree) ListDirectoryWithPattern(ctx context.Context, path, pattern string) ([]FileInfo, error) {
	if t.smb1 != nil {
		return nil, fmt.Errorf("list %s: %w over SMB1", path, ErrNotSupported)
	}

	dir, err := t.OpenDirectory(ctx, path)
	if err != nil {
		return nil, err
	}
	defer dir.CloseContext(ctx)

	var files []FileInfo
	for first := true; ; first = false {
		req := types.NewQueryDirectoryRequest(dir.fileID, pattern, types.FileBothDirectoryInformation)
		if first {
			req.Flags = types.QueryDirectoryRestart
		}
		m, err := t.session.call(ctx, t.id, req, int(req.OutputBufferLength))
		if st, ok := statusOf(err); ok && st == types.StatusNoMoreFiles {
			return files, nil
		}
		if err != nil {
			return files, fmt.Errorf("list %s: %w", path, err)
		}
		resp, err := bodyAs[*types.QueryDirectoryResponse](m)
		if err != nil {
			return files, err
		}

		entries, err := types.ParseFileBothDirInfo(resp.OutputBuffer)
		if err != nil {
			return files, decodeErr("decode directory entries", err)
		}
		if len(entries) == 0 {
			return files, nil
		}
		for _, e := range entries {
			if e.FileName == "." || e.FileName == ".." {
				continue
			}
			files = append(files, fileInfoFrom(e))
		}
	}
}

// Stat returns information about a single path.
func (t *Tree) Stat(ctx context.Context, path string) (*FileInfo, error) {
	f, err := t.Create(ctx, path, OpenOptions{
		Access:      types.FileReadAttributes | types.Synchronize,
		Disposition: types.FileOpen,
	})
	if err != nil {
		return nil, err
	}
	defer f.CloseContext(ctx)

	basic, err := f.BasicInfo(ctx)
	if err != nil {
		return nil, err
	}
	std, err := f.StandardInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		Name:           f.name,
		Size:           int64(std.EndOfFile),
		IsDir:          std.Directory,
		Attributes:     basic.FileAttributes,
		CreationTime:   basic.CreationTime.Time(),
		LastAccessTime: basic.LastAccessTime.Time(),
		LastWriteTime:  basic.LastWriteTime.Time(),
		ChangeTime:     basic.ChangeTime.Time(),
	}, nil
}

// Mkdir creates a directory
func (t *Tree) Mkdir(ctx context.Context, path string) error {
	f, err := t.Create(ctx, path, OpenOptions{
		Access:      types.FileReadAttributes | types.Synchronize,
		Disposition: types.FileCreate,
		Options:     types.FileDirectoryFile,
		Attributes:  types.FileAttributeDirectory,
	})
	if err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return f.CloseContext(ctx)
}

// Rmdir removes an empty directory
func (t *Tree) Rmdir(ctx context.Context, path string) error {
	return t.Delete(ctx, path, true)
}

// DeleteFile deletes a file
func (t *Tree) DeleteFile(ctx context.Context, path string) error {
	return t.Delete(ctx, path, false)
}

// Delete opens path with DELETE_ON_CLOSE and closes it again, which
// removes it on the server.
func (t *Tree) Delete(ctx context.Context, path string, isDir bool) error {
	options := types.FileDeleteOnClose
	if isDir {
		options |= types.FileDirectoryFile
	} else {
		options |= types.FileNonDirectoryFile
	}
	f, err := t.Create(ctx, path, OpenOptions{
		Access:      types.Delete,
		Disposition: types.FileOpen,
		Options:     options,
	})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return f.CloseContext(ctx)
}

// Rename moves oldPath to newPath within the share.
func (t *Tree) Rename(ctx context.Context, oldPath, newPath string, replace bool) error {
	f, err := t.Create(ctx, oldPath, OpenOptions{
		Access:      types.Delete | types.Synchronize,
		Disposition: types.FileOpen,
	})
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	defer f.CloseContext(ctx)
	return f.setInfo(ctx, types.FileRenameInformation, types.FileRenameInfo(sharePath(newPath), replace))
}
