package smb

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ineffectivecoder/smbwire/pkg/debug"
	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// Tree represents a connected share
type Tree struct {
	session   *Session
	id        uint32
	shareType types.ShareType
	name      string
	maxAccess types.AccessMask
	smb1      *smb1.Tree
}

// OpenOptions describes a CREATE request. Zero Share means read, write and
// delete sharing.
type OpenOptions struct {
	Access      types.AccessMask
	Share       types.ShareAccess
	Disposition types.CreateDisposition
	Options     types.CreateOptions
	Attributes  types.FileAttributes
	Contexts    []types.CreateContext
}

// Disconnect disconnects from the share
func (t *Tree) Disconnect(ctx context.Context) error {
	var err error
	if t.smb1 != nil {
		err = t.smb1.Disconnect(ctx)
	} else {
		_, err = t.session.call(ctx, t.id, new(types.TreeDisconnectRequest), 0)
	}
	if err != nil {
		return fmt.Errorf("tree disconnect %s: %w", t.name, err)
	}
	t.session.client.treeDisconnected()
	return nil
}

// sharePath converts a slash separated path into the share-relative form
// CREATE expects.
func sharePath(path string) string {
	path = strings.ReplaceAll(path, "/", `\`)
	return strings.TrimLeft(path, `\`)
}

// Create opens or creates name on the share.
func (t *Tree) Create(ctx context.Context, name string, opts OpenOptions) (*File, error) {
	name = sharePath(name)
	if opts.Share == 0 {
		opts.Share = types.FileShareRead | types.FileShareWrite | types.FileShareDelete
	}

	if t.smb1 != nil {
		f, err := t.smb1.CreateFile(ctx, `\`+name, smb1.OpenOptions{
			Access:      opts.Access,
			Share:       opts.Share,
			Disposition: opts.Disposition,
			Options:     opts.Options,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		return &File{tree: t, name: name, smb1: f, isDir: opts.Options&types.FileDirectoryFile != 0}, nil
	}

	req := types.NewCreateRequest(name, opts.Access, opts.Disposition, opts.Options)
	req.ShareAccess = opts.Share
	if opts.Attributes != 0 {
		req.FileAttributes = opts.Attributes
	}
	req.Contexts = opts.Contexts
	return t.create(ctx, req)
}

func (t *Tree) create(ctx context.Context, req *types.CreateRequest) (*File, error) {
	m, err := t.session.call(ctx, t.id, req, 0)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", req.Name, err)
	}
	resp, err := bodyAs[*types.CreateResponse](m)
	if err != nil {
		return nil, err
	}

	debug.Logger().WithFields(logrus.Fields{
		"name":   req.Name,
		"action": resp.CreateAction,
		"size":   resp.EndOfFile,
	}).Debug("opened")

	return &File{
		tree:       t,
		fileID:     resp.FileID,
		name:       req.Name,
		size:       resp.EndOfFile,
		attributes: resp.FileAttributes,
		contexts:   resp.Contexts,
		isDir:      resp.FileAttributes&types.FileAttributeDirectory != 0,
	}, nil
}

// OpenFile opens a file on the share
func (t *Tree) OpenFile(ctx context.Context, path string, access types.AccessMask, disposition types.CreateDisposition) (*File, error) {
	return t.Create(ctx, path, OpenOptions{
		Access:      access,
		Disposition: disposition,
		Options:     types.FileNonDirectoryFile,
	})
}

// OpenDirectory opens a directory for listing
func (t *Tree) OpenDirectory(ctx context.Context, path string) (*File, error) {
	return t.Create(ctx, path, OpenOptions{
		Access:      types.FileReadData | types.FileReadAttributes | types.Synchronize,
		Disposition: types.FileOpen,
		Options:     types.FileDirectoryFile,
	})
}

// OpenPipe opens a named pipe on an IPC$ tree.
func (t *Tree) OpenPipe(ctx context.Context, pipeName string, access types.AccessMask) (*File, error) {
	if !t.IsPipe() {
		return nil, fmt.Errorf("open pipe %s: %w: %s is not an IPC share", pipeName, ErrInvalidParameter, t.name)
	}
	if t.smb1 != nil {
		return t.Create(ctx, pipeName, OpenOptions{
			Access:      access,
			Share:       types.FileShareRead | types.FileShareWrite,
			Disposition: types.FileOpen,
		})
	}
	return t.create(ctx, types.NewCreatePipeRequest(sharePath(pipeName), access))
}

// TreeID returns the tree ID
func (t *Tree) TreeID() uint32 {
	return t.id
}

// ShareType returns the share type
func (t *Tree) ShareType() types.ShareType {
	return t.shareType
}

// ShareName returns the share name
func (t *Tree) ShareName() string {
	return t.name
}

// MaximalAccess returns the maximal access rights
func (t *Tree) MaximalAccess() types.AccessMask {
	return t.maxAccess
}

// IsPipe returns true if this is an IPC$ (named pipe) share
func (t *Tree) IsPipe() bool {
	return t.shareType == types.ShareTypePipe
}

// IsDisk returns true if this is a disk share
func (t *Tree) IsDisk() bool {
	return t.shareType == types.ShareTypeDisk
}

// Session returns the parent session
func (t *Tree) Session() *Session {
	return t.session
}

// Ioctl sends an FSCTL that targets no open file, such as
// FSCTL_QUERY_NETWORK_INTERFACE_INFO or FSCTL_VALIDATE_NEGOTIATE_INFO.
func (t *Tree) Ioctl(ctx context.Context, code types.CtlCode, in types.IoctlPayload, maxOut uint32) (types.IoctlPayload, []byte, error) {
	if t.smb1 != nil {
		return nil, nil, fmt.Errorf("ioctl %s: %w over SMB1", code, ErrNotSupported)
	}
	return t.session.ioctl(ctx, t.id, types.AnyFileID, code, in, maxOut)
}
