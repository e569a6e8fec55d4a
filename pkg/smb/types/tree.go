package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// TreeConnectFlags (SMB 3.1.1)
const (
	TreeConnectFlagClusterReconnect uint16 = 0x0001
	TreeConnectFlagRedirectToOwner  uint16 = 0x0002
	TreeConnectFlagExtensionPresent uint16 = 0x0004
)

// TreeConnectRequest represents an SMB2 TREE_CONNECT request
type TreeConnectRequest struct {
	Flags uint16
	Path  string // UNC path, \\server\share
}

// NewTreeConnectRequest creates a tree connect request
func NewTreeConnectRequest(path string) *TreeConnectRequest {
	return &TreeConnectRequest{Path: path}
}

func (r *TreeConnectRequest) Command() Command { return CommandTreeConnect }
func (r *TreeConnectRequest) Size() int        { return 8 }

// Marshal serializes the tree connect request
func (r *TreeConnectRequest) Marshal() []byte {
	path := encoding.ToUTF16LE(r.Path)
	buf := make([]byte, 8+len(path))

	encoding.PutUint16LE(buf[0:2], 9)
	encoding.PutUint16LE(buf[2:4], r.Flags)
	// PathOffset is from start of SMB2 header
	encoding.PutUint16LE(buf[4:6], SMB2HeaderSize+8)
	encoding.PutUint16LE(buf[6:8], uint16(len(path)))
	copy(buf[8:], path)

	return minBody(buf, 9)
}

// Unmarshal deserializes a tree connect request
func (r *TreeConnectRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 9); err != nil {
		return err
	}
	r.Flags = encoding.Uint16LE(buf[2:4])
	path, err := bodyBuffer(buf, uint32(encoding.Uint16LE(buf[4:6])), uint32(encoding.Uint16LE(buf[6:8])))
	if err != nil {
		return fmt.Errorf("path: %w", err)
	}
	r.Path = encoding.FromUTF16LE(path)
	return nil
}

// TreeConnectResponse represents an SMB2 TREE_CONNECT response
type TreeConnectResponse struct {
	ShareType     ShareType
	ShareFlags    ShareFlags
	Capabilities  ShareCapabilities
	MaximalAccess AccessMask
}

func (r *TreeConnectResponse) Command() Command { return CommandTreeConnect }
func (r *TreeConnectResponse) Size() int        { return 16 }

// Marshal serializes the tree connect response
func (r *TreeConnectResponse) Marshal() []byte {
	buf := make([]byte, 16)
	encoding.PutUint16LE(buf[0:2], 16)
	buf[2] = byte(r.ShareType)
	encoding.PutUint32LE(buf[4:8], uint32(r.ShareFlags))
	encoding.PutUint32LE(buf[8:12], uint32(r.Capabilities))
	encoding.PutUint32LE(buf[12:16], uint32(r.MaximalAccess))
	return buf
}

// Unmarshal deserializes a tree connect response
func (r *TreeConnectResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 16); err != nil {
		return err
	}

	r.ShareType = ShareType(buf[2])
	r.ShareFlags = ShareFlags(encoding.Uint32LE(buf[4:8]))
	r.Capabilities = ShareCapabilities(encoding.Uint32LE(buf[8:12]))
	r.MaximalAccess = AccessMask(encoding.Uint32LE(buf[12:16]))

	return nil
}

// TreeDisconnectRequest represents an SMB2 TREE_DISCONNECT request
type TreeDisconnectRequest struct{ empty4 }

func (r *TreeDisconnectRequest) Command() Command { return CommandTreeDisconnect }

// TreeDisconnectResponse represents an SMB2 TREE_DISCONNECT response
type TreeDisconnectResponse struct{ empty4 }

func (r *TreeDisconnectResponse) Command() Command { return CommandTreeDisconnect }
