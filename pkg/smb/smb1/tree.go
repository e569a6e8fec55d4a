package smb1

import (
	"context"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// treeConnectDataOffset is where TREE_CONNECT_ANDX request data starts.
const treeConnectDataOffset = HeaderSize + 1 + 8 + 2

// TREE_CONNECT_ANDX flags
const (
	TreeConnectDisconnectTID    uint16 = 0x0001
	TreeConnectExtendedSig      uint16 = 0x0004
	TreeConnectExtendedResponse uint16 = 0x0008
)

// Service types
const (
	ServiceDisk    = "A:"
	ServicePrinter = "LPT1:"
	ServicePipe    = "IPC"
	ServiceAny     = "?????"
)

// TreeConnectAndXRequest represents a TREE_CONNECT_ANDX request
type TreeConnectAndXRequest struct {
	Flags    uint16
	Password []byte
	Path     string
	Service  string
}

// Block encodes the request. The path is Unicode and aligned to an even
// offset after the password.
func (r *TreeConnectAndXRequest) Block() Block {
	w := encoding.NewWriter(8)
	w.WriteUint8(uint8(CommandNoAndX))
	w.WriteUint8(0)
	w.WriteUint16(0)
	w.WriteUint16(r.Flags)
	w.WriteUint16(uint16(len(r.Password)))

	data := append([]byte(nil), r.Password...)
	data = appendString(data, treeConnectDataOffset+len(data), r.Path, true)
	data = appendString(data, treeConnectDataOffset+len(data), r.Service, false)
	return NewBlock(w.Bytes(), data)
}

// TreeConnectAndXResponse represents a TREE_CONNECT_ANDX response
type TreeConnectAndXResponse struct {
	OptionalSupport               uint16
	MaximalShareAccessRights      uint32 // extended response only
	GuestMaximalShareAccessRights uint32 // extended response only
	Service                       string
	NativeFileSystem              string
}

// Decode parses the tree connect response
func (r *TreeConnectAndXResponse) Decode(m *Message) error {
	b, err := m.First()
	if err != nil {
		return err
	}
	p, err := b.params(CommandTreeConnectAndX, 3)
	if err != nil {
		return err
	}
	p.Skip(4) // AndX
	r.OptionalSupport = p.ReadUint16()
	if b.WordCount() >= 7 {
		r.MaximalShareAccessRights = p.ReadUint32()
		r.GuestMaximalShareAccessRights = p.ReadUint32()
	}
	if err := p.Err(); err != nil {
		return err
	}

	base := m.DataOffset(0)
	var pos int
	r.Service, pos = readString(b.Data, 0, base, false)
	r.NativeFileSystem, _ = readString(b.Data, pos, base, m.Header.Flags2&Flags2Unicode != 0)
	return nil
}

// Tree represents an SMB1 tree (share) connection
type Tree struct {
	TID     uint16
	Service string
	client  *Client
}

// Disconnect disconnects from this tree
func (t *Tree) Disconnect(ctx context.Context) error {
	return t.client.TreeDisconnect(ctx, t.TID)
}
