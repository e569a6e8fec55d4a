package smb

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// Version identifies which protocol family a message belongs to.
type Version uint8

const (
	VersionUnknown Version = iota
	Version1               // SMB1/CIFS, magic FF 'SMB'
	Version2               // SMB2/SMB3, magic FE 'SMB'
)

func (v Version) String() string {
	switch v {
	case Version1:
		return "SMB1"
	case Version2:
		return "SMB2"
	}
	return "unknown"
}

var (
	transformProtocolID   = [4]byte{0xFD, 'S', 'M', 'B'}
	compressionProtocolID = [4]byte{0xFC, 'S', 'M', 'B'}
)

// DetectVersion inspects the protocol magic at the start of b.
func DetectVersion(b []byte) (Version, error) {
	if len(b) < 4 {
		return VersionUnknown, &DecodeError{Op: "detect version",
			Err: fmt.Errorf("%w: %d bytes", ErrBadHeader, len(b))}
	}
	var magic [4]byte
	copy(magic[:], b)
	switch magic {
	case smb1.ProtocolID:
		return Version1, nil
	case types.SMB2ProtocolID:
		return Version2, nil
	case transformProtocolID, compressionProtocolID:
		// Encrypted and compressed frames are recognisable but not handled here.
		return VersionUnknown, &DecodeError{Op: "detect version",
			Err: fmt.Errorf("%w: % X", ErrIncompatibleHeader, magic[:])}
	}
	return VersionUnknown, &DecodeError{Op: "detect version",
		Err: fmt.Errorf("%w: magic % X", ErrBadHeader, magic[:])}
}

// Message is one decoded SMB message. Exactly one of SMB1 or Header/Body is
// set, according to Version.
type Message struct {
	Version Version

	// SMB1 holds the header and raw block sequence of an SMB1 message.
	SMB1 *smb1.Message

	// Header and Body hold an SMB2 message. Body's concrete type is chosen
	// by Header.Command, the response flag and the status.
	Header *types.Header
	Body   types.Body

	// Raw is the wire form of this message alone, without any compound
	// siblings.
	Raw []byte
}

// Status returns the status carried in the header.
func (m *Message) Status() types.NTStatus {
	if m.Version == Version1 {
		return m.SMB1.Header.NTStatus()
	}
	return m.Header.Status
}

// Decoder turns raw bytes into Messages. The zero value is ready to use.
type Decoder struct {
	// MaxContextHops bounds create-context chain walks in CREATE
	// responses. Zero means types.DefaultMaxContextHops.
	MaxContextHops int
}

// DecodeMessage decodes one SMB1 or SMB2 message. For SMB2 compound chains
// only the first element is decoded; use DecodeCompound for the rest.
func DecodeMessage(b []byte) (*Message, error) {
	return Decoder{}.Decode(b)
}

// DecodeCompound decodes every element of an SMB2 compound chain.
func DecodeCompound(b []byte) ([]*Message, error) {
	return Decoder{}.DecodeCompound(b)
}

// Decode decodes one message.
func (d Decoder) Decode(b []byte) (*Message, error) {
	v, err := DetectVersion(b)
	if err != nil {
		return nil, err
	}
	if v == Version1 {
		m, err := smb1.DecodeMessage(b)
		if err != nil {
			return nil, decodeErr("decode SMB1 message", err)
		}
		return &Message{Version: Version1, SMB1: m, Raw: b}, nil
	}

	m, err := d.decode2(b)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeCompound walks NextCommand offsets and decodes each element.
func (d Decoder) DecodeCompound(b []byte) ([]*Message, error) {
	v, err := DetectVersion(b)
	if err != nil {
		return nil, err
	}
	if v == Version1 {
		m, err := d.Decode(b)
		if err != nil {
			return nil, err
		}
		return []*Message{m}, nil
	}

	elems, err := splitCompound(b)
	if err != nil {
		return nil, err
	}
	msgs := make([]*Message, 0, len(elems))
	for i, e := range elems {
		m, err := d.decode2(e)
		if err != nil {
			return nil, fmt.Errorf("compound element %d: %w", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// splitCompound cuts b into its compound elements. Each NextCommand must be
// 8-byte aligned, leave room for a header and stay inside b, so the walk
// always advances and ends.
func splitCompound(b []byte) ([][]byte, error) {
	var elems [][]byte
	for off := 0; ; {
		rest := b[off:]
		if err := encoding.Need(rest, types.SMB2HeaderSize); err != nil {
			return nil, decodeErr("compound", err)
		}
		next := int(encoding.Uint32LE(rest[20:24]))
		if next == 0 {
			return append(elems, rest), nil
		}
		if next < types.SMB2HeaderSize || next%8 != 0 || next > len(rest) {
			return nil, &DecodeError{Op: "compound",
				Err: fmt.Errorf("%w: next command %d at %d", types.ErrBadOffset, next, off)}
		}
		elems = append(elems, rest[:next])
		off += next
	}
}

// decode2 decodes a single SMB2 message. A failure never yields a
// partially filled Message.
func (d Decoder) decode2(b []byte) (*Message, error) {
	h, body, err := splitHeader(b)
	if err != nil {
		return nil, err
	}
	bd, err := d.decodeBody(h, body)
	if err != nil {
		return nil, err
	}
	return &Message{Version: Version2, Header: h, Body: bd, Raw: b[:types.SMB2HeaderSize+len(body)]}, nil
}

// splitHeader decodes the SMB2 header and returns the body bytes that belong
// to this element.
func splitHeader(b []byte) (*types.Header, []byte, error) {
	h := new(types.Header)
	if err := h.Unmarshal(b); err != nil {
		return nil, nil, decodeErr("decode SMB2 header", err)
	}
	end := len(b)
	if h.NextCommand != 0 && int(h.NextCommand) <= len(b) && h.NextCommand >= types.SMB2HeaderSize {
		end = int(h.NextCommand)
	}
	return h, b[types.SMB2HeaderSize:end], nil
}

// decodeBody selects the body type for h and unmarshals body into it.
func (d Decoder) decodeBody(h *types.Header, body []byte) (types.Body, error) {
	bd, err := d.newBody(h, body)
	if err != nil {
		return nil, err
	}
	if len(body) < bd.Size() {
		return nil, &DecodeError{Op: fmt.Sprintf("decode %s body", h.Command),
			Err: fmt.Errorf("%w: need %d bytes, have %d", encoding.ErrTruncatedBuffer, bd.Size(), len(body))}
	}
	if err := bd.Unmarshal(body); err != nil {
		return nil, decodeErr(fmt.Sprintf("decode %s body", h.Command), err)
	}
	return bd, nil
}

// bodyKind pairs the constructors for a command's request and response bodies.
type bodyKind struct {
	request  func() types.Body
	response func() types.Body
}

var bodyKinds = map[types.Command]bodyKind{
	types.CommandNegotiate: {
		func() types.Body { return new(types.NegotiateRequest) },
		func() types.Body { return new(types.NegotiateResponse) },
	},
	types.CommandSessionSetup: {
		func() types.Body { return new(types.SessionSetupRequest) },
		func() types.Body { return new(types.SessionSetupResponse) },
	},
	types.CommandLogoff: {
		func() types.Body { return new(types.LogoffRequest) },
		func() types.Body { return new(types.LogoffResponse) },
	},
	types.CommandTreeConnect: {
		func() types.Body { return new(types.TreeConnectRequest) },
		func() types.Body { return new(types.TreeConnectResponse) },
	},
	types.CommandTreeDisconnect: {
		func() types.Body { return new(types.TreeDisconnectRequest) },
		func() types.Body { return new(types.TreeDisconnectResponse) },
	},
	types.CommandCreate: {
		func() types.Body { return new(types.CreateRequest) },
		func() types.Body { return new(types.CreateResponse) },
	},
	types.CommandClose: {
		func() types.Body { return new(types.CloseRequest) },
		func() types.Body { return new(types.CloseResponse) },
	},
	types.CommandFlush: {
		func() types.Body { return new(types.FlushRequest) },
		func() types.Body { return new(types.FlushResponse) },
	},
	types.CommandRead: {
		func() types.Body { return new(types.ReadRequest) },
		func() types.Body { return new(types.ReadResponse) },
	},
	types.CommandWrite: {
		func() types.Body { return new(types.WriteRequest) },
		func() types.Body { return new(types.WriteResponse) },
	},
	types.CommandLock: {
		func() types.Body { return new(types.LockRequest) },
		func() types.Body { return new(types.LockResponse) },
	},
	types.CommandIoctl: {
		func() types.Body { return new(types.IoctlRequest) },
		func() types.Body { return new(types.IoctlResponse) },
	},
	types.CommandCancel: {
		func() types.Body { return new(types.CancelRequest) },
		nil,
	},
	types.CommandEcho: {
		func() types.Body { return new(types.EchoRequest) },
		func() types.Body { return new(types.EchoResponse) },
	},
	types.CommandQueryDirectory: {
		func() types.Body { return new(types.QueryDirectoryRequest) },
		func() types.Body { return new(types.QueryDirectoryResponse) },
	},
	types.CommandChangeNotify: {
		func() types.Body { return new(types.ChangeNotifyRequest) },
		func() types.Body { return new(types.ChangeNotifyResponse) },
	},
	types.CommandQueryInfo: {
		func() types.Body { return new(types.QueryInfoRequest) },
		func() types.Body { return new(types.QueryInfoResponse) },
	},
	types.CommandSetInfo: {
		func() types.Body { return new(types.SetInfoRequest) },
		func() types.Body { return new(types.SetInfoResponse) },
	},
	types.CommandOplockBreak: {
		func() types.Body { return new(types.OplockBreak) },
		func() types.Body { return new(types.OplockBreak) },
	},
}

// leaseBreakSize is the StructureSize that tells a lease break apart from
// an oplock break.
const leaseBreakSize = 44

func (d Decoder) newBody(h *types.Header, body []byte) (types.Body, error) {
	kind, ok := bodyKinds[h.Command]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%04X", ErrInvalidCommand, uint16(h.Command))
	}
	if !h.IsResponse() {
		return kind.request(), nil
	}
	if kind.response == nil {
		return nil, fmt.Errorf("%w: %s has no response", ErrInvalidCommand, h.Command)
	}
	if carriesErrorBody(h) && types.IsErrorResponse(body) {
		return &types.ErrorResponse{Cmd: h.Command}, nil
	}
	switch h.Command {
	case types.CommandOplockBreak:
		if len(body) >= 2 && encoding.Uint16LE(body) == leaseBreakSize {
			return new(types.LeaseBreakNotification), nil
		}
	case types.CommandCreate:
		return &types.CreateResponse{MaxContextHops: d.MaxContextHops}, nil
	}
	return kind.response(), nil
}

// carriesErrorBody reports whether a response with this header is answered
// with an ERROR body instead of the command's own structure. Interim
// STATUS_PENDING replies use it too.
func carriesErrorBody(h *types.Header) bool {
	switch {
	case h.Status == types.StatusPending:
		return true
	case h.Status == types.StatusMoreProcessingReq && h.Command == types.CommandSessionSetup:
		return false
	}
	return h.Status.Failed()
}

// bodyAs returns m's body as T. A body of another type means the server
// answered with a structure the command does not allow.
func bodyAs[T types.Body](m *Message) (T, error) {
	b, ok := m.Body.(T)
	if !ok {
		var zero T
		return zero, &DecodeError{Op: fmt.Sprintf("decode %s response", m.Header.Command),
			Err: fmt.Errorf("unexpected body %T", m.Body)}
	}
	return b, nil
}
