package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// CtlCode is an IOCTL/FSCTL control code.
type CtlCode uint32

const (
	FsctlDfsGetReferrals           CtlCode = 0x00060194
	FsctlDfsGetReferralsEx         CtlCode = 0x000601B0
	FsctlPipePeek                  CtlCode = 0x0011400C
	FsctlPipeWait                  CtlCode = 0x00110018
	FsctlPipeTransceive            CtlCode = 0x0011C017
	FsctlSrvCopyChunk              CtlCode = 0x001440F2
	FsctlSrvCopyChunkWrite         CtlCode = 0x001480F2
	FsctlSrvEnumerateSnapshots     CtlCode = 0x00144064
	FsctlSrvRequestResumeKey       CtlCode = 0x00140078
	FsctlSrvReadHash               CtlCode = 0x001441BB
	FsctlLmrRequestResiliency      CtlCode = 0x001401D4
	FsctlQueryNetworkInterfaceInfo CtlCode = 0x001401FC
	FsctlSetReparsePoint           CtlCode = 0x000900A4
	FsctlGetReparsePoint           CtlCode = 0x000900A8
	FsctlFileLevelTrim             CtlCode = 0x00098208
	FsctlValidateNegotiateInfo     CtlCode = 0x00140204
)

var ctlCodeNames = map[CtlCode]string{
	FsctlDfsGetReferrals:           "FSCTL_DFS_GET_REFERRALS",
	FsctlDfsGetReferralsEx:         "FSCTL_DFS_GET_REFERRALS_EX",
	FsctlPipePeek:                  "FSCTL_PIPE_PEEK",
	FsctlPipeWait:                  "FSCTL_PIPE_WAIT",
	FsctlPipeTransceive:            "FSCTL_PIPE_TRANSCEIVE",
	FsctlSrvCopyChunk:              "FSCTL_SRV_COPYCHUNK",
	FsctlSrvCopyChunkWrite:         "FSCTL_SRV_COPYCHUNK_WRITE",
	FsctlSrvEnumerateSnapshots:     "FSCTL_SRV_ENUMERATE_SNAPSHOTS",
	FsctlSrvRequestResumeKey:       "FSCTL_SRV_REQUEST_RESUME_KEY",
	FsctlSrvReadHash:               "FSCTL_SRV_READ_HASH",
	FsctlLmrRequestResiliency:      "FSCTL_LMR_REQUEST_RESILIENCY",
	FsctlQueryNetworkInterfaceInfo: "FSCTL_QUERY_NETWORK_INTERFACE_INFO",
	FsctlSetReparsePoint:           "FSCTL_SET_REPARSE_POINT",
	FsctlGetReparsePoint:           "FSCTL_GET_REPARSE_POINT",
	FsctlFileLevelTrim:             "FSCTL_FILE_LEVEL_TRIM",
	FsctlValidateNegotiateInfo:     "FSCTL_VALIDATE_NEGOTIATE_INFO",
}

func (c CtlCode) String() string {
	if name, ok := ctlCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CtlCode(0x%08X)", uint32(c))
}

// IoctlIsFsctl is the only defined IOCTL request flag.
const IoctlIsFsctl uint32 = 0x00000001

// AnyFileID is sent with control codes that do not target an open file.
var AnyFileID = FileID{Persistent: ^uint64(0), Volatile: ^uint64(0)}

// IoctlRequest represents an SMB2 IOCTL request
type IoctlRequest struct {
	CtlCode           CtlCode
	FileID            FileID
	MaxInputResponse  uint32
	MaxOutputResponse uint32
	Flags             uint32
	Input             []byte
	Output            []byte
}

// NewIoctlRequest builds an FSCTL request carrying payload as its input buffer.
// payload may be nil.
func NewIoctlRequest(code CtlCode, fileID FileID, payload IoctlPayload, maxOutput uint32) *IoctlRequest {
	r := &IoctlRequest{
		CtlCode:           code,
		FileID:            fileID,
		MaxOutputResponse: maxOutput,
		Flags:             IoctlIsFsctl,
	}
	if payload != nil {
		r.Input = payload.Marshal()
	}
	return r
}

func (r *IoctlRequest) Command() Command { return CommandIoctl }
func (r *IoctlRequest) Size() int        { return 56 }

// Marshal serializes the IOCTL request
func (r *IoctlRequest) Marshal() []byte {
	w := encoding.NewWriter(57 + len(r.Input) + len(r.Output))

	w.WriteUint16(57)
	w.WriteUint16(0)
	w.WriteUint32(uint32(r.CtlCode))
	w.WriteBytes(r.FileID.Marshal())
	w.WriteUint32(SMB2HeaderSize + 56) // InputOffset
	w.WriteUint32(uint32(len(r.Input)))
	w.WriteUint32(r.MaxInputResponse)
	w.WriteUint32(0) // OutputOffset
	w.WriteUint32(uint32(len(r.Output)))
	w.WriteUint32(r.MaxOutputResponse)
	w.WriteUint32(r.Flags)
	w.WriteUint32(0)
	w.WriteBytes(r.Input)

	if len(r.Output) > 0 {
		w.Pad(8)
		w.WriteUint32At(36, uint32(SMB2HeaderSize+w.Len()))
		w.WriteBytes(r.Output)
	}

	return minBody(w.Bytes(), 57)
}

// Unmarshal deserializes an IOCTL request
func (r *IoctlRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 57); err != nil {
		return err
	}
	r.CtlCode = CtlCode(encoding.Uint32LE(buf[4:8]))
	r.FileID = fileID(buf[8:24])
	inOff := encoding.Uint32LE(buf[24:28])
	inLen := encoding.Uint32LE(buf[28:32])
	r.MaxInputResponse = encoding.Uint32LE(buf[32:36])
	outOff := encoding.Uint32LE(buf[36:40])
	outLen := encoding.Uint32LE(buf[40:44])
	r.MaxOutputResponse = encoding.Uint32LE(buf[44:48])
	r.Flags = encoding.Uint32LE(buf[48:52])

	var err error
	if r.Input, err = bodyBuffer(buf, inOff, inLen); err != nil {
		return fmt.Errorf("ioctl input: %w", err)
	}
	if r.Output, err = bodyBuffer(buf, outOff, outLen); err != nil {
		return fmt.Errorf("ioctl output: %w", err)
	}
	return nil
}

// IoctlResponse represents an SMB2 IOCTL response
type IoctlResponse struct {
	CtlCode CtlCode
	FileID  FileID
	Flags   uint32
	Input   []byte
	Output  []byte
}

func (r *IoctlResponse) Command() Command { return CommandIoctl }
func (r *IoctlResponse) Size() int        { return 48 }

// Marshal serializes the IOCTL response
func (r *IoctlResponse) Marshal() []byte {
	w := encoding.NewWriter(49 + len(r.Input) + len(r.Output))

	w.WriteUint16(49)
	w.WriteUint16(0)
	w.WriteUint32(uint32(r.CtlCode))
	w.WriteBytes(r.FileID.Marshal())
	w.WriteUint32(SMB2HeaderSize + 48) // InputOffset
	w.WriteUint32(uint32(len(r.Input)))
	w.WriteUint32(0) // OutputOffset, patched below
	w.WriteUint32(uint32(len(r.Output)))
	w.WriteUint32(r.Flags)
	w.WriteUint32(0)
	w.WriteBytes(r.Input)

	if len(r.Output) > 0 {
		w.Pad(8)
		w.WriteUint32At(32, uint32(SMB2HeaderSize+w.Len()))
		w.WriteBytes(r.Output)
	}

	return minBody(w.Bytes(), 49)
}

// Unmarshal deserializes an IOCTL response
func (r *IoctlResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 49); err != nil {
		return err
	}
	r.CtlCode = CtlCode(encoding.Uint32LE(buf[4:8]))
	r.FileID = fileID(buf[8:24])
	inOff := encoding.Uint32LE(buf[24:28])
	inLen := encoding.Uint32LE(buf[28:32])
	outOff := encoding.Uint32LE(buf[32:36])
	outLen := encoding.Uint32LE(buf[36:40])
	r.Flags = encoding.Uint32LE(buf[40:44])

	var err error
	if r.Input, err = bodyBuffer(buf, inOff, inLen); err != nil {
		return fmt.Errorf("ioctl input: %w", err)
	}
	if r.Output, err = bodyBuffer(buf, outOff, outLen); err != nil {
		return fmt.Errorf("ioctl output: %w", err)
	}
	return nil
}

// Payload decodes Output according to CtlCode. Codes without a known
// payload shape return nil, nil.
func (r *IoctlResponse) Payload() (IoctlPayload, error) {
	return DecodeIoctlOutput(r.CtlCode, r.Output)
}
