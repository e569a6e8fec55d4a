package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// InfoType values for QUERY_INFO / SET_INFO
const (
	InfoTypeFile       uint8 = 0x01
	InfoTypeFilesystem uint8 = 0x02
	InfoTypeSecurity   uint8 = 0x03
	InfoTypeQuota      uint8 = 0x04
)

// File information classes used with InfoTypeFile
const (
	FileBasicInformation       uint8 = 0x04
	FileStandardInformation    uint8 = 0x05
	FileInternalInformation    uint8 = 0x06
	FileEaInformation          uint8 = 0x07
	FileAccessInformation      uint8 = 0x08
	FileRenameInformation      uint8 = 0x0A
	FileDispositionInformation uint8 = 0x0D
	FilePositionInformation    uint8 = 0x0E
	FileAllInformation         uint8 = 0x12
	FileEndOfFileInformation   uint8 = 0x14
	FileStreamInformation      uint8 = 0x16
)

// Filesystem information classes used with InfoTypeFilesystem
const (
	FileFsVolumeInformation    uint8 = 0x01
	FileFsSizeInformation      uint8 = 0x03
	FileFsDeviceInformation    uint8 = 0x04
	FileFsAttributeInformation uint8 = 0x05
	FileFsFullSizeInformation  uint8 = 0x07
)

// Security AdditionalInformation bits
const (
	OwnerSecurityInformation uint32 = 0x00000001
	GroupSecurityInformation uint32 = 0x00000002
	DACLSecurityInformation  uint32 = 0x00000004
	SACLSecurityInformation  uint32 = 0x00000008
)

// QueryInfoRequest represents an SMB2 QUERY_INFO request
type QueryInfoRequest struct {
	InfoType           uint8
	FileInfoClass      uint8
	OutputBufferLength uint32
	AdditionalInfo     uint32
	Flags              uint32
	FileID             FileID
	Input              []byte // Only used for quota and EA queries
}

// NewQueryInfoRequest creates a QUERY_INFO request
func NewQueryInfoRequest(fileID FileID, infoType, infoClass uint8, additionalInfo, outputLength uint32) *QueryInfoRequest {
	return &QueryInfoRequest{
		InfoType:           infoType,
		FileInfoClass:      infoClass,
		OutputBufferLength: outputLength,
		AdditionalInfo:     additionalInfo,
		FileID:             fileID,
	}
}

func (r *QueryInfoRequest) Command() Command { return CommandQueryInfo }
func (r *QueryInfoRequest) Size() int        { return 40 }

// Marshal serializes the QUERY_INFO request
func (r *QueryInfoRequest) Marshal() []byte {
	buf := make([]byte, 40+len(r.Input))
	encoding.PutUint16LE(buf[0:2], 41)
	buf[2] = r.InfoType
	buf[3] = r.FileInfoClass
	encoding.PutUint32LE(buf[4:8], r.OutputBufferLength)
	if len(r.Input) > 0 {
		encoding.PutUint16LE(buf[8:10], SMB2HeaderSize+40)
	}
	encoding.PutUint32LE(buf[12:16], uint32(len(r.Input)))
	encoding.PutUint32LE(buf[16:20], r.AdditionalInfo)
	encoding.PutUint32LE(buf[20:24], r.Flags)
	r.FileID.put(buf[24:40])
	copy(buf[40:], r.Input)
	return minBody(buf, 41)
}

// Unmarshal deserializes a QUERY_INFO request
func (r *QueryInfoRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 41); err != nil {
		return err
	}
	r.InfoType = buf[2]
	r.FileInfoClass = buf[3]
	r.OutputBufferLength = encoding.Uint32LE(buf[4:8])
	inOff := encoding.Uint16LE(buf[8:10])
	inLen := encoding.Uint32LE(buf[12:16])
	r.AdditionalInfo = encoding.Uint32LE(buf[16:20])
	r.Flags = encoding.Uint32LE(buf[20:24])
	r.FileID = fileID(buf[24:40])
	in, err := bodyBuffer(buf, uint32(inOff), inLen)
	if err != nil {
		return fmt.Errorf("query info input: %w", err)
	}
	r.Input = in
	return nil
}

// QueryInfoResponse represents an SMB2 QUERY_INFO response
type QueryInfoResponse struct {
	OutputBuffer []byte
}

func (r *QueryInfoResponse) Command() Command { return CommandQueryInfo }
func (r *QueryInfoResponse) Size() int        { return 8 }

// Marshal serializes the QUERY_INFO response
func (r *QueryInfoResponse) Marshal() []byte {
	return marshalOutputBuffer(r.OutputBuffer)
}

// Unmarshal deserializes a QUERY_INFO response
func (r *QueryInfoResponse) Unmarshal(buf []byte) error {
	out, err := unmarshalOutputBuffer(buf)
	r.OutputBuffer = out
	return err
}

// SetInfoRequest represents an SMB2 SET_INFO request
type SetInfoRequest struct {
	InfoType       uint8
	FileInfoClass  uint8
	AdditionalInfo uint32
	FileID         FileID
	Buffer         []byte
}

// NewSetInfoRequest creates a SET_INFO request
func NewSetInfoRequest(fileID FileID, infoType, infoClass uint8, buffer []byte) *SetInfoRequest {
	return &SetInfoRequest{
		InfoType:      infoType,
		FileInfoClass: infoClass,
		FileID:        fileID,
		Buffer:        buffer,
	}
}

func (r *SetInfoRequest) Command() Command { return CommandSetInfo }
func (r *SetInfoRequest) Size() int        { return 32 }

// Marshal serializes the SET_INFO request
func (r *SetInfoRequest) Marshal() []byte {
	buf := make([]byte, 32+len(r.Buffer))
	encoding.PutUint16LE(buf[0:2], 33)
	buf[2] = r.InfoType
	buf[3] = r.FileInfoClass
	encoding.PutUint32LE(buf[4:8], uint32(len(r.Buffer)))
	encoding.PutUint16LE(buf[8:10], SMB2HeaderSize+32)
	encoding.PutUint32LE(buf[12:16], r.AdditionalInfo)
	r.FileID.put(buf[16:32])
	copy(buf[32:], r.Buffer)
	return minBody(buf, 33)
}

// Unmarshal deserializes a SET_INFO request
func (r *SetInfoRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 33); err != nil {
		return err
	}
	r.InfoType = buf[2]
	r.FileInfoClass = buf[3]
	length := encoding.Uint32LE(buf[4:8])
	offset := encoding.Uint16LE(buf[8:10])
	r.AdditionalInfo = encoding.Uint32LE(buf[12:16])
	r.FileID = fileID(buf[16:32])
	b, err := bodyBuffer(buf, uint32(offset), length)
	if err != nil {
		return fmt.Errorf("set info buffer: %w", err)
	}
	r.Buffer = b
	return nil
}

// SetInfoResponse represents an SMB2 SET_INFO response
type SetInfoResponse struct{}

func (r *SetInfoResponse) Command() Command { return CommandSetInfo }
func (r *SetInfoResponse) Size() int        { return 2 }

// Marshal serializes the SET_INFO response
func (r *SetInfoResponse) Marshal() []byte {
	return []byte{2, 0}
}

// Unmarshal deserializes a SET_INFO response
func (r *SetInfoResponse) Unmarshal(buf []byte) error {
	return checkStructureSize(buf, 2)
}

// FileBasicInfo is FILE_BASIC_INFORMATION.
type FileBasicInfo struct {
	CreationTime   Filetime
	LastAccessTime Filetime
	LastWriteTime  Filetime
	ChangeTime     Filetime
	FileAttributes FileAttributes
}

// Marshal serializes FILE_BASIC_INFORMATION (40 bytes).
func (i *FileBasicInfo) Marshal() []byte {
	buf := make([]byte, 40)
	encoding.PutUint64LE(buf[0:8], uint64(i.CreationTime))
	encoding.PutUint64LE(buf[8:16], uint64(i.LastAccessTime))
	encoding.PutUint64LE(buf[16:24], uint64(i.LastWriteTime))
	encoding.PutUint64LE(buf[24:32], uint64(i.ChangeTime))
	encoding.PutUint32LE(buf[32:36], uint32(i.FileAttributes))
	return buf
}

// Unmarshal deserializes FILE_BASIC_INFORMATION.
func (i *FileBasicInfo) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, 36); err != nil {
		return err
	}
	i.CreationTime = Filetime(encoding.Uint64LE(buf[0:8]))
	i.LastAccessTime = Filetime(encoding.Uint64LE(buf[8:16]))
	i.LastWriteTime = Filetime(encoding.Uint64LE(buf[16:24]))
	i.ChangeTime = Filetime(encoding.Uint64LE(buf[24:32]))
	i.FileAttributes = FileAttributes(encoding.Uint32LE(buf[32:36]))
	return nil
}

// FileStandardInfo is FILE_STANDARD_INFORMATION.
type FileStandardInfo struct {
	AllocationSize uint64
	EndOfFile      uint64
	NumberOfLinks  uint32
	DeletePending  bool
	Directory      bool
}

// Unmarshal deserializes FILE_STANDARD_INFORMATION.
func (i *FileStandardInfo) Unmarshal(buf []byte) error {
	if err := encoding.Need(buf, 22); err != nil {
		return err
	}
	i.AllocationSize = encoding.Uint64LE(buf[0:8])
	i.EndOfFile = encoding.Uint64LE(buf[8:16])
	i.NumberOfLinks = encoding.Uint32LE(buf[16:20])
	i.DeletePending = buf[20] != 0
	i.Directory = buf[21] != 0
	return nil
}

// FileDispositionInfo builds FILE_DISPOSITION_INFORMATION.
func FileDispositionInfo(deletePending bool) []byte {
	if deletePending {
		return []byte{1}
	}
	return []byte{0}
}

// FileEndOfFileInfo builds FILE_END_OF_FILE_INFORMATION.
func FileEndOfFileInfo(size uint64) []byte {
	return encoding.AppendUint64LE(nil, size)
}

// FileRenameInfo builds FILE_RENAME_INFORMATION_TYPE_2 for SMB2.
func FileRenameInfo(target string, replace bool) []byte {
	name := encoding.ToUTF16LE(target)
	buf := make([]byte, 20+len(name))
	if replace {
		buf[0] = 1
	}
	// RootDirectory (8 bytes at 8) must be zero for SMB2
	encoding.PutUint32LE(buf[16:20], uint32(len(name)))
	copy(buf[20:], name)
	return buf
}
