package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// FileInformationClass values for QUERY_DIRECTORY
const (
	FileDirectoryInformation       uint8 = 0x01
	FileFullDirectoryInformation   uint8 = 0x02
	FileBothDirectoryInformation   uint8 = 0x03
	FileNamesInformation           uint8 = 0x0C
	FileIdBothDirectoryInformation uint8 = 0x25
	FileIdFullDirectoryInformation uint8 = 0x26
)

// QueryDirectoryFlags
const (
	QueryDirectoryRestart     uint8 = 0x01
	QueryDirectorySingleEntry uint8 = 0x02
	QueryDirectoryReturnIndex uint8 = 0x04
	QueryDirectoryReopen      uint8 = 0x10
)

// QueryDirectoryRequest represents an SMB2 QUERY_DIRECTORY request
type QueryDirectoryRequest struct {
	FileInformationClass uint8
	Flags                uint8
	FileIndex            uint32
	FileID               FileID
	OutputBufferLength   uint32
	FileName             string // Search pattern, e.g. "*"
}

// NewQueryDirectoryRequest creates a QUERY_DIRECTORY request
func NewQueryDirectoryRequest(fileID FileID, pattern string, infoClass uint8) *QueryDirectoryRequest {
	return &QueryDirectoryRequest{
		FileInformationClass: infoClass,
		FileID:               fileID,
		OutputBufferLength:   65536,
		FileName:             pattern,
	}
}

func (r *QueryDirectoryRequest) Command() Command { return CommandQueryDirectory }
func (r *QueryDirectoryRequest) Size() int        { return 32 }

// Marshal serializes the QUERY_DIRECTORY request
func (r *QueryDirectoryRequest) Marshal() []byte {
	name := encoding.ToUTF16LE(r.FileName)
	buf := make([]byte, 32+len(name))

	encoding.PutUint16LE(buf[0:2], 33)
	buf[2] = r.FileInformationClass
	buf[3] = r.Flags
	encoding.PutUint32LE(buf[4:8], r.FileIndex)
	r.FileID.put(buf[8:24])
	encoding.PutUint16LE(buf[24:26], SMB2HeaderSize+32)
	encoding.PutUint16LE(buf[26:28], uint16(len(name)))
	encoding.PutUint32LE(buf[28:32], r.OutputBufferLength)
	copy(buf[32:], name)

	return minBody(buf, 33)
}

// Unmarshal deserializes a QUERY_DIRECTORY request
func (r *QueryDirectoryRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 33); err != nil {
		return err
	}
	r.FileInformationClass = buf[2]
	r.Flags = buf[3]
	r.FileIndex = encoding.Uint32LE(buf[4:8])
	r.FileID = fileID(buf[8:24])
	r.OutputBufferLength = encoding.Uint32LE(buf[28:32])
	name, err := bodyBuffer(buf, uint32(encoding.Uint16LE(buf[24:26])), uint32(encoding.Uint16LE(buf[26:28])))
	if err != nil {
		return fmt.Errorf("search pattern: %w", err)
	}
	r.FileName = encoding.FromUTF16LE(name)
	return nil
}

// QueryDirectoryResponse represents an SMB2 QUERY_DIRECTORY response
type QueryDirectoryResponse struct {
	OutputBuffer []byte
}

func (r *QueryDirectoryResponse) Command() Command { return CommandQueryDirectory }
func (r *QueryDirectoryResponse) Size() int        { return 8 }

// Marshal serializes the QUERY_DIRECTORY response
func (r *QueryDirectoryResponse) Marshal() []byte {
	return marshalOutputBuffer(r.OutputBuffer)
}

// Unmarshal deserializes a QUERY_DIRECTORY response
func (r *QueryDirectoryResponse) Unmarshal(buf []byte) error {
	out, err := unmarshalOutputBuffer(buf)
	r.OutputBuffer = out
	return err
}

// marshalOutputBuffer encodes the StructureSize-9 shape shared by
// QUERY_DIRECTORY, QUERY_INFO and CHANGE_NOTIFY responses.
func marshalOutputBuffer(out []byte) []byte {
	buf := make([]byte, 8+len(out))
	encoding.PutUint16LE(buf[0:2], 9)
	encoding.PutUint16LE(buf[2:4], SMB2HeaderSize+8)
	encoding.PutUint32LE(buf[4:8], uint32(len(out)))
	copy(buf[8:], out)
	return minBody(buf, 9)
}

func unmarshalOutputBuffer(buf []byte) ([]byte, error) {
	if err := checkStructureSize(buf, 9); err != nil {
		return nil, err
	}
	out, err := bodyBuffer(buf, uint32(encoding.Uint16LE(buf[2:4])), encoding.Uint32LE(buf[4:8]))
	if err != nil {
		return nil, fmt.Errorf("output buffer: %w", err)
	}
	return out, nil
}

// FileBothDirInfo represents FILE_BOTH_DIR_INFORMATION structure
type FileBothDirInfo struct {
	NextEntryOffset uint32
	FileIndex       uint32
	CreationTime    Filetime
	LastAccessTime  Filetime
	LastWriteTime   Filetime
	ChangeTime      Filetime
	EndOfFile       uint64
	AllocationSize  uint64
	FileAttributes  FileAttributes
	FileNameLength  uint32
	EaSize          uint32
	ShortNameLength uint8
	ShortName       [24]byte // 12 UTF-16LE chars
	FileName        string
}

// FileIdBothDirInfo represents FILE_ID_BOTH_DIR_INFORMATION structure
type FileIdBothDirInfo struct {
	FileBothDirInfo
	FileID uint64
}

// ParseFileBothDirInfo parses FILE_BOTH_DIR_INFORMATION entries
func ParseFileBothDirInfo(data []byte) ([]FileBothDirInfo, error) {
	var entries []FileBothDirInfo
	err := walkEntries(data, 94, func(e []byte) {
		info := parseBothDirCommon(e)
		info.FileName = entryName(e, 94, info.FileNameLength)
		entries = append(entries, info)
	})
	return entries, err
}

// ParseFileIdBothDirInfo parses FILE_ID_BOTH_DIR_INFORMATION entries
func ParseFileIdBothDirInfo(data []byte) ([]FileIdBothDirInfo, error) {
	var entries []FileIdBothDirInfo
	err := walkEntries(data, 104, func(e []byte) {
		info := FileIdBothDirInfo{FileBothDirInfo: parseBothDirCommon(e)}
		// Reserved2 at 94-95
		info.FileID = encoding.Uint64LE(e[96:])
		info.FileName = entryName(e, 104, info.FileNameLength)
		entries = append(entries, info)
	})
	return entries, err
}

func parseBothDirCommon(e []byte) FileBothDirInfo {
	info := FileBothDirInfo{
		NextEntryOffset: encoding.Uint32LE(e[0:]),
		FileIndex:       encoding.Uint32LE(e[4:]),
		CreationTime:    Filetime(encoding.Uint64LE(e[8:])),
		LastAccessTime:  Filetime(encoding.Uint64LE(e[16:])),
		LastWriteTime:   Filetime(encoding.Uint64LE(e[24:])),
		ChangeTime:      Filetime(encoding.Uint64LE(e[32:])),
		EndOfFile:       encoding.Uint64LE(e[40:]),
		AllocationSize:  encoding.Uint64LE(e[48:]),
		FileAttributes:  FileAttributes(encoding.Uint32LE(e[56:])),
		FileNameLength:  encoding.Uint32LE(e[60:]),
		EaSize:          encoding.Uint32LE(e[64:]),
		ShortNameLength: e[68],
	}
	copy(info.ShortName[:], e[70:94])
	return info
}

func entryName(e []byte, start int, n uint32) string {
	name, err := encoding.Slice(e, start, int(n))
	if err != nil {
		return ""
	}
	return encoding.FromUTF16LE(name)
}

// maxDirEntries bounds NextEntryOffset walks over a single output buffer.
const maxDirEntries = 1 << 16

// walkEntries iterates a NextEntryOffset-linked list of records whose fixed
// part is minSize bytes. Each callback slice runs to the end of the record.
func walkEntries(data []byte, minSize int, fn func(e []byte)) error {
	pos := 0
	for n := 0; pos < len(data); n++ {
		if n >= maxDirEntries {
			return fmt.Errorf("%w: more than %d entries", ErrContextChain, maxDirEntries)
		}
		if pos+minSize > len(data) {
			return fmt.Errorf("%w: entry %d at %d overruns %d-byte buffer", ErrBadOffset, n, pos, len(data))
		}
		next := int(encoding.Uint32LE(data[pos:]))
		end := len(data)
		if next != 0 {
			if next < minSize || pos+next > len(data) {
				return fmt.Errorf("%w: entry %d next offset %d", ErrContextChain, n, next)
			}
			end = pos + next
		}
		fn(data[pos:end])
		if next == 0 {
			break
		}
		pos += next
	}
	return nil
}
