package types

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// ReadFlags
const (
	ReadFlagReadUnbuffered    uint8 = 0x01 // SMB 3.0.2
	ReadFlagRequestCompressed uint8 = 0x02 // SMB 3.1.1
)

// readResponseDataOffset is where servers place READ data: 64 + 16.
const readResponseDataOffset = 0x50

// ReadRequest represents an SMB2 READ request
type ReadRequest struct {
	Padding        uint8 // Requested data offset in the response
	Flags          uint8
	Length         uint32
	Offset         uint64
	FileID         FileID
	MinimumCount   uint32
	Channel        uint32
	RemainingBytes uint32
}

// NewReadRequest creates a READ request
func NewReadRequest(fileID FileID, offset uint64, length uint32) *ReadRequest {
	return &ReadRequest{
		Padding: readResponseDataOffset,
		Length:  length,
		Offset:  offset,
		FileID:  fileID,
	}
}

func (r *ReadRequest) Command() Command { return CommandRead }
func (r *ReadRequest) Size() int        { return 48 }

// Marshal serializes the READ request
func (r *ReadRequest) Marshal() []byte {
	buf := make([]byte, 49) // 48 fixed plus the one-byte Buffer

	encoding.PutUint16LE(buf[0:2], 49)
	buf[2] = r.Padding
	buf[3] = r.Flags
	encoding.PutUint32LE(buf[4:8], r.Length)
	encoding.PutUint64LE(buf[8:16], r.Offset)
	r.FileID.put(buf[16:32])
	encoding.PutUint32LE(buf[32:36], r.MinimumCount)
	encoding.PutUint32LE(buf[36:40], r.Channel)
	encoding.PutUint32LE(buf[40:44], r.RemainingBytes)
	// ReadChannelInfoOffset/Length stay zero; RDMA channels are not used

	return buf
}

// Unmarshal deserializes a READ request
func (r *ReadRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 49); err != nil {
		return err
	}
	r.Padding = buf[2]
	r.Flags = buf[3]
	r.Length = encoding.Uint32LE(buf[4:8])
	r.Offset = encoding.Uint64LE(buf[8:16])
	r.FileID = fileID(buf[16:32])
	r.MinimumCount = encoding.Uint32LE(buf[32:36])
	r.Channel = encoding.Uint32LE(buf[36:40])
	r.RemainingBytes = encoding.Uint32LE(buf[40:44])
	return nil
}

// ReadResponse represents an SMB2 READ response
type ReadResponse struct {
	DataRemaining uint32
	Flags         uint32
	Data          []byte
}

func (r *ReadResponse) Command() Command { return CommandRead }
func (r *ReadResponse) Size() int        { return 16 }

// Marshal serializes the READ response
func (r *ReadResponse) Marshal() []byte {
	buf := make([]byte, 16+len(r.Data))
	encoding.PutUint16LE(buf[0:2], 17)
	buf[2] = readResponseDataOffset
	encoding.PutUint32LE(buf[4:8], uint32(len(r.Data)))
	encoding.PutUint32LE(buf[8:12], r.DataRemaining)
	encoding.PutUint32LE(buf[12:16], r.Flags)
	copy(buf[16:], r.Data)
	return minBody(buf, 17)
}

// Unmarshal deserializes a READ response
func (r *ReadResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 17); err != nil {
		return err
	}

	dataOffset := buf[2]
	dataLength := encoding.Uint32LE(buf[4:8])
	r.DataRemaining = encoding.Uint32LE(buf[8:12])
	r.Flags = encoding.Uint32LE(buf[12:16])

	data, err := bodyBuffer(buf, uint32(dataOffset), dataLength)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	r.Data = data
	return nil
}

// WriteFlags
const (
	WriteFlagWriteThrough    uint32 = 0x00000001
	WriteFlagWriteUnbuffered uint32 = 0x00000002 // SMB 3.0.2
)

// WriteRequest represents an SMB2 WRITE request
type WriteRequest struct {
	Offset         uint64
	FileID         FileID
	Channel        uint32
	RemainingBytes uint32
	Flags          uint32
	Data           []byte
}

// NewWriteRequest creates a WRITE request
func NewWriteRequest(fileID FileID, offset uint64, data []byte) *WriteRequest {
	return &WriteRequest{
		Offset: offset,
		FileID: fileID,
		Data:   data,
	}
}

func (r *WriteRequest) Command() Command { return CommandWrite }
func (r *WriteRequest) Size() int        { return 48 }

// Marshal serializes the WRITE request
func (r *WriteRequest) Marshal() []byte {
	buf := make([]byte, 48+len(r.Data))

	encoding.PutUint16LE(buf[0:2], 49)
	// Data follows the fixed part: 64 + 48 = 0x70
	encoding.PutUint16LE(buf[2:4], SMB2HeaderSize+48)
	encoding.PutUint32LE(buf[4:8], uint32(len(r.Data)))
	encoding.PutUint64LE(buf[8:16], r.Offset)
	r.FileID.put(buf[16:32])
	encoding.PutUint32LE(buf[32:36], r.Channel)
	encoding.PutUint32LE(buf[36:40], r.RemainingBytes)
	encoding.PutUint32LE(buf[44:48], r.Flags)
	copy(buf[48:], r.Data)

	return minBody(buf, 49)
}

// Unmarshal deserializes a WRITE request
func (r *WriteRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 49); err != nil {
		return err
	}
	dataOffset := encoding.Uint16LE(buf[2:4])
	length := encoding.Uint32LE(buf[4:8])
	r.Offset = encoding.Uint64LE(buf[8:16])
	r.FileID = fileID(buf[16:32])
	r.Channel = encoding.Uint32LE(buf[32:36])
	r.RemainingBytes = encoding.Uint32LE(buf[36:40])
	r.Flags = encoding.Uint32LE(buf[44:48])

	data, err := bodyBuffer(buf, uint32(dataOffset), length)
	if err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	r.Data = data
	return nil
}

// WriteResponse represents an SMB2 WRITE response
type WriteResponse struct {
	Count     uint32
	Remaining uint32
}

func (r *WriteResponse) Command() Command { return CommandWrite }
func (r *WriteResponse) Size() int        { return 16 }

// Marshal serializes the WRITE response
func (r *WriteResponse) Marshal() []byte {
	buf := make([]byte, 17)
	encoding.PutUint16LE(buf[0:2], 17)
	encoding.PutUint32LE(buf[4:8], r.Count)
	encoding.PutUint32LE(buf[8:12], r.Remaining)
	return buf
}

// Unmarshal deserializes a WRITE response
func (r *WriteResponse) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 17); err != nil {
		return err
	}
	r.Count = encoding.Uint32LE(buf[4:8])
	r.Remaining = encoding.Uint32LE(buf[8:12])
	return nil
}

// FlushRequest represents an SMB2 FLUSH request
type FlushRequest struct {
	FileID FileID
}

func (r *FlushRequest) Command() Command { return CommandFlush }
func (r *FlushRequest) Size() int        { return 24 }

// Marshal serializes the FLUSH request
func (r *FlushRequest) Marshal() []byte {
	buf := make([]byte, 24)
	encoding.PutUint16LE(buf[0:2], 24)
	r.FileID.put(buf[8:24])
	return buf
}

// Unmarshal deserializes a FLUSH request
func (r *FlushRequest) Unmarshal(buf []byte) error {
	if err := checkStructureSize(buf, 24); err != nil {
		return err
	}
	r.FileID = fileID(buf[8:24])
	return nil
}

// FlushResponse represents an SMB2 FLUSH response
type FlushResponse struct{ empty4 }

func (r *FlushResponse) Command() Command { return CommandFlush }
