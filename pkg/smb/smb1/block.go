package smb1

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// Block is one parameter/data unit of an SMB1 message:
// [word count][word count * 2 bytes][byte count][byte count bytes].
type Block struct {
	Params []uint16
	Data   []byte
}

// NewBlock builds a block from little-endian parameter bytes. An odd trailing
// byte is padded with zero.
func NewBlock(params, data []byte) Block {
	b := Block{Data: data}
	for i := 0; i < len(params); i += 2 {
		w := uint16(params[i])
		if i+1 < len(params) {
			w |= uint16(params[i+1]) << 8
		}
		b.Params = append(b.Params, w)
	}
	return b
}

// WordCount returns the number of parameter words.
func (b Block) WordCount() int {
	return len(b.Params)
}

// Size returns the encoded length of the block.
func (b Block) Size() int {
	return 1 + 2*len(b.Params) + 2 + len(b.Data)
}

// ParamBytes returns the parameter words as little-endian bytes.
func (b Block) ParamBytes() []byte {
	buf := make([]byte, 0, 2*len(b.Params))
	for _, w := range b.Params {
		buf = encoding.AppendUint16LE(buf, w)
	}
	return buf
}

func (b Block) appendTo(dst []byte) []byte {
	dst = append(dst, byte(len(b.Params)))
	for _, w := range b.Params {
		dst = encoding.AppendUint16LE(dst, w)
	}
	dst = encoding.AppendUint16LE(dst, uint16(len(b.Data)))
	return append(dst, b.Data...)
}

// Message is an SMB1 header followed by its blocks.
type Message struct {
	Header Header
	Blocks []Block
}

// NewMessage pairs a header with a single block, the shape of almost every
// SMB1 request.
func NewMessage(h *Header, b Block) *Message {
	return &Message{Header: *h, Blocks: []Block{b}}
}

// Marshal encodes the header then each block with its length prefixes.
func (m *Message) Marshal() []byte {
	n := HeaderSize
	for _, b := range m.Blocks {
		n += b.Size()
	}
	buf := make([]byte, 0, n)
	buf = append(buf, m.Header.Marshal()...)
	for _, b := range m.Blocks {
		buf = b.appendTo(buf)
	}
	return buf
}

// First returns the first block. A message with no blocks fails with
// ErrIncorrectMessageLength.
func (m *Message) First() (Block, error) {
	if len(m.Blocks) == 0 {
		return Block{}, fmt.Errorf("%w: %s has no blocks", ErrIncorrectMessageLength, m.Header.Command)
	}
	return m.Blocks[0], nil
}

// DataOffset returns the message-relative offset of block i's data bytes.
// SMB1 data offsets such as READ_ANDX DataOffset are measured from the
// start of the header.
func (m *Message) DataOffset(i int) int {
	off := HeaderSize
	for j := 0; j < i && j < len(m.Blocks); j++ {
		off += m.Blocks[j].Size()
	}
	if i < len(m.Blocks) {
		off += 1 + 2*len(m.Blocks[i].Params) + 2
	}
	return off
}

// DecodeMessage parses a header and then walks blocks until the buffer is
// exhausted. Declared lengths that run past the buffer fail with
// ErrIncorrectParamsLength or ErrIncorrectMessageLength.
func DecodeMessage(buf []byte) (*Message, error) {
	m := &Message{}
	if err := m.Header.Unmarshal(buf); err != nil {
		return nil, err
	}

	pos := HeaderSize
	for pos < len(buf) {
		wc := int(buf[pos])
		pos++
		if pos+2*wc > len(buf) {
			return nil, fmt.Errorf("%w: block %d declares %d words, %d bytes left",
				ErrIncorrectParamsLength, len(m.Blocks), wc, len(buf)-pos)
		}
		b := Block{}
		if wc > 0 {
			b.Params = make([]uint16, wc)
			for i := range b.Params {
				b.Params[i] = encoding.Uint16LE(buf[pos+2*i:])
			}
		}
		pos += 2 * wc

		if pos+2 > len(buf) {
			return nil, fmt.Errorf("%w: block %d byte count missing", ErrIncorrectMessageLength, len(m.Blocks))
		}
		bc := int(encoding.Uint16LE(buf[pos:]))
		pos += 2
		if pos+bc > len(buf) {
			return nil, fmt.Errorf("%w: block %d declares %d bytes, %d left",
				ErrIncorrectMessageLength, len(m.Blocks), bc, len(buf)-pos)
		}
		if bc > 0 {
			b.Data = append([]byte(nil), buf[pos:pos+bc]...)
		}
		pos += bc
		m.Blocks = append(m.Blocks, b)
	}
	return m, nil
}

// params returns a reader over the block's parameter bytes after checking
// that at least min words are present.
func (b Block) params(cmd Command, min int) (*encoding.Reader, error) {
	if len(b.Params) < min {
		return nil, fmt.Errorf("%w: %s has %d words, need %d", ErrWordCount, cmd, len(b.Params), min)
	}
	return encoding.NewReader(b.ParamBytes()), nil
}
