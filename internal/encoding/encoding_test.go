package encoding

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A uint16
	B uint32
}

func (p *pair) Size() int { return 6 }

func (p *pair) Marshal() []byte {
	buf := make([]byte, 6)
	PutUint16LE(buf[0:], p.A)
	PutUint32LE(buf[2:], p.B)
	return buf
}

func (p *pair) Unmarshal(buf []byte) error {
	if err := Need(buf, 6); err != nil {
		return err
	}
	p.A = Uint16LE(buf[0:])
	p.B = Uint32LE(buf[2:])
	return nil
}

func TestDecodeRoundTrip(t *testing.T) {
	in := &pair{A: 0xFFFF, B: 0xDEADBEEF}
	raw := Encode(in)
	require.Equal(t, []byte{0xFF, 0xFF, 0xEF, 0xBE, 0xAD, 0xDE}, raw)

	out, err := Decode[pair](raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeTruncated(t *testing.T) {
	for n := 0; n < 6; n++ {
		_, err := Decode[pair](make([]byte, n))
		assert.ErrorIs(t, err, ErrTruncatedBuffer, "length %d", n)
	}
}

func TestReaderStickyError(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	assert.Equal(t, uint16(0x0201), r.ReadUint16())
	assert.Equal(t, uint32(0), r.ReadUint32())
	assert.ErrorIs(t, r.Err(), ErrTruncatedBuffer)

	// Subsequent reads stay zero even if enough bytes would remain.
	assert.Equal(t, uint8(0), r.ReadUint8())
	assert.Equal(t, 2, r.Position())
}

func TestReaderExpect(t *testing.T) {
	r := NewReader([]byte{0x09, 0x00})
	r.ExpectUint16(9)
	require.NoError(t, r.Err())

	r = NewReader([]byte{0x08, 0x00})
	r.ExpectUint16(9)
	assert.True(t, errors.Is(r.Err(), ErrUnexpectedValue))
}

func TestReaderSeekAndBytes(t *testing.T) {
	r := NewReader([]byte("abcdef"))
	r.Seek(4)
	assert.Equal(t, []byte("ef"), r.ReadBytes(2))
	assert.Equal(t, 0, r.Remaining())
	r.Seek(7)
	assert.Error(t, r.Err())
}

func TestWriterPadAndBackpatch(t *testing.T) {
	w := NewWriter(16)
	w.WriteUint8(1)
	w.Pad(8)
	assert.Equal(t, 8, w.Len())
	w.WriteUint32(0)
	w.WriteUint32At(8, 0x11223344)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0x44, 0x33, 0x22, 0x11}, w.Bytes())
	require.NoError(t, w.Err())

	w.WriteUint16At(11, 1)
	assert.ErrorIs(t, w.Err(), ErrTruncatedBuffer)
}

func TestFlagsPreserveUnknownBits(t *testing.T) {
	type flags uint32
	const known flags = 0x1
	f := flags(0x80000001)

	assert.True(t, Has(f, known))
	assert.Equal(t, flags(0x80000000), Clear(f, known))
	assert.Equal(t, flags(0x80000003), Union(f, 0x2))
	assert.Equal(t, flags(0x1), Intersect(f, 0x3))
	assert.True(t, Any(f, 0x3))
	assert.False(t, Has(f, 0x3))
}

func TestGUIDByteOrder(t *testing.T) {
	u := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	g := GUIDFromUUID(u)
	assert.Equal(t, GUID{
		0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	}, g)
	assert.Equal(t, u.String(), g.String())
	assert.Equal(t, u, g.UUID())
	assert.False(t, NewRandomGUID().IsZero())
}

func TestUTF16(t *testing.T) {
	b := ToUTF16LE(`\\srv\share`)
	assert.Len(t, b, 22)
	assert.Equal(t, `\\srv\share`, FromUTF16LE(b))
	assert.Equal(t, "ab", FromUTF16LENull(ToUTF16LEWithNull("ab")))
	assert.Equal(t, "", FromUTF16LE([]byte{0x41}))
	assert.Equal(t, "NT LM", FromOEMNull([]byte("NT LM\x00xx")))
}

func TestOEMCodePage(t *testing.T) {
	assert.Equal(t, []byte{'c', 'a', 'f', 0x82}, ToOEM("café"))
	assert.Equal(t, "café", FromOEMNull([]byte{'c', 'a', 'f', 0x82, 0, 'x'}))
	assert.Equal(t, []byte{'a', 0x1A}, ToOEM("a€"))
}

func TestAlignAndSlice(t *testing.T) {
	assert.Equal(t, 8, Align(1, 8))
	assert.Equal(t, 8, Align(8, 8))
	assert.Equal(t, 0, Pad(16, 8))
	assert.Equal(t, 7, Pad(121, 8))

	_, err := Slice([]byte{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrTruncatedBuffer)
	_, err = Slice([]byte{1, 2, 3}, -1, 1)
	assert.ErrorIs(t, err, ErrTruncatedBuffer)
	s, err := Slice([]byte{1, 2, 3}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, s)
}
