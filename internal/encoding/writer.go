package encoding

import "fmt"

// Writer builds a little-endian byte sequence. Backpatching writes that fall
// outside the written region are recorded in Err.
type Writer struct {
	buf []byte
	err error
}

// NewWriter returns a Writer with capacity for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// WriteUint8 appends one byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a little-endian uint16.
func (w *Writer) WriteUint16(v uint16) {
	w.buf = AppendUint16LE(w.buf, v)
}

// WriteUint32 appends a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	w.buf = AppendUint32LE(w.buf, v)
}

// WriteUint64 appends a little-endian uint64.
func (w *Writer) WriteUint64(v uint64) {
	w.buf = AppendUint64LE(w.buf, v)
}

// WriteBytes appends b unchanged.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteGUID appends 16 opaque bytes.
func (w *Writer) WriteGUID(g GUID) {
	w.buf = append(w.buf, g[:]...)
}

// WriteZeros appends n zero bytes.
func (w *Writer) WriteZeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// Pad appends zero bytes until Len is a multiple of align.
func (w *Writer) Pad(align int) {
	w.WriteZeros(Pad(len(w.buf), align))
}

// WriteUint16At overwrites two bytes at off.
func (w *Writer) WriteUint16At(off int, v uint16) {
	if off < 0 || off+2 > len(w.buf) {
		w.setErr(off, 2)
		return
	}
	PutUint16LE(w.buf[off:], v)
}

// WriteUint32At overwrites four bytes at off.
func (w *Writer) WriteUint32At(off int, v uint32) {
	if off < 0 || off+4 > len(w.buf) {
		w.setErr(off, 4)
		return
	}
	PutUint32LE(w.buf[off:], v)
}

func (w *Writer) setErr(off, n int) {
	if w.err == nil {
		w.err = fmt.Errorf("%w: backpatch %d bytes at %d, length %d", ErrTruncatedBuffer, n, off, len(w.buf))
	}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Err returns the first backpatch error.
func (w *Writer) Err() error {
	return w.err
}
