package encoding

import (
	"errors"
	"fmt"
)

// ErrUnexpectedValue is returned by ExpectUint16 when the field holds a
// different value.
var ErrUnexpectedValue = errors.New("unexpected field value")

// Reader walks a byte slice reading little-endian fields. The first failure
// sticks: later reads return zero values and Err reports the original error.
type Reader struct {
	buf []byte
	pos int
	err error
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncatedBuffer, n, r.pos, len(r.buf)-r.pos)
		return false
	}
	return true
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := Uint16LE(r.buf[r.pos:])
	r.pos += 2
	return v
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := Uint32LE(r.buf[r.pos:])
	r.pos += 4
	return v
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := Uint64LE(r.buf[r.pos:])
	r.pos += 8
	return v
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out
}

// ReadInto fills dst from the next len(dst) bytes.
func (r *Reader) ReadInto(dst []byte) {
	if !r.need(len(dst)) {
		return
	}
	copy(dst, r.buf[r.pos:])
	r.pos += len(dst)
}

// ReadGUID reads 16 opaque bytes.
func (r *Reader) ReadGUID() GUID {
	var g GUID
	r.ReadInto(g[:])
	return g
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) {
	if r.need(n) {
		r.pos += n
	}
}

// Seek moves to an absolute offset within the buffer.
func (r *Reader) Seek(off int) {
	if r.err != nil {
		return
	}
	if off < 0 || off > len(r.buf) {
		r.err = fmt.Errorf("%w: seek to %d in %d bytes", ErrTruncatedBuffer, off, len(r.buf))
		return
	}
	r.pos = off
}

// ExpectUint16 reads a uint16 and records an error if it is not want.
func (r *Reader) ExpectUint16(want uint16) {
	got := r.ReadUint16()
	if r.err == nil && got != want {
		r.err = fmt.Errorf("%w: got %d, want %d at offset %d", ErrUnexpectedValue, got, want, r.pos-2)
	}
}

// Position returns the current offset.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}
