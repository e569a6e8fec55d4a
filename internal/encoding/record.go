package encoding

import (
	"errors"
	"fmt"
)

// ErrTruncatedBuffer is returned when a buffer is shorter than the record
// being decoded from it.
var ErrTruncatedBuffer = errors.New("truncated buffer")

func truncated(need, have int) error {
	return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedBuffer, need, have)
}

// Record is a fixed-layout wire structure. Size reports the minimum number of
// bytes Unmarshal needs; for records with a variable trailing section it is
// the size of the fixed part.
type Record interface {
	Size() int
	Marshal() []byte
	Unmarshal(buf []byte) error
}

// Encode serializes r.
func Encode(r Record) []byte {
	return r.Marshal()
}

// Decode unmarshals buf into a new T. It fails with ErrTruncatedBuffer before
// touching buf if buf is shorter than T's declared size.
func Decode[T any, P interface {
	*T
	Record
}](buf []byte) (*T, error) {
	v := P(new(T))
	if len(buf) < v.Size() {
		return nil, truncated(v.Size(), len(buf))
	}
	if err := v.Unmarshal(buf); err != nil {
		return nil, err
	}
	return (*T)(v), nil
}

// Need returns ErrTruncatedBuffer if buf holds fewer than n bytes.
func Need(buf []byte, n int) error {
	if len(buf) < n {
		return truncated(n, len(buf))
	}
	return nil
}
