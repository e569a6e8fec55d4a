package smb1

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

func TestDecodeSingleBlock(t *testing.T) {
	h := NewHeader(CommandEcho, 3)
	buf := h.Marshal()
	buf = append(buf, 2, 0x34, 0x12, 0xCD, 0xAB) // wc=2, two words
	buf = append(buf, 5, 0)                      // byte count
	buf = append(buf, 'h', 'e', 'l', 'l', 'o')

	m, err := DecodeMessage(buf)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if len(m.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(m.Blocks))
	}
	b := m.Blocks[0]
	if !reflect.DeepEqual(b.Params, []uint16{0x1234, 0xABCD}) {
		t.Errorf("params = %#v", b.Params)
	}
	if string(b.Data) != "hello" {
		t.Errorf("data = %q", b.Data)
	}
	if !bytes.Equal(m.Marshal(), buf) {
		t.Error("re-encoding differs from input")
	}
}

func TestDecodeMultipleBlocks(t *testing.T) {
	in := &Message{
		Header: *NewHeader(CommandTrans, 1),
		Blocks: []Block{
			{Params: []uint16{1}},
			{Data: []byte{9, 8, 7}},
			{},
		},
	}
	got, err := DecodeMessage(in.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Blocks, in.Blocks) {
		t.Errorf("blocks = %#v, want %#v", got.Blocks, in.Blocks)
	}
	if off := got.DataOffset(1); off != HeaderSize+5+1+2 {
		t.Errorf("DataOffset(1) = %d", off)
	}
}

func TestDecodeHeaderOnly(t *testing.T) {
	m, err := DecodeMessage(NewHeader(CommandEcho, 1).Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Blocks) != 0 {
		t.Errorf("got %d blocks", len(m.Blocks))
	}
	if _, err := m.First(); !errors.Is(err, ErrIncorrectMessageLength) {
		t.Errorf("First on empty message: %v", err)
	}
}

func TestDecodeBlockErrors(t *testing.T) {
	hdr := NewHeader(CommandEcho, 1).Marshal()
	tests := []struct {
		name string
		tail []byte
		want error
	}{
		{"params past end", []byte{3, 0, 0}, ErrIncorrectParamsLength},
		{"missing byte count", []byte{1, 0, 0}, ErrIncorrectMessageLength},
		{"half byte count", []byte{0, 5}, ErrIncorrectMessageLength},
		{"data past end", []byte{0, 4, 0, 1, 2}, ErrIncorrectMessageLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage(append(append([]byte(nil), hdr...), tt.tail...))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := DecodeMessage(hdr[:20]); !errors.Is(err, encoding.ErrTruncatedBuffer) {
		t.Errorf("short header: %v", err)
	}
	bad := append([]byte(nil), hdr...)
	bad[0] = 0xFE
	if _, err := DecodeMessage(bad); !errors.Is(err, ErrInvalidProtocolID) {
		t.Errorf("bad magic: %v", err)
	}
}

func TestHeaderStatusViews(t *testing.T) {
	h := NewHeader(CommandNegotiate, 1)
	h.SetNTStatus(types.StatusAccessDenied)
	if !h.UsesNTStatus() || h.NTStatus() != types.StatusAccessDenied {
		t.Errorf("NT status = %v", h.NTStatus())
	}
	if h.IsSuccess() {
		t.Error("ACCESS_DENIED reported as success")
	}

	h.SetDOSError(ErrClassDOS, 5)
	if h.UsesNTStatus() {
		t.Error("DOS error left NT status flag set")
	}
	class, code := h.DOSError()
	if class != ErrClassDOS || code != 5 {
		t.Errorf("DOSError = %d/%d", class, code)
	}

	buf := h.Marshal()
	if buf[5] != ErrClassDOS || buf[6] != 0 || encoding.Uint16LE(buf[7:9]) != 5 {
		t.Errorf("status bytes = % X", buf[5:9])
	}

	var back Header
	if err := back.Unmarshal(buf); err != nil {
		t.Fatal(err)
	}
	if c, k := back.DOSError(); c != ErrClassDOS || k != 5 {
		t.Errorf("decoded DOSError = %d/%d", c, k)
	}

	var re *ResponseError
	if err := back.Err(); !errors.As(err, &re) || re.NT || re.Code != 5 {
		t.Errorf("Err() = %v", err)
	}
}

func TestHeaderPID(t *testing.T) {
	h := NewHeader(CommandClose, 1)
	h.SetPID(0x0001FFFE)
	if h.PIDHigh != 0x0001 || h.PIDLow != 0xFFFE {
		t.Errorf("split = %04x/%04x", h.PIDHigh, h.PIDLow)
	}
	if h.PID() != 0x0001FFFE {
		t.Errorf("PID() = %x", h.PID())
	}
}

func TestCommandString(t *testing.T) {
	if CommandNegotiate.String() != "SMB_COM_NEGOTIATE" {
		t.Errorf("got %s", CommandNegotiate)
	}
	if Command(0x60).Valid() {
		t.Error("0x60 reported valid")
	}
	if Command(0x60).String() != "SMB_COM(0x60)" {
		t.Errorf("got %s", Command(0x60))
	}
}
