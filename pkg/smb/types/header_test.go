package types

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

func TestHeaderMarshalUnmarshal(t *testing.T) {
	h := NewHeader(CommandCreate, 42)
	h.SessionID = 0x1122334455667788
	h.TreeID = 7
	h.Flags = FlagsServerToRedir | FlagsReplayOperation
	h.Status = StatusAccessDenied

	buf := h.Marshal()
	if len(buf) != SMB2HeaderSize {
		t.Fatalf("header length = %d, want %d", len(buf), SMB2HeaderSize)
	}
	if !bytes.Equal(buf[0:4], []byte{0xFE, 'S', 'M', 'B'}) {
		t.Errorf("magic = % X", buf[0:4])
	}

	var got Header
	if err := got.Unmarshal(buf); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != *h {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, *h)
	}
	if !got.IsResponse() || got.IsAsync() {
		t.Errorf("flag accessors wrong for %v", got.Flags)
	}
}

func TestHeaderAsyncID(t *testing.T) {
	h := NewHeader(CommandChangeNotify, 9)
	h.SetAsyncID(0xAABBCCDD00112233)

	if !h.IsAsync() {
		t.Fatal("SetAsyncID did not set the async flag")
	}
	if h.Reserved != 0x00112233 || h.TreeID != 0xAABBCCDD {
		t.Errorf("split = %08x/%08x", h.Reserved, h.TreeID)
	}

	var got Header
	if err := got.Unmarshal(h.Marshal()); err != nil {
		t.Fatal(err)
	}
	if got.AsyncID() != 0xAABBCCDD00112233 {
		t.Errorf("AsyncID = %x", got.AsyncID())
	}
	// Wire order: Reserved (low half) at 32, TreeID (high half) at 36.
	raw := h.Marshal()
	if encoding.Uint64LE(raw[32:40]) != 0xAABBCCDD00112233 {
		t.Errorf("async id bytes = % X", raw[32:40])
	}
}

func TestHeaderRejectsBadInput(t *testing.T) {
	var h Header
	if err := h.Unmarshal(make([]byte, 63)); !errors.Is(err, encoding.ErrTruncatedBuffer) {
		t.Errorf("short header: got %v", err)
	}

	buf := NewHeader(CommandEcho, 1).Marshal()
	buf[0] = 0x00
	if err := h.Unmarshal(buf); !errors.Is(err, ErrInvalidProtocolID) {
		t.Errorf("bad magic: got %v", err)
	}

	buf = NewHeader(CommandEcho, 1).Marshal()
	buf[4] = 63
	if err := h.Unmarshal(buf); !errors.Is(err, ErrStructureSize) {
		t.Errorf("bad structure size: got %v", err)
	}
}

func TestCommandString(t *testing.T) {
	if CommandQueryDirectory.String() != "QUERY_DIRECTORY" {
		t.Errorf("got %s", CommandQueryDirectory)
	}
	if Command(0x99).Valid() {
		t.Error("0x99 reported valid")
	}
	if Command(0x99).String() != "Command(0x0099)" {
		t.Errorf("got %s", Command(0x99))
	}
}
