package types

import (
	"errors"
	"testing"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

func buildIDBothDirEntry(name string, attrs FileAttributes, size uint64, id uint64) []byte {
	n := encoding.ToUTF16LE(name)
	e := make([]byte, 104+len(n))
	encoding.PutUint64LE(e[40:48], size)
	encoding.PutUint32LE(e[56:60], uint32(attrs))
	encoding.PutUint32LE(e[60:64], uint32(len(n)))
	encoding.PutUint64LE(e[96:104], id)
	copy(e[104:], n)
	for len(e)%8 != 0 {
		e = append(e, 0)
	}
	return e
}

func TestParseFileIdBothDirInfo(t *testing.T) {
	first := buildIDBothDirEntry(".", FileAttributeDirectory, 0, 1)
	encoding.PutUint32LE(first[0:4], uint32(len(first)))
	second := buildIDBothDirEntry("report.docx", FileAttributeArchive, 12345, 77)
	buf := append(first, second...)

	entries, err := ParseFileIdBothDirInfo(buf)
	if err != nil {
		t.Fatalf("ParseFileIdBothDirInfo: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].FileName != "." || !entries[0].FileAttributes.IsDir() {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].FileName != "report.docx" || entries[1].EndOfFile != 12345 || entries[1].FileID != 77 {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestParseDirInfoBadNext(t *testing.T) {
	e := buildIDBothDirEntry("x", 0, 0, 0)
	encoding.PutUint32LE(e[0:4], 8)
	if _, err := ParseFileIdBothDirInfo(e); !errors.Is(err, ErrContextChain) {
		t.Errorf("short next: %v", err)
	}

	encoding.PutUint32LE(e[0:4], 4096)
	if _, err := ParseFileIdBothDirInfo(e); !errors.Is(err, ErrContextChain) {
		t.Errorf("next past end: %v", err)
	}

	if _, err := ParseFileBothDirInfo(e[:50]); !errors.Is(err, ErrBadOffset) {
		t.Errorf("truncated entry: %v", err)
	}
}

func TestQueryDirectoryRequestPattern(t *testing.T) {
	req := NewQueryDirectoryRequest(FileID{Persistent: 1}, "*.txt", FileIdBothDirectoryInformation)
	raw := req.Marshal()
	if off := encoding.Uint16LE(raw[24:26]); off != 96 {
		t.Errorf("FileNameOffset = %d, want 96", off)
	}
	if got := encoding.FromUTF16LE(raw[32:]); got != "*.txt" {
		t.Errorf("pattern = %q", got)
	}
}

func TestFileBasicInfo(t *testing.T) {
	in := FileBasicInfo{CreationTime: 10, LastAccessTime: 20, LastWriteTime: 30, ChangeTime: 40, FileAttributes: FileAttributeHidden}
	var out FileBasicInfo
	if err := out.Unmarshal(in.Marshal()); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestSetInfoBuilders(t *testing.T) {
	if b := FileDispositionInfo(true); len(b) != 1 || b[0] != 1 {
		t.Errorf("disposition = % X", b)
	}
	if b := FileEndOfFileInfo(0x0102); encoding.Uint64LE(b) != 0x0102 {
		t.Errorf("end of file = % X", b)
	}
	b := FileRenameInfo(`new\name`, true)
	if b[0] != 1 {
		t.Error("replace flag not set")
	}
	n := encoding.Uint32LE(b[16:20])
	if got := encoding.FromUTF16LE(b[20 : 20+n]); got != `new\name` {
		t.Errorf("rename target = %q", got)
	}
}
