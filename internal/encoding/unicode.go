package encoding

import (
	"unicode/utf16"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// oem is the code page assumed for SMB1 and NTLM OEM strings.
var oem = charmap.CodePage437

// ToUTF16LE converts a Go string to UTF-16LE encoded bytes.
// SMB2 carries every path, share name and context name this way.
func ToUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))

	b := make([]byte, len(units)*2)
	for i, u := range units {
		PutUint16LE(b[i*2:], u)
	}
	return b
}

// FromUTF16LE converts UTF-16LE encoded bytes to a Go string.
// A trailing odd byte is ignored.
func FromUTF16LE(b []byte) string {
	if len(b) < 2 {
		return ""
	}

	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = Uint16LE(b[i*2:])
	}
	return string(utf16.Decode(units))
}

// ToUTF16LEWithNull converts a string to UTF-16LE with a null terminator.
func ToUTF16LEWithNull(s string) []byte {
	return append(ToUTF16LE(s), 0, 0)
}

// FromUTF16LENull decodes UTF-16LE up to the first null code unit.
func FromUTF16LENull(b []byte) string {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return FromUTF16LE(b[:i])
		}
	}
	return FromUTF16LE(b)
}

// ToOEM encodes s in the OEM code page. Characters the code page cannot
// represent become its substitute byte 0x1A.
func ToOEM(s string) []byte {
	b, err := xencoding.ReplaceUnsupported(oem.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}

// FromOEM decodes an OEM code page string. Every byte maps to a rune, so
// this never fails.
func FromOEM(b []byte) string {
	s, err := oem.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// FromOEMNull decodes a null-terminated OEM string, as used by SMB1 when
// the unicode flag is clear.
func FromOEMNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return FromOEM(b[:i])
		}
	}
	return FromOEM(b)
}
