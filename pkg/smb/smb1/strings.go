package smb1

import (
	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// appendString appends s null-terminated, as UTF-16LE when unicode is set
// and in the OEM code page otherwise.
// abs is the message-relative offset where the string would start; Unicode
// strings are aligned to 2 bytes from the header start.
func appendString(dst []byte, abs int, s string, unicode bool) []byte {
	if !unicode {
		return append(append(dst, encoding.ToOEM(s)...), 0)
	}
	if abs%2 != 0 {
		dst = append(dst, 0)
	}
	return append(dst, encoding.ToUTF16LEWithNull(s)...)
}

// readString reads one null-terminated string from data[pos:], where data
// starts at message offset base. It returns the string and the position
// after the terminator. Unterminated strings run to the end of data.
func readString(data []byte, pos, base int, unicode bool) (string, int) {
	if pos >= len(data) {
		return "", len(data)
	}
	if !unicode {
		for i := pos; i < len(data); i++ {
			if data[i] == 0 {
				return encoding.FromOEM(data[pos:i]), i + 1
			}
		}
		return encoding.FromOEM(data[pos:]), len(data)
	}

	if (base+pos)%2 != 0 {
		pos++
	}
	for i := pos; i+1 < len(data); i += 2 {
		if data[i] == 0 && data[i+1] == 0 {
			return encoding.FromUTF16LE(data[pos:i]), i + 2
		}
	}
	if pos > len(data) {
		return "", len(data)
	}
	end := pos + (len(data)-pos)&^1
	return encoding.FromUTF16LE(data[pos:end]), len(data)
}
