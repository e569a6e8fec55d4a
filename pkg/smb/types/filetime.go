package types

import "time"

// Filetime is a Windows FILETIME: 100-nanosecond intervals since
// 1601-01-01 UTC.
type Filetime uint64

// filetimeUnixOffset is the number of 100ns ticks between 1601-01-01 and 1970-01-01.
const filetimeUnixOffset = 116444736000000000

// Time converts to time.Time in UTC. Zero stays the zero time.
func (f Filetime) Time() time.Time {
	return FiletimeToTime(uint64(f))
}

// IsZero reports whether the field was left unset.
func (f Filetime) IsZero() bool {
	return f == 0
}

func (f Filetime) String() string {
	if f == 0 {
		return "-"
	}
	return f.Time().Format(time.RFC3339Nano)
}

// NewFiletime converts t to a Filetime.
func NewFiletime(t time.Time) Filetime {
	return Filetime(TimeToFiletime(t))
}

// FiletimeToTime converts a raw FILETIME value to time.Time (UTC).
func FiletimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	ticks := int64(ft - filetimeUnixOffset)
	if ft < filetimeUnixOffset {
		ticks = -int64(filetimeUnixOffset - ft)
	}
	return time.Unix(ticks/10000000, (ticks%10000000)*100).UTC()
}

// TimeToFiletime converts t to a raw FILETIME value. Precision below 100ns
// is truncated; the zero time maps to 0.
func TimeToFiletime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	sec := t.Unix()
	ticks := sec*10000000 + int64(t.Nanosecond())/100
	return uint64(ticks + filetimeUnixOffset)
}
