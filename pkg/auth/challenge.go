package auth

import (
	"fmt"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// ChallengeMessage is the NTLMSSP CHALLENGE_MESSAGE (type 2).
type ChallengeMessage struct {
	NegotiateFlags  uint32
	ServerChallenge [8]byte
	TargetName      []byte // UTF-16LE
	TargetInfo      []byte
	AvPairs         []AvPair // parsed from TargetInfo
	Version         Version
}

// ParseChallengeMessage parses a type 2 message. Descriptors pointing
// outside data are errors.
func ParseChallengeMessage(data []byte) (*ChallengeMessage, error) {
	r := encoding.NewReader(data)
	if err := readHeader(r, NtLmChallenge); err != nil {
		return nil, err
	}

	m := &ChallengeMessage{}
	targetName, err := readField(r, data, "target name")
	if err != nil {
		return nil, err
	}
	m.NegotiateFlags = r.ReadUint32()
	r.ReadInto(m.ServerChallenge[:])
	r.Skip(8) // Reserved
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadNTLMMessage, err)
	}
	m.TargetName = targetName

	// Early servers stop at the challenge; TargetInfo and Version are optional.
	if r.Remaining() >= 8 {
		if m.TargetInfo, err = readField(r, data, "target info"); err != nil {
			return nil, err
		}
		m.AvPairs = ParseAvPairs(m.TargetInfo)
	}
	if encoding.Has(m.NegotiateFlags, NtlmsspNegotiateVersion) && r.Remaining() >= 8 {
		m.Version = readVersion(r)
	}
	return m, nil
}

// Marshal serializes the type 2 message.
func (m *ChallengeMessage) Marshal() []byte {
	w := encoding.NewWriter(56 + len(m.TargetName) + len(m.TargetInfo))
	w.WriteBytes(ntlmSignature[:])
	w.WriteUint32(NtLmChallenge)
	var p payload
	p.reserve(w, m.TargetName)
	w.WriteUint32(m.NegotiateFlags)
	w.WriteBytes(m.ServerChallenge[:])
	w.WriteZeros(8)
	p.reserve(w, m.TargetInfo)
	m.Version.write(w)
	p.flush(w)
	return w.Bytes()
}

// Timestamp returns the server's MsvAvTimestamp, or nil.
func (m *ChallengeMessage) Timestamp() []byte {
	if pair := FindAvPair(m.AvPairs, MsvAvTimestamp); pair != nil && len(pair.Value) == 8 {
		return pair.Value
	}
	return nil
}

// TargetNameString returns the target name as a Go string.
func (m *ChallengeMessage) TargetNameString() string {
	return encoding.FromUTF16LE(m.TargetName)
}
