package auth

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineffectivecoder/smbwire/internal/crypto"
	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// Values from MS-NLMP 4.2.1 and 4.2.4.1.1.
func TestNTHash(t *testing.T) {
	assert.Equal(t, mustHex(t, "a4f49c406510bdcab6824ee7c30fd852"), NTHash("Password"))
}

func TestNTLMv2Hash(t *testing.T) {
	got := NTLMv2Hash(NTHash("Password"), "User", "Domain")
	assert.Equal(t, mustHex(t, "0c868a403bfd7a93a3001ef22ef02e3f"), got)
}

func sampleChallenge() *ChallengeMessage {
	info := MarshalAvPairs([]AvPair{
		{AvID: MsvAvNbDomainName, Value: encoding.ToUTF16LE("DOMAIN")},
		{AvID: MsvAvNbComputerName, Value: encoding.ToUTF16LE("SERVER")},
		{AvID: MsvAvTimestamp, Value: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	})
	return &ChallengeMessage{
		NegotiateFlags:  DefaultNegotiateFlags,
		ServerChallenge: [8]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef},
		TargetName:      encoding.ToUTF16LE("DOMAIN"),
		TargetInfo:      info,
		Version:         DefaultVersion(),
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	in := sampleChallenge()
	out, err := ParseChallengeMessage(in.Marshal())
	require.NoError(t, err)

	assert.Equal(t, in.NegotiateFlags, out.NegotiateFlags)
	assert.Equal(t, in.ServerChallenge, out.ServerChallenge)
	assert.Equal(t, "DOMAIN", out.TargetNameString())
	assert.Equal(t, in.TargetInfo, out.TargetInfo)
	assert.Equal(t, in.Version, out.Version)
	require.Len(t, out.AvPairs, 3)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out.Timestamp())
	assert.Equal(t, "SERVER", encoding.FromUTF16LE(FindAvPair(out.AvPairs, MsvAvNbComputerName).Value))
	assert.Nil(t, FindAvPair(out.AvPairs, MsvAvDnsTreeName))
}

func TestParseChallengeErrors(t *testing.T) {
	good := sampleChallenge().Marshal()

	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short", good[:20]},
		{"bad signature", append([]byte("NTLMSSX\x00"), good[8:]...)},
		{"wrong type", func() []byte {
			b := append([]byte(nil), good...)
			encoding.PutUint32LE(b[8:12], NtLmAuthenticate)
			return b
		}()},
		{"target info out of bounds", func() []byte {
			b := append([]byte(nil), good...)
			encoding.PutUint32LE(b[44:48], uint32(len(b)))
			return b
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChallengeMessage(tt.buf)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadNTLMMessage), "got %v", err)
		})
	}
}

func TestNegotiateMessageRoundTrip(t *testing.T) {
	in := NewNegotiateMessage()
	in.Domain = "CORP"
	in.Workstation = "WS01"

	var out NegotiateMessage
	require.NoError(t, out.Unmarshal(in.Marshal()))
	assert.Equal(t, "CORP", out.Domain)
	assert.Equal(t, "WS01", out.Workstation)
	assert.True(t, encoding.Has(out.NegotiateFlags, NtlmsspNegotiateOEMDomainSupplied))
	assert.Equal(t, DefaultVersion(), out.Version)
}

func TestAuthenticateMessage(t *testing.T) {
	challenge := sampleChallenge()
	hash := NTLMv2Hash(NTHash("Password"), "User", "Domain")
	msg := NewAuthenticateMessage(challenge, AuthenticateOptions{
		Domain:      "Domain",
		Username:    "User",
		Workstation: "COMPUTER",
		NTLMv2Hash:  hash,
	})

	var out AuthenticateMessage
	require.NoError(t, out.Unmarshal(msg.Marshal()))
	assert.Equal(t, "Domain", out.DomainName)
	assert.Equal(t, "User", out.UserName)
	assert.Equal(t, "COMPUTER", out.Workstation)
	assert.Equal(t, msg.NtChallengeResponse, out.NtChallengeResponse)
	assert.Len(t, out.LmChallengeResponse, 24)

	// NTProofStr is HMAC-MD5 over the server challenge and the blob.
	proof, blob := out.NtChallengeResponse[:16], out.NtChallengeResponse[16:]
	assert.Equal(t, crypto.HMACMD5(hash, challenge.ServerChallenge[:], blob), proof)
	assert.Equal(t, challenge.Timestamp(), blob[8:16])

	// With KEY_EXCH the exported key travels RC4-encrypted under the base key.
	require.Len(t, out.EncryptedRandomSessionKey, 16)
	baseKey := crypto.HMACMD5(hash, proof)
	assert.Equal(t, msg.SessionKey(), crypto.RC4(baseKey, out.EncryptedRandomSessionKey))
}

func TestAuthenticateAnonymous(t *testing.T) {
	msg := NewAuthenticateMessage(sampleChallenge(), AuthenticateOptions{Anonymous: true, Username: "ignored"})

	var out AuthenticateMessage
	require.NoError(t, out.Unmarshal(msg.Marshal()))
	assert.Equal(t, []byte{0}, out.LmChallengeResponse)
	assert.Empty(t, out.NtChallengeResponse)
	assert.Empty(t, out.UserName)
	assert.True(t, encoding.Has(out.NegotiateFlags, NtlmsspNegotiateAnonymous))
	assert.Nil(t, msg.SessionKey())
}

func TestAvPairsTruncated(t *testing.T) {
	b := MarshalAvPairs([]AvPair{{AvID: MsvAvNbDomainName, Value: []byte{1, 2}}})
	pairs := ParseAvPairs(b[:5])
	assert.Empty(t, pairs)
	assert.Len(t, ParseAvPairs(b), 1)
}
