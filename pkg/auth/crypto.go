package auth

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/ineffectivecoder/smbwire/internal/crypto"
	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

func randomBytes(b []byte) {
	rand.Read(b)
}

// NTHash computes NTOWFv1: MD4(UTF-16LE(password)).
func NTHash(password string) []byte {
	return crypto.MD4(encoding.ToUTF16LE(password))
}

// NTLMv2Hash computes NTOWFv2: HMAC-MD5(NT hash, UPPER(user) + domain).
func NTLMv2Hash(ntHash []byte, username, domain string) []byte {
	return crypto.HMACMD5(ntHash, encoding.ToUTF16LE(strings.ToUpper(username)+domain))
}

// NTLMv2Response computes the NT challenge response and the session base key.
// A missing timestamp is replaced by the current time.
func NTLMv2Response(ntlmv2Hash, serverChallenge, clientChallenge, timestamp, targetInfo []byte) (response, sessionBaseKey []byte) {
	blob := ntlmv2Blob(clientChallenge, timestamp, targetInfo)
	proof := crypto.HMACMD5(ntlmv2Hash, serverChallenge, blob)
	response = append(proof, blob...)
	sessionBaseKey = crypto.HMACMD5(ntlmv2Hash, proof)
	return response, sessionBaseKey
}

// ntlmv2Blob builds the NTLMv2_CLIENT_CHALLENGE structure.
func ntlmv2Blob(clientChallenge, timestamp, targetInfo []byte) []byte {
	w := encoding.NewWriter(32 + len(targetInfo))
	w.WriteUint8(1) // RespType
	w.WriteUint8(1) // HiRespType
	w.WriteZeros(6)
	if len(timestamp) == 8 {
		w.WriteBytes(timestamp)
	} else {
		w.WriteUint64(uint64(types.NewFiletime(time.Now())))
	}
	w.WriteBytes(clientChallenge)
	w.WriteZeros(4)
	w.WriteBytes(targetInfo)
	w.WriteZeros(4)
	return w.Bytes()
}

// GenerateClientChallenge generates a random 8-byte client challenge
func GenerateClientChallenge() []byte {
	challenge := make([]byte, 8)
	randomBytes(challenge)
	return challenge
}

// LMv2Response computes HMAC-MD5(hash, server || client) || client.
func LMv2Response(ntlmv2Hash, serverChallenge, clientChallenge []byte) []byte {
	resp := crypto.HMACMD5(ntlmv2Hash, serverChallenge, clientChallenge)
	return append(resp, clientChallenge...)
}
