package auth

import (
	"github.com/ineffectivecoder/smbwire/internal/crypto"
	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// AuthenticateMessage is the NTLMSSP AUTHENTICATE_MESSAGE (type 3).
type AuthenticateMessage struct {
	NegotiateFlags            uint32
	LmChallengeResponse       []byte
	NtChallengeResponse       []byte
	DomainName                string
	UserName                  string
	Workstation               string
	EncryptedRandomSessionKey []byte
	Version                   Version
	MIC                       [16]byte

	sessionKey []byte
}

// AuthenticateOptions configures Type 3 message generation
type AuthenticateOptions struct {
	Domain      string
	Username    string
	Workstation string
	NTLMv2Hash  []byte // takes precedence over Password
	Password    string
	Anonymous   bool
}

// NewAuthenticateMessage answers challenge with an NTLMv2 response.
func NewAuthenticateMessage(challenge *ChallengeMessage, opts AuthenticateOptions) *AuthenticateMessage {
	m := &AuthenticateMessage{
		NegotiateFlags: challenge.NegotiateFlags,
		DomainName:     opts.Domain,
		UserName:       opts.Username,
		Workstation:    opts.Workstation,
		Version:        DefaultVersion(),
	}

	if opts.Anonymous {
		m.NegotiateFlags |= NtlmsspNegotiateAnonymous
		m.LmChallengeResponse = []byte{0}
		m.DomainName, m.UserName = "", ""
		return m
	}

	hash := opts.NTLMv2Hash
	if len(hash) == 0 {
		hash = NTLMv2Hash(NTHash(opts.Password), opts.Username, opts.Domain)
	}

	clientChallenge := GenerateClientChallenge()
	var baseKey []byte
	m.NtChallengeResponse, baseKey = NTLMv2Response(
		hash,
		challenge.ServerChallenge[:],
		clientChallenge,
		challenge.Timestamp(),
		challenge.TargetInfo,
	)
	m.LmChallengeResponse = LMv2Response(hash, challenge.ServerChallenge[:], clientChallenge)

	m.sessionKey = baseKey
	if encoding.Has(m.NegotiateFlags, NtlmsspNegotiateKeyExchange) {
		exported := make([]byte, 16)
		randomBytes(exported)
		m.EncryptedRandomSessionKey = crypto.RC4(baseKey, exported)
		m.sessionKey = exported
	}
	return m
}

// SessionKey returns the exported session key, or nil for anonymous logons.
func (m *AuthenticateMessage) SessionKey() []byte {
	return m.sessionKey
}

// Marshal serializes the type 3 message with its 16-byte MIC field.
func (m *AuthenticateMessage) Marshal() []byte {
	w := encoding.NewWriter(88 + len(m.NtChallengeResponse) + 128)
	w.WriteBytes(ntlmSignature[:])
	w.WriteUint32(NtLmAuthenticate)

	var p payload
	p.reserve(w, m.LmChallengeResponse)
	p.reserve(w, m.NtChallengeResponse)
	p.reserve(w, encoding.ToUTF16LE(m.DomainName))
	p.reserve(w, encoding.ToUTF16LE(m.UserName))
	p.reserve(w, encoding.ToUTF16LE(m.Workstation))
	p.reserve(w, m.EncryptedRandomSessionKey)
	w.WriteUint32(m.NegotiateFlags)
	m.Version.write(w)
	w.WriteBytes(m.MIC[:])
	p.flush(w)
	return w.Bytes()
}

// Unmarshal parses a type 3 message. Servers use it; the client side uses
// it in tests.
func (m *AuthenticateMessage) Unmarshal(buf []byte) error {
	r := encoding.NewReader(buf)
	if err := readHeader(r, NtLmAuthenticate); err != nil {
		return err
	}
	var err error
	if m.LmChallengeResponse, err = readField(r, buf, "LM response"); err != nil {
		return err
	}
	if m.NtChallengeResponse, err = readField(r, buf, "NT response"); err != nil {
		return err
	}
	var domain, user, ws []byte
	if domain, err = readField(r, buf, "domain"); err != nil {
		return err
	}
	if user, err = readField(r, buf, "user"); err != nil {
		return err
	}
	if ws, err = readField(r, buf, "workstation"); err != nil {
		return err
	}
	if m.EncryptedRandomSessionKey, err = readField(r, buf, "session key"); err != nil {
		return err
	}
	m.NegotiateFlags = r.ReadUint32()
	m.Version = readVersion(r)
	r.ReadInto(m.MIC[:])
	if err := r.Err(); err != nil {
		return err
	}
	m.DomainName = encoding.FromUTF16LE(domain)
	m.UserName = encoding.FromUTF16LE(user)
	m.Workstation = encoding.FromUTF16LE(ws)
	return nil
}
