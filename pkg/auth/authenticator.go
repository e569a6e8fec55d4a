package auth

import (
	"encoding/asn1"
	"errors"
	"fmt"
)

// ErrUnexpectedLeg is returned when the server asks for more round trips
// than the mechanism has.
var ErrUnexpectedLeg = errors.New("unexpected authentication round trip")

// Authenticator produces the security buffers of a SESSION_SETUP exchange.
// Next is called with nil for the first leg and with the server's buffer
// for every STATUS_MORE_PROCESSING_REQUIRED reply after that.
type Authenticator interface {
	Next(serverToken []byte) ([]byte, error)
	// SessionKey is available once the exchange completes. It may be nil.
	SessionKey() []byte
	// Mechanism names the GSS mechanism in use.
	Mechanism() asn1.ObjectIdentifier
}

// NewAuthenticator picks Kerberos for KerberosProvider credentials and
// NTLMv2 otherwise. host is the server name used to build the cifs SPN.
func NewAuthenticator(creds Credentials, host string) Authenticator {
	if k, ok := creds.(KerberosProvider); ok && k.IsKerberos() {
		return &kerberosAuthenticator{creds: k, spn: "cifs/" + host}
	}
	return NewNTLMAuthenticator(creds, "WORKSTATION")
}

// NTLMAuthenticator runs NTLMSSP NEGOTIATE / CHALLENGE / AUTHENTICATE
// wrapped in SPNEGO.
type NTLMAuthenticator struct {
	creds       Credentials
	workstation string
	leg         int
	auth        *AuthenticateMessage

	// Challenge is the server's type 2 message once the second leg ran.
	Challenge *ChallengeMessage
}

// NewNTLMAuthenticator creates an NTLM authenticator for creds.
func NewNTLMAuthenticator(creds Credentials, workstation string) *NTLMAuthenticator {
	return &NTLMAuthenticator{creds: creds, workstation: workstation}
}

func (a *NTLMAuthenticator) Mechanism() asn1.ObjectIdentifier { return NTLMSSPOID }

// Next implements Authenticator.
func (a *NTLMAuthenticator) Next(serverToken []byte) ([]byte, error) {
	a.leg++
	switch a.leg {
	case 1:
		return EncodeNegTokenInit([]asn1.ObjectIdentifier{NTLMSSPOID}, NewNegotiateMessage().Marshal())
	case 2:
		raw, err := ExtractNTLMSSP(serverToken)
		if err != nil {
			return nil, err
		}
		challenge, err := ParseChallengeMessage(raw)
		if err != nil {
			return nil, fmt.Errorf("parse challenge: %w", err)
		}
		a.Challenge = challenge
		a.auth = NewAuthenticateMessage(challenge, a.options())
		return EncodeNegTokenResp(NegStateAcceptIncomplete, a.auth.Marshal())
	}
	return nil, fmt.Errorf("%w: NTLM leg %d", ErrUnexpectedLeg, a.leg)
}

func (a *NTLMAuthenticator) options() AuthenticateOptions {
	opts := AuthenticateOptions{
		Domain:      a.creds.Domain(),
		Username:    a.creds.Username(),
		Workstation: a.workstation,
	}
	switch c := a.creds.(type) {
	case *PasswordCredentials:
		opts.Password = c.Password()
	case *HashCredentials:
		opts.NTLMv2Hash = NTLMv2Hash(c.NTHash(), c.Username(), c.Domain())
	case *AnonymousCredentials:
		opts.Anonymous = true
	}
	return opts
}

// SessionKey implements Authenticator.
func (a *NTLMAuthenticator) SessionKey() []byte {
	if a.auth == nil {
		return nil
	}
	return a.auth.SessionKey()
}

// kerberosAuthenticator sends one AP-REQ and accepts an optional mutual
// authentication leg with an empty buffer.
type kerberosAuthenticator struct {
	creds KerberosProvider
	spn   string
	leg   int
}

func (a *kerberosAuthenticator) Mechanism() asn1.ObjectIdentifier { return KerberosOID }

func (a *kerberosAuthenticator) Next(serverToken []byte) ([]byte, error) {
	a.leg++
	switch a.leg {
	case 1:
		return a.creds.GetSPNEGOToken(a.spn)
	case 2:
		if resp, err := DecodeNegTokenResp(serverToken); err == nil && resp.NegState == NegStateReject {
			return nil, errors.New("server rejected kerberos ticket")
		}
		return nil, nil
	}
	return nil, fmt.Errorf("%w: kerberos leg %d", ErrUnexpectedLeg, a.leg)
}

func (a *kerberosAuthenticator) SessionKey() []byte { return nil }
