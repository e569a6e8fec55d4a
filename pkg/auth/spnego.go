package auth

import (
	"bytes"
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/geoffgarside/ber"
)

// Mechanism OIDs
var (
	SpnegoOID     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 2}
	NTLMSSPOID    = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 2, 10}
	KerberosOID   = asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 2}
	MSKerberosOID = asn1.ObjectIdentifier{1, 2, 840, 48018, 1, 2, 2}
)

// NegState values of a NegTokenResp
const (
	NegStateAcceptCompleted  asn1.Enumerated = 0
	NegStateAcceptIncomplete asn1.Enumerated = 1
	NegStateReject           asn1.Enumerated = 2
	NegStateRequestMIC       asn1.Enumerated = 3
)

// ErrNoMechToken is returned when a security blob carries no NTLMSSP token.
var ErrNoMechToken = errors.New("no mechanism token in security blob")

// NegTokenInit is the initiator's first SPNEGO token. Servers send the
// same shape in the NEGOTIATE response, with hints in place of a token.
type NegTokenInit struct {
	MechTypes   []asn1.ObjectIdentifier `asn1:"explicit,optional,tag:0"`
	ReqFlags    asn1.BitString          `asn1:"explicit,optional,tag:1"`
	MechToken   []byte                  `asn1:"explicit,optional,tag:2"`
	MechListMIC []byte                  `asn1:"explicit,optional,tag:3"`
}

// negTokenInit2 is the server variant with NegHints at tag 3.
type negTokenInit2 struct {
	MechTypes   []asn1.ObjectIdentifier `asn1:"explicit,optional,tag:0"`
	ReqFlags    asn1.BitString          `asn1:"explicit,optional,tag:1"`
	MechToken   []byte                  `asn1:"explicit,optional,tag:2"`
	NegHints    asn1.RawValue           `asn1:"explicit,optional,tag:3"`
	MechListMIC []byte                  `asn1:"explicit,optional,tag:4"`
}

// NegTokenResp carries every later SPNEGO leg.
type NegTokenResp struct {
	NegState      asn1.Enumerated       `asn1:"optional,explicit,tag:0"`
	SupportedMech asn1.ObjectIdentifier `asn1:"optional,explicit,tag:1"`
	ResponseToken []byte                `asn1:"optional,explicit,tag:2"`
	MechListMIC   []byte                `asn1:"optional,explicit,tag:3"`
}

// The [0] and [1] choices are one-element slices with an implicit context
// tag, which encodes the same bytes as an explicit tag on the struct.
type initialContextToken struct {
	ThisMech asn1.ObjectIdentifier `asn1:"optional"`
	Init     []NegTokenInit        `asn1:"optional,tag:0"`
	Resp     []NegTokenResp        `asn1:"optional,tag:1"`
}

type initialContextToken2 struct {
	ThisMech asn1.ObjectIdentifier `asn1:"optional"`
	Init2    []negTokenInit2       `asn1:"optional,tag:0"`
}

// EncodeNegTokenInit wraps token in a GSS-API InitialContextToken offering mechs.
func EncodeNegTokenInit(mechs []asn1.ObjectIdentifier, token []byte) ([]byte, error) {
	bs, err := asn1.Marshal(initialContextToken{
		ThisMech: SpnegoOID,
		Init:     []NegTokenInit{{MechTypes: mechs, MechToken: token}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode NegTokenInit: %w", err)
	}
	bs[0] = 0x60 // [APPLICATION 0]
	return bs, nil
}

// EncodeNegTokenResp builds a bare [1] NegTokenResp.
func EncodeNegTokenResp(state asn1.Enumerated, token []byte) ([]byte, error) {
	inner, err := asn1.Marshal(NegTokenResp{NegState: state, ResponseToken: token})
	if err != nil {
		return nil, fmt.Errorf("encode NegTokenResp: %w", err)
	}
	bs, err := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        1,
		IsCompound: true,
		Bytes:      inner,
	})
	if err != nil {
		return nil, fmt.Errorf("encode NegTokenResp: %w", err)
	}
	return bs, nil
}

// DecodeNegTokenInit decodes an InitialContextToken such as the blob in a
// NEGOTIATE response. Servers use BER, so the lenient decoder is used.
func DecodeNegTokenInit(bs []byte) (*NegTokenInit, error) {
	var tok initialContextToken2
	if _, err := ber.UnmarshalWithParams(bs, &tok, "application,tag:0"); err != nil {
		return nil, fmt.Errorf("decode NegTokenInit: %w", err)
	}
	if !tok.ThisMech.Equal(SpnegoOID) || len(tok.Init2) == 0 {
		return nil, fmt.Errorf("decode NegTokenInit: not an SPNEGO init token")
	}
	in := tok.Init2[0]
	return &NegTokenInit{
		MechTypes:   in.MechTypes,
		ReqFlags:    in.ReqFlags,
		MechToken:   in.MechToken,
		MechListMIC: in.MechListMIC,
	}, nil
}

// DecodeNegTokenResp decodes a [1] NegTokenResp.
func DecodeNegTokenResp(bs []byte) (*NegTokenResp, error) {
	var resp NegTokenResp
	if _, err := ber.UnmarshalWithParams(bs, &resp, "explicit,tag:1"); err != nil {
		return nil, fmt.Errorf("decode NegTokenResp: %w", err)
	}
	return &resp, nil
}

// ServerMechanisms lists the mechanisms a NEGOTIATE response blob offers.
// An empty or unparsable blob yields nil.
func ServerMechanisms(blob []byte) []asn1.ObjectIdentifier {
	if len(blob) == 0 {
		return nil
	}
	init, err := DecodeNegTokenInit(blob)
	if err != nil {
		return nil
	}
	return init.MechTypes
}

// SupportsMechanism reports whether mech appears in mechs.
func SupportsMechanism(mechs []asn1.ObjectIdentifier, mech asn1.ObjectIdentifier) bool {
	for _, m := range mechs {
		if m.Equal(mech) {
			return true
		}
	}
	return false
}

// ExtractNTLMSSP finds the NTLMSSP message inside a server security blob.
// The blob may be a NegTokenResp, a NegTokenInit or raw NTLMSSP.
func ExtractNTLMSSP(blob []byte) ([]byte, error) {
	if bytes.HasPrefix(blob, ntlmSignature[:]) {
		return blob, nil
	}
	if resp, err := DecodeNegTokenResp(blob); err == nil {
		if resp.NegState == NegStateReject {
			return nil, fmt.Errorf("%w: server rejected the mechanism", ErrNoMechToken)
		}
		if bytes.HasPrefix(resp.ResponseToken, ntlmSignature[:]) {
			return resp.ResponseToken, nil
		}
	}
	if init, err := DecodeNegTokenInit(blob); err == nil && bytes.HasPrefix(init.MechToken, ntlmSignature[:]) {
		return init.MechToken, nil
	}
	// Some stacks wrap the token in ways the decoders above reject.
	if i := bytes.Index(blob, ntlmSignature[:]); i >= 0 {
		return blob[i:], nil
	}
	return nil, ErrNoMechToken
}
