package auth

import (
	"encoding/asn1"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegTokenInitRoundTrip(t *testing.T) {
	token := NewNegotiateMessage().Marshal()
	blob, err := EncodeNegTokenInit([]asn1.ObjectIdentifier{NTLMSSPOID, KerberosOID}, token)
	require.NoError(t, err)
	assert.Equal(t, byte(0x60), blob[0])

	init, err := DecodeNegTokenInit(blob)
	require.NoError(t, err)
	assert.Equal(t, token, init.MechToken)
	assert.True(t, SupportsMechanism(init.MechTypes, KerberosOID))
	assert.False(t, SupportsMechanism(init.MechTypes, MSKerberosOID))
	assert.Len(t, ServerMechanisms(blob), 2)
	assert.Nil(t, ServerMechanisms(nil))
}

func TestNegTokenRespRoundTrip(t *testing.T) {
	challenge := sampleChallenge().Marshal()
	blob, err := EncodeNegTokenResp(NegStateAcceptIncomplete, challenge)
	require.NoError(t, err)

	resp, err := DecodeNegTokenResp(blob)
	require.NoError(t, err)
	assert.Equal(t, NegStateAcceptIncomplete, resp.NegState)
	assert.Equal(t, challenge, resp.ResponseToken)
}

func TestExtractNTLMSSP(t *testing.T) {
	challenge := sampleChallenge().Marshal()
	resp, err := EncodeNegTokenResp(NegStateAcceptIncomplete, challenge)
	require.NoError(t, err)
	init, err := EncodeNegTokenInit([]asn1.ObjectIdentifier{NTLMSSPOID}, challenge)
	require.NoError(t, err)
	reject, err := EncodeNegTokenResp(NegStateReject, nil)
	require.NoError(t, err)

	for name, blob := range map[string][]byte{"raw": challenge, "resp": resp, "init": init} {
		t.Run(name, func(t *testing.T) {
			got, err := ExtractNTLMSSP(blob)
			require.NoError(t, err)
			assert.Equal(t, challenge, got)
		})
	}

	_, err = ExtractNTLMSSP(reject)
	assert.True(t, errors.Is(err, ErrNoMechToken))
	_, err = ExtractNTLMSSP([]byte{0x30, 0x00})
	assert.True(t, errors.Is(err, ErrNoMechToken))
}
