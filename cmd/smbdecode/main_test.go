package main

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineffectivecoder/smbwire/pkg/smb"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

func echoResponse(status types.NTStatus) []byte {
	h := types.NewHeader(types.CommandEcho, 9)
	h.Flags |= types.FlagsServerToRedir
	h.Status = status
	var body types.Body = new(types.EchoResponse)
	if status.Failed() {
		body = &types.ErrorResponse{Cmd: types.CommandEcho}
	}
	return append(h.Marshal(), body.Marshal()...)
}

func TestSplitInputHex(t *testing.T) {
	msg := echoResponse(types.StatusSuccess)
	framed := append([]byte{0, 0, 0, byte(len(msg))}, msg...)
	input := "# capture\n\n" + hex.EncodeToString(msg) + "\n" +
		hex.EncodeToString(framed[:8]) + " " + hex.EncodeToString(framed[8:]) + "  # framed\n"

	frames, err := splitInput([]byte(input), false)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, msg, frames[0])
	assert.Equal(t, msg, frames[1])
}

func TestSplitInputBadHex(t *testing.T) {
	_, err := splitInput([]byte("fe534d42\nzz\n"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestStripNetBIOSLeavesUnframed(t *testing.T) {
	b := []byte{0, 0, 0, 9, 1, 2, 3, 4}
	assert.Equal(t, b, stripNetBIOS(b))
}

func TestPrintFrame(t *testing.T) {
	var out bytes.Buffer
	err := printFrame(&out, smb.Decoder{}, echoResponse(types.StatusSuccess), true, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "*types.EchoResponse")
	assert.Contains(t, out.String(), "STATUS_SUCCESS")
}

func TestPrintFrameErrorStatus(t *testing.T) {
	var out bytes.Buffer
	err := printFrame(&out, smb.Decoder{}, echoResponse(types.StatusAccessDenied), false, true)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "*types.ErrorResponse")
	assert.Contains(t, out.String(), "STATUS_ACCESS_DENIED")
	assert.Contains(t, out.String(), "fe 53 4d 42")
}

func TestPrintFrameMalformed(t *testing.T) {
	var out bytes.Buffer
	err := printFrame(&out, smb.Decoder{}, []byte{0xFE, 'S', 'M', 'B', 0}, false, false)
	require.Error(t, err)
	assert.True(t, smb.IsStructural(err))
}
