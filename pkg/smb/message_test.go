package smb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

func responseBytes(cmd types.Command, mid uint64, status types.NTStatus, body types.Body) []byte {
	h := types.NewHeader(cmd, mid)
	h.Flags |= types.FlagsServerToRedir
	h.Status = status
	return append(h.Marshal(), body.Marshal()...)
}

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want Version
		err  error
	}{
		{"smb1", []byte{0xFF, 'S', 'M', 'B', 0}, Version1, nil},
		{"smb2", []byte{0xFE, 'S', 'M', 'B', 0}, Version2, nil},
		{"transform", []byte{0xFD, 'S', 'M', 'B'}, VersionUnknown, ErrIncompatibleHeader},
		{"compression", []byte{0xFC, 'S', 'M', 'B'}, VersionUnknown, ErrIncompatibleHeader},
		{"zero magic", []byte{0, 0, 0, 0}, VersionUnknown, ErrBadHeader},
		{"short", []byte{0xFE, 'S'}, VersionUnknown, ErrBadHeader},
		{"empty", nil, VersionUnknown, ErrBadHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := DetectVersion(tt.in)
			assert.Equal(t, tt.want, v)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, IsStructural(err))
		})
	}
}

func TestDecodeMessageZeroPrefix(t *testing.T) {
	m, err := DecodeMessage(make([]byte, 64))
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrBadHeader)
	assert.True(t, IsStructural(err))
}

func TestDecodeSMB1Message(t *testing.T) {
	raw := smb1.NewMessage(smb1.NewHeader(smb1.CommandEcho, 7),
		smb1.Block{Params: []uint16{1}, Data: []byte("ping")}).Marshal()

	m, err := DecodeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, Version1, m.Version)
	require.NotNil(t, m.SMB1)
	assert.Nil(t, m.Header)
	assert.Equal(t, uint16(7), m.SMB1.Header.MID)
	assert.Equal(t, types.StatusSuccess, m.Status())
}

func TestDecodeRequestAndResponse(t *testing.T) {
	req := types.NewHeader(types.CommandTreeConnect, 3)
	raw := append(req.Marshal(), types.NewTreeConnectRequest(`\\srv\share`).Marshal()...)
	m, err := DecodeMessage(raw)
	require.NoError(t, err)
	body, ok := m.Body.(*types.TreeConnectRequest)
	require.True(t, ok, "body %T", m.Body)
	assert.Equal(t, `\\srv\share`, body.Path)

	raw = responseBytes(types.CommandTreeConnect, 3, types.StatusSuccess,
		&types.TreeConnectResponse{ShareType: types.ShareTypePipe})
	m, err = DecodeMessage(raw)
	require.NoError(t, err)
	resp, ok := m.Body.(*types.TreeConnectResponse)
	require.True(t, ok, "body %T", m.Body)
	assert.Equal(t, types.ShareTypePipe, resp.ShareType)
	assert.Equal(t, raw, m.Raw)
}

func TestDecodeInvalidCommand(t *testing.T) {
	h := types.NewHeader(types.Command(0x0099), 1)
	_, err := DecodeMessage(append(h.Marshal(), 4, 0, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidCommand)

	// CANCEL is never answered.
	_, err = DecodeMessage(responseBytes(types.CommandCancel, 1, 0, new(types.CancelRequest)))
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestDecodeTruncated(t *testing.T) {
	raw := responseBytes(types.CommandRead, 1, types.StatusSuccess, &types.ReadResponse{Data: []byte("abc")})

	_, err := DecodeMessage(raw[:40])
	assert.True(t, IsStructural(err), "header: %v", err)

	_, err = DecodeMessage(raw[:types.SMB2HeaderSize+4])
	assert.True(t, IsStructural(err), "body: %v", err)
}

func TestDecodeErrorBodySelection(t *testing.T) {
	tests := []struct {
		name   string
		cmd    types.Command
		status types.NTStatus
		body   types.Body
		want   types.Body
	}{
		{"failure", types.CommandCreate, types.StatusAccessDenied,
			errorBody(types.CommandCreate), &types.ErrorResponse{}},
		{"pending", types.CommandChangeNotify, types.StatusPending,
			errorBody(types.CommandChangeNotify), &types.ErrorResponse{}},
		{"more processing", types.CommandSessionSetup, types.StatusMoreProcessingReq,
			&types.SessionSetupResponse{SecurityBuffer: []byte{1, 2}}, &types.SessionSetupResponse{}},
		{"buffer overflow", types.CommandRead, types.StatusBufferOverflow,
			&types.ReadResponse{Data: []byte("x")}, &types.ReadResponse{}},
		{"no more files", types.CommandQueryDirectory, types.StatusNoMoreFiles,
			errorBody(types.CommandQueryDirectory), &types.ErrorResponse{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMessage(responseBytes(tt.cmd, 1, tt.status, tt.body))
			require.NoError(t, err)
			assert.IsType(t, tt.want, m.Body)
			assert.Equal(t, tt.cmd, m.Body.Command())
		})
	}
}

func TestDecodeOplockAndLeaseBreak(t *testing.T) {
	m, err := DecodeMessage(responseBytes(types.CommandOplockBreak, unsolicitedMessageID, 0,
		&types.OplockBreak{OplockLevel: types.OplockLevelII, FileID: types.FileID{Persistent: 9}}))
	require.NoError(t, err)
	ob, ok := m.Body.(*types.OplockBreak)
	require.True(t, ok, "body %T", m.Body)
	assert.Equal(t, uint64(9), ob.FileID.Persistent)

	m, err = DecodeMessage(responseBytes(types.CommandOplockBreak, unsolicitedMessageID, 0,
		&types.LeaseBreakNotification{NewEpoch: 2, NewLeaseState: types.LeaseReadCaching}))
	require.NoError(t, err)
	lb, ok := m.Body.(*types.LeaseBreakNotification)
	require.True(t, ok, "body %T", m.Body)
	assert.Equal(t, uint16(2), lb.NewEpoch)
	assert.Equal(t, types.LeaseReadCaching, lb.NewLeaseState)
}

// chain joins messages into a compound frame, padding each to 8 bytes.
func chain(msgs ...[]byte) []byte {
	var out []byte
	for i, m := range msgs {
		if i < len(msgs)-1 {
			for len(m)%8 != 0 {
				m = append(m, 0)
			}
			encoding.PutUint32LE(m[20:24], uint32(len(m)))
		}
		out = append(out, m...)
	}
	return out
}

func TestDecodeCompound(t *testing.T) {
	frame := chain(
		responseBytes(types.CommandCreate, 1, types.StatusSuccess, &types.CreateResponse{EndOfFile: 5}),
		responseBytes(types.CommandRead, 2, types.StatusSuccess, &types.ReadResponse{Data: []byte("hello")}),
		responseBytes(types.CommandClose, 3, types.StatusSuccess, new(types.CloseResponse)),
	)

	msgs, err := DecodeCompound(frame)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.IsType(t, &types.CreateResponse{}, msgs[0].Body)
	assert.Equal(t, []byte("hello"), msgs[1].Body.(*types.ReadResponse).Data)
	assert.Equal(t, uint64(3), msgs[2].Header.MessageID)

	first, err := DecodeMessage(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Header.MessageID)
	assert.Len(t, first.Raw, int(first.Header.NextCommand))
}

func TestDecodeCompoundBadOffsets(t *testing.T) {
	base := chain(
		responseBytes(types.CommandEcho, 1, 0, new(types.EchoResponse)),
		responseBytes(types.CommandEcho, 2, 0, new(types.EchoResponse)),
	)
	for name, next := range map[string]uint32{
		"unaligned":     types.SMB2HeaderSize + 4 + 1,
		"inside header": 8,
		"out of range":  4096,
	} {
		t.Run(name, func(t *testing.T) {
			frame := append([]byte(nil), base...)
			encoding.PutUint32LE(frame[20:24], next)
			_, err := DecodeCompound(frame)
			assert.True(t, IsStructural(err), "%v", err)
			assert.True(t, errors.Is(err, types.ErrBadOffset), "%v", err)
		})
	}
}
