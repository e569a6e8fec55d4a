package smb

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/debug"
	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// NegotiateResult holds the result of dialect negotiation
type NegotiateResult struct {
	Dialect         types.Dialect
	ServerGUID      encoding.GUID
	SecurityMode    types.SecurityMode
	MaxTransactSize uint32
	MaxReadSize     uint32
	MaxWriteSize    uint32
	RequiresSigning bool
	SecurityBuffer  []byte // SPNEGO token
	Capabilities    types.Capabilities
	SystemTime      time.Time
	Contexts        []types.NegotiateContext

	// SMB1 is set when the server picked NT LM 0.12 in the probe.
	SMB1 *smb1.NegotiateResponse
}

// errWildcard reports an SMB2 NEGOTIATE answered with 0x02FF.
var errWildcard = errors.New("server returned wildcard dialect")

// probeDialects are offered in the multi-protocol SMB1 NEGOTIATE.
var probeDialects = []string{smb1.DialectNTLM012, smb1.DialectSMB2002, smb1.DialectSMB2Unknown}

// probe sends an SMB1 NEGOTIATE offering NT LM 0.12 and the SMB2 dialect
// strings, and reads the single reply before any Conn owns the transport.
// The reply is either an SMB1 response or an SMB2 NEGOTIATE response.
func probe(ctx context.Context, t Transport) (*Message, error) {
	req := &smb1.NegotiateRequest{Dialects: probeDialects}
	msg := smb1.NewMessage(smb1.NewHeader(smb1.CommandNegotiate, 0), req.Block()).Marshal()

	if dl, ok := ctx.Deadline(); ok {
		if d, ok := t.(interface{ SetDeadline(time.Time) error }); ok {
			d.SetDeadline(dl)
			defer d.SetDeadline(time.Time{})
		}
	}
	if err := t.Send(msg); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("send probe: %w", err)}
	}
	raw, err := t.Recv()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("negotiate probe: %w", ErrTimeout)
		}
		return nil, &TransportError{Err: fmt.Errorf("receive probe reply: %w", err)}
	}
	return DecodeMessage(raw)
}

// probeResult interprets the reply to probe. A nil result with a nil
// error means the server asked for a full SMB2 NEGOTIATE.
func probeResult(m *Message) (*NegotiateResult, error) {
	if m.Version == Version1 {
		if err := m.SMB1.Header.Err(); err != nil {
			return nil, fmt.Errorf("negotiate: %w", err)
		}
		var resp smb1.NegotiateResponse
		if err := resp.Decode(m.SMB1); err != nil {
			return nil, decodeErr("decode SMB1 negotiate response", err)
		}
		if int(resp.DialectIndex) >= len(probeDialects) || probeDialects[resp.DialectIndex] != smb1.DialectNTLM012 {
			return nil, fmt.Errorf("negotiate: dialect index %d: %w", resp.DialectIndex, ErrNotSupported)
		}
		return &NegotiateResult{
			ServerGUID:     resp.ServerGUID,
			MaxReadSize:    resp.MaxBufferSize,
			MaxWriteSize:   resp.MaxBufferSize,
			SecurityBuffer: resp.SecurityBlob,
			SystemTime:     resp.SystemTime.Time(),
			SMB1:           &resp,
		}, nil
	}

	res, err := negotiateResult(m)
	if errors.Is(err, errWildcard) {
		return nil, nil
	}
	return res, err
}

// negotiateResult reads an SMB2 NEGOTIATE response.
func negotiateResult(m *Message) (*NegotiateResult, error) {
	if err := StatusToError(types.CommandNegotiate, m.Header.Status); err != nil {
		return nil, err
	}
	resp, err := bodyAs[*types.NegotiateResponse](m)
	if err != nil {
		return nil, err
	}
	if resp.DialectRevision == types.DialectWildcard {
		return nil, errWildcard
	}
	return &NegotiateResult{
		Dialect:         resp.DialectRevision,
		ServerGUID:      resp.ServerGUID,
		SecurityMode:    resp.SecurityMode,
		MaxTransactSize: resp.MaxTransactSize,
		MaxReadSize:     resp.MaxReadSize,
		MaxWriteSize:    resp.MaxWriteSize,
		RequiresSigning: resp.RequiresSigning(),
		SecurityBuffer:  resp.SecurityBuffer,
		Capabilities:    resp.Capabilities,
		SystemTime:      resp.SystemTime.Time(),
		Contexts:        resp.Contexts,
	}, nil
}

// negotiate runs an SMB2 NEGOTIATE over conn.
func negotiate(ctx context.Context, conn *Conn, cfg ClientConfig, host string) (*NegotiateResult, error) {
	req := types.NewNegotiateRequest(cfg.ClientGUID)
	if len(cfg.Dialects) > 0 {
		req.Dialects = cfg.Dialects
	}
	for _, d := range req.Dialects {
		if d == types.DialectSMB3_1_1 {
			salt := make([]byte, 32)
			rand.Read(salt)
			req.Contexts = []types.NegotiateContext{
				types.NewPreauthIntegrityContext(salt),
				types.NewNetnameContext(host),
			}
			break
		}
	}

	hdr := types.NewHeader(types.CommandNegotiate, 0)
	hdr.CreditCharge = 0
	m, err := conn.Call(ctx, hdr, req)
	if err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}
	res, err := negotiateResult(m)
	if err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}

	debug.Logger().WithFields(logrus.Fields{
		"dialect":      res.Dialect,
		"max_read":     res.MaxReadSize,
		"max_write":    res.MaxWriteSize,
		"capabilities": fmt.Sprintf("0x%08X", uint32(res.Capabilities)),
	}).Debug("negotiated")
	if res.RequiresSigning {
		debug.Logger().Warn("server requires signing; signed traffic is not supported")
	}
	return res, nil
}

// DialectName returns a human-readable dialect name
func DialectName(d types.Dialect) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}
