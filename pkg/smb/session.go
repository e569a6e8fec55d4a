package smb

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ineffectivecoder/smbwire/pkg/auth"
	"github.com/ineffectivecoder/smbwire/pkg/debug"
	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// maxAuthLegs bounds the SESSION_SETUP exchange.
const maxAuthLegs = 4

// creditUnit is the payload size covered by one credit on multi-credit dialects.
const creditUnit = 64 * 1024

// Session represents an authenticated SMB session
type Session struct {
	client    *Client
	conn      *Conn
	negResult *NegotiateResult
	smb1      *smb1.Client

	id         uint64
	flags      uint16
	sessionKey []byte
}

// header builds a request header bound to this session.
func (s *Session) header(cmd types.Command, treeID uint32, payload int) *types.Header {
	h := types.NewHeader(cmd, 0)
	h.SessionID = s.id
	h.TreeID = treeID
	h.CreditCharge = s.creditCharge(payload)
	h.CreditRequest = max(s.client.config.MaxCredits, h.CreditCharge)
	return h
}

// creditCharge is 1 + (payload-1)/64K on dialects with multi-credit
// support, and always 1 otherwise.
func (s *Session) creditCharge(payload int) uint16 {
	if payload <= creditUnit || s.negResult.Dialect < types.DialectSMB2_1 ||
		s.negResult.Capabilities&types.GlobalCapLargeMTU == 0 {
		return 1
	}
	return uint16(1 + (payload-1)/creditUnit)
}

func (s *Session) call(ctx context.Context, treeID uint32, body types.Body, payload int) (*Message, error) {
	return s.conn.Call(ctx, s.header(body.Command(), treeID, payload), body)
}

// authenticate runs the SESSION_SETUP exchange driven by a.
func (s *Session) authenticate(ctx context.Context, a auth.Authenticator) error {
	if s.smb1 != nil {
		return s.authenticateSMB1(ctx, a)
	}

	var in []byte
	for leg := 0; leg < maxAuthLegs; leg++ {
		out, err := a.Next(in)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}

		m, err := s.call(ctx, 0, types.NewSessionSetupRequest(out), 0)
		if err != nil {
			return fmt.Errorf("session setup: %w", err)
		}
		resp, err := bodyAs[*types.SessionSetupResponse](m)
		if err != nil {
			return err
		}
		s.id = m.Header.SessionID

		debug.Logger().WithFields(logrus.Fields{
			"leg":        leg + 1,
			"session_id": s.id,
			"status":     m.Header.Status,
		}).Debug("session setup")

		if m.Header.Status == types.StatusMoreProcessingReq {
			in = resp.SecurityBuffer
			continue
		}
		if len(resp.SecurityBuffer) > 0 {
			if _, err := a.Next(resp.SecurityBuffer); err != nil && !errors.Is(err, auth.ErrUnexpectedLeg) {
				return fmt.Errorf("%w: %w", ErrAuthFailed, err)
			}
		}
		s.flags = resp.SessionFlags
		s.sessionKey = a.SessionKey()
		if resp.IsGuest() {
			debug.Logger().Warn("server granted a guest session")
		}
		return nil
	}
	return fmt.Errorf("%w: exchange did not finish in %d legs", ErrAuthFailed, maxAuthLegs)
}

func (s *Session) authenticateSMB1(ctx context.Context, a auth.Authenticator) error {
	var in []byte
	for leg := 0; leg < maxAuthLegs; leg++ {
		out, err := a.Next(in)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		blob, done, err := s.smb1.SessionSetup(ctx, out)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		if done {
			s.id = uint64(s.smb1.UID())
			s.sessionKey = a.SessionKey()
			return nil
		}
		in = blob
	}
	return fmt.Errorf("%w: exchange did not finish in %d legs", ErrAuthFailed, maxAuthLegs)
}

// Logoff ends the session. The connection stays negotiated.
func (s *Session) Logoff(ctx context.Context) error {
	var err error
	if s.smb1 != nil {
		err = s.smb1.Logoff(ctx)
	} else {
		_, err = s.call(ctx, 0, new(types.LogoffRequest), 0)
	}
	if err != nil {
		return fmt.Errorf("logoff: %w", err)
	}
	s.client.loggedOff()
	return nil
}

// TreeConnect connects to a share
func (s *Session) TreeConnect(ctx context.Context, shareName string) (*Tree, error) {
	path := fmt.Sprintf(`\\%s\%s`, s.client.Host(), shareName)

	if s.smb1 != nil {
		t, err := s.smb1.TreeConnect(ctx, path, smb1.ServiceAny)
		if err != nil {
			return nil, err
		}
		st := types.ShareTypeDisk
		if t.Service == smb1.ServicePipe {
			st = types.ShareTypePipe
		}
		s.client.treeConnected()
		return &Tree{session: s, id: uint32(t.TID), shareType: st, name: shareName, smb1: t}, nil
	}

	m, err := s.call(ctx, 0, types.NewTreeConnectRequest(path), 0)
	if err != nil {
		return nil, fmt.Errorf("tree connect %s: %w", shareName, err)
	}
	resp, err := bodyAs[*types.TreeConnectResponse](m)
	if err != nil {
		return nil, err
	}
	s.client.treeConnected()

	debug.Logger().WithFields(logrus.Fields{
		"share":   shareName,
		"tree_id": m.Header.TreeID,
		"type":    resp.ShareType,
	}).Debug("tree connected")

	return &Tree{
		session:   s,
		id:        m.Header.TreeID,
		shareType: resp.ShareType,
		name:      shareName,
		maxAccess: resp.MaximalAccess,
	}, nil
}

// TreeDisconnect disconnects from a share
func (s *Session) TreeDisconnect(ctx context.Context, tree *Tree) error {
	if tree == nil {
		return nil
	}
	return tree.Disconnect(ctx)
}

// SessionID returns the session ID
func (s *Session) SessionID() uint64 {
	return s.id
}

// IsGuest returns true if authenticated as guest
func (s *Session) IsGuest() bool {
	return s.flags&types.SessionFlagIsGuest != 0
}

// IsNull returns true for anonymous sessions.
func (s *Session) IsNull() bool {
	return s.flags&types.SessionFlagIsNull != 0
}

// SessionKey returns the key established by authentication.
func (s *Session) SessionKey() []byte {
	return s.sessionKey
}

// Dialect returns the negotiated dialect
func (s *Session) Dialect() types.Dialect {
	return s.negResult.Dialect
}

// MaxTransactSize returns the maximum transaction size
func (s *Session) MaxTransactSize() uint32 {
	return s.negResult.MaxTransactSize
}

// MaxReadSize returns the maximum read size
func (s *Session) MaxReadSize() uint32 {
	return s.negResult.MaxReadSize
}

// MaxWriteSize returns the maximum write size
func (s *Session) MaxWriteSize() uint32 {
	return s.negResult.MaxWriteSize
}
