package smb1

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ineffectivecoder/smbwire/pkg/debug"
)

// Transport carries whole SMB1 messages. The SMB2 TCP transport satisfies it.
type Transport interface {
	Send(msg []byte) error
	Recv() ([]byte, error)
	Close() error
}

// deadliner is implemented by transports that can bound a blocking Recv.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// Client represents an SMB1 client. Requests are serialized: each call
// sends one message and waits for the response with the same MID.
type Client struct {
	transport Transport

	mu            sync.Mutex
	pid           uint32
	uid           uint16
	mid           uint16
	maxBufferSize uint32
	capabilities  uint32
	sessionKey    uint32
	securityBlob  []byte
}

// NewClient creates a new SMB1 client. The PID sent in every header is
// taken from the current process once, here.
func NewClient(transport Transport) *Client {
	return &Client{
		transport:     transport,
		pid:           uint32(os.Getpid()),
		maxBufferSize: 16644,
	}
}

// PID returns the process id placed in request headers.
func (c *Client) PID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid
}

// SetPID overrides the process id placed in request headers.
func (c *Client) SetPID(pid uint32) {
	c.mu.Lock()
	c.pid = pid
	c.mu.Unlock()
}

// UID returns the session UID
func (c *Client) UID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

// GetSecurityBlob returns the security blob from negotiate
func (c *Client) GetSecurityBlob() []byte {
	return c.securityBlob
}

// Close closes the transport
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) nextMID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mid++
	return c.mid
}

// exchange sends one request and returns the matching response, skipping
// any stale responses for earlier MIDs.
func (c *Client) exchange(ctx context.Context, h *Header, b Block) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.SetPID(c.pid)
	if h.UID == 0 {
		h.UID = c.uid
	}

	if dl, ok := ctx.Deadline(); ok {
		if d, ok := c.transport.(deadliner); ok {
			d.SetDeadline(dl)
			defer d.SetDeadline(time.Time{})
		}
	}

	if err := c.transport.Send(NewMessage(h, b).Marshal()); err != nil {
		return nil, fmt.Errorf("%s: send: %w", h.Command, err)
	}

	for {
		raw, err := c.transport.Recv()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%s: receive: %w", h.Command, err)
		}
		m, err := DecodeMessage(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Command, err)
		}
		if m.Header.MID != h.MID || m.Header.Command != h.Command {
			debug.Logger().WithFields(logrus.Fields{
				"mid":     m.Header.MID,
				"want":    h.MID,
				"command": m.Header.Command,
			}).Debug("dropping SMB1 response for another request")
			continue
		}
		return m, nil
	}
}

// call is exchange plus the status check.
func (c *Client) call(ctx context.Context, h *Header, b Block) (*Message, error) {
	m, err := c.exchange(ctx, h, b)
	if err != nil {
		return nil, err
	}
	if err := m.Header.Err(); err != nil {
		return m, err
	}
	return m, nil
}

// Negotiate performs SMB1 dialect negotiation
func (c *Client) Negotiate(ctx context.Context) (*NegotiateResponse, error) {
	req := &NegotiateRequest{Dialects: []string{DialectNTLM012}}

	resp, err := c.call(ctx, NewHeader(CommandNegotiate, c.nextMID()), req.Block())
	if err != nil {
		return nil, fmt.Errorf("negotiate failed: %w", err)
	}

	var negResp NegotiateResponse
	if err := negResp.Decode(resp); err != nil {
		return nil, fmt.Errorf("failed to parse negotiate response: %w", err)
	}

	c.Negotiated(&negResp)
	return &negResp, nil
}

// Negotiated adopts a NEGOTIATE response the caller obtained itself, for
// example from a multi-protocol probe sent before the client existed.
func (c *Client) Negotiated(resp *NegotiateResponse) {
	c.mu.Lock()
	c.capabilities = resp.Capabilities
	c.securityBlob = resp.SecurityBlob
	c.maxBufferSize = resp.MaxBufferSize
	c.sessionKey = resp.SessionKey
	c.mu.Unlock()
}

// SessionSetup sends one leg of an extended-security session setup. It
// returns the server's token and whether authentication is complete.
func (c *Client) SessionSetup(ctx context.Context, securityBlob []byte) ([]byte, bool, error) {
	req := &SessionSetupAndXRequest{
		MaxBufferSize: uint16(min(c.maxBufferSize, 0xFFFF)),
		MaxMpxCount:   50,
		VcNumber:      1,
		SessionKey:    c.sessionKey,
		Capabilities:  (c.capabilities & (CapUnicode | CapNTStatusCodes | CapLargeFiles | CapNTSMBs)) | CapExtendedSec,
		SecurityBlob:  securityBlob,
		NativeOS:      "Unix",
		NativeLanMan:  "smbwire",
	}

	h := NewHeader(CommandSessionSetupAndX, c.nextMID())
	resp, err := c.call(ctx, h, req.Block())
	if err != nil {
		return nil, false, fmt.Errorf("session setup failed: %w", err)
	}

	c.mu.Lock()
	c.uid = resp.Header.UID
	c.mu.Unlock()

	var sessResp SessionSetupAndXResponse
	if err := sessResp.Decode(resp); err != nil {
		return nil, false, fmt.Errorf("failed to parse session response: %w", err)
	}

	return sessResp.SecurityBlob, resp.Header.Status == 0, nil
}

// Logoff ends the session
func (c *Client) Logoff(ctx context.Context) error {
	_, err := c.call(ctx, NewHeader(CommandLogoffAndX, c.nextMID()), logoffBlock())
	if err != nil {
		return fmt.Errorf("logoff failed: %w", err)
	}
	c.mu.Lock()
	c.uid = 0
	c.mu.Unlock()
	return nil
}

// TreeConnect connects to a UNC path such as \\server\share
func (c *Client) TreeConnect(ctx context.Context, path, service string) (*Tree, error) {
	if service == "" {
		service = ServiceAny
	}
	req := &TreeConnectAndXRequest{
		Flags:    TreeConnectExtendedResponse,
		Password: []byte{0},
		Path:     path,
		Service:  service,
	}

	resp, err := c.call(ctx, NewHeader(CommandTreeConnectAndX, c.nextMID()), req.Block())
	if err != nil {
		return nil, fmt.Errorf("tree connect failed: %w", err)
	}

	var treeResp TreeConnectAndXResponse
	if err := treeResp.Decode(resp); err != nil {
		return nil, fmt.Errorf("failed to parse tree connect response: %w", err)
	}

	return &Tree{
		TID:     resp.Header.TID,
		Service: treeResp.Service,
		client:  c,
	}, nil
}

// TreeDisconnect disconnects from a share
func (c *Client) TreeDisconnect(ctx context.Context, tid uint16) error {
	h := NewHeader(CommandTreeDisconnect, c.nextMID())
	h.TID = tid
	if _, err := c.call(ctx, h, Block{}); err != nil {
		return fmt.Errorf("tree disconnect failed: %w", err)
	}
	return nil
}

// Echo sends SMB_COM_ECHO with a single echo request and returns the data
// the server reflects.
func (c *Client) Echo(ctx context.Context, data []byte) ([]byte, error) {
	resp, err := c.call(ctx, NewHeader(CommandEcho, c.nextMID()), Block{Params: []uint16{1}, Data: data})
	if err != nil {
		return nil, fmt.Errorf("echo failed: %w", err)
	}
	b, err := resp.First()
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

// CreateFile opens a file on this tree
func (t *Tree) CreateFile(ctx context.Context, path string, opts OpenOptions) (*File, error) {
	return t.client.CreateFile(ctx, t.TID, path, opts.Access, opts.Share, opts.Disposition, opts.Options)
}
