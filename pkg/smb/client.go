// Package smb decodes SMB1 and SMB2 messages and runs SMB2 requests over a
// transport.
//
// The package is organised in two layers:
//   - A dispatcher: DetectVersion and DecodeMessage turn wire bytes into
//     typed messages, and Conn pairs requests with responses by message id,
//     handles interim STATUS_PENDING replies, cancellation and timeouts.
//   - A client facade: Client, Session, Tree and File walk the
//     negotiate / session setup / tree connect state machine and expose
//     file operations. Servers that only speak NT LM 0.12 are served
//     through the smb1 package.
//
// Basic usage:
//
//	client := smb.NewClient()
//	if err := client.Connect(ctx, "192.168.1.100", 445); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	creds := auth.NewPasswordCredentials("DOMAIN", "user", "password")
//	if err := client.Authenticate(ctx, creds); err != nil {
//	    log.Fatal(err)
//	}
//
//	tree, err := client.TreeConnect(ctx, "C$")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tree.Disconnect(ctx)
package smb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/auth"
	"github.com/ineffectivecoder/smbwire/pkg/debug"
	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// State is the position of a Client in the connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateNegotiated
	StateSessionEstablished
	StateTreeConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateNegotiated:
		return "negotiated"
	case StateSessionEstablished:
		return "session established"
	case StateTreeConnected:
		return "tree connected"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Client represents an SMB2/SMB3 client (with SMB1 fallback support)
type Client struct {
	config ClientConfig

	mu         sync.Mutex
	state      State
	host       string
	transport  Transport
	conn       *Conn
	negResult  *NegotiateResult
	session    *Session
	smb1Client *smb1.Client // nil unless the server negotiated NT LM 0.12
	trees      int
}

// ClientConfig configures client behavior
type ClientConfig struct {
	Timeout        time.Duration // dial and write timeout
	RequestTimeout time.Duration // per request, when the context has no deadline
	Dialects       []types.Dialect
	ClientGUID     encoding.GUID
	MaxCredits     uint16 // credits requested with every message
	MaxContextHops int
	Socks5URL      string // SOCKS5 proxy URL (e.g., "socks5://127.0.0.1:1080")

	// AllowSMB1 opens with a multi-protocol SMB1 NEGOTIATE so that servers
	// without SMB2 are still reachable. SMB2 servers answer it with an
	// SMB2 NEGOTIATE response.
	AllowSMB1 bool
	ForceSMB1 bool // Force SMB1 mode for legacy systems
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:        30 * time.Second,
		RequestTimeout: 60 * time.Second,
		ClientGUID:     encoding.NewRandomGUID(),
		MaxCredits:     64,
		MaxContextHops: types.DefaultMaxContextHops,
		AllowSMB1:      true,
	}
}

// NewClient creates a new SMB client with default configuration
func NewClient() *Client {
	return NewClientWithConfig(DefaultClientConfig())
}

// NewClientWithConfig creates a new SMB client with custom configuration
func NewClientWithConfig(config ClientConfig) *Client {
	if config.ClientGUID.IsZero() {
		config.ClientGUID = encoding.NewRandomGUID()
	}
	if config.MaxCredits == 0 {
		config.MaxCredits = 1
	}
	return &Client{config: config}
}

// Connect dials host and negotiates a dialect.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if st := c.State(); st != StateDisconnected {
		return fmt.Errorf("connect: %w (%s)", ErrInvalidState, st)
	}
	transport, err := DialWithConfig(ctx, host, port, TransportConfig{
		Timeout:   c.config.Timeout,
		Socks5URL: c.config.Socks5URL,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c.ConnectTransport(ctx, transport, host)
}

// ConnectTransport negotiates over an established transport. host names
// the server in tree paths and the Kerberos SPN. The client owns t from
// here on, also on failure.
func (c *Client) ConnectTransport(ctx context.Context, t Transport, host string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDisconnected {
		t.Close()
		return fmt.Errorf("connect: %w (%s)", ErrInvalidState, c.state)
	}
	c.transport, c.host, c.state = t, host, StateConnected

	if err := c.negotiate(ctx); err != nil {
		c.closeLocked()
		return fmt.Errorf("negotiation failed: %w", err)
	}
	c.state = StateNegotiated

	debug.Logger().WithFields(logrus.Fields{
		"host":    host,
		"dialect": c.dialectNameLocked(),
	}).Debug("connected")
	return nil
}

func (c *Client) negotiate(ctx context.Context) error {
	if c.config.ForceSMB1 {
		sc := smb1.NewClient(c.transport)
		resp, err := sc.Negotiate(ctx)
		if err != nil {
			return err
		}
		c.smb1Client = sc
		c.negResult = &NegotiateResult{
			ServerGUID:     resp.ServerGUID,
			MaxReadSize:    resp.MaxBufferSize,
			MaxWriteSize:   resp.MaxBufferSize,
			SecurityBuffer: resp.SecurityBlob,
			SystemTime:     resp.SystemTime.Time(),
			SMB1:           resp,
		}
		return nil
	}

	if !c.config.AllowSMB1 {
		c.conn = c.newConn(0)
		res, err := negotiate(ctx, c.conn, c.config, c.host)
		c.negResult = res
		return err
	}

	m, err := probe(ctx, c.transport)
	if err != nil {
		return err
	}
	res, err := probeResult(m)
	if err != nil {
		return err
	}
	if res != nil && res.SMB1 != nil {
		c.smb1Client = smb1.NewClient(c.transport)
		c.smb1Client.Negotiated(res.SMB1)
		c.negResult = res
		return nil
	}

	// The probe consumed message id 0.
	c.conn = c.newConn(1)
	if res != nil {
		c.negResult = res
		return nil
	}
	c.negResult, err = negotiate(ctx, c.conn, c.config, c.host)
	return err
}

func (c *Client) newConn(firstID uint64) *Conn {
	return NewConn(c.transport, ConnConfig{
		FirstMessageID: firstID,
		RequestTimeout: c.config.RequestTimeout,
		MaxContextHops: c.config.MaxContextHops,
	})
}

// Authenticate establishes a session with NTLM or Kerberos credentials.
func (c *Client) Authenticate(ctx context.Context, creds auth.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == StateDisconnected:
		return fmt.Errorf("authenticate: %w", ErrNotConnected)
	case c.state != StateNegotiated:
		return fmt.Errorf("authenticate: %w (%s)", ErrInvalidState, c.state)
	}

	mechs := auth.ServerMechanisms(c.negResult.SecurityBuffer)
	a := auth.NewAuthenticator(creds, c.host)
	if len(mechs) > 0 && !auth.SupportsMechanism(mechs, a.Mechanism()) &&
		!(a.Mechanism().Equal(auth.KerberosOID) && auth.SupportsMechanism(mechs, auth.MSKerberosOID)) {
		debug.Logger().WithField("mechanism", a.Mechanism().String()).Warn("server did not advertise mechanism")
	}

	s := &Session{client: c, conn: c.conn, negResult: c.negResult, smb1: c.smb1Client}
	if err := s.authenticate(ctx, a); err != nil {
		return err
	}
	c.session = s
	c.state = StateSessionEstablished
	return nil
}

// TreeConnect connects to a share
func (c *Client) TreeConnect(ctx context.Context, shareName string) (*Tree, error) {
	c.mu.Lock()
	s := c.session
	err := c.requireLocked(StateSessionEstablished)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("tree connect: %w", err)
	}
	return s.TreeConnect(ctx, shareName)
}

// TreeDisconnect disconnects from a share
func (c *Client) TreeDisconnect(ctx context.Context, tree *Tree) error {
	if tree == nil {
		return nil
	}
	return tree.Disconnect(ctx)
}

// Echo checks that the server is alive.
func (c *Client) Echo(ctx context.Context) error {
	c.mu.Lock()
	conn, sc := c.conn, c.smb1Client
	err := c.requireLocked(StateNegotiated)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("echo: %w", err)
	}

	if sc != nil {
		_, err := sc.Echo(ctx, []byte("smbwire"))
		return err
	}
	hdr := types.NewHeader(types.CommandEcho, 0)
	if s := c.Session(); s != nil {
		hdr.SessionID = s.id
	}
	if _, err := conn.Call(ctx, hdr, new(types.EchoRequest)); err != nil {
		return fmt.Errorf("echo: %w", err)
	}
	return nil
}

// Close closes the client connection without logging off.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var err error
	switch {
	case c.conn != nil:
		err = c.conn.Close()
	case c.transport != nil:
		err = c.transport.Close()
	}
	c.conn, c.transport, c.smb1Client = nil, nil, nil
	c.session, c.negResult = nil, nil
	c.trees = 0
	c.state = StateDisconnected
	return err
}

// requireLocked checks that the client has reached min.
func (c *Client) requireLocked(min State) error {
	switch {
	case c.state == StateDisconnected:
		return ErrNotConnected
	case c.state < min:
		return fmt.Errorf("%w (%s)", ErrInvalidState, c.state)
	}
	return nil
}

// treeConnected and treeDisconnected keep the state in step with the
// number of live trees.
func (c *Client) treeConnected() {
	c.mu.Lock()
	c.trees++
	if c.state == StateSessionEstablished {
		c.state = StateTreeConnected
	}
	c.mu.Unlock()
}

func (c *Client) treeDisconnected() {
	c.mu.Lock()
	if c.trees > 0 {
		c.trees--
	}
	if c.trees == 0 && c.state == StateTreeConnected {
		c.state = StateSessionEstablished
	}
	c.mu.Unlock()
}

func (c *Client) loggedOff() {
	c.mu.Lock()
	if c.state >= StateSessionEstablished {
		c.state = StateNegotiated
	}
	c.session = nil
	c.trees = 0
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the current session
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Conn returns the SMB2 dispatcher, or nil on SMB1 connections.
func (c *Client) Conn() *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// NegotiateResult returns the negotiation result
func (c *Client) NegotiateResult() *NegotiateResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negResult
}

// Host returns the server name given to Connect.
func (c *Client) Host() string {
	return c.host
}

// IsConnected returns true if connected and authenticated
func (c *Client) IsConnected() bool {
	return c.State() >= StateSessionEstablished
}

// IsSMB1 returns true if using SMB1 protocol
func (c *Client) IsSMB1() bool {
	return c.SMB1Client() != nil
}

// Dialect returns the negotiated dialect
func (c *Client) Dialect() types.Dialect {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.negResult == nil {
		return 0
	}
	return c.negResult.Dialect
}

// DialectName returns the negotiated dialect as a string
func (c *Client) DialectName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialectNameLocked()
}

func (c *Client) dialectNameLocked() string {
	switch {
	case c.smb1Client != nil:
		return "SMB 1.0 (" + smb1.DialectNTLM012 + ")"
	case c.negResult == nil:
		return DialectName(0)
	}
	return DialectName(c.negResult.Dialect)
}

// SMB1Client returns the SMB1 client if in SMB1 mode, nil otherwise
func (c *Client) SMB1Client() *smb1.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.smb1Client
}
