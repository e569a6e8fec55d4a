package smb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ineffectivecoder/smbwire/pkg/debug"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// unsolicitedMessageID marks server-initiated oplock and lease breaks.
const unsolicitedMessageID = ^uint64(0)

// ConnConfig tunes a Conn.
type ConnConfig struct {
	// FirstMessageID is the id of the first request sent. Zero for a fresh
	// connection; 1 after a multi-protocol negotiate consumed id 0.
	FirstMessageID uint64

	// RequestTimeout applies to calls whose context has no deadline.
	// Zero waits forever.
	RequestTimeout time.Duration

	// MaxContextHops bounds create-context chains in CREATE responses.
	MaxContextHops int

	// BreakQueue is the number of unsolicited break notifications held
	// for Breaks before new ones are dropped.
	BreakQueue int
}

type callResult struct {
	msg *Message
	err error
}

// pendingCall tracks one request waiting for its final response.
type pendingCall struct {
	header  types.Header
	result  chan callResult
	asyncID uint64
	async   bool
}

// Conn multiplexes SMB2 requests over a Transport. Each request takes the
// next message id; a single reader goroutine pairs responses with waiting
// callers by message id. Conn is safe for concurrent use.
type Conn struct {
	transport Transport
	decoder   Decoder
	timeout   time.Duration

	nextID  atomic.Uint64
	credits atomic.Int64

	sendMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]*pendingCall
	err     error // set once the transport fails

	breaks chan *Message
	done   chan struct{}
}

// NewConn starts the receive loop on t. The Conn owns t from here on.
func NewConn(t Transport, cfg ConnConfig) *Conn {
	queue := cfg.BreakQueue
	if queue <= 0 {
		queue = 16
	}
	c := &Conn{
		transport: t,
		decoder:   Decoder{MaxContextHops: cfg.MaxContextHops},
		timeout:   cfg.RequestTimeout,
		pending:   make(map[uint64]*pendingCall),
		breaks:    make(chan *Message, queue),
		done:      make(chan struct{}),
	}
	c.nextID.Store(cfg.FirstMessageID)
	c.credits.Store(1)
	go c.recvLoop()
	return c
}

// Call sends hdr and body and waits for the final response. MessageID in
// hdr is overwritten. The returned Message is non-nil whenever a response
// arrived, including responses whose status is an error; in that case err
// is a *StatusError and the Message carries the ERROR body.
// STATUS_MORE_PROCESSING_REQUIRED is not treated as an error.
func (c *Conn) Call(ctx context.Context, hdr *types.Header, body types.Body) (*Message, error) {
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	call, err := c.send(hdr, body)
	if err != nil {
		return nil, err
	}
	id := hdr.MessageID

	select {
	case r := <-call.result:
		if r.err != nil {
			return nil, r.err
		}
		return r.msg, responseErr(r.msg)
	case <-ctx.Done():
		c.abandon(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s mid=%d: %w", hdr.Command, id, ErrTimeout)
		}
		return nil, fmt.Errorf("%s mid=%d: %w: %w", hdr.Command, id, ErrCancelled, ctx.Err())
	case <-c.done:
		return nil, c.closedErr()
	}
}

func (c *Conn) send(hdr *types.Header, body types.Body) (*pendingCall, error) {
	charge := uint64(hdr.CreditCharge)
	if charge == 0 {
		charge = 1
	}
	id := c.nextID.Add(charge) - charge
	hdr.MessageID = id
	hdr.Flags &^= types.FlagsServerToRedir

	call := &pendingCall{header: *hdr, result: make(chan callResult, 1)}

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, c.closedErr()
	}
	c.pending[id] = call
	c.mu.Unlock()

	msg := hdr.Marshal()
	if body != nil {
		msg = append(msg, body.Marshal()...)
	}

	if err := c.write(msg); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		c.fail(err)
		return nil, &TransportError{Err: err}
	}
	c.credits.Add(-int64(charge))

	debug.Logger().WithFields(logrus.Fields{
		"cmd":    hdr.Command,
		"msg_id": id,
		"charge": charge,
	}).Debug("sent request")
	return call, nil
}

func (c *Conn) write(msg []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.transport.Send(msg)
}

// Cancel asks the server to abandon the request with message id mid. A
// request that went async is cancelled by its async id. The caller keeps
// waiting and normally receives STATUS_CANCELLED.
func (c *Conn) Cancel(mid uint64) error {
	c.mu.Lock()
	call, ok := c.pending[mid]
	var snap pendingCall
	if ok {
		snap = *call
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("cancel mid=%d: %w", mid, ErrInvalidState)
	}
	return c.sendCancel(snap)
}

// sendCancel writes an SMB2 CANCEL for call, a copy taken under c.mu since
// deliver may flip the call to async at any time. CANCEL consumes no message
// id and no credits, and the server never answers it.
func (c *Conn) sendCancel(call pendingCall) error {
	h := types.NewHeader(types.CommandCancel, call.header.MessageID)
	h.CreditCharge = 0
	h.CreditRequest = 0
	h.SessionID = call.header.SessionID
	if call.async {
		h.SetAsyncID(call.asyncID)
	} else {
		h.TreeID = call.header.TreeID
	}

	msg := append(h.Marshal(), new(types.CancelRequest).Marshal()...)
	if err := c.write(msg); err != nil {
		c.fail(err)
		return &TransportError{Err: err}
	}
	debug.Logger().WithFields(logrus.Fields{
		"msg_id":   call.header.MessageID,
		"async":    call.async,
		"async_id": call.asyncID,
	}).Debug("sent cancel")
	return nil
}

// abandon cancels mid on the server and forgets it locally so that a late
// response is discarded.
func (c *Conn) abandon(mid uint64) {
	c.mu.Lock()
	call, ok := c.pending[mid]
	var snap pendingCall
	if ok {
		snap = *call
	}
	delete(c.pending, mid)
	c.mu.Unlock()
	if ok {
		c.sendCancel(snap)
	}
}

// Forget drops the local record of mid without telling the server.
func (c *Conn) Forget(mid uint64) {
	c.mu.Lock()
	delete(c.pending, mid)
	c.mu.Unlock()
}

// Pending returns the number of requests awaiting a response.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// NextMessageID returns the id the next request will take.
func (c *Conn) NextMessageID() uint64 {
	return c.nextID.Load()
}

// Credits returns the client's running view of available credits.
func (c *Conn) Credits() int64 {
	return c.credits.Load()
}

// Breaks delivers server-initiated oplock and lease break notifications.
func (c *Conn) Breaks() <-chan *Message {
	return c.breaks
}

// Done is closed once the receive loop has stopped.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the transport failure that stopped the connection, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the transport down and fails every pending request.
func (c *Conn) Close() error {
	c.fail(errConnClosed)
	err := c.transport.Close()
	<-c.done
	return err
}

var errConnClosed = errors.New("connection closed")

func (c *Conn) closedErr() error {
	c.mu.Lock()
	err := c.err
	c.mu.Unlock()
	if err == nil || errors.Is(err, errConnClosed) {
		return ErrNotConnected
	}
	return &TransportError{Err: err}
}

// fail records the first transport error and completes all pending calls
// with it.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return
	}
	c.err = err
	pending := c.pending
	c.pending = make(map[uint64]*pendingCall)
	c.mu.Unlock()

	var out error = &TransportError{Err: err}
	if errors.Is(err, errConnClosed) {
		out = ErrNotConnected
	}
	for _, call := range pending {
		call.result <- callResult{err: out}
	}
}

// recvLoop is the only reader of the transport.
func (c *Conn) recvLoop() {
	defer close(c.done)
	for {
		buf, err := c.transport.Recv()
		if err != nil {
			c.fail(err)
			return
		}
		c.dispatch(buf)
	}
}

// dispatch routes every element of a received frame to its caller.
func (c *Conn) dispatch(buf []byte) {
	log := debug.Logger()

	v, err := DetectVersion(buf)
	if err != nil {
		log.WithError(err).Warn("dropping undecodable frame")
		return
	}
	if v != Version2 {
		log.WithField("version", v).Warn("dropping SMB1 frame on SMB2 connection")
		return
	}
	elems, err := splitCompound(buf)
	if err != nil {
		log.WithError(err).Warn("dropping malformed compound frame")
		return
	}
	for _, e := range elems {
		c.deliver(e)
	}
}

func (c *Conn) deliver(b []byte) {
	log := debug.Logger()

	h, body, err := splitHeader(b)
	if err != nil {
		log.WithError(err).Warn("dropping message with bad header")
		return
	}
	if !h.IsResponse() {
		log.WithField("msg_id", h.MessageID).Warn("dropping request sent by server")
		return
	}
	c.credits.Add(int64(h.CreditRequest))

	if h.MessageID == unsolicitedMessageID {
		c.deliverBreak(h, body, b)
		return
	}

	c.mu.Lock()
	call, ok := c.pending[h.MessageID]
	if ok && h.Status == types.StatusPending && h.IsAsync() {
		call.async = true
		call.asyncID = h.AsyncID()
		c.mu.Unlock()
		log.WithFields(logrus.Fields{
			"msg_id":   h.MessageID,
			"async_id": h.AsyncID(),
		}).Debug("request went async")
		return
	}
	if ok {
		delete(c.pending, h.MessageID)
	}
	c.mu.Unlock()

	if !ok {
		log.WithFields(logrus.Fields{
			"cmd":    h.Command,
			"msg_id": h.MessageID,
			"status": h.Status,
		}).Debug("dropping response for unknown message id")
		return
	}

	bd, err := c.decoder.decodeBody(h, body)
	if err != nil {
		call.result <- callResult{err: fmt.Errorf("%s mid=%d: %w", h.Command, h.MessageID, err)}
		return
	}
	call.result <- callResult{msg: &Message{Version: Version2, Header: h, Body: bd, Raw: b}}
}

func (c *Conn) deliverBreak(h *types.Header, body, raw []byte) {
	log := debug.Logger()
	bd, err := c.decoder.decodeBody(h, body)
	if err != nil {
		log.WithError(err).Warn("dropping malformed break notification")
		return
	}
	select {
	case c.breaks <- &Message{Version: Version2, Header: h, Body: bd, Raw: raw}:
	default:
		log.Warn("break queue full, dropping notification")
	}
}

// responseErr turns a failing status into a *StatusError.
func responseErr(m *Message) error {
	h := m.Header
	if h.Status == types.StatusMoreProcessingReq {
		return nil
	}
	return StatusToError(h.Command, h.Status)
}
