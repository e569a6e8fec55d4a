package smb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

type callOutcome struct {
	msg *Message
	err error
}

func goCall(c *Conn, ctx context.Context, hdr *types.Header, body types.Body) <-chan callOutcome {
	out := make(chan callOutcome, 1)
	go func() {
		m, err := c.Call(ctx, hdr, body)
		out <- callOutcome{m, err}
	}()
	return out
}

func wait(t *testing.T, ch <-chan callOutcome) callOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("call did not return")
		return callOutcome{}
	}
}

func echoHeader() *types.Header {
	return types.NewHeader(types.CommandEcho, 0)
}

func newTestConn(t *testing.T, cfg ConnConfig) (*Conn, *pipeTransport) {
	tr := newPipeTransport()
	c := NewConn(tr, cfg)
	t.Cleanup(func() { c.Close() })
	return c, tr
}

func TestConnResponsesMatchedByMessageID(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	ctx := context.Background()

	first := goCall(c, ctx, echoHeader(), new(types.EchoRequest))
	reqA := tr.next(t)
	second := goCall(c, ctx, types.NewHeader(types.CommandFlush, 0), &types.FlushRequest{})
	reqB := tr.next(t)
	require.Equal(t, uint64(0), reqA.Header.MessageID)
	require.Equal(t, uint64(1), reqB.Header.MessageID)

	// Answer out of order.
	tr.inject(respond(reqB, types.StatusSuccess, new(types.FlushResponse)))
	tr.inject(respond(reqA, types.StatusSuccess, new(types.EchoResponse)))

	a, b := wait(t, first), wait(t, second)
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.IsType(t, &types.EchoResponse{}, a.msg.Body)
	assert.IsType(t, &types.FlushResponse{}, b.msg.Body)
	assert.Equal(t, 0, c.Pending())
}

func TestConnMessageIDsFollowCreditCharge(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{FirstMessageID: 1})
	tr.serve(t, func(req *Message) [][]byte {
		return [][]byte{respond(req, types.StatusSuccess, new(types.EchoResponse))}
	})
	ctx := context.Background()

	var ids []uint64
	for _, charge := range []uint16{0, 1, 3, 1} {
		h := echoHeader()
		h.CreditCharge = charge
		m, err := c.Call(ctx, h, new(types.EchoRequest))
		require.NoError(t, err)
		ids = append(ids, m.Header.MessageID)
	}
	assert.Equal(t, []uint64{1, 2, 3, 6}, ids)
	assert.Equal(t, uint64(7), c.NextMessageID())
}

func TestConnCreditsTrackGrants(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	tr.serve(t, func(req *Message) [][]byte {
		h := *req.Header
		h.Flags |= types.FlagsServerToRedir
		h.CreditRequest = 10
		return [][]byte{append(h.Marshal(), new(types.EchoResponse).Marshal()...)}
	})

	require.Equal(t, int64(1), c.Credits())
	_, err := c.Call(context.Background(), echoHeader(), new(types.EchoRequest))
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.Credits())
}

func TestConnStatusError(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	tr.serve(t, func(req *Message) [][]byte {
		return [][]byte{respond(req, types.StatusObjectNameNotFound, errorBody(req.Header.Command))}
	})

	m, err := c.Call(context.Background(), types.NewHeader(types.CommandCreate, 0),
		types.NewCreateRequest("missing.txt", types.GenericRead, types.FileOpen, 0))
	require.Error(t, err)
	require.NotNil(t, m)
	assert.IsType(t, &types.ErrorResponse{}, m.Body)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, types.StatusObjectNameNotFound, se.Status)
	assert.Equal(t, types.CommandCreate, se.Command)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAccessDenied)
	assert.False(t, IsStructural(err))
	assert.False(t, IsTransport(err))
}

func TestConnMoreProcessingIsNotAnError(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	tr.serve(t, func(req *Message) [][]byte {
		return [][]byte{respond(req, types.StatusMoreProcessingReq,
			&types.SessionSetupResponse{SecurityBuffer: []byte("challenge")})}
	})

	m, err := c.Call(context.Background(), types.NewHeader(types.CommandSessionSetup, 0),
		types.NewSessionSetupRequest([]byte("negotiate")))
	require.NoError(t, err)
	resp, ok := m.Body.(*types.SessionSetupResponse)
	require.True(t, ok)
	assert.Equal(t, []byte("challenge"), resp.SecurityBuffer)
}

func waitAsync(t *testing.T, c *Conn, mid uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		p := c.pending[mid]
		return p != nil && p.async
	}, 2*time.Second, time.Millisecond)
}

func TestConnPendingThenFinal(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	done := goCall(c, context.Background(), types.NewHeader(types.CommandChangeNotify, 0),
		&types.ChangeNotifyRequest{OutputBufferLength: 1024})

	req := tr.next(t)
	tr.inject(respondAsync(req, 0x1122334455, types.StatusPending, errorBody(types.CommandChangeNotify)))
	waitAsync(t, c, req.Header.MessageID)
	assert.Equal(t, 1, c.Pending())

	tr.inject(respondAsync(req, 0x1122334455, types.StatusSuccess,
		&types.ChangeNotifyResponse{OutputBuffer: nil}))
	o := wait(t, done)
	require.NoError(t, o.err)
	assert.IsType(t, &types.ChangeNotifyResponse{}, o.msg.Body)
	assert.Equal(t, uint64(0x1122334455), o.msg.Header.AsyncID())
}

func TestConnCancelAsync(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	done := goCall(c, context.Background(), types.NewHeader(types.CommandChangeNotify, 0),
		&types.ChangeNotifyRequest{OutputBufferLength: 1024})

	req := tr.next(t)
	mid := req.Header.MessageID
	tr.inject(respondAsync(req, 77, types.StatusPending, errorBody(types.CommandChangeNotify)))
	waitAsync(t, c, mid)

	require.NoError(t, c.Cancel(mid))
	cancel := tr.next(t)
	assert.Equal(t, types.CommandCancel, cancel.Header.Command)
	assert.True(t, cancel.Header.IsAsync())
	assert.Equal(t, uint64(77), cancel.Header.AsyncID())
	assert.Equal(t, uint16(0), cancel.Header.CreditCharge)
	assert.Equal(t, uint64(1), c.NextMessageID(), "cancel must not take a message id")

	tr.inject(respondAsync(req, 77, types.StatusCancelled, errorBody(types.CommandChangeNotify)))
	o := wait(t, done)
	assert.ErrorIs(t, o.err, ErrCancelled)
}

func TestConnCancelSync(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	hdr := types.NewHeader(types.CommandRead, 0)
	hdr.TreeID = 5
	done := goCall(c, context.Background(), hdr, types.NewReadRequest(types.FileID{}, 0, 10))

	req := tr.next(t)
	require.NoError(t, c.Cancel(req.Header.MessageID))
	cancel := tr.next(t)
	assert.Equal(t, types.CommandCancel, cancel.Header.Command)
	assert.False(t, cancel.Header.IsAsync())
	assert.Equal(t, req.Header.MessageID, cancel.Header.MessageID)
	assert.Equal(t, uint32(5), cancel.Header.TreeID)

	tr.inject(respond(req, types.StatusCancelled, errorBody(types.CommandRead)))
	o := wait(t, done)
	assert.ErrorIs(t, o.err, ErrCancelled)

	assert.ErrorIs(t, c.Cancel(99), ErrInvalidState)
}

func TestConnCancelWhileGoingAsync(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})

	for i := 0; i < 200; i++ {
		hdr := types.NewHeader(types.CommandChangeNotify, 0)
		hdr.TreeID = 5
		done := goCall(c, context.Background(), hdr, &types.ChangeNotifyRequest{OutputBufferLength: 1024})
		req := tr.next(t)

		interim := make(chan struct{})
		go func() {
			tr.inject(respondAsync(req, 77, types.StatusPending, errorBody(types.CommandChangeNotify)))
			close(interim)
		}()
		require.NoError(t, c.Cancel(req.Header.MessageID))

		cancel := tr.next(t)
		require.Equal(t, types.CommandCancel, cancel.Header.Command)
		assert.Equal(t, req.Header.MessageID, cancel.Header.MessageID)
		if cancel.Header.IsAsync() {
			assert.Equal(t, uint64(77), cancel.Header.AsyncID(), "iteration %d", i)
		} else {
			assert.Equal(t, uint32(5), cancel.Header.TreeID, "iteration %d", i)
		}

		<-interim
		tr.inject(respondAsync(req, 77, types.StatusCancelled, errorBody(types.CommandChangeNotify)))
		o := wait(t, done)
		require.ErrorIs(t, o.err, ErrCancelled)
	}
}

func TestConnTimeoutSendsCancelAndDropsLateResponse(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := goCall(c, ctx, echoHeader(), new(types.EchoRequest))
	req := tr.next(t)

	o := wait(t, done)
	assert.ErrorIs(t, o.err, ErrTimeout)
	assert.ErrorIs(t, o.err, context.DeadlineExceeded)
	assert.Nil(t, o.msg)

	cancelReq := tr.next(t)
	assert.Equal(t, types.CommandCancel, cancelReq.Header.Command)
	assert.Equal(t, req.Header.MessageID, cancelReq.Header.MessageID)
	assert.Equal(t, 0, c.Pending())

	// The late answer is discarded; the next call still gets its own.
	tr.inject(respond(req, types.StatusSuccess, new(types.EchoResponse)))
	next := goCall(c, context.Background(), types.NewHeader(types.CommandFlush, 0), &types.FlushRequest{})
	req2 := tr.next(t)
	assert.NotEqual(t, req.Header.MessageID, req2.Header.MessageID)
	tr.inject(respond(req2, types.StatusSuccess, new(types.FlushResponse)))

	o = wait(t, next)
	require.NoError(t, o.err)
	assert.IsType(t, &types.FlushResponse{}, o.msg.Body)
}

func TestConnRequestTimeoutDefault(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{RequestTimeout: 30 * time.Millisecond})
	_, err := c.Call(context.Background(), echoHeader(), new(types.EchoRequest))
	assert.ErrorIs(t, err, ErrTimeout)
	tr.next(t) // echo
	assert.Equal(t, types.CommandCancel, tr.next(t).Header.Command)
}

func TestConnContextCancelled(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := goCall(c, ctx, echoHeader(), new(types.EchoRequest))
	tr.next(t)
	cancel()

	o := wait(t, done)
	assert.ErrorIs(t, o.err, ErrCancelled)
	assert.ErrorIs(t, o.err, context.Canceled)
	assert.NotErrorIs(t, o.err, ErrTimeout)
}

func TestConnTransportFailureFailsAllPending(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	ctx := context.Background()
	a := goCall(c, ctx, echoHeader(), new(types.EchoRequest))
	tr.next(t)
	b := goCall(c, ctx, echoHeader(), new(types.EchoRequest))
	tr.next(t)

	tr.Close()
	for _, ch := range []<-chan callOutcome{a, b} {
		o := wait(t, ch)
		assert.True(t, IsTransport(o.err), "%v", o.err)
	}

	<-c.Done()
	assert.Error(t, c.Err())
	_, err := c.Call(ctx, echoHeader(), new(types.EchoRequest))
	assert.True(t, IsTransport(err), "%v", err)
}

func TestConnClose(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	done := goCall(c, context.Background(), echoHeader(), new(types.EchoRequest))
	tr.next(t)

	require.NoError(t, c.Close())
	o := wait(t, done)
	assert.ErrorIs(t, o.err, ErrNotConnected)

	_, err := c.Call(context.Background(), echoHeader(), new(types.EchoRequest))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnBreaks(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})

	tr.inject(responseBytes(types.CommandOplockBreak, unsolicitedMessageID, 0,
		&types.OplockBreak{OplockLevel: types.OplockLevelII}))
	tr.inject(responseBytes(types.CommandOplockBreak, unsolicitedMessageID, 0,
		&types.LeaseBreakNotification{NewEpoch: 3}))

	var got []types.Body
	for len(got) < 2 {
		select {
		case m := <-c.Breaks():
			got = append(got, m.Body)
		case <-time.After(2 * time.Second):
			t.Fatal("break not delivered")
		}
	}
	assert.IsType(t, &types.OplockBreak{}, got[0])
	assert.IsType(t, &types.LeaseBreakNotification{}, got[1])
	assert.Equal(t, 0, c.Pending())
}

func TestConnDropsUndecodableFrames(t *testing.T) {
	c, tr := newTestConn(t, ConnConfig{})
	done := goCall(c, context.Background(), echoHeader(), new(types.EchoRequest))
	req := tr.next(t)

	tr.inject([]byte{0xFD, 'S', 'M', 'B', 0, 0, 0, 0})
	tr.inject([]byte{0, 1, 2})
	tr.inject(respond(req, types.StatusSuccess, new(types.EchoResponse)))

	o := wait(t, done)
	require.NoError(t, o.err)
}
