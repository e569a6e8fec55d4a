package smb

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// pipeTransport is an in-memory Transport. Requests written by the code
// under test appear on sent; frames pushed with inject are returned by Recv.
type pipeTransport struct {
	sent   chan []byte
	recv   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{
		sent:   make(chan []byte, 64),
		recv:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (p *pipeTransport) Send(msg []byte) error {
	select {
	case <-p.closed:
		return errTransportClosed
	default:
	}
	p.sent <- append([]byte(nil), msg...)
	return nil
}

func (p *pipeTransport) Recv() ([]byte, error) {
	select {
	case b := <-p.recv:
		return b, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeTransport) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeTransport) inject(b []byte) {
	p.recv <- b
}

// next returns the next request written to the transport.
func (p *pipeTransport) next(t *testing.T) *Message {
	t.Helper()
	select {
	case b := <-p.sent:
		m, err := DecodeMessage(b)
		require.NoError(t, err)
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no request sent")
		return nil
	}
}

// nothingSent fails if a request shows up within d.
func (p *pipeTransport) nothingSent(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case b := <-p.sent:
		t.Fatalf("unexpected request % X", b[:min(len(b), 16)])
	case <-time.After(d):
	}
}

// serve answers every request with the frames handler returns until the
// transport is closed.
func (p *pipeTransport) serve(t *testing.T, handler func(req *Message) [][]byte) {
	go func() {
		for {
			select {
			case b := <-p.sent:
				m, err := DecodeMessage(b)
				if err != nil {
					t.Errorf("server decode: %v", err)
					return
				}
				for _, r := range handler(m) {
					p.inject(r)
				}
			case <-p.closed:
				return
			}
		}
	}()
}

// respond builds the server's answer to req.
func respond(req *Message, status types.NTStatus, body types.Body) []byte {
	h := *req.Header
	h.Flags |= types.FlagsServerToRedir
	h.Status = status
	h.CreditRequest = 1
	h.NextCommand = 0
	return append(h.Marshal(), body.Marshal()...)
}

// respondAsync builds an async answer to req carrying asyncID.
func respondAsync(req *Message, asyncID uint64, status types.NTStatus, body types.Body) []byte {
	h := *req.Header
	h.Flags |= types.FlagsServerToRedir
	h.SetAsyncID(asyncID)
	h.Status = status
	h.CreditRequest = 1
	return append(h.Marshal(), body.Marshal()...)
}

func errorBody(cmd types.Command) *types.ErrorResponse {
	return &types.ErrorResponse{Cmd: cmd}
}
