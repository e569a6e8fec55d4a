package smb

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineffectivecoder/smbwire/pkg/auth"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func connectClient(t *testing.T, srv *fakeServer, cfg ClientConfig) *Client {
	t.Helper()
	tr := newPipeTransport()
	tr.serve(t, srv.handle)
	c := NewClientWithConfig(cfg)
	require.NoError(t, c.ConnectTransport(context.Background(), tr, "srv"))
	t.Cleanup(func() { c.Close() })
	return c
}

func loggedIn(t *testing.T, srv *fakeServer) (*Client, *Tree) {
	t.Helper()
	ctx := context.Background()
	c := connectClient(t, srv, DefaultClientConfig())
	require.NoError(t, c.Authenticate(ctx, auth.NewPasswordCredentials("TEST", "user", "secret")))
	tree, err := c.TreeConnect(ctx, "share")
	require.NoError(t, err)
	return c, tree
}

func TestClientStateMachine(t *testing.T) {
	ctx := context.Background()
	c := NewClient()
	assert.Equal(t, StateDisconnected, c.State())
	_, err := c.TreeConnect(ctx, "share")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, c.Echo(ctx), ErrNotConnected)

	srv := newFakeServer()
	tr := newPipeTransport()
	tr.serve(t, srv.handle)
	require.NoError(t, c.ConnectTransport(ctx, tr, "srv"))
	defer c.Close()
	assert.Equal(t, StateNegotiated, c.State())
	assert.Equal(t, types.DialectSMB3_0_2, c.Dialect())
	assert.False(t, c.IsSMB1())
	require.NoError(t, c.Echo(ctx))

	assert.ErrorIs(t, c.ConnectTransport(ctx, newPipeTransport(), "srv"), ErrInvalidState)
	_, err = c.TreeConnect(ctx, "share")
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, c.Authenticate(ctx, auth.NewPasswordCredentials("TEST", "user", "secret")))
	assert.Equal(t, StateSessionEstablished, c.State())
	assert.True(t, c.IsConnected())
	assert.Equal(t, uint64(testSessionID), c.Session().SessionID())
	assert.Len(t, c.Session().SessionKey(), 16)
	assert.ErrorIs(t, c.Authenticate(ctx, auth.NewAnonymousCredentials()), ErrInvalidState)

	disk, err := c.TreeConnect(ctx, "share")
	require.NoError(t, err)
	assert.Equal(t, StateTreeConnected, c.State())
	assert.True(t, disk.IsDisk())
	assert.Equal(t, uint32(testTreeID), disk.TreeID())

	ipc, err := c.TreeConnect(ctx, "IPC$")
	require.NoError(t, err)
	assert.True(t, ipc.IsPipe())

	_, err = c.TreeConnect(ctx, "missing")
	assert.ErrorIs(t, err, ErrBadNetworkName)

	require.NoError(t, disk.Disconnect(ctx))
	assert.Equal(t, StateTreeConnected, c.State())
	require.NoError(t, c.TreeDisconnect(ctx, ipc))
	assert.Equal(t, StateSessionEstablished, c.State())

	require.NoError(t, c.Session().Logoff(ctx))
	assert.Equal(t, StateNegotiated, c.State())
	assert.Nil(t, c.Session())

	require.NoError(t, c.Close())
	assert.Equal(t, StateDisconnected, c.State())
	assert.ErrorIs(t, c.Echo(ctx), ErrNotConnected)
}

func TestClientProbeWildcardThenNegotiate(t *testing.T) {
	srv := newFakeServer()
	c := connectClient(t, srv, DefaultClientConfig())

	negs := srv.requests(types.CommandNegotiate)
	require.Len(t, negs, 1)
	assert.Equal(t, uint64(1), negs[0].Header.MessageID, "probe consumed id 0")
	assert.Equal(t, uint16(0), negs[0].Header.CreditCharge)
	req := negs[0].Body.(*types.NegotiateRequest)
	assert.Contains(t, req.Dialects, types.DialectSMB3_0_2)
	assert.Equal(t, uint64(2), c.Conn().NextMessageID())
}

func TestClientProbeAnsweredWith0202(t *testing.T) {
	srv := newFakeServer()
	srv.wildcard = false
	c := connectClient(t, srv, DefaultClientConfig())

	assert.Equal(t, types.DialectSMB2_0_2, c.Dialect())
	assert.Empty(t, srv.requests(types.CommandNegotiate))
	assert.Equal(t, uint64(1), c.Conn().NextMessageID())
	assert.Equal(t, "SMB 2.0.2", c.DialectName())
}

func TestClientWithoutProbe(t *testing.T) {
	srv := newFakeServer()
	cfg := DefaultClientConfig()
	cfg.AllowSMB1 = false
	cfg.Dialects = []types.Dialect{types.DialectSMB2_1, types.DialectSMB3_0_2, types.DialectSMB3_1_1}
	c := connectClient(t, srv, cfg)

	negs := srv.requests(types.CommandNegotiate)
	require.Len(t, negs, 1)
	assert.Equal(t, uint64(0), negs[0].Header.MessageID)
	req := negs[0].Body.(*types.NegotiateRequest)
	assert.Equal(t, cfg.Dialects, req.Dialects)
	assert.Len(t, req.Contexts, 2, "3.1.1 offers need preauth and netname contexts")
	assert.Equal(t, types.DialectSMB3_0_2, c.Dialect())
}

func TestClientSMB1Fallback(t *testing.T) {
	srv := newFakeServer()
	srv.smb1Index = 0
	c := connectClient(t, srv, DefaultClientConfig())

	assert.True(t, c.IsSMB1())
	assert.Nil(t, c.Conn())
	assert.Contains(t, c.DialectName(), "NT LM 0.12")
	assert.Equal(t, uint32(16644), c.NegotiateResult().MaxReadSize)
}

func TestClientSMB1DialectRejected(t *testing.T) {
	srv := newFakeServer()
	srv.smb1Index = 1
	tr := newPipeTransport()
	tr.serve(t, srv.handle)

	c := NewClient()
	err := c.ConnectTransport(context.Background(), tr, "srv")
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestTreeWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer()
	_, tree := loggedIn(t, srv)

	f, err := tree.Create(ctx, "/docs/../notes.txt", OpenOptions{
		Access:      types.GenericRead | types.GenericWrite,
		Disposition: types.FileOverwriteIf,
		Options:     types.FileNonDirectoryFile,
	})
	require.NoError(t, err)
	assert.Equal(t, `docs\..\notes.txt`, f.Name())
	n, err := f.Write([]byte("hello, world"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, int64(12), f.Size())
	require.NoError(t, f.Flush(ctx))
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "second close is a no-op")

	f, err = tree.OpenFile(ctx, `docs\..\notes.txt`, types.GenericRead, types.FileOpen)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))

	buf := make([]byte, 5)
	n, err = f.ReadAt(buf, 7)
	assert.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	n, err = f.ReadAt(buf, 100)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	pos, err := f.Seek(-5, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)
	_, err = f.Seek(-1, io.SeekStart)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestFileChunkedIO(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer()
	srv.maxIO = 4
	srv.dialect = types.DialectSMB2_1
	srv.capabilities = types.GlobalCapLargeMTU
	_, tree := loggedIn(t, srv)

	f, err := tree.Create(ctx, "chunks.bin", OpenOptions{
		Access:      types.GenericRead | types.GenericWrite,
		Disposition: types.FileCreate,
	})
	require.NoError(t, err)
	n, err := f.WriteAtContext(ctx, []byte("0123456789"), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	buf := make([]byte, 10)
	n, err = f.ReadAtContext(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(buf[:n]))

	writes := srv.requests(types.CommandWrite)
	require.Len(t, writes, 3)
	for _, w := range writes {
		assert.LessOrEqual(t, len(w.Body.(*types.WriteRequest).Data), 4)
	}
	assert.Len(t, srv.requests(types.CommandRead), 3)
}

func TestFileNegativeOffset(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer()
	_, tree := loggedIn(t, srv)

	f, err := tree.Create(ctx, "neg.bin", OpenOptions{
		Access:      types.GenericRead | types.GenericWrite,
		Disposition: types.FileCreate,
	})
	require.NoError(t, err)

	n, err := f.WriteAt([]byte("x"), -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Zero(t, n)
	n, err = f.ReadAt(make([]byte, 4), -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Zero(t, n)

	assert.Empty(t, srv.requests(types.CommandWrite))
	assert.Empty(t, srv.requests(types.CommandRead))
}

func TestCreditCharge(t *testing.T) {
	s := &Session{
		client:    NewClient(),
		negResult: &NegotiateResult{Dialect: types.DialectSMB3_0_2, Capabilities: types.GlobalCapLargeMTU},
	}
	assert.Equal(t, uint16(1), s.creditCharge(0))
	assert.Equal(t, uint16(1), s.creditCharge(65536))
	assert.Equal(t, uint16(2), s.creditCharge(65537))
	assert.Equal(t, uint16(16), s.creditCharge(1<<20))

	h := s.header(types.CommandRead, 3, 1<<20)
	assert.Equal(t, uint16(16), h.CreditCharge)
	assert.Equal(t, uint16(64), h.CreditRequest)
	assert.Equal(t, uint32(3), h.TreeID)

	s.negResult.Dialect = types.DialectSMB2_0_2
	assert.Equal(t, uint16(1), s.creditCharge(1<<20))
}

func TestTreeDirectoryOperations(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer()
	srv.files["a.txt"] = []byte("aaa")
	srv.files[`sub\b.txt`] = []byte("bb")
	srv.dirs["sub"] = true
	_, tree := loggedIn(t, srv)

	files, err := tree.ListDirectory(ctx, "")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, int64(3), files[0].Size)
	assert.False(t, files[0].IsDir)
	assert.Equal(t, "sub", files[1].Name)
	assert.True(t, files[1].IsDir)
	assert.True(t, files[0].LastWriteTime.Equal(testTime))

	files, err = tree.ListDirectory(ctx, "/sub")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].Name)

	require.NoError(t, tree.Mkdir(ctx, "new"))
	assert.True(t, srv.dirs["new"])
	err = tree.Mkdir(ctx, "new")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, tree.Rename(ctx, "a.txt", `sub\a.txt`, false))
	assert.Equal(t, []byte("aaa"), srv.files[`sub\a.txt`])

	st, err := tree.Stat(ctx, `sub\a.txt`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Size)
	assert.False(t, st.IsDir)

	require.NoError(t, tree.DeleteFile(ctx, `sub\a.txt`))
	_, ok := srv.files[`sub\a.txt`]
	assert.False(t, ok)
	require.NoError(t, tree.Rmdir(ctx, "new"))
	assert.False(t, srv.dirs["new"])

	err = tree.DeleteFile(ctx, "nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tree.ListDirectory(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileInfoAndControl(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer()
	srv.files["data.bin"] = []byte("0123456789")
	_, tree := loggedIn(t, srv)

	f, err := tree.OpenFile(ctx, "data.bin", types.GenericRead|types.GenericWrite, types.FileOpen)
	require.NoError(t, err)
	defer f.Close()

	std, err := f.StandardInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), std.EndOfFile)

	basic, err := f.BasicInfo(ctx)
	require.NoError(t, err)
	assert.True(t, basic.LastWriteTime.Time().Equal(testTime))

	sd, err := f.GetSecurityDescriptor(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(1), sd[0])

	require.NoError(t, f.Truncate(ctx, 4))
	assert.Equal(t, []byte("0123"), srv.files["data.bin"])
	assert.Equal(t, int64(4), f.Size())

	mod := testTime.Add(time.Hour)
	require.NoError(t, f.SetTimes(ctx, nil, nil, &mod))
	set := srv.requests(types.CommandSetInfo)
	var info types.FileBasicInfo
	require.NoError(t, info.Unmarshal(set[len(set)-1].Body.(*types.SetInfoRequest).Buffer))
	assert.True(t, info.LastWriteTime.Time().Equal(mod))
	assert.True(t, info.CreationTime.IsZero())

	require.NoError(t, f.Lock(ctx, 0, 4, true, false))
	require.NoError(t, f.Unlock(ctx, 0, 4))
	locks := srv.requests(types.CommandLock)
	require.Len(t, locks, 2)
	assert.Equal(t, types.LockFlagExclusiveLock|types.LockFlagFailImmediately,
		locks[0].Body.(*types.LockRequest).Locks[0].Flags)
	assert.Equal(t, types.LockFlagUnlock, locks[1].Body.(*types.LockRequest).Locks[0].Flags)

	p, raw, err := f.Ioctl(ctx, types.FsctlSrvEnumerateSnapshots, nil, 4096)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	snaps, ok := p.(*types.SrvSnapshotArray)
	require.True(t, ok, "payload %T", p)
	assert.Equal(t, []string{"@GMT-2024.01.01-00.00.00"}, snaps.Snapshots)
}

func TestDirectoryNotify(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer()
	_, tree := loggedIn(t, srv)

	dir, err := tree.OpenDirectory(ctx, "")
	require.NoError(t, err)
	defer dir.Close()

	changes, err := dir.Notify(ctx, types.FileNotifyChangeFileName, true)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "new.txt", changes[0].FileName)
	assert.Equal(t, types.FileActionAdded, changes[0].Action)
	req := srv.requests(types.CommandChangeNotify)[0].Body.(*types.ChangeNotifyRequest)
	assert.Equal(t, types.WatchTree, req.Flags)

	f, err := tree.Create(ctx, "plain.txt", OpenOptions{Access: types.GenericWrite, Disposition: types.FileCreate})
	require.NoError(t, err)
	_, err = f.Notify(ctx, types.FileNotifyChangeFileName, false)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDirectoryNotifyTimeoutCancels(t *testing.T) {
	srv := newFakeServer()
	srv.pendNotify = true
	c, tree := loggedIn(t, srv)

	dir, err := tree.OpenDirectory(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = dir.Notify(ctx, types.FileNotifyChangeFileName, false)
	assert.ErrorIs(t, err, ErrTimeout)

	require.Eventually(t, func() bool {
		cancels := srv.requests(types.CommandCancel)
		return len(cancels) == 1 && cancels[0].Header.IsAsync() && cancels[0].Header.AsyncID() == 0xA5
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.Conn().Pending())
}

func TestOpenPipeRequiresIPC(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer()
	srv.files["srvsvc"] = nil
	c, disk := loggedIn(t, srv)

	_, err := disk.OpenPipe(ctx, "srvsvc", types.GenericRead)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	ipc, err := c.TreeConnect(ctx, "IPC$")
	require.NoError(t, err)
	p, err := ipc.OpenPipe(ctx, `\srvsvc`, types.GenericRead|types.GenericWrite)
	require.NoError(t, err)
	assert.Equal(t, "srvsvc", p.Name())
	creates := srv.requests(types.CommandCreate)
	assert.Equal(t, types.FileShareRead|types.FileShareWrite, creates[len(creates)-1].Body.(*types.CreateRequest).ShareAccess)
}

func TestBodyAsMismatch(t *testing.T) {
	m := &Message{Version: Version2, Header: types.NewHeader(types.CommandRead, 1), Body: new(types.EchoResponse)}
	_, err := bodyAs[*types.ReadResponse](m)
	assert.True(t, IsStructural(err))

	r, err := bodyAs[*types.EchoResponse](m)
	require.NoError(t, err)
	assert.NotNil(t, r)
}
