package smb

import (
	"sort"
	"strings"
	"sync"

	"github.com/ineffectivecoder/smbwire/internal/encoding"
	"github.com/ineffectivecoder/smbwire/pkg/auth"
	"github.com/ineffectivecoder/smbwire/pkg/smb/smb1"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

const (
	testSessionID = 0x55
	testTreeID    = 7
)

// fakeServer is a small in-memory SMB2 file server for exercising the
// client facade.
type fakeServer struct {
	mu sync.Mutex

	dialect      types.Dialect
	wildcard     bool // answer the multi-protocol probe with 0x02FF
	smb1Index    int  // when >= 0, answer the probe as an SMB1 server picking this dialect
	maxIO        uint32
	capabilities types.Capabilities
	pendNotify   bool // answer CHANGE_NOTIFY with STATUS_PENDING only

	files   map[string][]byte
	dirs    map[string]bool
	handles map[uint64]*fakeHandle
	nextFID uint64

	received []*Message
}

type fakeHandle struct {
	name          string
	deleteOnClose bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		dialect:   types.DialectSMB3_0_2,
		wildcard:  true,
		smb1Index: -1,
		maxIO:     1 << 20,
		files:     map[string][]byte{},
		dirs:      map[string]bool{"": true},
		handles:   map[uint64]*fakeHandle{},
	}
}

// requests returns the SMB2 requests received for cmd.
func (s *fakeServer) requests(cmd types.Command) []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Message
	for _, m := range s.received {
		if m.Version == Version2 && m.Header.Command == cmd {
			out = append(out, m)
		}
	}
	return out
}

func (s *fakeServer) handle(req *Message) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, req)

	if req.Version == Version1 {
		return [][]byte{s.probe(req)}
	}
	switch b := req.Body.(type) {
	case *types.NegotiateRequest:
		return [][]byte{respond(req, 0, s.negotiateResponse(s.dialect))}
	case *types.SessionSetupRequest:
		return [][]byte{s.sessionSetup(req)}
	case *types.LogoffRequest:
		return [][]byte{respond(req, 0, new(types.LogoffResponse))}
	case *types.TreeConnectRequest:
		return [][]byte{s.treeConnect(req, b)}
	case *types.TreeDisconnectRequest:
		return [][]byte{respond(req, 0, new(types.TreeDisconnectResponse))}
	case *types.CreateRequest:
		return [][]byte{s.create(req, b)}
	case *types.CloseRequest:
		if h := s.handles[b.FileID.Persistent]; h != nil && h.deleteOnClose {
			delete(s.files, h.name)
			delete(s.dirs, h.name)
		}
		delete(s.handles, b.FileID.Persistent)
		return [][]byte{respond(req, 0, new(types.CloseResponse))}
	case *types.ReadRequest:
		return [][]byte{s.read(req, b)}
	case *types.WriteRequest:
		h := s.handles[b.FileID.Persistent]
		data := s.files[h.name]
		if end := int(b.Offset) + len(b.Data); end > len(data) {
			data = append(data, make([]byte, end-len(data))...)
		}
		copy(data[b.Offset:], b.Data)
		s.files[h.name] = data
		return [][]byte{respond(req, 0, &types.WriteResponse{Count: uint32(len(b.Data))})}
	case *types.FlushRequest:
		return [][]byte{respond(req, 0, new(types.FlushResponse))}
	case *types.LockRequest:
		return [][]byte{respond(req, 0, new(types.LockResponse))}
	case *types.EchoRequest:
		return [][]byte{respond(req, 0, new(types.EchoResponse))}
	case *types.QueryDirectoryRequest:
		return [][]byte{s.queryDirectory(req, b)}
	case *types.QueryInfoRequest:
		return [][]byte{s.queryInfo(req, b)}
	case *types.SetInfoRequest:
		return [][]byte{s.setInfo(req, b)}
	case *types.IoctlRequest:
		return [][]byte{respond(req, 0, &types.IoctlResponse{
			CtlCode: b.CtlCode,
			FileID:  b.FileID,
			Output:  (&types.SrvSnapshotArray{NumberOfSnapshots: 1, Snapshots: []string{"@GMT-2024.01.01-00.00.00"}}).Marshal(),
		})}
	case *types.ChangeNotifyRequest:
		if s.pendNotify {
			return [][]byte{respondAsync(req, 0xA5, types.StatusPending, errorBody(types.CommandChangeNotify))}
		}
		return [][]byte{respond(req, 0, &types.ChangeNotifyResponse{OutputBuffer: notifyRecord(types.FileActionAdded, "new.txt")})}
	case *types.CancelRequest:
		return nil
	}
	return [][]byte{respond(req, types.StatusNotSupported, errorBody(req.Header.Command))}
}

func (s *fakeServer) negotiateResponse(d types.Dialect) *types.NegotiateResponse {
	return &types.NegotiateResponse{
		DialectRevision: d,
		ServerGUID:      encoding.GUID{0xAB},
		Capabilities:    s.capabilities,
		MaxTransactSize: s.maxIO,
		MaxReadSize:     s.maxIO,
		MaxWriteSize:    s.maxIO,
	}
}

func (s *fakeServer) probe(req *Message) []byte {
	if s.smb1Index >= 0 {
		h := req.SMB1.Header
		h.Flags |= smb1.FlagsResponse
		resp := &smb1.NegotiateResponse{
			DialectIndex:  uint16(s.smb1Index),
			MaxMpxCount:   50,
			MaxBufferSize: 16644,
			Capabilities:  smb1.CapExtendedSec | smb1.CapUnicode | smb1.CapNTStatusCodes,
			ServerGUID:    encoding.GUID{0xCD},
			SecurityBlob:  []byte{0x60, 0x00},
		}
		return (&smb1.Message{Header: h, Blocks: []smb1.Block{resp.Block()}}).Marshal()
	}

	d := types.DialectSMB2_0_2
	if s.wildcard {
		d = types.DialectWildcard
	}
	h := types.NewHeader(types.CommandNegotiate, 0)
	h.Flags |= types.FlagsServerToRedir
	return append(h.Marshal(), s.negotiateResponse(d).Marshal()...)
}

func testChallenge() *auth.ChallengeMessage {
	return &auth.ChallengeMessage{
		NegotiateFlags:  auth.DefaultNegotiateFlags,
		ServerChallenge: [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		TargetName:      encoding.ToUTF16LE("TEST"),
		TargetInfo: auth.MarshalAvPairs([]auth.AvPair{
			{AvID: auth.MsvAvNbDomainName, Value: encoding.ToUTF16LE("TEST")},
		}),
		Version: auth.DefaultVersion(),
	}
}

func (s *fakeServer) sessionSetup(req *Message) []byte {
	if req.Header.SessionID == 0 {
		token, _ := auth.EncodeNegTokenResp(auth.NegStateAcceptIncomplete, testChallenge().Marshal())
		h := *req.Header
		h.SessionID = testSessionID
		m := &Message{Header: &h}
		return respond(m, types.StatusMoreProcessingReq, &types.SessionSetupResponse{SecurityBuffer: token})
	}
	return respond(req, 0, &types.SessionSetupResponse{})
}

func (s *fakeServer) treeConnect(req *Message, b *types.TreeConnectRequest) []byte {
	share := b.Path[strings.LastIndex(b.Path, `\`)+1:]
	st := types.ShareTypeDisk
	switch share {
	case "missing":
		return respond(req, types.StatusBadNetworkName, errorBody(types.CommandTreeConnect))
	case "IPC$":
		st = types.ShareTypePipe
	}
	h := *req.Header
	h.TreeID = testTreeID
	return respond(&Message{Header: &h}, 0, &types.TreeConnectResponse{ShareType: st, MaximalAccess: types.GenericAll})
}

func (s *fakeServer) create(req *Message, b *types.CreateRequest) []byte {
	name := b.Name
	_, isFile := s.files[name]
	isDir := s.dirs[name]
	exists := isFile || isDir
	wantDir := b.CreateOptions&types.FileDirectoryFile != 0

	switch b.CreateDisposition {
	case types.FileOpen:
		if !exists {
			return respond(req, types.StatusObjectNameNotFound, errorBody(types.CommandCreate))
		}
	case types.FileCreate:
		if exists {
			return respond(req, types.StatusObjectNameCollision, errorBody(types.CommandCreate))
		}
	case types.FileOverwriteIf:
		if !wantDir {
			s.files[name] = nil
		}
	}
	if !exists {
		if wantDir {
			s.dirs[name] = true
		} else {
			s.files[name] = nil
		}
		isDir = wantDir
	}
	if isDir && b.CreateOptions&types.FileNonDirectoryFile != 0 {
		return respond(req, types.StatusFileIsADirectory, errorBody(types.CommandCreate))
	}

	s.nextFID++
	s.handles[s.nextFID] = &fakeHandle{name: name, deleteOnClose: b.CreateOptions&types.FileDeleteOnClose != 0}
	attrs := types.FileAttributeNormal
	if isDir {
		attrs = types.FileAttributeDirectory
	}
	return respond(req, 0, &types.CreateResponse{
		FileID:         types.FileID{Persistent: s.nextFID, Volatile: s.nextFID},
		EndOfFile:      uint64(len(s.files[name])),
		FileAttributes: attrs,
	})
}

func (s *fakeServer) read(req *Message, b *types.ReadRequest) []byte {
	data := s.files[s.handles[b.FileID.Persistent].name]
	if b.Offset >= uint64(len(data)) {
		return respond(req, types.StatusEndOfFile, errorBody(types.CommandRead))
	}
	end := min(uint64(len(data)), b.Offset+uint64(b.Length))
	return respond(req, 0, &types.ReadResponse{Data: data[b.Offset:end]})
}

func (s *fakeServer) children(dir string) []string {
	prefix := dir + `\`
	if dir == "" {
		prefix = ""
	}
	var names []string
	add := func(p string) {
		if p == "" || !strings.HasPrefix(p, prefix) {
			return
		}
		if rest := p[len(prefix):]; !strings.Contains(rest, `\`) {
			names = append(names, rest)
		}
	}
	for p := range s.files {
		add(p)
	}
	for p := range s.dirs {
		add(p)
	}
	sort.Strings(names)
	return names
}

func (s *fakeServer) queryDirectory(req *Message, b *types.QueryDirectoryRequest) []byte {
	if b.Flags&types.QueryDirectoryRestart == 0 {
		return respond(req, types.StatusNoMoreFiles, errorBody(types.CommandQueryDirectory))
	}
	dir := s.handles[b.FileID.Persistent].name
	var buf []byte
	names := append([]string{".", ".."}, s.children(dir)...)
	for i, n := range names {
		full := n
		if dir != "" {
			full = dir + `\` + n
		}
		attrs := types.FileAttributeNormal
		if n == "." || n == ".." || s.dirs[full] {
			attrs = types.FileAttributeDirectory
		}
		e := bothDirEntry(n, attrs, uint64(len(s.files[full])))
		if i < len(names)-1 {
			encoding.PutUint32LE(e[0:4], uint32(len(e)))
		}
		buf = append(buf, e...)
	}
	return respond(req, 0, &types.QueryDirectoryResponse{OutputBuffer: buf})
}

func bothDirEntry(name string, attrs types.FileAttributes, size uint64) []byte {
	n := encoding.ToUTF16LE(name)
	e := make([]byte, 94+len(n))
	encoding.PutUint64LE(e[24:32], uint64(types.NewFiletime(testTime)))
	encoding.PutUint64LE(e[40:48], size)
	encoding.PutUint32LE(e[56:60], uint32(attrs))
	encoding.PutUint32LE(e[60:64], uint32(len(n)))
	copy(e[94:], n)
	for len(e)%8 != 0 {
		e = append(e, 0)
	}
	return e
}

func notifyRecord(action uint32, name string) []byte {
	n := encoding.ToUTF16LE(name)
	e := make([]byte, 12+len(n))
	encoding.PutUint32LE(e[4:8], action)
	encoding.PutUint32LE(e[8:12], uint32(len(n)))
	copy(e[12:], n)
	return e
}

func (s *fakeServer) queryInfo(req *Message, b *types.QueryInfoRequest) []byte {
	name := s.handles[b.FileID.Persistent].name
	var out []byte
	switch {
	case b.InfoType == types.InfoTypeSecurity:
		out = []byte{1, 0, 0x04, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	case b.FileInfoClass == types.FileBasicInformation:
		attrs := types.FileAttributeNormal
		if s.dirs[name] {
			attrs = types.FileAttributeDirectory
		}
		out = (&types.FileBasicInfo{LastWriteTime: types.NewFiletime(testTime), FileAttributes: attrs}).Marshal()
	case b.FileInfoClass == types.FileStandardInformation:
		out = make([]byte, 24)
		encoding.PutUint64LE(out[8:16], uint64(len(s.files[name])))
		encoding.PutUint32LE(out[16:20], 1)
		if s.dirs[name] {
			out[21] = 1
		}
	default:
		return respond(req, types.StatusInvalidInfoClass, errorBody(types.CommandQueryInfo))
	}
	return respond(req, 0, &types.QueryInfoResponse{OutputBuffer: out})
}

func (s *fakeServer) setInfo(req *Message, b *types.SetInfoRequest) []byte {
	name := s.handles[b.FileID.Persistent].name
	switch b.FileInfoClass {
	case types.FileRenameInformation:
		n := encoding.Uint32LE(b.Buffer[16:20])
		target := encoding.FromUTF16LE(b.Buffer[20 : 20+n])
		if data, ok := s.files[name]; ok {
			delete(s.files, name)
			s.files[target] = data
		} else {
			delete(s.dirs, name)
			s.dirs[target] = true
		}
		s.handles[b.FileID.Persistent].name = target
	case types.FileEndOfFileInformation:
		size := encoding.Uint64LE(b.Buffer)
		data := s.files[name]
		if int(size) <= len(data) {
			data = data[:size]
		} else {
			data = append(data, make([]byte, int(size)-len(data))...)
		}
		s.files[name] = data
	case types.FileBasicInformation:
	default:
		return respond(req, types.StatusInvalidInfoClass, errorBody(types.CommandSetInfo))
	}
	return respond(req, 0, new(types.SetInfoResponse))
}
