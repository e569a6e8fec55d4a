// Package pipe opens and probes named pipes on an IPC$ tree.
package pipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/ineffectivecoder/smbwire/pkg/smb"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

// DefaultAccess is the access mask used by Open.
const DefaultAccess = types.FileReadData | types.FileWriteData |
	types.FileReadEA | types.FileReadAttributes |
	types.ReadControl | types.Synchronize

// maxTransact bounds the reply of a single Transact.
const maxTransact = 64 * 1024

// Pipe is an open named pipe.
type Pipe struct {
	file *smb.File
	name string
}

// Open opens pipeName on tree, which must be an IPC share.
func Open(ctx context.Context, tree *smb.Tree, pipeName string) (*Pipe, error) {
	file, err := tree.OpenPipe(ctx, pipeName, DefaultAccess)
	if err != nil {
		return nil, fmt.Errorf("open pipe %s: %w", pipeName, err)
	}
	return &Pipe{file: file, name: pipeName}, nil
}

// Read reads one message from the pipe. Pipes ignore the offset, so it is
// always zero.
func (p *Pipe) Read(buf []byte) (int, error) {
	return p.file.ReadAt(buf, 0)
}

// Write writes one message to the pipe.
func (p *Pipe) Write(data []byte) (int, error) {
	return p.file.WriteAt(data, 0)
}

// Transact sends request and returns the reply in one FSCTL_PIPE_TRANSCEIVE
// round trip.
func (p *Pipe) Transact(ctx context.Context, request []byte) ([]byte, error) {
	return p.file.Transact(ctx, request, maxTransact)
}

// Close closes the pipe handle.
func (p *Pipe) Close() error {
	return p.file.Close()
}

// Name returns the pipe name.
func (p *Pipe) Name() string {
	return p.name
}

// Well-known pipes checked by Probe.
var WellKnown = []string{
	"srvsvc",
	"wkssvc",
	"samr",
	"lsarpc",
	"netlogon",
	"spoolss",
	"svcctl",
	"atsvc",
	"epmapper",
	"browser",
	"winreg",
	"eventlog",
}

// Availability is the outcome of probing one pipe.
type Availability int

const (
	Available Availability = iota
	AccessDenied
	NotFound
	Failed
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case AccessDenied:
		return "access denied"
	case NotFound:
		return "not found"
	}
	return "error"
}

// Status reports the outcome of opening one pipe.
type Status struct {
	Name   string
	Result Availability
	Err    error
}

// Classify maps an open error onto an Availability.
func Classify(err error) Availability {
	switch {
	case err == nil:
		return Available
	case errors.Is(err, smb.ErrAccessDenied):
		return AccessDenied
	case errors.Is(err, smb.ErrNotFound), errors.Is(err, smb.ErrBadNetworkName):
		return NotFound
	}
	return Failed
}

// Check opens and closes pipeName.
func Check(ctx context.Context, tree *smb.Tree, pipeName string) Status {
	p, err := Open(ctx, tree, pipeName)
	if err == nil {
		p.Close()
	}
	return Status{Name: pipeName, Result: Classify(err), Err: err}
}

// Probe checks each name in order; an empty list means WellKnown.
func Probe(ctx context.Context, tree *smb.Tree, names []string) []Status {
	if len(names) == 0 {
		names = WellKnown
	}
	out := make([]Status, 0, len(names))
	for _, name := range names {
		out = append(out, Check(ctx, tree, name))
	}
	return out
}
