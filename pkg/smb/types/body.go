package types

import "github.com/ineffectivecoder/smbwire/internal/encoding"

// Body is a command-specific payload that follows the SMB2 header. Every
// request and response structure in this package implements it.
type Body interface {
	encoding.Record
	Command() Command
}
