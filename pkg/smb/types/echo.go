package types

// EchoRequest represents an SMB2 ECHO request
type EchoRequest struct{ empty4 }

func (r *EchoRequest) Command() Command { return CommandEcho }

// EchoResponse represents an SMB2 ECHO response
type EchoResponse struct{ empty4 }

func (r *EchoResponse) Command() Command { return CommandEcho }

// CancelRequest represents an SMB2 CANCEL request. It has no response; the
// header's MessageID (or AsyncID) names the request being cancelled.
type CancelRequest struct{ empty4 }

func (r *CancelRequest) Command() Command { return CommandCancel }
