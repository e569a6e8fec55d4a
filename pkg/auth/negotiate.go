package auth

import (
	"github.com/ineffectivecoder/smbwire/internal/encoding"
)

// NegotiateMessage is the NTLMSSP NEGOTIATE_MESSAGE (type 1).
type NegotiateMessage struct {
	NegotiateFlags uint32
	Domain         string // sent only with NtlmsspNegotiateOEMDomainSupplied
	Workstation    string // sent only with NtlmsspNegotiateOEMWorkstationSupplied
	Version        Version
}

// NewNegotiateMessage creates a type 1 message with the default flags and
// no domain or workstation.
func NewNegotiateMessage() *NegotiateMessage {
	return &NegotiateMessage{
		NegotiateFlags: DefaultNegotiateFlags,
		Version:        DefaultVersion(),
	}
}

// Marshal serializes the type 1 message. Domain and workstation are OEM
// strings per MS-NLMP.
func (m *NegotiateMessage) Marshal() []byte {
	flags := m.NegotiateFlags
	var domain, workstation []byte
	if m.Domain != "" {
		flags |= NtlmsspNegotiateOEMDomainSupplied
		domain = encoding.ToOEM(m.Domain)
	}
	if m.Workstation != "" {
		flags |= NtlmsspNegotiateOEMWorkstationSupplied
		workstation = encoding.ToOEM(m.Workstation)
	}

	w := encoding.NewWriter(40 + len(domain) + len(workstation))
	w.WriteBytes(ntlmSignature[:])
	w.WriteUint32(NtLmNegotiate)
	w.WriteUint32(flags)
	var p payload
	p.reserve(w, domain)
	p.reserve(w, workstation)
	m.Version.write(w)
	p.flush(w)
	return w.Bytes()
}

// Unmarshal parses a type 1 message.
func (m *NegotiateMessage) Unmarshal(buf []byte) error {
	r := encoding.NewReader(buf)
	if err := readHeader(r, NtLmNegotiate); err != nil {
		return err
	}
	m.NegotiateFlags = r.ReadUint32()
	domain, err := readField(r, buf, "domain")
	if err != nil {
		return err
	}
	workstation, err := readField(r, buf, "workstation")
	if err != nil {
		return err
	}
	m.Domain, m.Workstation = encoding.FromOEM(domain), encoding.FromOEM(workstation)
	if encoding.Has(m.NegotiateFlags, NtlmsspNegotiateVersion) && r.Remaining() >= 8 {
		m.Version = readVersion(r)
	}
	return nil
}
