// Package auth produces the security tokens carried by SESSION_SETUP:
// NTLMv2 (password or pass-the-hash), Kerberos through gokrb5, and the
// SPNEGO wrapping both travel in.
package auth

import (
	"encoding/hex"
	"fmt"
)

// Credentials identifies the account a session authenticates as.
type Credentials interface {
	Domain() string
	Username() string
	IsHashAuth() bool
}

// KerberosProvider is implemented by credentials that authenticate with
// Kerberos instead of NTLM.
type KerberosProvider interface {
	Credentials
	IsKerberos() bool
	GetSPNEGOToken(spn string) ([]byte, error)
}

// PasswordCredentials authenticate with a cleartext password.
type PasswordCredentials struct {
	domain   string
	username string
	password string
}

// NewPasswordCredentials creates password-based credentials
func NewPasswordCredentials(domain, username, password string) *PasswordCredentials {
	return &PasswordCredentials{domain: domain, username: username, password: password}
}

func (c *PasswordCredentials) Domain() string   { return c.domain }
func (c *PasswordCredentials) Username() string { return c.username }
func (c *PasswordCredentials) Password() string { return c.password }
func (c *PasswordCredentials) IsHashAuth() bool { return false }

// HashCredentials authenticate with the 16-byte NT hash of a password.
type HashCredentials struct {
	domain   string
	username string
	ntHash   [16]byte
}

// NewHashCredentials creates pass-the-hash credentials. Hashes shorter than
// 16 bytes are zero padded.
func NewHashCredentials(domain, username string, ntHash []byte) *HashCredentials {
	c := &HashCredentials{domain: domain, username: username}
	copy(c.ntHash[:], ntHash)
	return c
}

// ParseHashCredentials accepts an NT hash in hex, optionally in LM:NT form.
func ParseHashCredentials(domain, username, hash string) (*HashCredentials, error) {
	if i := len(hash) - 33; i >= 0 && hash[i] == ':' {
		hash = hash[i+1:]
	}
	nt, err := hex.DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("parse NT hash: %w", err)
	}
	if len(nt) != 16 {
		return nil, fmt.Errorf("NT hash must be 16 bytes, got %d", len(nt))
	}
	return NewHashCredentials(domain, username, nt), nil
}

func (c *HashCredentials) Domain() string   { return c.domain }
func (c *HashCredentials) Username() string { return c.username }
func (c *HashCredentials) IsHashAuth() bool { return true }

// NTHash returns a copy of the NT hash.
func (c *HashCredentials) NTHash() []byte {
	h := c.ntHash
	return h[:]
}

// AnonymousCredentials request a null session.
type AnonymousCredentials struct{}

// NewAnonymousCredentials creates anonymous credentials
func NewAnonymousCredentials() *AnonymousCredentials {
	return &AnonymousCredentials{}
}

func (c *AnonymousCredentials) Domain() string   { return "" }
func (c *AnonymousCredentials) Username() string { return "" }
func (c *AnonymousCredentials) IsHashAuth() bool { return false }
