// Package crypto holds the hash and stream primitives NTLM is built from.
package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rc4"

	"golang.org/x/crypto/md4"
)

// MD4 returns the MD4 digest of data.
func MD4(data []byte) []byte {
	h := md4.New()
	h.Write(data)
	return h.Sum(nil)
}

// HMACMD5 returns HMAC-MD5 over the concatenation of parts.
func HMACMD5(key []byte, parts ...[]byte) []byte {
	h := hmac.New(md5.New, key)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// RC4 encrypts src with key. RC4 accepts keys of 1 to 256 bytes; other
// lengths yield nil.
func RC4(key, src []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil
	}
	dst := make([]byte, len(src))
	c.XORKeyStream(dst, src)
	return dst
}
