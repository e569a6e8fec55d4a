package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestMD4(t *testing.T) {
	// RFC 1320 test suite
	tests := map[string]string{
		"":    "31d6cfe0d16ae931b73c59d7e0c089c0",
		"a":   "bde52cb31de33e46245e05fbdbd6fb24",
		"abc": "a448017aaf21d8525fc10ae87aa6729d",
	}
	for in, want := range tests {
		if got := hex.EncodeToString(MD4([]byte(in))); got != want {
			t.Errorf("MD4(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestHMACMD5Parts(t *testing.T) {
	key := []byte("key")
	whole := HMACMD5(key, []byte("hello world"))
	split := HMACMD5(key, []byte("hello "), []byte("world"))
	if !bytes.Equal(whole, split) {
		t.Errorf("split input changed the MAC: %x != %x", split, whole)
	}
	// RFC 2104 style vector
	want := "80070713463e7749b90c2dc24911e275"
	if got := hex.EncodeToString(HMACMD5(key, []byte("The quick brown fox jumps over the lazy dog"))); got != want {
		t.Errorf("HMACMD5 = %s, want %s", got, want)
	}
}

func TestRC4RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	plain := []byte("exported session key")
	enc := RC4(key, plain)
	if bytes.Equal(enc, plain) {
		t.Fatal("RC4 did not change the input")
	}
	if got := RC4(key, enc); !bytes.Equal(got, plain) {
		t.Errorf("RC4 round trip = %q, want %q", got, plain)
	}
	if RC4(nil, plain) != nil {
		t.Error("RC4 with empty key should return nil")
	}
}
