package encoding

import (
	"github.com/google/uuid"
)

// GUID is a 16-byte identifier kept in wire order. SMB stores the first three
// groups little-endian, so String reorders them for display.
type GUID [16]byte

// NewRandomGUID returns a random (version 4) GUID in wire order.
func NewRandomGUID() GUID {
	return GUIDFromUUID(uuid.New())
}

// GUIDFromUUID converts an RFC 4122 UUID to wire order.
func GUIDFromUUID(u uuid.UUID) GUID {
	var g GUID
	copy(g[:], u[:])
	g[0], g[1], g[2], g[3] = u[3], u[2], u[1], u[0]
	g[4], g[5] = u[5], u[4]
	g[6], g[7] = u[7], u[6]
	return g
}

// UUID converts the GUID back to RFC 4122 byte order.
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	copy(u[:], g[:])
	u[0], u[1], u[2], u[3] = g[3], g[2], g[1], g[0]
	u[4], u[5] = g[5], g[4]
	u[6], u[7] = g[7], g[6]
	return u
}

// IsZero reports whether all bytes are zero.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

func (g GUID) String() string {
	return g.UUID().String()
}
