package encoding

// Unsigned is the set of integer kinds used for wire bit-flag sets.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Has reports whether every bit of want is set in f.
func Has[F Unsigned](f, want F) bool {
	return f&want == want
}

// Any reports whether at least one bit of want is set in f.
func Any[F Unsigned](f, want F) bool {
	return f&want != 0
}

// Union returns the bitwise OR of all sets.
func Union[F Unsigned](sets ...F) F {
	var out F
	for _, s := range sets {
		out |= s
	}
	return out
}

// Intersect returns the bits common to a and b.
func Intersect[F Unsigned](a, b F) F {
	return a & b
}

// Clear returns f with the bits of mask removed. Bits outside mask,
// including ones this package has no name for, are left as they were.
func Clear[F Unsigned](f, mask F) F {
	return f &^ mask
}
