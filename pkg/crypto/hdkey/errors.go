package hdkey

import "errors"

var (
	// ErrInvalidSeed is returned when master seed material is out of range
	ErrInvalidSeed = errors.New("seed length must be between 16 and 64 bytes")

	// ErrHardenedFromPublic is returned when hardened derivation is
	// attempted on a public-only key
	ErrHardenedFromPublic = errors.New("cannot derive hardened child from public key")

	// ErrNotPrivate is returned when private material is requested from a
	// public-only key
	ErrNotPrivate = errors.New("key does not carry private material")

	// ErrInvalidChild is returned when a derivation step yields an unusable
	// child (factor zero, factor >= n, or point at infinity)
	ErrInvalidChild = errors.New("derived child key is invalid, use next index")

	// ErrInvalidKey is returned when key material is malformed
	ErrInvalidKey = errors.New("invalid key material")

	// ErrIndexOutOfRange is returned when a child index exceeds the
	// non-hardened index space
	ErrIndexOutOfRange = errors.New("child index out of range")
)
