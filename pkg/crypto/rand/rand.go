// Package rand provides cryptographically secure random number generation
package rand

import (
	"crypto/rand"
	"io"
	"math/big"
)

// Reader is the default cryptographically secure random number generator
var Reader io.Reader = rand.Reader

// GenerateRandomBytes generates n cryptographically secure random bytes
func GenerateRandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}

	bytes := make([]byte, n)
	if _, err := io.ReadFull(Reader, bytes); err != nil {
		return nil, err
	}

	return bytes, nil
}

// GenerateRandomScalar generates a random scalar in range [1, max)
// This is cryptographically secure and uniform
func GenerateRandomScalar(max *big.Int) (*big.Int, error) {
	if max == nil {
		return nil, ErrNilMax
	}

	if max.Sign() <= 0 {
		return nil, ErrInvalidMax
	}

	// Generate random number in range [0, max)
	value, err := rand.Int(Reader, max)
	if err != nil {
		return nil, err
	}

	// Ensure non-zero by regenerating if zero
	// This is still uniform because we're rejecting with probability 1/max
	for value.Sign() == 0 {
		value, err = rand.Int(Reader, max)
		if err != nil {
			return nil, err
		}
	}

	return value, nil
}

// GenerateSeed generates entropy suitable for deriving a BIP32 master key.
// BIP32 requires between 16 and 64 bytes of seed material.
func GenerateSeed(n int) ([]byte, error) {
	if n < 16 || n > 64 {
		return nil, ErrInvalidSeedLength
	}
	return GenerateRandomBytes(n)
}
